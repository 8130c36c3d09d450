/*
Copyright 2024 The Blob Mounter Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package fs

import (
	"bytes"
	"context"
	"strings"

	"github.com/andybochmann/blob-mounter/pkg/blobstore"
)

// Unlink answers delete_file (spec §4.5). The remote delete happens
// immediately: Delete is idempotent, so a concurrent in-flight handle on
// the same key racing this call is harmless either way. Any handle
// already open on this key is flagged deletePending so Release (cleanup)
// does not resurrect the key with a stale upload.
func (a *Adapter) Unlink(path string) int {
	if a.readOnly {
		return accessDenied.errno()
	}
	if isRoot(path) {
		return invalidParameter.errno()
	}
	key := a.mapper.ToBlobPath(path)
	a.flagOpenHandlesPending(key)

	ctx, cancel := a.ctx()
	defer cancel()
	if err := a.store.Delete(ctx, key); err != nil {
		return kindFromErr(err).errno()
	}
	a.cache.InvalidateItem(key)
	a.cache.InvalidatePrefix(a.splitParent(key))
	return 0
}

// Rmdir answers delete_directory (spec §4.5), including the recursive
// case (spec §8's recursive directory delete scenario): every key under
// the directory's prefix is removed with bounded fan-out via
// blobstore.DeletePrefix.
func (a *Adapter) Rmdir(path string) int {
	if a.readOnly {
		return accessDenied.errno()
	}
	if isRoot(path) {
		return invalidParameter.errno()
	}
	prefix := a.mapper.ListPrefix(path)

	ctx, cancel := a.ctx()
	defer cancel()
	if err := blobstore.DeletePrefix(ctx, a.store, prefix); err != nil {
		return kindFromErr(err).errno()
	}
	// The empty-directory marker itself, if one exists.
	markerKey := trimTrailingSlash(prefix) + "/"
	_ = a.store.Delete(ctx, markerKey)

	a.cache.InvalidatePrefix(prefix)
	a.cache.InvalidatePrefix(a.splitParent(trimTrailingSlash(prefix)))
	return 0
}

// Mkdir answers the spec's directory-creation affordance. Directories
// are otherwise purely synthetic (derived from common blob-key
// prefixes), so an explicitly created empty directory needs a zero-byte
// marker blob to remain visible once no child keys exist under it — the
// same convention rclone and other object-storage mounts in the pack use
// for "folders."
func (a *Adapter) Mkdir(path string, mode uint32) int {
	if a.readOnly {
		return accessDenied.errno()
	}
	prefix := a.mapper.ListPrefix(path)
	markerKey := trimTrailingSlash(prefix) + "/"

	ctx, cancel := a.ctx()
	defer cancel()
	if err := a.store.Upload(ctx, markerKey, bytes.NewReader(nil), true); err != nil {
		return kindFromErr(err).errno()
	}
	a.cache.InvalidatePrefix(a.splitParent(trimTrailingSlash(prefix)))
	return 0
}

// Rename answers move (spec §4.5). Object storage has no atomic rename
// primitive (spec §9 OQ-3 — accepted as non-atomic; a failure between
// copy and delete leaves both keys present, logged as an error rather
// than silently losing data), so a file move is a server-side copy to
// the new key followed by a delete of the old one, and a directory move
// repeats that per descendant key under the old prefix.
//
// The move is non-replacing: per spec §4.5's move contract, an existing
// destination is rejected with file-exists and nothing is copied,
// deleted, or invalidated.
func (a *Adapter) Rename(oldpath string, newpath string) int {
	if a.readOnly {
		return accessDenied.errno()
	}
	if isRoot(oldpath) || isRoot(newpath) {
		return invalidParameter.errno()
	}
	oldKey := a.mapper.ToBlobPath(oldpath)
	newKey := a.mapper.ToBlobPath(newpath)

	oldItem, k := a.statItem(oldKey)
	if k != success {
		return k.errno()
	}
	if _, k := a.statItem(newKey); k == success {
		return fileExists.errno()
	} else if k != fileNotFound {
		return k.errno()
	}

	ctx, cancel := a.ctx()
	defer cancel()

	if oldItem.IsDirectory {
		oldPrefix := trimTrailingSlash(oldKey) + "/"
		newPrefix := trimTrailingSlash(newKey) + "/"
		if k := a.renameDirectory(ctx, oldpath, newpath, oldPrefix, newPrefix); k != success {
			return k.errno()
		}
		a.cache.InvalidatePrefix(a.splitParent(oldKey))
		a.cache.InvalidatePrefix(a.splitParent(newKey))
		return 0
	}

	if err := a.store.Copy(ctx, oldKey, newKey); err != nil {
		return kindFromErr(err).errno()
	}
	if err := a.store.Delete(ctx, oldKey); err != nil {
		a.errorf("rename %q -> %q: copy succeeded but delete of source failed: %v", oldpath, newpath, err)
	}
	a.cache.InvalidateItem(oldKey)
	a.cache.InvalidateItem(newKey)
	a.cache.InvalidatePrefix(a.splitParent(oldKey))
	a.cache.InvalidatePrefix(a.splitParent(newKey))
	return 0
}

// renameDirectory copies every key under oldPrefix to its substituted
// path under newPrefix, then deletes the originals. A copy failure
// aborts before any delete runs, so a failed directory move can at
// worst leave both trees present rather than lose data.
func (a *Adapter) renameDirectory(ctx context.Context, oldpath, newpath, oldPrefix, newPrefix string) kind {
	keys, err := a.store.ListAll(ctx, oldPrefix)
	if err != nil {
		return kindFromErr(err)
	}
	if len(keys) == 0 {
		return fileNotFound
	}

	dstKeys := make([]string, len(keys))
	for i, key := range keys {
		dstKeys[i] = newPrefix + strings.TrimPrefix(key, oldPrefix)
	}
	for i, key := range keys {
		if err := a.store.Copy(ctx, key, dstKeys[i]); err != nil {
			return kindFromErr(err)
		}
	}
	for _, key := range keys {
		if err := a.store.Delete(ctx, key); err != nil {
			a.errorf("rename %q -> %q: copy succeeded but delete of %q failed: %v", oldpath, newpath, key, err)
		}
	}
	a.cache.InvalidatePrefix(oldPrefix)
	a.cache.InvalidatePrefix(newPrefix)
	return success
}

func (a *Adapter) flagOpenHandlesPending(key string) {
	a.handles.mu.Lock()
	defer a.handles.mu.Unlock()
	for _, h := range a.handles.entries {
		h.mu.Lock()
		if h.key == key {
			h.deletePending = true
		}
		h.mu.Unlock()
	}
}
