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
	"time"

	"github.com/winfsp/cgofuse/fuse"

	"github.com/andybochmann/blob-mounter/pkg/blobstore"
	"github.com/andybochmann/blob-mounter/pkg/pathmap"
)

// timespec converts a time.Time to the fuse.Timespec cgofuse's Stat_t
// expects.
func timespec(t time.Time) fuse.Timespec {
	return fuse.Timespec{Sec: t.Unix(), Nsec: int64(t.Nanosecond())}
}

const (
	dirMode  = fuse.S_IFDIR | 0755
	fileMode = fuse.S_IFREG | 0644
)

// statItem resolves the blobstore.Item for a blob key, preferring the
// metadata cache (spec §4.3) and falling back to a remote GetProperties.
// An empty key means the mount root, which is always a directory and
// never hits the remote store.
//
// If GetProperties reports not-found, key may still be a synthetic
// directory that exists only as a common prefix of other keys (spec
// §1's "synthesize directories from key prefixes") with no backing
// marker blob of its own. Spec §4.5's get_info falls back to a
// one-level hierarchy listing in that case: if it returns any entries
// at all, key is reported as a directory rather than not-found.
func (a *Adapter) statItem(key string) (blobstore.Item, kind) {
	if key == "" {
		return blobstore.Item{IsDirectory: true}, success
	}
	if it, ok := a.cache.GetItem(key); ok {
		return it, success
	}
	ctx, cancel := a.ctx()
	defer cancel()
	it, err := a.store.GetProperties(ctx, key)
	if err == nil {
		a.cache.SetItem(key, it)
		return it, success
	}
	if kindFromErr(err) != fileNotFound {
		return blobstore.Item{}, kindFromErr(err)
	}

	prefix := trimTrailingSlash(key) + "/"
	children, listErr := a.store.ListByHierarchy(ctx, prefix)
	if listErr != nil {
		return blobstore.Item{}, kindFromErr(listErr)
	}
	if len(children) == 0 {
		return blobstore.Item{}, fileNotFound
	}
	dir := blobstore.Item{Name: pathmap.LeafName(key), FullPath: prefix, IsDirectory: true}
	a.cache.SetItem(key, dir)
	return dir, success
}

// fillStat populates stat from a resolved Item (spec §4.5's get_info).
func fillStat(stat *fuse.Stat_t, it blobstore.Item) {
	*stat = fuse.Stat_t{}
	if it.IsDirectory {
		stat.Mode = dirMode
		stat.Nlink = 2
	} else {
		stat.Mode = fileMode
		stat.Nlink = 1
		stat.Size = it.Size
	}
	ts := timespec(it.LastModified)
	stat.Mtim = ts
	stat.Ctim = ts
	stat.Atim = ts
	stat.Birthtim = ts
}

// Getattr answers get-info (spec §4.5). If fh refers to an open handle
// with a loaded buffer, its in-flight size takes precedence over
// whatever is cached or remote, so a process stat'ing its own unsynced
// writes sees them.
func (a *Adapter) Getattr(path string, stat *fuse.Stat_t, fh uint64) int {
	if h, ok := a.handles.get(fh); ok {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.kind == kindDir {
			*stat = fuse.Stat_t{Mode: dirMode, Nlink: 2}
			return 0
		}
		if h.buf != nil {
			*stat = fuse.Stat_t{Mode: fileMode, Nlink: 1, Size: h.buf.Length()}
			return 0
		}
	}

	if isRoot(path) {
		*stat = fuse.Stat_t{Mode: dirMode, Nlink: 2}
		return 0
	}
	key := a.mapper.ToBlobPath(path)
	it, k := a.statItem(key)
	if k != success {
		return k.errno()
	}
	fillStat(stat, it)
	return 0
}

// Chmod, Chown, Utimens, and Access are no-ops that report success: the
// remote store has no notion of POSIX permission bits, and refusing
// these calls outright breaks common tools (cp -p, rsync) that issue
// them defensively after every write.
func (a *Adapter) Chmod(path string, mode uint32) int                 { return 0 }
func (a *Adapter) Chown(path string, uid uint32, gid uint32) int      { return 0 }
func (a *Adapter) Utimens(path string, tmsp []fuse.Timespec) int      { return 0 }
func (a *Adapter) Access(path string, mask uint32) int                { return 0 }
