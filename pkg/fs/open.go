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
	"github.com/winfsp/cgofuse/fuse"
)

// openMode classifies an Open/Create call by POSIX flag combination,
// per spec §4.5 step 5's open-mode table.
type openMode int

const (
	modeOpen openMode = iota
	modeTruncateExisting
	modeCreateNew
	modeCreateOrTruncate
	modeOpenOrCreate
)

func classifyOpen(hasCreate bool, flags int) openMode {
	if !hasCreate {
		if flags&fuse.O_TRUNC != 0 {
			return modeTruncateExisting
		}
		return modeOpen
	}
	switch {
	case flags&fuse.O_EXCL != 0:
		return modeCreateNew
	case flags&fuse.O_TRUNC != 0:
		return modeCreateOrTruncate
	default:
		return modeOpenOrCreate
	}
}

// Open answers the spec's open for paths without O_CREAT: the target
// must already exist (spec §4.5 steps 1-2).
func (a *Adapter) Open(path string, flags int) (int, uint64) {
	return a.openOrCreate(path, false, flags, 0)
}

// Create answers open with O_CREAT set (spec §4.5 steps 3-6).
func (a *Adapter) Create(path string, flags int, mode uint32) (int, uint64) {
	return a.openOrCreate(path, true, flags, mode)
}

func (a *Adapter) openOrCreate(path string, hasCreate bool, flags int, mode uint32) (int, uint64) {
	if isRoot(path) {
		return -fuse.EISDIR, 0
	}
	key := a.mapper.ToBlobPath(path)
	om := classifyOpen(hasCreate, flags)

	h := &handle{kind: kindFile, key: key}

	switch om {
	case modeCreateNew:
		if a.readOnly {
			return accessDenied.errno(), 0
		}
		if exists, k := a.exists(key); k != success {
			return k.errno(), 0
		} else if exists {
			return fileExists.errno(), 0
		}
		h.buf = a.newBuffer()
		h.buf.InitializeEmpty()
		h.isNew = true

	case modeOpenOrCreate:
		// Spec §4.5 step 5: open-or-create denies only read-only-and-
		// not-exists. An existing file opened with O_CREAT but neither
		// O_EXCL nor O_TRUNC is a plain read and must succeed even on a
		// read-only mount.
		exists, k := a.exists(key)
		if k != success {
			return k.errno(), 0
		}
		if exists {
			if err := a.loadInto(h); err != success {
				return err.errno(), 0
			}
		} else {
			if a.readOnly {
				return accessDenied.errno(), 0
			}
			h.buf = a.newBuffer()
			h.buf.InitializeEmpty()
			h.isNew = true
		}

	case modeCreateOrTruncate:
		if a.readOnly {
			return accessDenied.errno(), 0
		}
		h.buf = a.newBuffer()
		h.buf.InitializeEmpty()
		h.isNew = true // overwrite-on-close even if the key already exists

	case modeTruncateExisting:
		if a.readOnly {
			return accessDenied.errno(), 0
		}
		if k := a.loadInto(h); k != success {
			return k.errno(), 0
		}
		if err := h.buf.SetLength(0); err != nil {
			return internalError.errno(), 0
		}

	default: // modeOpen
		if k := a.loadInto(h); k != success {
			return k.errno(), 0
		}
	}

	if flags&fuse.O_APPEND != 0 {
		h.appendMode = true
	}
	fh := a.handles.register(h)
	return 0, fh
}

func (a *Adapter) exists(key string) (bool, kind) {
	if _, ok := a.cache.GetItem(key); ok {
		return true, success
	}
	ctx, cancel := a.ctx()
	defer cancel()
	exists, err := a.store.Exists(ctx, key)
	if err != nil {
		return false, kindFromErr(err)
	}
	return exists, success
}

// loadInto downloads key's content and populates h.buf, or returns
// fileNotFound if it doesn't exist.
func (a *Adapter) loadInto(h *handle) kind {
	ctx, cancel := a.ctx()
	defer cancel()
	it, err := a.store.GetProperties(ctx, h.key)
	if err != nil {
		return kindFromErr(err)
	}
	rc, err := a.store.Download(ctx, h.key)
	if err != nil {
		return kindFromErr(err)
	}
	defer rc.Close()

	h.buf = a.newBuffer()
	if loadErr := h.buf.Load(rc, it.Size); loadErr != nil {
		return internalError
	}
	a.cache.SetItem(h.key, it)
	return success
}
