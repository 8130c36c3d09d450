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
	"sync"

	"github.com/andybochmann/blob-mounter/pkg/filebuf"
)

// handleKind distinguishes the two things an opaque fh can refer to.
type handleKind int

const (
	kindFile handleKind = iota
	kindDir
)

// handle is the adapter's FileContext (spec §4.4): per-open-handle state
// tracking one native path, an optional content buffer, and whether the
// handle is pending deletion. Unlink deletes the remote key at once and
// sets deletePending on handles open on that key, so that Release skips
// their upload (POSIX unlink-while-open); the delete itself is not
// deferred to Release.
type handle struct {
	mu sync.Mutex

	kind handleKind
	key  string // blob key for a file; list prefix for a directory ("" or the subfolder prefix at the root)

	buf           *filebuf.Buffer // lazily loaded; nil until first touch
	appendMode    bool
	deletePending bool
	isNew         bool // created by this handle, never yet uploaded
}

// handleTable hands out monotonically increasing file-handle numbers and
// tracks the live set, mirroring perkeep's pkg/fs mutFile/roFile node
// registries but keyed by fh instead of by inode.
type handleTable struct {
	mu      sync.Mutex
	next    uint64
	entries map[uint64]*handle
}

func newHandleTable() *handleTable {
	return &handleTable{next: 1, entries: make(map[uint64]*handle)}
}

func (t *handleTable) register(h *handle) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	fh := t.next
	t.next++
	t.entries[fh] = h
	return fh
}

func (t *handleTable) get(fh uint64) (*handle, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.entries[fh]
	return h, ok
}

func (t *handleTable) release(fh uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, fh)
}
