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
	"path/filepath"

	"github.com/winfsp/cgofuse/fuse"

	"github.com/andybochmann/blob-mounter/pkg/blobstore"
	"github.com/andybochmann/blob-mounter/pkg/pathmap"
)

// Opendir answers the directory half of open (spec §4.5): it registers a
// directory handle without contacting the store, since listing happens
// in Readdir.
func (a *Adapter) Opendir(path string) (int, uint64) {
	h := &handle{kind: kindDir, key: trimLeadingForKey(a.mapper, path)}
	return 0, a.handles.register(h)
}

func trimLeadingForKey(m *pathmap.Mapper, path string) string {
	if isRoot(path) {
		return m.Prefix()
	}
	return m.ListPrefix(path)
}

// Readdir answers enumerate / find-children (spec §4.5), listing the
// cached or fetched hierarchy for the directory and synthesizing the
// "." and ".." entries every FUSE consumer expects.
func (a *Adapter) Readdir(path string,
	fill func(name string, stat *fuse.Stat_t, ofst int64) bool,
	ofst int64,
	fh uint64) int {

	prefix := trimLeadingForKey(a.mapper, path)

	items, ok := a.cache.GetListing(prefix)
	if !ok {
		ctx, cancel := a.ctx()
		defer cancel()
		remote, err := a.store.ListByHierarchy(ctx, prefix)
		if err != nil {
			return kindFromErr(err).errno()
		}
		items = remote
		a.cache.SetListing(prefix, items)
	}

	fill(".", &fuse.Stat_t{Mode: dirMode, Nlink: 2}, 0)
	fill("..", &fuse.Stat_t{Mode: dirMode, Nlink: 2}, 0)
	for _, it := range items {
		name := pathmap.LeafName(it.FullPath)
		if name == "" {
			continue
		}
		a.cache.SetItem(it.FullPath, it)
		var st fuse.Stat_t
		fillStat(&st, it)
		if !fill(name, &st, 0) {
			break
		}
	}
	return 0
}

// Enumerate answers find-children-with-pattern (spec §4.5): cgofuse's
// Readdir has no pattern parameter, so a caller that wants shell-glob
// filtering over a directory's children (the semantics Windows'
// FindFirstFile/FindNextFile expose) calls this directly instead of
// going through the FUSE vtable. Matching is against the child's leaf
// name only, never the full key.
func (a *Adapter) Enumerate(path, pattern string) ([]blobstore.Item, error) {
	prefix := trimLeadingForKey(a.mapper, path)

	items, ok := a.cache.GetListing(prefix)
	if !ok {
		ctx, cancel := a.ctx()
		defer cancel()
		remote, err := a.store.ListByHierarchy(ctx, prefix)
		if err != nil {
			return nil, err
		}
		items = remote
		a.cache.SetListing(prefix, items)
	}

	if pattern == "" || pattern == "*" {
		return items, nil
	}

	var matched []blobstore.Item
	for _, it := range items {
		name := pathmap.LeafName(it.FullPath)
		ok, err := filepath.Match(pattern, name)
		if err != nil {
			return nil, err
		}
		if ok {
			a.cache.SetItem(it.FullPath, it)
			matched = append(matched, it)
		}
	}
	return matched, nil
}

// Releasedir frees the directory handle; there is nothing else to flush.
func (a *Adapter) Releasedir(path string, fh uint64) int {
	a.handles.release(fh)
	return 0
}

// Fsyncdir is a no-op: directory listings are never buffered locally
// beyond the metadata cache, which has its own TTL-driven lifecycle.
func (a *Adapter) Fsyncdir(path string, datasync bool, fh uint64) int { return 0 }
