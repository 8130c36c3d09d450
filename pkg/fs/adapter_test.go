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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/winfsp/cgofuse/fuse"

	"github.com/andybochmann/blob-mounter/pkg/blobstore/blobstoretest"
	"github.com/andybochmann/blob-mounter/pkg/metacache"
	"github.com/andybochmann/blob-mounter/pkg/pathmap"
)

func newTestAdapter(t *testing.T, store *blobstoretest.Store, subfolder string, readOnly bool) *Adapter {
	t.Helper()
	return New(Config{
		Store:          store,
		Mapper:         pathmap.New(subfolder),
		Cache:          metacache.New(time.Minute),
		ReadOnly:       readOnly,
		SpillThreshold: 16, // tiny, so large-file tests actually spill
		SpillDir:       t.TempDir(),
	})
}

// Scenario: create a new file under a configured subfolder.
func TestScenarioCreateNewUnderSubfolder(t *testing.T) {
	store := blobstoretest.New()
	a := newTestAdapter(t, store, "data/mount", false)

	errno, fh := a.Create(`\notes\todo.txt`, fuse.O_CREAT|fuse.O_EXCL|fuse.O_RDWR, 0644)
	require.Equal(t, 0, errno)

	n := a.Write(`\notes\todo.txt`, []byte("buy milk"), 0, fh)
	assert.Equal(t, len("buy milk"), n)

	require.Equal(t, 0, a.Release(`\notes\todo.txt`, fh))

	content, ok := store.Contents("data/mount/notes/todo.txt")
	require.True(t, ok)
	assert.Equal(t, "buy milk", string(content))
}

// Scenario: read an existing object back through Open/Read.
func TestScenarioReadExisting(t *testing.T) {
	store := blobstoretest.New()
	store.Seed("readme.txt", []byte("hello"))
	a := newTestAdapter(t, store, "", false)

	errno, fh := a.Open(`\readme.txt`, fuse.O_RDONLY)
	require.Equal(t, 0, errno)

	buf := make([]byte, 5)
	n := a.Read(`\readme.txt`, buf, 0, fh)
	require.Equal(t, 5, n)
	assert.Equal(t, "hello", string(buf))
	assert.Equal(t, 0, a.Release(`\readme.txt`, fh))
}

// Scenario: a rename onto a path that does not yet exist succeeds,
// copying the source to the new key and removing the original.
func TestScenarioRenameOntoNewPath(t *testing.T) {
	store := blobstoretest.New()
	store.Seed("a.txt", []byte("content"))
	a := newTestAdapter(t, store, "", false)

	require.Equal(t, 0, a.Rename(`\a.txt`, `\b.txt`))

	_, ok := store.Contents("a.txt")
	assert.False(t, ok, "source key should be gone after rename")
	got, ok := store.Contents("b.txt")
	require.True(t, ok)
	assert.Equal(t, "content", string(got))
}

// Scenario: move with replace=false onto an existing destination (spec
// §4.5 move, non-replacing contract) returns file-exists and leaves
// both keys untouched — no copy, no delete, no invalidation.
func TestScenarioRenameNonReplacing(t *testing.T) {
	store := blobstoretest.New()
	store.Seed("a.txt", []byte("source"))
	store.Seed("b.txt", []byte("destination"))
	a := newTestAdapter(t, store, "", false)

	callsBefore := len(store.Calls)
	errno := a.Rename(`\a.txt`, `\b.txt`)
	assert.Equal(t, fileExists.errno(), errno)

	for _, call := range store.Calls[callsBefore:] {
		assert.NotContains(t, call, "copy(")
		assert.NotContains(t, call, "delete(")
		assert.NotContains(t, call, "upload(")
	}

	got, ok := store.Contents("a.txt")
	require.True(t, ok, "source key must survive a rejected rename")
	assert.Equal(t, "source", string(got))
	got, ok = store.Contents("b.txt")
	require.True(t, ok)
	assert.Equal(t, "destination", string(got))
}

// Scenario: renaming a synthetic directory (a pure key prefix with no
// marker blob) moves every descendant key to the substituted prefix.
func TestScenarioRenameDirectory(t *testing.T) {
	store := blobstoretest.New()
	store.Seed("photos/a.jpg", []byte("1"))
	store.Seed("photos/sub/b.jpg", []byte("2"))
	a := newTestAdapter(t, store, "", false)

	require.Equal(t, 0, a.Rename(`\photos`, `\pictures`))

	_, ok := store.Contents("photos/a.jpg")
	assert.False(t, ok)
	_, ok = store.Contents("photos/sub/b.jpg")
	assert.False(t, ok)

	got, ok := store.Contents("pictures/a.jpg")
	require.True(t, ok)
	assert.Equal(t, "1", string(got))
	got, ok = store.Contents("pictures/sub/b.jpg")
	require.True(t, ok)
	assert.Equal(t, "2", string(got))
}

// Scenario: recursive directory delete removes every descendant key.
func TestScenarioRecursiveDirectoryDelete(t *testing.T) {
	store := blobstoretest.New()
	store.Seed("proj/a.txt", []byte("1"))
	store.Seed("proj/sub/b.txt", []byte("2"))
	store.Seed("proj/sub/deep/c.txt", []byte("3"))
	store.Seed("other.txt", []byte("4"))
	a := newTestAdapter(t, store, "", false)

	require.Equal(t, 0, a.Rmdir(`\proj`))

	_, ok := store.Contents("proj/a.txt")
	assert.False(t, ok)
	_, ok = store.Contents("proj/sub/b.txt")
	assert.False(t, ok)
	_, ok = store.Contents("proj/sub/deep/c.txt")
	assert.False(t, ok)
	_, ok = store.Contents("other.txt")
	assert.True(t, ok, "sibling key must survive")
}

// Scenario: opening a large existing object spills its content to disk
// (the adapter's SpillThreshold is 16 bytes in tests) and still reads
// back correctly.
func TestScenarioLargeFileSpills(t *testing.T) {
	store := blobstoretest.New()
	payload := make([]byte, 256)
	for i := range payload {
		payload[i] = byte(i)
	}
	store.Seed("big.bin", payload)
	a := newTestAdapter(t, store, "", false)

	errno, fh := a.Open(`\big.bin`, fuse.O_RDWR)
	require.Equal(t, 0, errno)

	h, ok := a.handles.get(fh)
	require.True(t, ok)
	assert.NotNil(t, h.buf, "buffer should be loaded")

	got := make([]byte, len(payload))
	n := a.Read(`\big.bin`, got, 0, fh)
	require.Equal(t, len(payload), n)
	assert.Equal(t, payload, got)

	require.Equal(t, 0, a.Release(`\big.bin`, fh))
}

// Scenario: a read-only mount rejects writes.
func TestScenarioReadOnlyMountRejectsWrites(t *testing.T) {
	store := blobstoretest.New()
	store.Seed("x.txt", []byte("hi"))
	a := newTestAdapter(t, store, "", true)

	errno, _ := a.Create(`\new.txt`, fuse.O_CREAT|fuse.O_EXCL|fuse.O_RDWR, 0644)
	assert.Equal(t, accessDenied.errno(), errno)

	errno = a.Unlink(`\x.txt`)
	assert.Equal(t, accessDenied.errno(), errno)

	errno = a.Rmdir(`\dir`)
	assert.Equal(t, accessDenied.errno(), errno)

	errno, fh := a.Open(`\x.txt`, fuse.O_RDONLY)
	require.Equal(t, 0, errno)
	errno = a.Write(`\x.txt`, []byte("nope"), 0, fh)
	assert.Equal(t, accessDenied.errno(), errno)
}

// Scenario: spec §4.5 step 5 — open-or-create on a read-only mount
// denies only read-only-and-not-exists. Opening an existing file with
// O_CREAT but neither O_EXCL nor O_TRUNC is a plain read and must
// succeed even though the mount is read-only.
func TestScenarioOpenOrCreateExistingOnReadOnlyMount(t *testing.T) {
	store := blobstoretest.New()
	store.Seed("x.txt", []byte("hi"))
	a := newTestAdapter(t, store, "", true)

	errno, fh := a.Create(`\x.txt`, fuse.O_CREAT|fuse.O_RDONLY, 0644)
	require.Equal(t, 0, errno)
	require.Equal(t, 0, a.Release(`\x.txt`, fh))
}

// Scenario: open-or-create for a path that does not exist still denies
// on a read-only mount, since that path would have to create a blob.
func TestScenarioOpenOrCreateMissingOnReadOnlyMount(t *testing.T) {
	store := blobstoretest.New()
	a := newTestAdapter(t, store, "", true)

	errno, _ := a.Create(`\new.txt`, fuse.O_CREAT|fuse.O_RDONLY, 0644)
	assert.Equal(t, accessDenied.errno(), errno)
}

func TestGetattrRoot(t *testing.T) {
	store := blobstoretest.New()
	a := newTestAdapter(t, store, "", false)

	var st fuse.Stat_t
	errno := a.Getattr(`\`, &st, ^uint64(0))
	require.Equal(t, 0, errno)
	assert.Equal(t, uint32(dirMode), st.Mode)
}

// Scenario: a synthetic directory (a pure key prefix such as "photos/"
// with no backing marker blob of its own) can still be stat'd — the OS
// Getattrs a directory before entering it, so this is the path that
// makes prefix-synthesized folders browsable at all (spec §1, §4.5).
func TestGetattrSyntheticDirectory(t *testing.T) {
	store := blobstoretest.New()
	store.Seed("photos/a.jpg", []byte("1"))
	a := newTestAdapter(t, store, "", false)

	var st fuse.Stat_t
	errno := a.Getattr(`\photos`, &st, ^uint64(0))
	require.Equal(t, 0, errno)
	assert.Equal(t, uint32(dirMode), st.Mode)
}

// Scenario: stat'ing a key that has neither a marker blob nor any
// descendant keys reports not-found rather than masquerading as a
// directory.
func TestGetattrMissingPathIsNotFound(t *testing.T) {
	store := blobstoretest.New()
	a := newTestAdapter(t, store, "", false)

	var st fuse.Stat_t
	errno := a.Getattr(`\missing`, &st, ^uint64(0))
	assert.Equal(t, fileNotFound.errno(), errno)
}

// Scenario: find-children-with-pattern filters a directory's children
// by shell glob against their leaf names only.
func TestEnumerateFiltersByPattern(t *testing.T) {
	store := blobstoretest.New()
	store.Seed("dir/a.txt", []byte("1"))
	store.Seed("dir/b.jpg", []byte("2"))
	a := newTestAdapter(t, store, "", false)

	items, err := a.Enumerate(`\dir`, "*.txt")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "dir/a.txt", items[0].FullPath)
}

func TestReaddirListsChildren(t *testing.T) {
	store := blobstoretest.New()
	store.Seed("dir/a.txt", []byte("1"))
	store.Seed("dir/b.txt", []byte("2"))
	a := newTestAdapter(t, store, "", false)

	errno, fh := a.Opendir(`\dir`)
	require.Equal(t, 0, errno)

	var names []string
	fill := func(name string, stat *fuse.Stat_t, ofst int64) bool {
		names = append(names, name)
		return true
	}
	require.Equal(t, 0, a.Readdir(`\dir`, fill, 0, fh))
	assert.Contains(t, names, "a.txt")
	assert.Contains(t, names, "b.txt")
	assert.Contains(t, names, ".")
	assert.Contains(t, names, "..")
	require.Equal(t, 0, a.Releasedir(`\dir`, fh))
}

func TestCreateNewRejectsExisting(t *testing.T) {
	store := blobstoretest.New()
	store.Seed("dup.txt", []byte("x"))
	a := newTestAdapter(t, store, "", false)

	errno, _ := a.Create(`\dup.txt`, fuse.O_CREAT|fuse.O_EXCL|fuse.O_RDWR, 0644)
	assert.Equal(t, fileExists.errno(), errno)
}
