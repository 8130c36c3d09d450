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

// Package blobstoretest provides an in-memory blobstore.Store double so
// that pkg/fs and pkg/blobstore tests never touch the network, the same
// way perkeep's pkg/fs tests exercise CamliFileSystem against small
// local fixtures rather than a live blobserver.
package blobstoretest

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/andybochmann/blob-mounter/pkg/blobstore"
)

// Store is a goroutine-safe, in-memory implementation of blobstore.Store.
type Store struct {
	mu    sync.Mutex
	blobs map[string][]byte

	// Calls records every method invocation, in order, for assertions
	// on the adapter's expected call sequence (spec §8 scenario tests).
	Calls []string
}

// New returns an empty Store.
func New() *Store {
	return &Store{blobs: make(map[string][]byte)}
}

func (s *Store) record(call string) {
	s.Calls = append(s.Calls, call)
}

func (s *Store) Probe(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("probe")
	return nil
}

func (s *Store) ListByHierarchy(ctx context.Context, prefix string) ([]blobstore.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("list_by_hierarchy(" + prefix + ")")

	seen := make(map[string]blobstore.Item)
	for key, content := range s.blobs {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := key[len(prefix):]
		if rest == "" {
			continue
		}
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			dirName := rest[:i]
			full := prefix + dirName + "/"
			seen[full] = blobstore.Item{Name: dirName, FullPath: full, IsDirectory: true}
			continue
		}
		seen[key] = blobstore.Item{
			Name:         rest,
			FullPath:     key,
			Size:         int64(len(content)),
			LastModified: time.Now().UTC(),
		}
	}
	items := make([]blobstore.Item, 0, len(seen))
	for _, it := range seen {
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].FullPath < items[j].FullPath })
	return items, nil
}

func (s *Store) ListAll(ctx context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("list_all(" + prefix + ")")

	var keys []string
	for key := range s.blobs {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) GetProperties(ctx context.Context, key string) (blobstore.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("get_properties(" + key + ")")

	content, ok := s.blobs[key]
	if !ok {
		return blobstore.Item{}, &blobstore.RemoteError{StatusCode: http.StatusNotFound, Op: "get_properties", Key: key, Err: blobstore.ErrNotFound}
	}
	return blobstore.Item{
		Name:         key[strings.LastIndexByte(key, '/')+1:],
		FullPath:     key,
		Size:         int64(len(content)),
		LastModified: time.Now().UTC(),
	}, nil
}

func (s *Store) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("download(" + key + ")")

	content, ok := s.blobs[key]
	if !ok {
		return nil, &blobstore.RemoteError{StatusCode: http.StatusNotFound, Op: "download", Key: key, Err: blobstore.ErrNotFound}
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (s *Store) Upload(ctx context.Context, key string, src io.Reader, overwrite bool) error {
	data, err := io.ReadAll(src)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("upload(" + key + ")")

	if !overwrite {
		if _, exists := s.blobs[key]; exists {
			return &blobstore.RemoteError{StatusCode: http.StatusConflict, Op: "upload", Key: key, Err: blobstore.ErrNotFound}
		}
	}
	s.blobs[key] = data
	return nil
}

func (s *Store) Copy(ctx context.Context, src, dst string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("copy(" + src + "," + dst + ")")

	content, ok := s.blobs[src]
	if !ok {
		return &blobstore.RemoteError{StatusCode: http.StatusNotFound, Op: "copy", Key: src, Err: blobstore.ErrNotFound}
	}
	cp := make([]byte, len(content))
	copy(cp, content)
	s.blobs[dst] = cp
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("delete(" + key + ")")

	delete(s.blobs, key)
	return nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("exists(" + key + ")")

	_, ok := s.blobs[key]
	return ok, nil
}

// Seed directly installs a blob's content, bypassing Upload's call
// recording, for test fixture setup.
func (s *Store) Seed(key string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = content
}

// Contents returns a copy of key's bytes, or (nil, false) if absent.
func (s *Store) Contents(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.blobs[key]
	if !ok {
		return nil, false
	}
	cp := make([]byte, len(content))
	copy(cp, content)
	return cp, true
}
