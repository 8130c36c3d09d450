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

// Package pathmap translates between native OS paths (backslash
// separated, leading separator) and blob keys (forward-slash separated,
// no leading separator, optionally rooted under a container subfolder).
package pathmap

import "strings"

// Mapper owns every separator and prefix convention so that callers
// only ever deal in native paths or blob keys, never both at once.
type Mapper struct {
	// prefix is the normalized subfolder: either "" or "seg1/seg2/".
	prefix string
}

// New returns a Mapper rooted at the given subfolder, which may be
// empty, contain backslashes, or carry leading/trailing separators of
// either kind; all of that is normalized away.
func New(subfolder string) *Mapper {
	return &Mapper{prefix: normalizePrefix(subfolder)}
}

func normalizePrefix(subfolder string) string {
	s := strings.Trim(subfolder, `/\`)
	s = strings.ReplaceAll(s, `\`, "/")
	if s == "" {
		return ""
	}
	return s + "/"
}

// Prefix returns the normalized subfolder prefix ("" or "a/b/").
func (m *Mapper) Prefix() string {
	return m.prefix
}

// ToBlobPath converts a native path to a blob key. The root native path
// (a single separator, or empty) maps to the prefix itself (possibly
// empty).
func (m *Mapper) ToBlobPath(nativePath string) string {
	s := strings.TrimLeft(nativePath, `/\`)
	s = strings.ReplaceAll(s, `\`, "/")
	return m.prefix + s
}

// ToNativePath converts a blob key back to a native path. If the key
// begins with the configured prefix, the prefix is stripped before
// conversion. The comparison is case-sensitive: the backing store is
// case-sensitive (spec §9 OQ-4), so folding case here would risk
// mis-mapping a legitimately differently-cased key.
func (m *Mapper) ToNativePath(blobKey string) string {
	s := blobKey
	if m.prefix != "" && strings.HasPrefix(s, m.prefix) {
		s = s[len(m.prefix):]
	}
	s = strings.ReplaceAll(s, "/", `\`)
	return `\` + s
}

// ListPrefix computes the blob-key prefix to pass to a hierarchical
// listing for the given native directory path: ToBlobPath with a
// trailing slash appended, unless the path is already empty or already
// ends in one.
func (m *Mapper) ListPrefix(nativePath string) string {
	p := m.ToBlobPath(nativePath)
	if p == "" || strings.HasSuffix(p, "/") {
		return p
	}
	return p + "/"
}

// LeafName returns the display name for a blob key: the substring after
// the last '/', after trimming one trailing '/' (used for both real
// blobs and synthesized directory markers).
func LeafName(blobKey string) string {
	s := strings.TrimSuffix(blobKey, "/")
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		return s[i+1:]
	}
	return s
}
