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
	"errors"
	"net/http"

	"github.com/winfsp/cgofuse/fuse"

	"github.com/andybochmann/blob-mounter/pkg/blobstore"
)

// kind is the adapter's own error taxonomy (spec §7), kept distinct from
// the OS errno space so that every callback maps it at one chokepoint
// (errno below) rather than each callback inventing its own fuse.E*
// constant (spec §9's "map at a single chokepoint").
type kind int

const (
	success kind = iota
	fileNotFound
	fileExists
	accessDenied
	sharingViolation
	invalidParameter
	invalidHandle
	notImplemented
	internalError
)

// errno converts a kind to the negative errno value cgofuse expects a
// FileSystemInterface method to return.
func (k kind) errno() int {
	switch k {
	case success:
		return 0
	case fileNotFound:
		return -fuse.ENOENT
	case fileExists:
		return -fuse.EEXIST
	case accessDenied:
		return -fuse.EACCES
	case sharingViolation:
		return -fuse.EBUSY
	case invalidParameter:
		return -fuse.EINVAL
	case invalidHandle:
		return -fuse.EBADF
	case notImplemented:
		return -fuse.ENOSYS
	default:
		return -fuse.EIO
	}
}

// kindFromErr maps any error returned by a blobstore.Store call to the
// adapter's error taxonomy, per spec §4.2's status table. A nil error
// maps to success.
func kindFromErr(err error) kind {
	if err == nil {
		return success
	}
	var re *blobstore.RemoteError
	if errors.As(err, &re) {
		switch re.StatusCode {
		case http.StatusNotFound:
			return fileNotFound
		case http.StatusForbidden:
			return accessDenied
		case http.StatusConflict, http.StatusPreconditionFailed:
			return sharingViolation
		case http.StatusRequestedRangeNotSatisfiable:
			return invalidParameter
		default:
			return internalError
		}
	}
	if errors.Is(err, blobstore.ErrNotFound) {
		return fileNotFound
	}
	return internalError
}
