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

// Release answers cleanup (spec §4.5): the last handle to a file
// uploads its content if dirty (unless a concurrent Unlink flagged it
// deletePending, in which case the upload is skipped outright), then
// frees the buffer. Per spec §9 OQ-1, an upload failure here is logged
// and swallowed rather than surfaced through a sticky per-path error:
// there is no fuse.FileSystemInterface callback left to report it
// through once the handle is gone.
func (a *Adapter) Release(path string, fh uint64) int {
	h, ok := a.handles.get(fh)
	if !ok {
		return invalidHandle.errno()
	}
	a.handles.release(fh)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.kind != kindFile || h.buf == nil {
		return 0
	}
	defer h.buf.Dispose()

	if h.deletePending {
		return 0
	}
	if !h.buf.Dirty() {
		return 0
	}
	if k := a.upload(h); k != success {
		a.errorf("cleanup: upload of %q failed: errno %d", h.key, k.errno())
		return 0
	}
	return 0
}
