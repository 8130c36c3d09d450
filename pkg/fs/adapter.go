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

// Package fs implements the FileSystemAdapter (spec §4.5): a
// fuse.FileSystemInterface, from winfsp/cgofuse, that projects a
// blobstore.Store as a mountable drive. It generalizes perkeep's
// pkg/fs.CamliFileSystem, which plays the same role against perkeep's
// own blobserver.Storage, but targets cgofuse (cross-platform, Windows
// included via WinFsp) instead of perkeep's bazil.org/fuse (Unix-only).
package fs

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/winfsp/cgofuse/fuse"

	"github.com/andybochmann/blob-mounter/pkg/blobstore"
	"github.com/andybochmann/blob-mounter/pkg/filebuf"
	"github.com/andybochmann/blob-mounter/pkg/metacache"
	"github.com/andybochmann/blob-mounter/pkg/pathmap"
)

// opTimeout bounds any single remote call issued from a FUSE callback:
// the kernel (or WinFsp) is blocked on the other side, so a hung remote
// call must not hang the mount forever.
const opTimeout = 30 * time.Second

// Adapter implements fuse.FileSystemInterface. The zero value is not
// usable; construct with New.
type Adapter struct {
	fuse.FileSystemBase

	store    blobstore.Store
	mapper   *pathmap.Mapper
	cache    *metacache.Cache
	readOnly bool

	spillThreshold int64
	spillDir       string

	logger  *log.Logger
	verbose bool

	handles *handleTable
}

// Config bundles Adapter's construction parameters; it is distinct from
// pkg/mountcfg.Config, which additionally carries CLI/credential
// concerns this package has no business knowing about.
type Config struct {
	Store          blobstore.Store
	Mapper         *pathmap.Mapper
	Cache          *metacache.Cache
	ReadOnly       bool
	SpillThreshold int64
	SpillDir       string
	Logger         *log.Logger
	Verbose        bool
}

// New returns an Adapter ready to be hosted by a fuse.FileSystemHost.
func New(cfg Config) *Adapter {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "blobmount: ", log.LstdFlags)
	}
	return &Adapter{
		store:          cfg.Store,
		mapper:         cfg.Mapper,
		cache:          cfg.Cache,
		readOnly:       cfg.ReadOnly,
		spillThreshold: cfg.SpillThreshold,
		spillDir:       cfg.SpillDir,
		logger:         logger,
		verbose:        cfg.Verbose,
		handles:        newHandleTable(),
	}
}

// Init is called once the mount is live (spec §4.5's mounted).
func (a *Adapter) Init() {
	a.debugf("mounted: container prefix %q, read-only=%v", a.mapper.Prefix(), a.readOnly)
}

// Destroy is called as the mount is torn down (spec §4.5's unmounted).
// Per spec §9 OQ-1, handles with unsynced writes that never received a
// cleanup callback are logged and dropped rather than force-flushed:
// there is no guaranteed-safe place left to report a late upload failure.
func (a *Adapter) Destroy() {
	a.handles.mu.Lock()
	for _, h := range a.handles.entries {
		h.mu.Lock()
		if h.kind == kindFile && h.buf != nil && h.buf.Dirty() && !h.deletePending {
			a.errorf("unmount: dropping unsynced writes to %q", h.key)
		}
		h.mu.Unlock()
	}
	a.handles.mu.Unlock()
	a.cache.Clear()
	a.debugf("unmounted")
}

// Statfs answers get-disk-free-space / get-volume-info (spec §4.5).
// Object storage has no fixed capacity, so this reports a large,
// deliberately nominal volume, matching the convention object-storage
// mounts in the pack (rclone, objectfs) use for the same situation.
func (a *Adapter) Statfs(path string, stat *fuse.Statfs_t) int {
	const blockSize = 4096
	const nominalBlocks = 1 << 40 // ~4 PiB worth of 4 KiB blocks
	*stat = fuse.Statfs_t{
		Bsize:   blockSize,
		Frsize:  blockSize,
		Blocks:  nominalBlocks,
		Bfree:   nominalBlocks / 2,
		Bavail:  nominalBlocks / 2,
		Namemax: 1024,
	}
	return 0
}

func (a *Adapter) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), opTimeout)
}

// newBuffer returns a filebuf.Buffer configured from the adapter's
// spill settings.
func (a *Adapter) newBuffer() *filebuf.Buffer {
	return filebuf.New(a.spillThreshold, a.spillDir)
}

// isRoot reports whether a native path refers to the mount root.
func isRoot(path string) bool {
	return path == "" || path == "/" || path == `\`
}

// splitParent returns the blob-key prefix of path's parent directory,
// for use with metacache invalidation after a single-key mutation.
func (a *Adapter) splitParent(key string) string {
	return metacache.ParentPrefix(key)
}

// denyIfReadOnly returns -EACCES (as a ready-to-return errno) if the
// mount is read-only, and 0 otherwise.
func (a *Adapter) denyIfReadOnly() int {
	if a.readOnly {
		return accessDenied.errno()
	}
	return 0
}

func trimTrailingSlash(s string) string {
	return strings.TrimSuffix(s, "/")
}
