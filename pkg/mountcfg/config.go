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

// Package mountcfg holds the immutable bundle of values that describe
// one mount for its entire lifetime (spec §3's MountConfig): which
// container to project, where to project it, and under what policy.
package mountcfg

import (
	"errors"
	"time"

	"github.com/andybochmann/blob-mounter/pkg/metacache"
)

// Config is a plain value built once by cmd/blobmount; nothing in pkg/fs
// or cmd/blobmount mutates it after a mount starts.
type Config struct {
	AccountName   string
	AccountKey    string
	ContainerName string
	Subfolder     string // optional; "" mounts the container root
	MountPoint    string // drive letter ("X:") or POSIX mount path
	ReadOnly      bool
	CacheTTL      time.Duration // 0 uses metacache.DefaultTTL
	SpillDir      string        // "" uses the OS temp directory
}

// Validate checks the required fields spec §6 lists for a mount: blank
// AccountName/AccountKey/ContainerName/MountPoint is always an
// operator error caught before a mount attempt, not a remote one.
func (c Config) Validate() error {
	switch {
	case c.AccountName == "":
		return errors.New("mountcfg: account name is required")
	case c.AccountKey == "":
		return errors.New("mountcfg: account key is required")
	case c.ContainerName == "":
		return errors.New("mountcfg: container name is required")
	case c.MountPoint == "":
		return errors.New("mountcfg: mount point is required")
	}
	return nil
}

// EffectiveCacheTTL returns CacheTTL, or metacache.DefaultTTL if unset.
func (c Config) EffectiveCacheTTL() time.Duration {
	if c.CacheTTL <= 0 {
		return metacache.DefaultTTL
	}
	return c.CacheTTL
}
