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

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/winfsp/cgofuse/fuse"

	"github.com/andybochmann/blob-mounter/pkg/blobstore"
	"github.com/andybochmann/blob-mounter/pkg/fs"
	"github.com/andybochmann/blob-mounter/pkg/metacache"
	"github.com/andybochmann/blob-mounter/pkg/mountcfg"
	"github.com/andybochmann/blob-mounter/pkg/pathmap"
)

var (
	mountAccountName   string
	mountAccountKey    string
	mountContainerName string
	mountSubfolder     string
	mountReadOnly      bool
	mountCacheTTL      time.Duration
)

var mountCmd = &cobra.Command{
	Use:   "mount <drive-or-path>",
	Short: "Mount a container and block until unmounted",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mountcfg.Config{
			AccountName:   mountAccountName,
			AccountKey:    mountAccountKey,
			ContainerName: mountContainerName,
			Subfolder:     mountSubfolder,
			MountPoint:    args[0],
			ReadOnly:      mountReadOnly,
			CacheTTL:      mountCacheTTL,
		}
		if err := cfg.Validate(); err != nil {
			fatalf("blobmount: %v", err)
		}
		if err := runMount(cfg); err != nil {
			fatalf("blobmount: %v", err)
		}
	},
}

func init() {
	mountCmd.Flags().StringVar(&mountAccountName, "account", "", "storage account name (required)")
	mountCmd.Flags().StringVar(&mountAccountKey, "key", "", "storage account key (required)")
	mountCmd.Flags().StringVar(&mountContainerName, "container", "", "container name (required)")
	mountCmd.Flags().StringVar(&mountSubfolder, "subfolder", "", "mount only this subfolder of the container")
	mountCmd.Flags().BoolVar(&mountReadOnly, "read-only", false, "reject every write")
	mountCmd.Flags().DurationVar(&mountCacheTTL, "cache-ttl", metacache.DefaultTTL, "metadata cache time-to-live")
	rootCmd.AddCommand(mountCmd)
}

func containerURL(accountName, containerName string) string {
	return fmt.Sprintf("https://%s.blob.core.windows.net/%s", accountName, containerName)
}

func runMount(cfg mountcfg.Config) error {
	store, err := blobstore.NewAzureStore(containerURL(cfg.AccountName, cfg.ContainerName), cfg.AccountName, cfg.AccountKey)
	if err != nil {
		return fmt.Errorf("constructing store: %w", err)
	}

	adapter := fs.New(fs.Config{
		Store:    store,
		Mapper:   pathmap.New(cfg.Subfolder),
		Cache:    metacache.New(cfg.EffectiveCacheTTL()),
		ReadOnly: cfg.ReadOnly,
		SpillDir: cfg.SpillDir,
		Logger:   newLogger("blobmount: "),
		Verbose:  verbose,
	})

	host := fuse.NewFileSystemHost(adapter)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigc
		host.Unmount()
	}()

	var opts []string
	if cfg.ReadOnly {
		opts = append(opts, "-o", "ro")
	}
	if !host.Mount(cfg.MountPoint, opts) {
		return fmt.Errorf("mount of %q failed", cfg.MountPoint)
	}
	return nil
}
