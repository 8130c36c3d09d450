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

// Command blobmount projects an Azure Blob Storage container as a
// mountable drive. It generalizes perkeep's cammount, a flag-driven
// FUSE mount entrypoint, into a small cobra command tree modeled on
// azcopy's cmd/root.go.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "blobmount",
	Short: "Mount an Azure Blob Storage container as a local drive",
	Long: "blobmount projects the blobs in an Azure Storage container as files and " +
		"directories under a mount point, using WinFsp/FUSE.",
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "log mount and unmount events, with microsecond timestamps")
}

func newLogger(prefix string) *log.Logger {
	flags := log.LstdFlags
	if verbose {
		flags |= log.Lmicroseconds
	}
	return log.New(os.Stderr, prefix, flags)
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
