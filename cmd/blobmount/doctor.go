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
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/andybochmann/blob-mounter/pkg/blobstore"
)

var (
	doctorAccountName   string
	doctorAccountKey    string
	doctorContainerName string
)

// doctorCmd checks account/container reachability before a real mount
// is attempted, so a credential or network problem surfaces as a clear
// message instead of an opaque mount failure.
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the given credentials can reach the container",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runDoctor(); err != nil {
			fatalf("blobmount: doctor: %v", err)
		}
		fmt.Println("ok: container is reachable")
	},
}

func init() {
	doctorCmd.Flags().StringVar(&doctorAccountName, "account", "", "storage account name (required)")
	doctorCmd.Flags().StringVar(&doctorAccountKey, "key", "", "storage account key (required)")
	doctorCmd.Flags().StringVar(&doctorContainerName, "container", "", "container name (required)")
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor() error {
	store, err := blobstore.NewAzureStore(
		containerURL(doctorAccountName, doctorContainerName), doctorAccountName, doctorAccountKey)
	if err != nil {
		return fmt.Errorf("constructing store: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return store.Probe(ctx)
}
