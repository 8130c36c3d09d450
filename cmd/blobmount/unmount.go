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
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"
)

// unmountCmd is a best-effort convenience wrapper: ordinary unmount is
// expected to happen through the OS's own eject/unmount action (spec's
// mount/unmount UI is explicitly out of scope), so this exists only for
// scripting and CI, where there is no desktop to click "eject" in.
var unmountCmd = &cobra.Command{
	Use:   "unmount <drive-or-path>",
	Short: "Best-effort unmount of a previously mounted drive-or-path",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runUnmount(args[0]); err != nil {
			fatalf("blobmount: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(unmountCmd)
}

func runUnmount(mountPoint string) error {
	var c *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		c = exec.Command("net", "use", mountPoint, "/delete", "/y")
	case "darwin":
		c = exec.Command("umount", mountPoint)
	default:
		c = exec.Command("fusermount", "-u", mountPoint)
	}
	out, err := c.CombinedOutput()
	if err != nil {
		return fmt.Errorf("unmount %q: %v: %s", mountPoint, err, out)
	}
	return nil
}
