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

// Adapter does not override Link, Symlink, Readlink, Mknod, Setxattr,
// Getxattr, Removexattr, Listxattr, Setcrtime, Setchgtime, or Chflags:
// object storage has no symlink, hardlink, device-node, extended-
// attribute, or BSD-flag concept to project, so the embedded
// fuse.FileSystemBase's ENOSYS defaults already say the right thing
// (spec §4.5's "not-implemented" outcome for locks/security/streams).
