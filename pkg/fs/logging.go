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

// errorf always logs: cleanup-time failures (spec §7, §9 OQ-1) are
// logged and swallowed rather than surfaced through a return value, so
// this is the only place that information survives.
func (a *Adapter) errorf(format string, args ...interface{}) {
	a.logger.Printf("error: "+format, args...)
}

// debugf logs only when the mount was started with --verbose. It is
// called for the mount and unmount events (Init, Destroy); open,
// cleanup and cache invalidation are not traced.
func (a *Adapter) debugf(format string, args ...interface{}) {
	if !a.verbose {
		return
	}
	a.logger.Printf(format, args...)
}
