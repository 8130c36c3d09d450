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

package mountcfg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/andybochmann/blob-mounter/pkg/metacache"
)

func validConfig() Config {
	return Config{
		AccountName:   "acct",
		AccountKey:    "key",
		ContainerName: "container",
		MountPoint:    "X:",
	}
}

func TestValidateRequiresEveryField(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"account name", func(c *Config) { c.AccountName = "" }},
		{"account key", func(c *Config) { c.AccountKey = "" }},
		{"container name", func(c *Config) { c.ContainerName = "" }},
		{"mount point", func(c *Config) { c.MountPoint = "" }},
	}
	for _, tc := range cases {
		c := validConfig()
		tc.mutate(&c)
		assert.Error(t, c.Validate(), tc.name)
	}
	assert.NoError(t, validConfig().Validate())
}

func TestEffectiveCacheTTLDefaultsWhenUnset(t *testing.T) {
	c := validConfig()
	assert.Equal(t, metacache.DefaultTTL, c.EffectiveCacheTTL())

	c.CacheTTL = 5 * time.Second
	assert.Equal(t, 5*time.Second, c.EffectiveCacheTTL())
}
