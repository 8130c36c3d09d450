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

package filebuf

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteThenReadRoundTrip(t *testing.T) {
	b := New(0, t.TempDir())
	b.InitializeEmpty()

	payload := []byte("hello, mounted world")
	// Write in two partitions to exercise offset handling.
	n, err := b.Write(payload[:10], 0)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	n, err = b.Write(payload[10:], 10)
	require.NoError(t, err)
	assert.Equal(t, len(payload)-10, n)

	got := make([]byte, len(payload))
	n, err = b.Read(got, 0)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)
	assert.Equal(t, payload, got)
}

func TestSetLengthThenReadPastEndReturnsZero(t *testing.T) {
	b := New(0, t.TempDir())
	b.InitializeEmpty()
	_, err := b.Write([]byte("abcdef"), 0)
	require.NoError(t, err)

	require.NoError(t, b.SetLength(3))

	got := make([]byte, 10)
	n, err := b.Read(got, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = b.Read(got, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []byte("abc"), got[:3])
}

func TestReserveDoesNotChangeLength(t *testing.T) {
	b := New(0, t.TempDir())
	b.InitializeEmpty()
	_, err := b.Write([]byte("abc"), 0)
	require.NoError(t, err)
	before := b.Length()
	beforeDirty := b.Dirty()

	require.NoError(t, b.Reserve(1000))

	assert.Equal(t, before, b.Length(), "Reserve must not change logical length")
	assert.Equal(t, beforeDirty, b.Dirty(), "Reserve must not change dirtiness")
}

func TestLoadSelectsSmallOrSpilled(t *testing.T) {
	dir := t.TempDir()
	small := New(10, dir)
	require.NoError(t, small.Load(strings.NewReader("tiny"), 4))
	assert.Nil(t, small.spill, "small content should stay in memory")

	large := New(10, dir)
	content := bytes.Repeat([]byte("x"), 1000)
	require.NoError(t, large.Load(bytes.NewReader(content), int64(len(content))))
	assert.NotNil(t, large.spill, "large content should spill to disk")
	assert.Equal(t, int64(len(content)), large.Length())

	got := make([]byte, len(content))
	n, err := large.Read(got, 0)
	require.NoError(t, err)
	assert.Equal(t, len(content), n)
	assert.Equal(t, content, got)
}

func TestReadStreamRewinds(t *testing.T) {
	b := New(0, t.TempDir())
	b.InitializeEmpty()
	_, err := b.Write([]byte("ABCDE"), 0)
	require.NoError(t, err)

	r, err := b.ReadStream()
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, []byte("ABCDE"), data)
}

func TestDisposeReleasesSpillFile(t *testing.T) {
	dir := t.TempDir()
	b := New(4, dir)
	content := bytes.Repeat([]byte("y"), 10)
	require.NoError(t, b.Load(bytes.NewReader(content), int64(len(content))))
	require.NotNil(t, b.spill)

	b.Dispose()
	assert.Nil(t, b.spill)
}
