// Copyright 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package testing

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, r io.Reader, want int) ([]byte, int) {
	t.Helper()
	out := make([]byte, 0, want)
	buf := make([]byte, 256)
	calls := 0
	for len(out) < want && calls < 10000 {
		n, err := r.Read(buf)
		require.NoError(t, err)
		out = append(out, buf[:n]...)
		calls++
	}
	return out, calls
}

func testStream(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i)
	}
	return data
}

func TestJitteryReader_Passthrough(t *testing.T) {
	t.Parallel()

	data := testStream(100)
	j := NewJitteryReader(bytes.NewReader(data), JitterConfig{Seed: 12345})

	got, calls := readAll(t, j, len(data))
	assert.Equal(t, data, got)
	assert.Equal(t, 1, calls)
}

func TestJitteryReader_FragmentationKeepsBytes(t *testing.T) {
	t.Parallel()

	data := testStream(500)
	j := NewJitteryReader(bytes.NewReader(data), JitterConfig{
		FragmentReads:    true,
		FragmentMinBytes: 1,
		Seed:             42,
	})

	got, calls := readAll(t, j, len(data))
	assert.Equal(t, data, got)
	assert.Greater(t, calls, 1)
	assert.Zero(t, j.Buffered())
}

func TestJitteryReader_USBBoundaryStress(t *testing.T) {
	t.Parallel()

	data := testStream(200)
	j := NewJitteryReader(bytes.NewReader(data), JitterConfig{USBBoundaryStress: true, Seed: 7})

	buf := make([]byte, 256)
	n, err := j.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 64, n)

	n, err = j.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 64, n)
	assert.Equal(t, data[64:128], buf[:n])
}

func TestJitteryReader_Stall(t *testing.T) {
	t.Parallel()

	data := testStream(40)
	j := NewJitteryReader(bytes.NewReader(data), JitterConfig{
		StallAfterBytes: 10,
		StallDuration:   30 * time.Millisecond,
		Seed:            1,
	})

	buf := make([]byte, 64)
	n, err := j.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	start := time.Now()
	n, err = j.Read(buf)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	assert.Equal(t, 30, n)
}

func TestJitteryReader_BackendError(t *testing.T) {
	t.Parallel()

	j := NewJitteryReader(bytes.NewReader(nil), DefaultJitterConfig())
	_, err := j.Read(make([]byte, 8))
	require.ErrorIs(t, err, io.EOF)
}

func TestDefaultJitterConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultJitterConfig()
	assert.True(t, cfg.FragmentReads)
	assert.Equal(t, 1, cfg.FragmentMinBytes)
	assert.Positive(t, cfg.MaxLatency)
}
