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
	"io"
	"math/rand/v2"
	"time"
)

// JitterConfig shapes how a JitteryReader hands out bytes.
type JitterConfig struct {
	MaxLatency        time.Duration
	FragmentMinBytes  int
	StallAfterBytes   int
	StallDuration     time.Duration
	Seed              uint64
	FragmentReads     bool
	USBBoundaryStress bool
}

// DefaultJitterConfig returns short latency and random fragmentation.
func DefaultJitterConfig() JitterConfig {
	return JitterConfig{
		MaxLatency:       5 * time.Millisecond,
		FragmentReads:    true,
		FragmentMinBytes: 1,
	}
}

// JitteryReader delivers a serial line's bytes the way a USB-UART bridge
// does: late, in uneven pieces, with an occasional stall. Bytes read from
// the backend are buffered and never dropped.
//
// It is not safe for concurrent reads.
type JitteryReader struct {
	backend   io.Reader
	rng       *rand.Rand
	pending   []byte
	scratch   []byte
	config    JitterConfig
	delivered int
	stalled   bool
}

// NewJitteryReader wraps backend. A zero Seed picks a random one.
func NewJitteryReader(backend io.Reader, config JitterConfig) *JitteryReader {
	seed := config.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	if config.FragmentMinBytes < 1 {
		config.FragmentMinBytes = 1
	}
	return &JitteryReader{
		backend: backend,
		config:  config,
		rng:     rand.New(rand.NewPCG(seed, seed^0xDEADBEEF)), //nolint:gosec // Test code, not crypto
		scratch: make([]byte, 1024),
	}
}

// Read returns part of what the backend has delivered so far.
func (j *JitteryReader) Read(buf []byte) (int, error) {
	if j.config.MaxLatency > 0 {
		if delay := time.Duration(j.rng.Int64N(int64(j.config.MaxLatency) + 1)); delay > 0 {
			time.Sleep(delay)
		}
	}

	if len(j.pending) == 0 {
		n, err := j.backend.Read(j.scratch)
		if err != nil || n == 0 {
			return 0, err //nolint:wrapcheck // Pass-through wrapper
		}
		j.pending = append(j.pending, j.scratch[:n]...)
	}

	toReturn := min(len(j.pending), len(buf))

	if j.config.StallAfterBytes > 0 && !j.stalled {
		if j.delivered >= j.config.StallAfterBytes {
			j.stalled = true
			time.Sleep(j.config.StallDuration)
		} else {
			toReturn = min(toReturn, j.config.StallAfterBytes-j.delivered)
		}
	}

	// USB full-speed bulk transfers end on 64-byte boundaries
	if j.config.USBBoundaryStress {
		untilBoundary := 64 - j.delivered%64
		toReturn = min(toReturn, untilBoundary)
	}

	if j.config.FragmentReads && toReturn > j.config.FragmentMinBytes {
		toReturn = j.config.FragmentMinBytes + j.rng.IntN(toReturn-j.config.FragmentMinBytes+1)
	}

	copy(buf, j.pending[:toReturn])
	j.pending = j.pending[toReturn:]
	j.delivered += toReturn
	return toReturn, nil
}

// Buffered returns the number of bytes read from the backend but not yet
// handed out.
func (j *JitteryReader) Buffered() int {
	return len(j.pending)
}
