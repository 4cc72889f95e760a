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

package phdc

import (
	"fmt"
	"time"

	"github.com/ZaparooProject/go-phdc/t3t"
)

// Config holds tag agent configuration
type Config struct {
	// Version is the mapping version advertised in the attribute block
	Version string

	// InitialAPDU is the APDU of the record present before the first exchange.
	// Nil leaves a record holding only InitialFlags.
	InitialAPDU []byte

	// Capacity is the NDEF data area size in bytes, rounded up to whole blocks
	Capacity int

	// CommandTimeout bounds the wait for the reader's next command
	CommandTimeout time.Duration

	// ResponseTimeout bounds the wait for an outbound APDU after an
	// inbound message is accepted
	ResponseTimeout time.Duration

	// StopTimeout bounds how long Stop waits for the session to end
	StopTimeout time.Duration

	// InitialCounter is the message counter at session start
	InitialCounter MessageCounter

	// Nbr and Nbw are the per-command block limits advertised to the reader
	Nbr uint8
	Nbw uint8

	// InitialFlags is the flags byte of the initial record
	InitialFlags byte
}

// DefaultConfig returns the default tag agent configuration
func DefaultConfig() *Config {
	return &Config{
		Version:         "1.0",
		Nbr:             12,
		Nbw:             8,
		Capacity:        1024,
		CommandTimeout:  time.Second,
		ResponseTimeout: 100 * time.Millisecond,
		StopTimeout:     10 * time.Second,
		InitialCounter:  1,
	}
}

// Validate checks that the configuration describes a usable data area
func (c *Config) Validate() error {
	if c.Capacity <= 0 || c.Capacity > t3t.MaxBlocks*t3t.BlockSize {
		return fmt.Errorf("capacity must be between 1 and %d bytes, got %d",
			t3t.MaxBlocks*t3t.BlockSize, c.Capacity)
	}
	if c.Nbr == 0 || c.Nbw == 0 {
		return fmt.Errorf("block limits must be non-zero, got nbr=%d nbw=%d", c.Nbr, c.Nbw)
	}
	if c.CommandTimeout <= 0 || c.ResponseTimeout <= 0 || c.StopTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}

// attribute returns the attribute block the data area starts with
func (c *Config) attribute() t3t.AttributeData {
	return t3t.AttributeData{
		Version:  c.Version,
		Nbr:      c.Nbr,
		Nbw:      c.Nbw,
		Capacity: c.Capacity,
		Writable: true,
		Valid:    true,
	}
}
