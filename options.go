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
)

// Option represents a functional option for NewTagAgent
type Option func(*Config) error

// WithConfig replaces the whole configuration
func WithConfig(cfg Config) Option {
	return func(c *Config) error {
		*c = cfg
		return nil
	}
}

// WithCapacity sets the NDEF data area size in bytes
func WithCapacity(capacity int) Option {
	return func(c *Config) error {
		if capacity <= 0 {
			return fmt.Errorf("capacity must be positive, got %d", capacity)
		}
		c.Capacity = capacity
		return nil
	}
}

// WithBlockLimits sets the blocks per read and write command advertised
// to the reader
func WithBlockLimits(nbr, nbw uint8) Option {
	return func(c *Config) error {
		c.Nbr = nbr
		c.Nbw = nbw
		return nil
	}
}

// WithInitialMessage sets the record present before the first exchange
func WithInitialMessage(apdu []byte, flags byte) Option {
	return func(c *Config) error {
		c.InitialAPDU = append([]byte(nil), apdu...)
		c.InitialFlags = flags
		return nil
	}
}

// WithInitialCounter sets the message counter at session start
func WithInitialCounter(counter MessageCounter) Option {
	return func(c *Config) error {
		c.InitialCounter = counter
		return nil
	}
}

// WithCommandTimeout sets how long to wait for each reader command
func WithCommandTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		c.CommandTimeout = timeout
		return nil
	}
}

// WithResponseTimeout sets how long to wait for an outbound APDU after
// an inbound message
func WithResponseTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		c.ResponseTimeout = timeout
		return nil
	}
}

// WithStopTimeout sets how long Stop waits for the session to end
func WithStopTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		c.StopTimeout = timeout
		return nil
	}
}
