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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "1.0", cfg.Version)
	assert.Equal(t, uint8(12), cfg.Nbr)
	assert.Equal(t, uint8(8), cfg.Nbw)
	assert.Equal(t, 1024, cfg.Capacity)
	assert.Equal(t, time.Second, cfg.CommandTimeout)
	assert.Equal(t, 100*time.Millisecond, cfg.ResponseTimeout)
	assert.Equal(t, 10*time.Second, cfg.StopTimeout)
	assert.Equal(t, MessageCounter(1), cfg.InitialCounter)
	assert.Nil(t, cfg.InitialAPDU)
	assert.Equal(t, byte(0x00), cfg.InitialFlags)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mutate func(*Config)
		name   string
	}{
		{name: "zero capacity", mutate: func(c *Config) { c.Capacity = 0 }},
		{name: "capacity too large", mutate: func(c *Config) { c.Capacity = 0x10000 * 16 }},
		{name: "zero nbr", mutate: func(c *Config) { c.Nbr = 0 }},
		{name: "zero command timeout", mutate: func(c *Config) { c.CommandTimeout = 0 }},
		{name: "negative stop timeout", mutate: func(c *Config) { c.StopTimeout = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestOptions_Apply(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	opts := []Option{
		WithCapacity(512),
		WithBlockLimits(4, 2),
		WithInitialMessage([]byte{0xE2, 0x00}, 0x40),
		WithInitialCounter(5),
		WithCommandTimeout(2 * time.Second),
		WithResponseTimeout(time.Second),
		WithStopTimeout(time.Minute),
	}
	for _, opt := range opts {
		require.NoError(t, opt(cfg))
	}

	assert.Equal(t, 512, cfg.Capacity)
	assert.Equal(t, uint8(4), cfg.Nbr)
	assert.Equal(t, uint8(2), cfg.Nbw)
	assert.Equal(t, []byte{0xE2, 0x00}, cfg.InitialAPDU)
	assert.Equal(t, byte(0x40), cfg.InitialFlags)
	assert.Equal(t, MessageCounter(5), cfg.InitialCounter)
	assert.Equal(t, 2*time.Second, cfg.CommandTimeout)
	assert.Equal(t, time.Second, cfg.ResponseTimeout)
	assert.Equal(t, time.Minute, cfg.StopTimeout)
	assert.NoError(t, cfg.Validate())

	require.Error(t, WithCapacity(-1)(cfg))
}

func TestWithConfig_Replaces(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	custom := *DefaultConfig()
	custom.Capacity = 64

	require.NoError(t, WithConfig(custom)(cfg))
	assert.Equal(t, 64, cfg.Capacity)
}
