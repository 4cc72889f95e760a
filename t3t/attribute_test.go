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

package t3t

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAttribute() AttributeData {
	return AttributeData{
		Version:  "1.0",
		Nbr:      12,
		Nbw:      8,
		Capacity: 1024,
		Writable: true,
		Length:   7,
	}
}

func TestAttributeData_Marshal(t *testing.T) {
	t.Parallel()

	block := testAttribute().Marshal()
	expected := []byte{
		0x10, 0x0C, 0x08, 0x00, 0x40, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x01, 0x00, 0x00, 0x07, 0x00, 0x6C,
	}
	assert.Equal(t, expected, block)
}

func TestAttributeData_Parse(t *testing.T) {
	t.Parallel()

	attr := ParseAttributeData(testAttribute().Marshal())
	assert.True(t, attr.Valid)
	assert.Equal(t, "1.0", attr.Version)
	assert.Equal(t, uint8(12), attr.Nbr)
	assert.Equal(t, uint8(8), attr.Nbw)
	assert.Equal(t, 1024, attr.Capacity)
	assert.Equal(t, 7, attr.Length)
	assert.True(t, attr.Writable)
	assert.False(t, attr.Writing)
}

func TestAttributeData_WritingFlag(t *testing.T) {
	t.Parallel()

	attr := testAttribute()
	attr.Writing = true
	block := attr.Marshal()
	assert.Equal(t, byte(0x0F), block[9])

	parsed := ParseAttributeData(block)
	assert.True(t, parsed.Valid)
	assert.True(t, parsed.Writing)
}

func TestAttributeData_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{
			name:   "short block",
			mutate: func(b []byte) []byte { return b[:10] },
		},
		{
			name: "checksum mismatch",
			mutate: func(b []byte) []byte {
				b[15] ^= 0xFF
				return b
			},
		},
		{
			name: "payload changed without checksum",
			mutate: func(b []byte) []byte {
				b[13] = 0x20
				return b
			},
		},
		{
			name: "length beyond capacity",
			mutate: func(b []byte) []byte {
				b[11] = 0x01
				sum := Checksum(b[:14])
				b[14], b[15] = byte(sum>>8), byte(sum)
				return b
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			attr := ParseAttributeData(tt.mutate(testAttribute().Marshal()))
			assert.False(t, attr.Valid)
		})
	}
}

func TestAttributeData_CapacityRoundsUp(t *testing.T) {
	t.Parallel()

	attr := testAttribute()
	attr.Capacity = 1000
	parsed := ParseAttributeData(attr.Marshal())
	require.True(t, parsed.Valid)
	assert.Equal(t, 1008, parsed.Capacity)
}

func TestAttributeData_UnparseableVersion(t *testing.T) {
	t.Parallel()

	attr := testAttribute()
	attr.Version = "one"
	assert.Equal(t, byte(0x10), attr.Marshal()[0])

	attr.Version = "2.1"
	assert.Equal(t, byte(0x21), attr.Marshal()[0])
	assert.Equal(t, "2.1", ParseAttributeData(attr.Marshal()).Version)
}
