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

package scenario

import (
	"encoding/hex"
	"strings"
)

// IEEE 11073-20601 APDUs of a thermometer association
var (
	ThermometerAssocRequest = mustHex(`
		E200 0032 8000 0000
		0001 002A 5079 0026
		8000 0000 8000 8000
		0000 0000 0000 0080
		0000 0008 3132 3334
		3536 3738 0320 0001
		0100 0000 0000`)

	ThermometerAssocResponse = mustHex(`
		E300 002C 0003 5079
		0026 8000 0000 8000
		8000 0000 0000 0000
		8000 0000 0008 3837
		3635 3433 3231 0000
		0000 0000 0000 0000`)

	AssocReleaseRequest  = mustHex("E40000020000")
	AssocReleaseResponse = mustHex("E50000020000")
)

// APDU choice prefixes checked by the tests
var (
	prefixAssocResponse   = []byte{0xE3, 0x00}
	prefixReleaseResponse = []byte{0xE5, 0x00}
	prefixAssocRequest    = []byte{0xE2, 0x00}
	prefixReleaseRequest  = []byte{0xE4, 0x00}
)

// ParseHex decodes a hex string, ignoring whitespace.
func ParseHex(s string) ([]byte, error) {
	clean := strings.Join(strings.Fields(s), "")
	data, err := hex.DecodeString(clean)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers add line context
	}
	return data, nil
}

func mustHex(s string) []byte {
	data, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return data
}
