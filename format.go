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
	"strings"
)

// FormatData renders data as an offset-prefixed hex and ASCII dump, 16 bytes
// per line. Non-printable bytes show as '.' in the ASCII column.
func FormatData(data []byte) string {
	var sb strings.Builder
	for offset := 0; offset < len(data); offset += 16 {
		end := offset + 16
		if end > len(data) {
			end = len(data)
		}
		line := data[offset:end]

		_, _ = fmt.Fprintf(&sb, "%04X: ", offset)
		for i := range 16 {
			if i < len(line) {
				_, _ = fmt.Fprintf(&sb, "%02X ", line[i])
			} else {
				sb.WriteString("   ")
			}
		}
		sb.WriteString("|")
		for _, b := range line {
			if b >= 0x20 && b < 0x7F {
				sb.WriteByte(b)
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteString("|")
		if end < len(data) {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
