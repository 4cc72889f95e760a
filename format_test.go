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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatData(t *testing.T) {
	t.Parallel()

	out := FormatData([]byte("PHD record payload\x00\x01"))
	lines := strings.Split(out, "\n")

	assert.Len(t, lines, 2)
	assert.Equal(t, "0000: 50 48 44 20 72 65 63 6F 72 64 20 70 61 79 6C 6F |PHD record paylo|", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "0010: 61 64 00 01 "))
	assert.True(t, strings.HasSuffix(lines[1], "|ad..|"))
	assert.Empty(t, FormatData(nil))
}
