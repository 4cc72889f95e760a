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

// PHD record flag bits
const (
	FlagPHD       byte = 0x80 // always set on a PHD record
	FlagReserved  byte = 0x40 // outside the checked bits, ignored on receive
	FlagAlternate byte = 0x02 // inside the counter nibble, set on the tag test 3 initial record
	counterMask   byte = 0x0F
	acceptMask         = FlagPHD | counterMask
)

// MessageCounter is the rolling PHD message counter. Only its low four bits
// appear on the wire. Agent and manager share one counter: every accepted
// inbound record and every published outbound record advances it by one.
type MessageCounter uint32

// Nibble returns the on-wire counter value
func (c MessageCounter) Nibble() byte {
	return byte(c) & counterMask
}

// Flags returns the flags byte for a record sent at this counter value
func (c MessageCounter) Flags() byte {
	return FlagPHD | c.Nibble()
}

// Accepts reports whether a received flags byte matches this counter.
// Only the PHD bit and the counter nibble are checked, so the reserved bit
// is ignored. 0x02 lies inside the nibble and counts as part of the counter.
func (c MessageCounter) Accepts(flags byte) bool {
	return flags&acceptMask == c.Flags()
}

// Advance moves the counter to the next message
func (c *MessageCounter) Advance() {
	*c++
}
