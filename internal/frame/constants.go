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

package frame

// Frame markers
const (
	Preamble   = 0x00
	StartCode1 = 0x00
	StartCode2 = 0xFF
	Postamble  = 0x00
)

// PDU types carried in the frame's type byte. The values follow the LLCP
// PTYPE numbering.
const (
	TypeConnect    byte = 0x04
	TypeDisconnect byte = 0x05
	TypeCC         byte = 0x06 // connection complete
	TypeDM         byte = 0x07 // disconnected mode, used to refuse a connect
	TypeI          byte = 0x0C // information
)

// Frame size limits
const (
	MaxPayload     = 254 // LEN covers the type byte plus the payload
	MinFrameLength = 8   // preamble + start code + len + lcs + type + dcs + postamble
	headerLength   = 5
)

// TypeName returns a short name for a PDU type, for logs.
func TypeName(t byte) string {
	switch t {
	case TypeConnect:
		return "CONNECT"
	case TypeDisconnect:
		return "DISC"
	case TypeCC:
		return "CC"
	case TypeDM:
		return "DM"
	case TypeI:
		return "I"
	default:
		return "UNKNOWN"
	}
}
