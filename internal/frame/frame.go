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

import (
	"errors"
	"fmt"
)

// Frame errors
var (
	ErrPayloadTooLarge = errors.New("frame: payload exceeds 254 bytes")
	ErrIncomplete      = errors.New("frame: incomplete")
	ErrLengthChecksum  = errors.New("frame: length checksum mismatch")
	ErrDataChecksum    = errors.New("frame: data checksum mismatch")
)

// PDU is one decoded frame.
type PDU struct {
	Payload []byte
	Type    byte
}

func (p PDU) String() string {
	return fmt.Sprintf("%s(%d)", TypeName(p.Type), len(p.Payload))
}

// Encode builds the wire frame for a PDU:
//
//	00 00 FF LEN LCS TYPE PAYLOAD... DCS 00
//
// LEN counts TYPE and PAYLOAD. LCS and DCS make their sums zero.
func Encode(ptype byte, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayload {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(payload))
	}
	dataLen := byte(1 + len(payload))

	frm := make([]byte, 0, MinFrameLength+len(payload))
	frm = append(frm, Preamble, StartCode1, StartCode2, dataLen, Complement(dataLen), ptype)
	frm = append(frm, payload...)
	frm = append(frm, ^(ptype+CalculateChecksum(payload))+1, Postamble)
	return frm, nil
}

// findStart returns the offset of the first 00 FF start code, or -1.
func findStart(buf []byte) int {
	for i := 0; i+1 < len(buf); i++ {
		if buf[i] == StartCode1 && buf[i+1] == StartCode2 {
			return i
		}
	}
	return -1
}

// Extract decodes the first frame in buf. It returns the number of bytes
// consumed, which is non-zero whenever the caller should drop a prefix of
// buf: after a good frame, and after garbage or a corrupt frame so the next
// call resynchronises on the following start code. ErrIncomplete means buf
// holds the start of a frame and more bytes are needed.
func Extract(buf []byte) (pdu PDU, consumed int, err error) {
	start := findStart(buf)
	if start < 0 {
		// Keep a trailing 00, it may be the first half of a start code.
		if n := len(buf); n > 0 && buf[n-1] == StartCode1 {
			return PDU{}, n - 1, ErrIncomplete
		}
		return PDU{}, len(buf), ErrIncomplete
	}

	off := start + 2
	if len(buf) < off+2 {
		return PDU{}, start, ErrIncomplete
	}
	dataLen := int(buf[off])
	if byte(dataLen+int(buf[off+1])) != 0 || dataLen == 0 {
		return PDU{}, off, ErrLengthChecksum
	}

	// type + payload + dcs + postamble
	end := off + 2 + dataLen + 2
	if len(buf) < end {
		return PDU{}, start, ErrIncomplete
	}
	data := buf[off+2 : off+2+dataLen]
	if CalculateChecksum(data)+buf[off+2+dataLen] != 0 {
		return PDU{}, off, ErrDataChecksum
	}

	payload := make([]byte, dataLen-1)
	copy(payload, data[1:])
	return PDU{Type: data[0], Payload: payload}, end, nil
}
