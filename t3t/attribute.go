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
	"encoding/binary"
	"fmt"
)

// BlockSize is the size of a Type 3 Tag memory block.
const BlockSize = 16

// Service codes for NDEF access.
const (
	ServiceReadWrite uint16 = 0x0009
	ServiceReadOnly  uint16 = 0x000B
)

// SystemCodeNDEF is the system code announced by an NDEF Type 3 Tag.
const SystemCodeNDEF uint16 = 0x12FC

// Attribute information block layout
const (
	attrVersion   = 0
	attrNbr       = 1
	attrNbw       = 2
	attrNmaxb     = 3 // 2 bytes, big endian
	attrWriteFlag = 9
	attrRWFlag    = 10
	attrLength    = 11 // 3 bytes, big endian
	attrChecksum  = 14 // 2 bytes, big endian

	writeFlagDone    = 0x00
	writeFlagWriting = 0x0F
	rwFlagReadOnly   = 0x00
	rwFlagReadWrite  = 0x01

	// MaxLength is the largest NDEF length the 24-bit Ln field can carry.
	MaxLength = 0xFFFFFF
	// MaxBlocks is the largest data area size Nmaxb can announce.
	MaxBlocks = 0xFFFF
)

// AttributeData is the decoded attribute information block stored in block 0
// of the NDEF data area.
type AttributeData struct {
	// Version is the mapping version as "major.minor".
	Version string
	// Capacity is the size of the data area in bytes, excluding block 0.
	// It is always a multiple of BlockSize once parsed.
	Capacity int
	// Length is the size of the stored NDEF message. Zero means no message.
	Length int
	// Nbr and Nbw are the maximum number of blocks per Check and Update
	// command. They are advertised to the reader and enforced by the
	// emulation layer, not by the data area.
	Nbr uint8
	Nbw uint8
	// Writing is set while the reader is in the middle of an NDEF update.
	Writing bool
	// Writable reports whether the reader may update the NDEF message.
	Writable bool
	// Valid is derived on parse: the checksum matches and the length fits
	// the announced capacity. Marshal ignores it.
	Valid bool
}

// ParseAttributeData decodes an attribute information block. It never fails;
// a short block or one whose checksum or length is inconsistent comes back
// with Valid set to false.
func ParseAttributeData(block []byte) AttributeData {
	if len(block) < BlockSize {
		return AttributeData{}
	}

	attr := AttributeData{
		Version:  fmt.Sprintf("%d.%d", block[attrVersion]>>4, block[attrVersion]&0x0F),
		Nbr:      block[attrNbr],
		Nbw:      block[attrNbw],
		Capacity: int(binary.BigEndian.Uint16(block[attrNmaxb:])) * BlockSize,
		Writing:  block[attrWriteFlag] == writeFlagWriting,
		Writable: block[attrRWFlag] == rwFlagReadWrite,
		Length: int(block[attrLength])<<16 |
			int(block[attrLength+1])<<8 |
			int(block[attrLength+2]),
	}

	stored := binary.BigEndian.Uint16(block[attrChecksum:])
	attr.Valid = Checksum(block[:attrChecksum]) == stored && attr.Length <= attr.Capacity

	return attr
}

// Marshal encodes the attribute information block, computing the checksum.
// Capacity is rounded up to a whole number of blocks.
func (a AttributeData) Marshal() []byte {
	block := make([]byte, BlockSize)

	block[attrVersion] = versionByte(a.Version)
	block[attrNbr] = a.Nbr
	block[attrNbw] = a.Nbw

	nmaxb := (a.Capacity + BlockSize - 1) / BlockSize
	if nmaxb > MaxBlocks {
		nmaxb = MaxBlocks
	}
	binary.BigEndian.PutUint16(block[attrNmaxb:], uint16(nmaxb)) //nolint:gosec // clamped above

	if a.Writing {
		block[attrWriteFlag] = writeFlagWriting
	} else {
		block[attrWriteFlag] = writeFlagDone
	}
	if a.Writable {
		block[attrRWFlag] = rwFlagReadWrite
	} else {
		block[attrRWFlag] = rwFlagReadOnly
	}

	length := a.Length
	if length < 0 {
		length = 0
	}
	if length > MaxLength {
		length = MaxLength
	}
	block[attrLength] = byte(length >> 16)
	block[attrLength+1] = byte(length >> 8)
	block[attrLength+2] = byte(length)

	binary.BigEndian.PutUint16(block[attrChecksum:], Checksum(block[:attrChecksum]))
	return block
}

// Checksum is the 16-bit sum of the given bytes used by the attribute block.
func Checksum(data []byte) uint16 {
	var sum uint16
	for _, b := range data {
		sum += uint16(b)
	}
	return sum
}

// versionByte packs "major.minor" into one byte. Unparseable versions
// encode as 1.0.
func versionByte(version string) byte {
	var major, minor uint8
	if _, err := fmt.Sscanf(version, "%d.%d", &major, &minor); err != nil || major > 0x0F || minor > 0x0F {
		return 0x10
	}
	return major<<4 | minor
}
