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

	"github.com/hsanjuan/go-ndef"
	"github.com/hsanjuan/go-ndef/types/generic"
)

// RecordType is the NFC Forum well-known type of a PHD record
const RecordType = "PHD"

// EncodeRecord builds a single-record NDEF message holding a PHD record
// with the given flags byte and APDU. A nil or empty APDU yields a record
// containing only the flags byte.
func EncodeRecord(flags byte, apdu []byte) ([]byte, error) {
	data := make([]byte, 0, 1+len(apdu))
	data = append(data, flags)
	data = append(data, apdu...)

	// The record body is the flags byte followed by the APDU
	rec := ndef.NewRecord(ndef.NFCForumWellKnownType, RecordType, "", generic.New(data))
	rec.SetMB(true)
	rec.SetME(true)

	out, err := ndef.NewMessageFromRecords(rec).Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal PHD record: %w", err)
	}
	return out, nil
}

// DecodeRecord parses an NDEF message and returns the flags byte and APDU of
// its first record. It returns ErrNotPHDRecord when the record is not a
// well-known PHD record and ErrMalformedRecord when it cannot be parsed.
func DecodeRecord(data []byte) (flags byte, apdu []byte, err error) {
	msg := &ndef.Message{}
	if _, err := msg.Unmarshal(data); err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}
	if len(msg.Records) == 0 {
		return 0, nil, fmt.Errorf("%w: no records", ErrMalformedRecord)
	}

	rec := msg.Records[0]
	if rec.TNF() != ndef.NFCForumWellKnownType || rec.Type() != RecordType {
		return 0, nil, fmt.Errorf("%w: type %q", ErrNotPHDRecord, rec.Type())
	}

	payload, err := rec.Payload()
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}
	body := payload.Marshal()
	if len(body) == 0 {
		return 0, nil, fmt.Errorf("%w: empty payload", ErrMalformedRecord)
	}

	apdu = make([]byte, len(body)-1)
	copy(apdu, body[1:])
	return body[0], apdu, nil
}
