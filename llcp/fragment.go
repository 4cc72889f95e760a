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

package llcp

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
)

// MaxMessageSize is the largest APDU the two byte length prefix can carry
const MaxMessageSize = 0xFFFF

const lengthSize = 2

// Frame prefixes apdu with its two byte big endian length.
func Frame(apdu []byte) ([]byte, error) {
	if len(apdu) > MaxMessageSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(apdu))
	}
	frame := make([]byte, lengthSize, lengthSize+len(apdu))
	binary.BigEndian.PutUint16(frame, uint16(len(apdu))) //nolint:gosec // checked above
	return append(frame, apdu...), nil
}

// Segment cuts a framed message into chunks of at most miu bytes.
func Segment(frame []byte, miu int) [][]byte {
	if miu <= 0 {
		miu = DefaultMIU
	}
	segments := make([][]byte, 0, (len(frame)+miu-1)/miu)
	for offset := 0; offset < len(frame); offset += miu {
		end := min(offset+miu, len(frame))
		segments = append(segments, frame[offset:end])
	}
	return segments
}

// WriteMessage frames apdu and sends it in MIU-sized segments.
func WriteMessage(ctx context.Context, conn Conn, apdu []byte) error {
	frame, err := Frame(apdu)
	if err != nil {
		return err
	}
	for _, segment := range Segment(frame, conn.MIU()) {
		if err := conn.Send(ctx, segment); err != nil {
			return fmt.Errorf("failed to send segment: %w", err)
		}
	}
	return nil
}

// Reassembler rebuilds length-prefixed messages from a stream of segments.
// Bytes past the end of a message are kept for the next one.
type Reassembler struct {
	buf []byte
}

// Push appends a received segment.
func (r *Reassembler) Push(segment []byte) {
	r.buf = append(r.buf, segment...)
}

// Next returns the next complete message, if one is buffered.
func (r *Reassembler) Next() ([]byte, bool) {
	if len(r.buf) < lengthSize {
		return nil, false
	}
	total := lengthSize + int(binary.BigEndian.Uint16(r.buf))
	if len(r.buf) < total {
		return nil, false
	}

	msg := make([]byte, total-lengthSize)
	copy(msg, r.buf[lengthSize:total])
	r.buf = r.buf[total:]
	if len(r.buf) == 0 {
		r.buf = nil
	}
	return msg, true
}

// Pending returns the number of buffered bytes not yet returned.
func (r *Reassembler) Pending() int {
	return len(r.buf)
}

// Expected returns the declared length of the message being assembled,
// or -1 while the length prefix is incomplete.
func (r *Reassembler) Expected() int {
	if len(r.buf) < lengthSize {
		return -1
	}
	return int(binary.BigEndian.Uint16(r.buf))
}

// Read receives segments from conn until a message is complete. A stream
// that ends inside a message yields an error matching both
// ErrTruncatedMessage and ErrClosed, and the partial data is discarded. A
// stream that ends between messages yields ErrClosed alone.
func (r *Reassembler) Read(ctx context.Context, conn Conn) ([]byte, error) {
	for {
		if msg, ok := r.Next(); ok {
			return msg, nil
		}

		segment, err := conn.Recv(ctx)
		if err != nil {
			if errors.Is(err, ErrClosed) && r.Pending() > 0 {
				return nil, r.truncated(err)
			}
			return nil, err
		}
		r.Push(segment)
	}
}

// truncated discards the partial message and describes what was lost.
func (r *Reassembler) truncated(cause error) error {
	defer func() { r.buf = nil }()

	if r.Expected() < 0 {
		return fmt.Errorf("%w: %w: length prefix incomplete, received %d of %d bytes",
			ErrTruncatedMessage, cause, r.Pending(), lengthSize)
	}
	return fmt.Errorf("%w: %w: declared %d bytes, received %d",
		ErrTruncatedMessage, cause, r.Expected(), r.Pending()-lengthSize)
}

// ReadMessage receives one message from conn.
func ReadMessage(ctx context.Context, conn Conn) ([]byte, error) {
	var r Reassembler
	return r.Read(ctx, conn)
}
