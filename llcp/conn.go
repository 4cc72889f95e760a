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
	"errors"
)

// Service names
const (
	ServicePHDC       = "urn:nfc:sn:phdc"
	ServiceValidation = "urn:nfc:xsn:nfc-forum.org:phdc-validation"
)

// DefaultMIU is the LLCP default maximum information unit
const DefaultMIU = 128

// Link errors
var (
	ErrConnectRefused = errors.New("llcp: connection refused")
	ErrClosed         = errors.New("llcp: connection closed")
	ErrTimeout        = errors.New("llcp: receive timeout")
	ErrMIUExceeded    = errors.New("llcp: segment exceeds MIU")
)

// Fragmentation errors
var (
	ErrTruncatedMessage = errors.New("llcp: connection closed inside a message")
	ErrMessageTooLarge  = errors.New("llcp: message exceeds 65535 bytes")
)

// Conn is an established data link connection.
type Conn interface {
	// Send transmits one information PDU of at most MIU bytes.
	Send(ctx context.Context, segment []byte) error

	// Recv returns the next information PDU. It returns ErrClosed once the
	// peer has closed and every buffered PDU has been read, and ErrTimeout
	// when ctx carries a deadline that passes first.
	Recv(ctx context.Context) ([]byte, error)

	// MIU returns the largest PDU the peer accepts.
	MIU() int

	Close() error
}

// Dialer opens connections to named services.
type Dialer interface {
	// Dial connects to service. A peer without the service answers
	// with ErrConnectRefused.
	Dial(ctx context.Context, service string) (Conn, error)
}
