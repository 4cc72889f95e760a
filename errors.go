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
	"errors"
	"fmt"

	"github.com/ZaparooProject/go-phdc/t3t"
)

// Session errors
var (
	ErrAgentRunning = errors.New("agent already started")
	ErrAgentStopped = errors.New("agent already stopped")
	ErrStopTimeout  = errors.New("agent did not stop in time")
)

// Record errors. The exchange engine never returns these; a record that
// fails to decode or arrives out of sequence is dropped and counted in Stats.
var (
	ErrNotPHDRecord     = errors.New("not a PHD record")
	ErrMalformedRecord  = errors.New("malformed PHD record")
	ErrOutOfSequence    = errors.New("PHD message counter out of sequence")
	ErrCapacityExceeded = t3t.ErrCapacityExceeded
)

// ErrorType represents the category of a session-ending transport error
type ErrorType int

const (
	// ErrorTypeTimeout indicates the reader sent no command in time
	ErrorTypeTimeout ErrorType = iota
	// ErrorTypeTransmission indicates the radio link failed
	ErrorTypeTransmission
	// ErrorTypePermanent indicates any other emulation failure
	ErrorTypePermanent
)

// String returns the error type name
func (t ErrorType) String() string {
	switch t {
	case ErrorTypeTimeout:
		return "timeout"
	case ErrorTypeTransmission:
		return "transmission"
	default:
		return "permanent"
	}
}

// TransportError wraps the emulation error that ended a session
type TransportError struct {
	Err  error     // Underlying error
	Op   string    // Operation that failed
	Type ErrorType // Error category
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Type, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// newTransportError classifies an emulation error
func newTransportError(op string, err error) *TransportError {
	te := &TransportError{Op: op, Err: err, Type: ErrorTypePermanent}
	switch {
	case errors.Is(err, t3t.ErrTimeout):
		te.Type = ErrorTypeTimeout
	case errors.Is(err, t3t.ErrTransmission):
		te.Type = ErrorTypeTransmission
	}
	return te
}

// IsTimeout returns true if the session ended because the reader went quiet
func IsTimeout(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Type == ErrorTypeTimeout
	}
	return errors.Is(err, t3t.ErrTimeout)
}

// IsTransmission returns true if the session ended on a link failure
func IsTransmission(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Type == ErrorTypeTransmission
	}
	return errors.Is(err, t3t.ErrTransmission)
}

// IsTransportError returns true if err ended a session at the transport
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
