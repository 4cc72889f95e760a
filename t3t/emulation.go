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
	"context"
	"errors"
	"time"
)

// Errors an Emulation reports from SendResponse. Both end the session.
var (
	ErrTimeout      = errors.New("t3t: no command received")
	ErrTransmission = errors.New("t3t: transmission error")
)

// Emulation is the card emulation layer a tag agent runs on. It owns the
// radio link and the Type 3 Tag command set; the agent only drives the
// command/response loop and serves blocks through the registered services.
type Emulation interface {
	// AddService registers block handlers for a service code.
	AddService(code uint16, read ReadFunc, write WriteFunc)

	// ProcessCommand executes one reader command against the registered
	// services and returns the response frame.
	ProcessCommand(cmd []byte) []byte

	// SendResponse transmits rsp and waits up to timeout for the next
	// command. It returns nil with a nil error when the reader is gone,
	// ErrTimeout when no command arrived in time and ErrTransmission when
	// the link failed.
	SendResponse(ctx context.Context, rsp []byte, timeout time.Duration) ([]byte, error)
}
