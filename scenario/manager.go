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

package scenario

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"time"

	phdc "github.com/ZaparooProject/go-phdc"
	"github.com/ZaparooProject/go-phdc/llcp"
)

// Responder produces the manager's answer to an agent APDU. A nil answer
// gives the agent an empty turn.
type Responder func(apdu []byte) []byte

// ThermometerManager answers association and release requests the way a
// PHDC manager accepting a thermometer does. Other APDUs get no answer.
func ThermometerManager(apdu []byte) []byte {
	switch {
	case bytes.HasPrefix(apdu, prefixAssocRequest):
		return ThermometerAssocResponse
	case bytes.HasPrefix(apdu, prefixReleaseRequest):
		return AssocReleaseResponse
	default:
		return nil
	}
}

// Reverse answers with the APDU reversed, as the validation service does.
func Reverse(apdu []byte) []byte {
	rsp := slices.Clone(apdu)
	slices.Reverse(rsp)
	return rsp
}

// ServeLink answers every message on conn with respond until the
// connection closes. Empty answers are not sent.
func ServeLink(conn llcp.Conn, respond Responder) {
	ctx := context.Background()
	var r llcp.Reassembler
	for {
		apdu, err := r.Read(ctx, conn)
		if err != nil {
			return
		}
		rsp := respond(apdu)
		if rsp == nil {
			continue
		}
		if err := llcp.WriteMessage(ctx, conn, rsp); err != nil {
			return
		}
	}
}

// ServiceRegistry binds handlers to service names. llcp.Loopback and the
// serial link both implement it.
type ServiceRegistry interface {
	Handle(service string, h llcp.Handler)
}

// RegisterValidationServices installs the PHDC manager and the validation
// service on a link.
func RegisterValidationServices(l ServiceRegistry) {
	l.Handle(llcp.ServicePHDC, func(conn llcp.Conn) {
		ServeLink(conn, ThermometerManager)
	})
	l.Handle(llcp.ServiceValidation, func(conn llcp.Conn) {
		ServeLink(conn, Reverse)
	})
}

// TagReader is the block level access a manager has to a tag.
type TagReader interface {
	ReadRecord(ctx context.Context) ([]byte, error)
	WriteRecord(ctx context.Context, record []byte) error
}

// TagManager plays a PHDC manager against a tag agent: it writes a PHD
// record, then polls until the agent publishes the next one. When the
// agent stays silent for a whole turn the manager writes an empty record
// to hand the turn back.
type TagManager struct {
	Reader  TagReader
	Respond Responder
	// Poll is the delay between reads while waiting for the agent
	Poll time.Duration
	// Turn bounds how long the manager waits for the agent
	Turn time.Duration
}

// NewTagManager creates a manager with a 10 ms poll and a 500 ms turn.
func NewTagManager(reader TagReader, respond Responder) *TagManager {
	return &TagManager{
		Reader:  reader,
		Respond: respond,
		Poll:    10 * time.Millisecond,
		Turn:    500 * time.Millisecond,
	}
}

// Run exchanges records until ctx is done or the tag stops answering.
func (m *TagManager) Run(ctx context.Context) error {
	counter := phdc.MessageCounter(1)
	var reply []byte

	for {
		record, err := phdc.EncodeRecord(counter.Flags(), reply)
		if err != nil {
			return err
		}
		if err := m.Reader.WriteRecord(ctx, record); err != nil {
			return managerEnd(ctx, err)
		}
		counter.Advance()

		apdu, err := m.await(ctx, counter)
		if err != nil {
			return managerEnd(ctx, err)
		}

		reply = nil
		if apdu != nil {
			counter.Advance()
			if len(apdu) > 0 {
				reply = m.Respond(apdu)
			}
		}
	}
}

// await polls for a record carrying counter. It returns nil without error
// when the turn passes with nothing published.
func (m *TagManager) await(ctx context.Context, counter phdc.MessageCounter) ([]byte, error) {
	deadline := time.Now().Add(m.Turn)
	for time.Now().Before(deadline) {
		record, err := m.Reader.ReadRecord(ctx)
		if err != nil {
			return nil, err
		}
		if record != nil {
			flags, apdu, err := phdc.DecodeRecord(record)
			if err == nil && counter.Accepts(flags) {
				return apdu, nil
			}
		}
		if err := sleep(ctx, m.Poll); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func managerEnd(ctx context.Context, err error) error {
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil
	}
	return err
}
