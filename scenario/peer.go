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
	"fmt"
	"time"

	phdc "github.com/ZaparooProject/go-phdc"
)

// Peer is the agent end of a PHDC link as seen by a test.
type Peer interface {
	Send(ctx context.Context, apdu []byte) error
	Receive(ctx context.Context, timeout time.Duration) ([]byte, error)
}

// TagPeer adapts a phdc.TagAgent to Peer.
type TagPeer struct {
	Agent *phdc.TagAgent
}

// Send queues apdu for the manager.
func (p TagPeer) Send(_ context.Context, apdu []byte) error {
	p.Agent.Send(apdu)
	return nil
}

// Receive returns the next APDU from the manager.
func (p TagPeer) Receive(ctx context.Context, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	apdu, err := p.Agent.ReceiveContext(ctx)
	if err != nil {
		return nil, ErrNoResponse
	}
	return apdu, nil
}

// exchange sends apdu and checks that the response starts with want.
func exchange(ctx context.Context, peer Peer, timing Timing, what string, apdu, want []byte) error {
	phdc.Infof("send %s", what)
	phdc.Debugf("send %x", apdu)
	if err := peer.Send(ctx, apdu); err != nil {
		return err
	}

	rsp, err := peer.Receive(ctx, timing.Receive)
	if err != nil {
		return err
	}
	phdc.Debugf("rcvd %x", rsp)
	if !bytes.HasPrefix(rsp, want) {
		return &unexpectedResponse{want: want, got: rsp}
	}
	return nil
}

// replay sends each scenario APDU and waits for a response to it.
func replay(ctx context.Context, peer Peer, timing Timing, apdus [][]byte) error {
	for i, apdu := range apdus {
		phdc.Debugf("send %x", apdu)
		if err := peer.Send(ctx, apdu); err != nil {
			return err
		}
		rsp, err := peer.Receive(ctx, timing.Receive)
		if err != nil {
			phdc.Infof("no response to scenario APDU %d", i+1)
			return err
		}
		phdc.Debugf("rcvd %x", rsp)
	}
	return nil
}

type unexpectedResponse struct {
	want []byte
	got  []byte
}

func (e *unexpectedResponse) Error() string {
	if len(e.got) > 8 {
		return fmt.Sprintf("expected response %X, got %X...", e.want, e.got[:8])
	}
	return fmt.Sprintf("expected response %X, got %X", e.want, e.got)
}
