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
	"context"
	"time"
)

// Agent is the application side of a PHDC link. The application hands
// APDUs to Send and collects the manager's APDUs from Receive; the
// exchange engine moves them to and from the wire.
type Agent struct {
	outbound *apduQueue
	inbound  *apduQueue
	stats    *Stats
}

func newAgent() Agent {
	return Agent{
		outbound: newAPDUQueue(),
		inbound:  newAPDUQueue(),
		stats:    newStats(),
	}
}

// Send queues an APDU for the manager. A nil APDU queues an empty PHD
// turn; a non-nil empty APDU is dropped.
func (a *Agent) Send(apdu []byte) {
	if apdu != nil && len(apdu) == 0 {
		a.stats.emptyDropped.Inc()
		Debugf("[phdc] dropping empty APDU")
		return
	}
	if apdu != nil {
		apdu = append([]byte(nil), apdu...)
	}
	a.outbound.push(apdu)
}

// Receive returns the next APDU from the manager, or nil when none arrives
// within timeout.
func (a *Agent) Receive(timeout time.Duration) []byte {
	apdu, _ := a.inbound.pop(context.Background(), timeout)
	return apdu
}

// ReceiveContext blocks until an APDU from the manager arrives or ctx is done.
func (a *Agent) ReceiveContext(ctx context.Context) ([]byte, error) {
	apdu, ok := a.inbound.pop(ctx, -1)
	if !ok {
		return nil, ctx.Err()
	}
	return apdu, nil
}

// Pending returns the number of APDUs waiting to be sent
func (a *Agent) Pending() int {
	return a.outbound.len()
}

// Stats returns the agent counters
func (a *Agent) Stats() *Stats {
	return a.stats
}

// enqueue hands an APDU received from the manager to the application
// Zero-length APDUs only hand the turn to the agent and are not delivered.
func (a *Agent) enqueue(apdu []byte) {
	if len(apdu) == 0 {
		Debugf("[phdc] <<< empty turn")
		a.stats.emptyTurns.Inc()
		return
	}
	Debugf("[phdc] <<< %x", apdu)
	a.stats.received.Inc()
	a.inbound.push(apdu)
}

// dequeue takes the next APDU bound for the manager
func (a *Agent) dequeue(ctx context.Context, timeout time.Duration) ([]byte, bool) {
	return a.outbound.pop(ctx, timeout)
}
