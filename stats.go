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

import "github.com/puzpuzpuz/xsync/v3"

// Stats counts what the exchange engine did with each record
type Stats struct {
	received      *xsync.Counter
	sent          *xsync.Counter
	outOfSequence *xsync.Counter
	malformed     *xsync.Counter
	notPHD        *xsync.Counter
	sendFailures  *xsync.Counter
	emptyDropped  *xsync.Counter
	emptyTurns    *xsync.Counter
	outOfRange    func() int64
}

// StatsSnapshot is a point-in-time copy of Stats
type StatsSnapshot struct {
	Received      int64 // APDUs accepted from the manager
	Sent          int64 // records published for the manager
	OutOfSequence int64 // records dropped for a counter mismatch
	Malformed     int64 // records that failed to decode
	NotPHD        int64 // records that were not PHD records
	SendFailures  int64 // outbound APDUs that could not be published
	EmptyDropped  int64 // zero-length APDUs rejected by Send
	EmptyTurns    int64 // zero-length APDUs from the manager, not delivered
	OutOfRange    int64 // block accesses beyond the data area
}

func newStats() *Stats {
	return &Stats{
		received:      xsync.NewCounter(),
		sent:          xsync.NewCounter(),
		outOfSequence: xsync.NewCounter(),
		malformed:     xsync.NewCounter(),
		notPHD:        xsync.NewCounter(),
		sendFailures:  xsync.NewCounter(),
		emptyDropped:  xsync.NewCounter(),
		emptyTurns:    xsync.NewCounter(),
	}
}

// Snapshot returns the current counter values
func (s *Stats) Snapshot() StatsSnapshot {
	snap := StatsSnapshot{
		Received:      s.received.Value(),
		Sent:          s.sent.Value(),
		OutOfSequence: s.outOfSequence.Value(),
		Malformed:     s.malformed.Value(),
		NotPHD:        s.notPHD.Value(),
		SendFailures:  s.sendFailures.Value(),
		EmptyDropped:  s.emptyDropped.Value(),
		EmptyTurns:    s.emptyTurns.Value(),
	}
	if s.outOfRange != nil {
		snap.OutOfRange = s.outOfRange()
	}
	return snap
}
