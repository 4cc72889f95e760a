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
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ZaparooProject/go-phdc/internal/syncutil"
	"github.com/ZaparooProject/go-phdc/t3t"
)

// TagAgent runs a PHDC agent over Type 3 Tag emulation. The manager reads
// and writes PHD records in the tag's NDEF data area; the agent extracts
// each record the manager writes and publishes the application's replies in
// its place.
//
// Both directions share one message counter, so the manager and the agent
// must take strict turns: each side only sends after it has accepted the
// other's message.
type TagAgent struct {
	Agent
	tag        t3t.Emulation
	area       *t3t.DataArea
	config     *Config
	session    context.Context
	endSession context.CancelFunc
	done       chan struct{}
	err        error
	command    []byte
	responders sync.WaitGroup
	counter    MessageCounter
	mu         syncutil.Mutex // guards counter and err
	started    atomic.Bool
}

// NewTagAgent creates a tag agent whose first reader command is cmd. The
// data area is registered with tag under the read/write service and the
// read-only service.
func NewTagAgent(tag t3t.Emulation, cmd []byte, opts ...Option) (*TagAgent, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	agent := &TagAgent{
		Agent:   newAgent(),
		tag:     tag,
		area:    t3t.NewDataArea(config.attribute()),
		config:  config,
		command: append([]byte(nil), cmd...),
		counter: config.InitialCounter,
		done:    make(chan struct{}),
	}
	agent.session, agent.endSession = context.WithCancel(context.Background())
	agent.stats.outOfRange = agent.area.OutOfRangeAccesses

	record, err := EncodeRecord(config.InitialFlags, config.InitialAPDU)
	if err != nil {
		return nil, err
	}
	if err := agent.area.Load(record); err != nil {
		return nil, fmt.Errorf("failed to load initial message: %w", err)
	}

	agent.area.OnWriteComplete(agent.receiveMessage)
	tag.AddService(t3t.ServiceReadWrite, agent.readBlock, agent.writeBlock)
	tag.AddService(t3t.ServiceReadOnly, agent.readBlock, t3t.DenyWrite)

	return agent, nil
}

// Config returns the agent configuration
func (a *TagAgent) Config() Config {
	return *a.config
}

// Attribute returns the current attribute information block
func (a *TagAgent) Attribute() t3t.AttributeData {
	return a.area.Attribute()
}

// Counter returns the current message counter
func (a *TagAgent) Counter() MessageCounter {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counter
}

func (a *TagAgent) readBlock(block int, begin, end bool) []byte {
	data := a.area.ReadBlock(block, begin, end)
	if data == nil {
		Debugf("[tt3] read block #%d out of range", block)
		return nil
	}
	Debugf("[tt3] got read block #%d %x", block, data)
	return data
}

func (a *TagAgent) writeBlock(block int, data []byte, begin, end bool) bool {
	Debugf("[tt3] got write block #%d %x", block, data)
	return a.area.WriteBlock(block, data, begin, end)
}

// receiveMessage runs at the end of each write transaction while the write
// lock is still held.
func (a *TagAgent) receiveMessage() {
	attr, data := a.area.Message()
	if data == nil {
		return
	}
	Debugf("[tt3] attribute data: length=%d writing=%t", attr.Length, attr.Writing)

	flags, apdu, err := DecodeRecord(data)
	switch {
	case errors.Is(err, ErrNotPHDRecord):
		a.stats.notPHD.Inc()
		Debugf("[phdc] ignoring record: %v", err)
		return
	case err != nil:
		a.stats.malformed.Inc()
		Debugf("[phdc] dropping record: %v", err)
		return
	}

	a.mu.Lock()
	if !a.counter.Accepts(flags) {
		expected := a.counter.Flags()
		a.mu.Unlock()
		a.stats.outOfSequence.Inc()
		Debugf("[phdc] %v: flags %02X, expected %02X", ErrOutOfSequence, flags, expected)
		return
	}
	a.counter.Advance()
	a.mu.Unlock()

	a.area.Consume()
	a.enqueue(apdu)

	a.responders.Add(1)
	go func() {
		defer a.responders.Done()
		a.sendNext(a.session, a.config.ResponseTimeout)
	}()
}

// SendNext publishes the next outbound APDU for the manager, waiting up to
// timeout for one. It reports whether a record was published. With nothing
// queued the area and the counter are left unchanged.
func (a *TagAgent) SendNext(timeout time.Duration) bool {
	return a.sendNext(context.Background(), timeout)
}

func (a *TagAgent) sendNext(ctx context.Context, timeout time.Duration) bool {
	apdu, ok := a.dequeue(ctx, timeout)
	if !ok {
		return false
	}

	// Counter and record change together under the read transaction lock.
	err := a.area.Publish(func() ([]byte, error) {
		a.mu.Lock()
		defer a.mu.Unlock()

		flags := a.counter.Flags()
		record, err := EncodeRecord(flags, apdu)
		if err != nil {
			return nil, err
		}
		if len(record) > a.area.Capacity() {
			return nil, fmt.Errorf("%w: %d bytes, capacity %d",
				ErrCapacityExceeded, len(record), a.area.Capacity())
		}

		Debugf("[phdc] >>> %02X%x", flags, apdu)
		a.counter.Advance()
		return record, nil
	})
	if err != nil {
		a.stats.sendFailures.Inc()
		Debugf("[phdc] failed to publish APDU: %v", err)
		return false
	}

	a.stats.sent.Inc()
	return true
}

// Start runs the command/response loop in the background until the reader
// goes away, the link fails, ctx is cancelled or Stop is called.
func (a *TagAgent) Start(ctx context.Context) error {
	if a.session.Err() != nil {
		return ErrAgentStopped
	}
	if !a.started.CompareAndSwap(false, true) {
		return ErrAgentRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-a.session.Done():
		case <-ctx.Done():
		}
		cancel()
	}()
	go a.run(ctx)
	return nil
}

func (a *TagAgent) run(ctx context.Context) {
	defer close(a.done)
	defer a.responders.Wait()
	defer a.endSession()

	Infof("entering phdc agent run loop")
	defer Infof("leaving phdc agent run loop")

	cmd := a.command
	for cmd != nil {
		if ctx.Err() != nil {
			return
		}

		rsp := a.tag.ProcessCommand(cmd)
		next, err := a.tag.SendResponse(ctx, rsp, a.config.CommandTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			a.setErr(newTransportError("send response", err))
			Debugf("[phdc] session ended: %v", err)
			return
		}
		cmd = next
	}
}

func (a *TagAgent) setErr(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = err
}

// Err returns the transport error that ended the session, if any. A
// session ended by the reader, by ctx or by Stop has no error.
func (a *TagAgent) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// Done is closed when the session has ended
func (a *TagAgent) Done() <-chan struct{} {
	return a.done
}

// Wait blocks until the session ends or ctx is done.
func (a *TagAgent) Wait(ctx context.Context) error {
	select {
	case <-a.done:
		return a.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop ends the session and waits up to the configured stop timeout for the
// loop to exit. An in-flight SendResponse is not interrupted beyond the
// cancellation of its context. A stopped agent cannot be started again.
func (a *TagAgent) Stop() error {
	a.endSession()
	if !a.started.Load() {
		return nil
	}

	timer := time.NewTimer(a.config.StopTimeout)
	defer timer.Stop()

	select {
	case <-a.done:
		return nil
	case <-timer.C:
		return ErrStopTimeout
	}
}
