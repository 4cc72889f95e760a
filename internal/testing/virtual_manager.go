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

package testing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ZaparooProject/go-phdc/t3t"
)

// ErrReleased is returned by manager operations after Release
var ErrReleased = errors.New("virtual manager released")

// ErrBlockAccess is returned when the tag rejects a block read or write
var ErrBlockAccess = errors.New("block access rejected")

type pending struct {
	reply chan []byte
	cmd   []byte
}

// VirtualManager plays the reader side of a Type 3 Tag session in process.
// It implements t3t.Emulation for the agent under test, and its exported
// block and record operations act as the reader: each one becomes a command
// that the agent's session loop processes and answers.
type VirtualManager struct {
	*t3t.Services
	commands chan pending
	released chan struct{}
	fail     chan error
	current  *pending
	once     sync.Once
}

// NewVirtualManager creates a manager with no registered services
func NewVirtualManager() *VirtualManager {
	return &VirtualManager{
		Services: t3t.NewServices(),
		commands: make(chan pending),
		released: make(chan struct{}),
		fail:     make(chan error, 1),
	}
}

// ProcessCommand executes a virtual link command against the registered
// services.
func (m *VirtualManager) ProcessCommand(frame []byte) []byte {
	cmd, err := parseCommand(frame)
	if err != nil {
		return []byte{0xFF, StatusFailed}
	}
	return execute(m.Services, cmd)
}

// SendResponse answers the command in flight and waits for the next one.
func (m *VirtualManager) SendResponse(ctx context.Context, rsp []byte, timeout time.Duration) ([]byte, error) {
	if m.current != nil {
		m.current.reply <- rsp
		m.current = nil
	}

	select {
	case err := <-m.fail:
		return nil, err
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case next := <-m.commands:
		m.current = &next
		return next.cmd, nil
	case err := <-m.fail:
		return nil, err
	case <-m.released:
		return nil, nil
	case <-timer.C:
		return nil, t3t.ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release ends the session as a reader leaving the field would
func (m *VirtualManager) Release() {
	m.once.Do(func() { close(m.released) })
}

// Fail makes the agent's next wait for a command return err
func (m *VirtualManager) Fail(err error) {
	select {
	case m.fail <- err:
	default:
	}
}

// Exchange sends one raw command to the agent and returns its response
func (m *VirtualManager) Exchange(ctx context.Context, cmd []byte) ([]byte, error) {
	req := pending{cmd: cmd, reply: make(chan []byte, 1)}
	select {
	case m.commands <- req:
	case <-m.released:
		return nil, ErrReleased
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case rsp := <-req.reply:
		return rsp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ReadBlocks reads the given blocks of service in one transaction
func (m *VirtualManager) ReadBlocks(ctx context.Context, service uint16, blocks ...int) ([]byte, error) {
	rsp, err := m.Exchange(ctx, BuildCheckCommand(service, blocks...))
	if err != nil {
		return nil, err
	}
	if len(rsp) < 2 {
		return nil, ErrBadFrame
	}
	if rsp[1] != StatusOK {
		return nil, fmt.Errorf("%w: read %v", ErrBlockAccess, blocks)
	}
	return rsp[2:], nil
}

// WriteBlocks writes data to consecutive blocks of service in one transaction
func (m *VirtualManager) WriteBlocks(ctx context.Context, service uint16, start int, data []byte) error {
	if len(data) == 0 || len(data)%t3t.BlockSize != 0 {
		return fmt.Errorf("%w: %d bytes is not a whole number of blocks", ErrBadFrame, len(data))
	}
	rsp, err := m.Exchange(ctx, BuildUpdateCommand(service, start, data))
	if err != nil {
		return err
	}
	if len(rsp) < 2 {
		return ErrBadFrame
	}
	if rsp[1] != StatusOK {
		return fmt.Errorf("%w: write at block %d", ErrBlockAccess, start)
	}
	return nil
}

// ReadAttribute reads and decodes block 0
func (m *VirtualManager) ReadAttribute(ctx context.Context) (t3t.AttributeData, error) {
	data, err := m.ReadBlocks(ctx, t3t.ServiceReadWrite, 0)
	if err != nil {
		return t3t.AttributeData{}, err
	}
	return t3t.ParseAttributeData(data), nil
}

// ReadRecord reads the NDEF message currently stored on the tag, honoring
// the advertised Nbr. It returns nil when the stored length is zero.
func (m *VirtualManager) ReadRecord(ctx context.Context) ([]byte, error) {
	attr, err := m.ReadAttribute(ctx)
	if err != nil {
		return nil, err
	}
	if !attr.Valid || attr.Length == 0 {
		return nil, nil
	}

	total := (attr.Length + t3t.BlockSize - 1) / t3t.BlockSize
	perCommand := max(int(attr.Nbr), 1)
	data := make([]byte, 0, total*t3t.BlockSize)
	for first := 1; first <= total; first += perCommand {
		last := min(first+perCommand-1, total)
		blocks := make([]int, 0, last-first+1)
		for block := first; block <= last; block++ {
			blocks = append(blocks, block)
		}
		chunk, err := m.ReadBlocks(ctx, t3t.ServiceReadWrite, blocks...)
		if err != nil {
			return nil, err
		}
		data = append(data, chunk...)
	}
	return data[:attr.Length], nil
}

// WriteRecord stores an NDEF message on the tag the way a reader does: the
// header is first rewritten with the writing flag set, the data blocks
// follow in Nbw-sized transactions, and a final header clears the flag.
func (m *VirtualManager) WriteRecord(ctx context.Context, record []byte) error {
	attr, err := m.ReadAttribute(ctx)
	if err != nil {
		return err
	}
	if len(record) > attr.Capacity {
		return fmt.Errorf("%w: %d bytes, capacity %d", t3t.ErrCapacityExceeded, len(record), attr.Capacity)
	}

	attr.Writing = true
	attr.Length = len(record)
	if err := m.WriteBlocks(ctx, t3t.ServiceReadWrite, 0, attr.Marshal()); err != nil {
		return err
	}

	padded := make([]byte, (len(record)+t3t.BlockSize-1)/t3t.BlockSize*t3t.BlockSize)
	copy(padded, record)
	chunk := max(int(attr.Nbw), 1) * t3t.BlockSize
	for offset := 0; offset < len(padded); offset += chunk {
		end := min(offset+chunk, len(padded))
		if err := m.WriteBlocks(ctx, t3t.ServiceReadWrite, 1+offset/t3t.BlockSize, padded[offset:end]); err != nil {
			return err
		}
	}

	attr.Writing = false
	return m.WriteBlocks(ctx, t3t.ServiceReadWrite, 0, attr.Marshal())
}
