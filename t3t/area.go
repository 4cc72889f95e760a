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
	"errors"
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/ZaparooProject/go-phdc/internal/syncutil"
)

// ErrCapacityExceeded is returned when a message does not fit the data area.
var ErrCapacityExceeded = errors.New("t3t: message exceeds data area capacity")

// DataArea is the NDEF data area of an emulated Type 3 Tag: block 0 holds the
// attribute information block and the remaining blocks hold the NDEF message.
//
// The reader accesses the area block by block through ReadBlock and
// WriteBlock. A multi-block command is a transaction: the first block takes a
// lock and the last block releases it. Reads and writes use separate locks.
// Local code replaces the message with Publish, which takes the read lock so a
// reader never sees a half-written header and payload.
type DataArea struct {
	onWrite    func()
	outOfRange *xsync.Counter
	buf        []byte
	readTxn    syncutil.TxnLock
	writeTxn   syncutil.TxnLock
	mu         syncutil.Mutex // guards buf
}

// NewDataArea allocates a data area sized for attr.Capacity and stores attr in
// block 0. The message bytes start zeroed.
func NewDataArea(attr AttributeData) *DataArea {
	header := attr.Marshal()
	capacity := ParseAttributeData(header).Capacity

	buf := make([]byte, BlockSize+capacity)
	copy(buf, header)

	return &DataArea{
		buf:        buf,
		outOfRange: xsync.NewCounter(),
	}
}

// OnWriteComplete registers fn to run at the end of every write transaction,
// before the write lock is released. fn must not call ReadBlock, WriteBlock
// or Publish.
func (a *DataArea) OnWriteComplete(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onWrite = fn
}

// Blocks returns the number of addressable blocks, block 0 included.
func (a *DataArea) Blocks() int {
	return len(a.buf) / BlockSize
}

// Capacity returns the message capacity in bytes.
func (a *DataArea) Capacity() int {
	return len(a.buf) - BlockSize
}

// OutOfRangeAccesses returns how many block reads and writes addressed a block
// past the end of the area.
func (a *DataArea) OutOfRangeAccesses() int64 {
	return a.outOfRange.Value()
}

// ReadBlock returns a copy of the given block, or nil if the block is out of
// range. begin acquires the read lock and end releases it, so a single-block
// read passes both.
func (a *DataArea) ReadBlock(block int, begin, end bool) []byte {
	if begin {
		a.readTxn.Begin()
	}
	if end {
		defer a.readTxn.End()
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if block < 0 || block >= len(a.buf)/BlockSize {
		a.outOfRange.Inc()
		return nil
	}

	data := make([]byte, BlockSize)
	copy(data, a.buf[block*BlockSize:])
	return data
}

// WriteBlock stores data at the given block and reports success. Writes out
// of range or of the wrong size fail. begin acquires the write lock; end runs
// the OnWriteComplete hook and then releases it, whether or not this block was
// stored.
func (a *DataArea) WriteBlock(block int, data []byte, begin, end bool) bool {
	if begin {
		a.writeTxn.Begin()
	}
	if end {
		defer a.completeWrite()
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if block < 0 || block >= len(a.buf)/BlockSize {
		a.outOfRange.Inc()
		return false
	}
	if len(data) != BlockSize {
		return false
	}

	copy(a.buf[block*BlockSize:], data)
	return true
}

func (a *DataArea) completeWrite() {
	a.mu.Lock()
	hook := a.onWrite
	a.mu.Unlock()

	if hook != nil {
		hook()
	}
	a.writeTxn.End()
}

// Attribute decodes the current attribute information block.
func (a *DataArea) Attribute() AttributeData {
	a.mu.Lock()
	defer a.mu.Unlock()
	return ParseAttributeData(a.buf[:BlockSize])
}

// Message returns the attribute block and a copy of the stored message bytes.
// The message is empty when the header is invalid, a write is in progress or
// the length is zero.
func (a *DataArea) Message() (AttributeData, []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	attr := ParseAttributeData(a.buf[:BlockSize])
	if !attr.Valid || attr.Writing || attr.Length == 0 {
		return attr, nil
	}

	end := BlockSize + attr.Length
	if end > len(a.buf) {
		return attr, nil
	}

	data := make([]byte, attr.Length)
	copy(data, a.buf[BlockSize:end])
	return attr, data
}

// Consume marks the stored message as taken by rewriting the attribute block
// with a zero length.
func (a *DataArea) Consume() {
	a.mu.Lock()
	defer a.mu.Unlock()

	attr := ParseAttributeData(a.buf[:BlockSize])
	attr.Length = 0
	copy(a.buf, attr.Marshal())
}

// Publish stores a new message for the reader. build runs while the read lock
// is held and returns the message bytes; the attribute block is re-serialized
// with the new length before the lock is released. If build fails, or its
// result does not fit, the area is left unchanged.
func (a *DataArea) Publish(build func() ([]byte, error)) error {
	var err error
	a.readTxn.Do(func() {
		var data []byte
		data, err = build()
		if err != nil {
			return
		}
		err = a.store(data)
	})
	return err
}

// Load stores a message like Publish without running a builder.
func (a *DataArea) Load(data []byte) error {
	return a.Publish(func() ([]byte, error) { return data, nil })
}

func (a *DataArea) store(data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(data) > len(a.buf)-BlockSize {
		return fmt.Errorf("%w: %d bytes, capacity %d", ErrCapacityExceeded, len(data), len(a.buf)-BlockSize)
	}

	attr := ParseAttributeData(a.buf[:BlockSize])
	attr.Length = len(data)
	copy(a.buf, attr.Marshal())
	copy(a.buf[BlockSize:], data)
	return nil
}
