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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaparooProject/go-phdc/t3t"
)

// serveArea registers area with m and runs a minimal session loop until the
// manager is released or fails.
func serveArea(t *testing.T, m *VirtualManager, area *t3t.DataArea) <-chan error {
	t.Helper()
	m.AddService(t3t.ServiceReadWrite, area.ReadBlock, area.WriteBlock)
	m.AddService(t3t.ServiceReadOnly, area.ReadBlock, t3t.DenyWrite)

	done := make(chan error, 1)
	go func() {
		cmd := ActivationCommand()
		for cmd != nil {
			next, err := m.SendResponse(context.Background(), m.ProcessCommand(cmd), time.Second)
			if err != nil {
				done <- err
				return
			}
			cmd = next
		}
		done <- nil
	}()
	return done
}

func newArea() *t3t.DataArea {
	return t3t.NewDataArea(t3t.AttributeData{
		Version: "1.0", Nbr: 4, Nbw: 2, Capacity: 256, Writable: true,
	})
}

func TestVirtualManager_WriteAndReadRecord(t *testing.T) {
	t.Parallel()

	m := NewVirtualManager()
	area := newArea()
	done := serveArea(t, m, area)
	ctx := context.Background()

	record := make([]byte, 100)
	for i := range record {
		record[i] = byte(i)
	}

	require.NoError(t, m.WriteRecord(ctx, record))

	attr, data := area.Message()
	assert.False(t, attr.Writing)
	assert.Equal(t, record, data)

	got, err := m.ReadRecord(ctx)
	require.NoError(t, err)
	assert.Equal(t, record, got)

	m.Release()
	require.NoError(t, <-done)
}

func TestVirtualManager_WriteRecordSetsWritingFlagFirst(t *testing.T) {
	t.Parallel()

	m := NewVirtualManager()
	area := newArea()
	var seen []bool
	area.OnWriteComplete(func() {
		attr, _ := area.Message()
		seen = append(seen, attr.Writing)
	})
	done := serveArea(t, m, area)

	require.NoError(t, m.WriteRecord(context.Background(), make([]byte, 40)))

	// header, two data transactions (Nbw=2, 3 blocks), final header
	assert.Equal(t, []bool{true, true, true, false}, seen)

	m.Release()
	require.NoError(t, <-done)
}

func TestVirtualManager_OutOfRangeRead(t *testing.T) {
	t.Parallel()

	m := NewVirtualManager()
	area := newArea()
	done := serveArea(t, m, area)

	_, err := m.ReadBlocks(context.Background(), t3t.ServiceReadWrite, area.Blocks())
	require.ErrorIs(t, err, ErrBlockAccess)
	assert.Equal(t, int64(1), area.OutOfRangeAccesses())

	m.Release()
	require.NoError(t, <-done)
}

func TestVirtualManager_ReadOnlyServiceRejectsWrites(t *testing.T) {
	t.Parallel()

	m := NewVirtualManager()
	done := serveArea(t, m, newArea())

	err := m.WriteBlocks(context.Background(), t3t.ServiceReadOnly, 1, make([]byte, t3t.BlockSize))
	require.ErrorIs(t, err, ErrBlockAccess)

	m.Release()
	require.NoError(t, <-done)
}

func TestVirtualManager_FailEndsSession(t *testing.T) {
	t.Parallel()

	m := NewVirtualManager()
	done := serveArea(t, m, newArea())

	m.Fail(t3t.ErrTransmission)
	err := <-done
	assert.True(t, errors.Is(err, t3t.ErrTransmission))
}

func TestVirtualManager_ReleasedExchange(t *testing.T) {
	t.Parallel()

	m := NewVirtualManager()
	m.Release()

	_, err := m.Exchange(context.Background(), ActivationCommand())
	require.ErrorIs(t, err, ErrReleased)
}

func TestParseCommand_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		frame []byte
	}{
		{name: "empty", frame: nil},
		{name: "short header", frame: []byte{CmdCheck, 0x00}},
		{name: "short block list", frame: []byte{CmdCheck, 0x00, 0x09, 0x02, 0x00, 0x01}},
		{name: "short update data", frame: []byte{CmdUpdate, 0x00, 0x09, 0x01, 0x00, 0x01, 0xAA}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := parseCommand(tt.frame)
			require.ErrorIs(t, err, ErrBadFrame)
		})
	}
}
