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
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ZaparooProject/go-phdc/t3t"
)

// Virtual link command codes
const (
	CmdActivate byte = 0x00
	CmdCheck    byte = 0x06
	CmdUpdate   byte = 0x08
)

// Response status codes
const (
	StatusOK     byte = 0x00
	StatusFailed byte = 0x01
)

// ErrBadFrame is returned for a command or response that cannot be parsed
var ErrBadFrame = errors.New("malformed virtual link frame")

// ActivationCommand returns the command that opens a virtual session
func ActivationCommand() []byte {
	return []byte{CmdActivate}
}

// BuildCheckCommand encodes a read of the given blocks
func BuildCheckCommand(service uint16, blocks ...int) []byte {
	cmd := []byte{CmdCheck, 0, 0, byte(len(blocks))}
	binary.BigEndian.PutUint16(cmd[1:3], service)
	for _, block := range blocks {
		cmd = binary.BigEndian.AppendUint16(cmd, uint16(block)) //nolint:gosec // block numbers fit 16 bits
	}
	return cmd
}

// BuildUpdateCommand encodes a write of data to consecutive blocks starting
// at start. data must be a whole number of blocks.
func BuildUpdateCommand(service uint16, start int, data []byte) []byte {
	count := len(data) / t3t.BlockSize
	cmd := []byte{CmdUpdate, 0, 0, byte(count)}
	binary.BigEndian.PutUint16(cmd[1:3], service)
	for i := range count {
		cmd = binary.BigEndian.AppendUint16(cmd, uint16(start+i)) //nolint:gosec // block numbers fit 16 bits
	}
	return append(cmd, data...)
}

type command struct {
	data    []byte
	blocks  []int
	op      byte
	service uint16
}

func parseCommand(frame []byte) (command, error) {
	if len(frame) == 0 {
		return command{}, ErrBadFrame
	}
	cmd := command{op: frame[0]}
	if cmd.op == CmdActivate {
		return cmd, nil
	}
	if len(frame) < 4 {
		return command{}, fmt.Errorf("%w: short header", ErrBadFrame)
	}
	cmd.service = binary.BigEndian.Uint16(frame[1:3])
	count := int(frame[3])
	rest := frame[4:]
	if len(rest) < 2*count {
		return command{}, fmt.Errorf("%w: short block list", ErrBadFrame)
	}
	for i := range count {
		cmd.blocks = append(cmd.blocks, int(binary.BigEndian.Uint16(rest[2*i:])))
	}
	cmd.data = rest[2*count:]
	if cmd.op == CmdUpdate && len(cmd.data) != count*t3t.BlockSize {
		return command{}, fmt.Errorf("%w: %d data bytes for %d blocks", ErrBadFrame, len(cmd.data), count)
	}
	return cmd, nil
}

// execute runs a parsed command against the registered services. Each
// multi-block command is one transaction.
func execute(services *t3t.Services, cmd command) []byte {
	switch cmd.op {
	case CmdActivate:
		return []byte{CmdActivate + 1, StatusOK}
	case CmdCheck:
		rsp := []byte{CmdCheck + 1, StatusOK}
		for i, block := range cmd.blocks {
			data := services.Read(cmd.service, block, i == 0, i == len(cmd.blocks)-1)
			if data == nil {
				rsp[1] = StatusFailed
				continue
			}
			rsp = append(rsp, data...)
		}
		if rsp[1] != StatusOK {
			return rsp[:2]
		}
		return rsp
	case CmdUpdate:
		rsp := []byte{CmdUpdate + 1, StatusOK}
		for i, block := range cmd.blocks {
			data := cmd.data[i*t3t.BlockSize : (i+1)*t3t.BlockSize]
			if !services.Write(cmd.service, block, data, i == 0, i == len(cmd.blocks)-1) {
				rsp[1] = StatusFailed
			}
		}
		return rsp
	default:
		return []byte{cmd.op + 1, StatusFailed}
	}
}
