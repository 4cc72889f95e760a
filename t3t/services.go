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
	"slices"

	"github.com/puzpuzpuz/xsync/v3"
)

// ReadFunc returns the 16-byte block or nil when the block does not exist.
// begin and end mark the first and last block of one Check command.
type ReadFunc func(block int, begin, end bool) []byte

// WriteFunc stores a 16-byte block and reports success. begin and end mark
// the first and last block of one Update command.
type WriteFunc func(block int, data []byte, begin, end bool) bool

// Service is a pair of block handlers registered under a service code.
type Service struct {
	Read  ReadFunc
	Write WriteFunc
}

// Services is a concurrency-safe service table. Emulation implementations
// can embed it to satisfy the AddService half of the Emulation interface and
// dispatch decoded commands through Read and Write.
type Services struct {
	table *xsync.MapOf[uint16, Service]
}

// NewServices returns an empty service table.
func NewServices() *Services {
	return &Services{table: xsync.NewMapOf[uint16, Service]()}
}

// AddService registers or replaces the handlers for a service code.
func (s *Services) AddService(code uint16, read ReadFunc, write WriteFunc) {
	s.table.Store(code, Service{Read: read, Write: write})
}

// Lookup returns the handlers for a service code.
func (s *Services) Lookup(code uint16) (Service, bool) {
	return s.table.Load(code)
}

// Codes returns the registered service codes in ascending order.
func (s *Services) Codes() []uint16 {
	codes := make([]uint16, 0, s.table.Size())
	s.table.Range(func(code uint16, _ Service) bool {
		codes = append(codes, code)
		return true
	})
	slices.Sort(codes)
	return codes
}

// Read dispatches a block read. It returns nil for unknown services and for
// blocks the service does not have.
func (s *Services) Read(code uint16, block int, begin, end bool) []byte {
	svc, ok := s.table.Load(code)
	if !ok || svc.Read == nil {
		return nil
	}
	return svc.Read(block, begin, end)
}

// Write dispatches a block write. Unknown services fail.
func (s *Services) Write(code uint16, block int, data []byte, begin, end bool) bool {
	svc, ok := s.table.Load(code)
	if !ok || svc.Write == nil {
		return false
	}
	return svc.Write(block, data, begin, end)
}

// DenyWrite is the WriteFunc of a read-only service.
func DenyWrite(int, []byte, bool, bool) bool {
	return false
}
