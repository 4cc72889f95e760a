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

package syncutil

import "sync/atomic"

// TxnLock is a non-reentrant lock whose acquire and release are driven by
// transaction boundary flags rather than by scope. Begin and End may be called
// from different goroutines. An End without a matching Begin is ignored so a
// misbehaving peer cannot panic the process with an unlock of an unlocked
// mutex.
type TxnLock struct {
	mu   Mutex
	held atomic.Bool
}

// Begin blocks until the lock is free and takes it.
func (l *TxnLock) Begin() {
	l.mu.Lock()
	l.held.Store(true)
}

// End releases the lock. It reports false if the lock was not held.
func (l *TxnLock) End() bool {
	if !l.held.CompareAndSwap(true, false) {
		return false
	}
	l.mu.Unlock()
	return true
}

// Held reports whether a transaction currently owns the lock.
func (l *TxnLock) Held() bool {
	return l.held.Load()
}

// Do runs fn while holding the lock.
func (l *TxnLock) Do(fn func()) {
	l.Begin()
	defer l.End()
	fn()
}
