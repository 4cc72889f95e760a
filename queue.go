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

	"github.com/ZaparooProject/go-phdc/internal/syncutil"
)

// apduQueue is an unbounded FIFO of APDUs with a timed pop. A nil entry is
// a queued empty PHD turn and is delivered like any other APDU.
type apduQueue struct {
	signal chan struct{}
	items  [][]byte
	mu     syncutil.Mutex
}

func newAPDUQueue() *apduQueue {
	return &apduQueue{signal: make(chan struct{}, 1)}
}

func (q *apduQueue) push(apdu []byte) {
	q.mu.Lock()
	q.items = append(q.items, apdu)
	q.mu.Unlock()
	q.notify()
}

func (q *apduQueue) notify() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *apduQueue) tryPop() ([]byte, bool) {
	q.mu.Lock()
	if len(q.items) == 0 {
		q.mu.Unlock()
		return nil, false
	}
	item := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	remaining := len(q.items)
	q.mu.Unlock()

	// Pass the wakeup on to the next waiter
	if remaining > 0 {
		q.notify()
	}
	return item, true
}

// pop waits up to timeout for an item. A negative timeout waits until an
// item arrives or ctx is done; zero never waits.
func (q *apduQueue) pop(ctx context.Context, timeout time.Duration) ([]byte, bool) {
	if item, ok := q.tryPop(); ok {
		return item, true
	}
	if timeout == 0 {
		return nil, false
	}

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	for {
		select {
		case <-q.signal:
			if item, ok := q.tryPop(); ok {
				return item, true
			}
		case <-expired:
			return q.tryPop()
		case <-ctx.Done():
			return nil, false
		}
	}
}

func (q *apduQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
