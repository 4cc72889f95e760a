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

package scenario

import (
	"context"
	"time"
)

// Timing holds the waits a test makes between exchanges.
type Timing struct {
	// Receive bounds each wait for a manager response
	Receive time.Duration
	// BeforeRelease is the pause between association and release
	BeforeRelease time.Duration
	// BeforeLeave is the pause before the devices are moved apart
	BeforeLeave time.Duration
	// Join bounds the wait for a tag session to end on its own
	Join time.Duration
}

// DefaultTiming returns the waits of the validation procedure.
func DefaultTiming() Timing {
	return Timing{
		Receive:       5 * time.Second,
		BeforeRelease: 3 * time.Second,
		BeforeLeave:   time.Second,
		Join:          10 * time.Second,
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
