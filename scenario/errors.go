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
	"errors"
	"fmt"
)

// Test errors
var (
	ErrTestFailed  = errors.New("test failed")
	ErrNoResponse  = errors.New("no response from manager")
	ErrUnknownTest = errors.New("unknown test")
)

// TestError reports why a numbered test failed.
type TestError struct {
	Err    error
	Kind   string // "tag" or "llcp"
	Reason string
	Test   int
}

func (e *TestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s test %d: %s: %v", e.Kind, e.Test, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s test %d: %s", e.Kind, e.Test, e.Reason)
}

// Is matches ErrTestFailed so callers can tell test failures from setup
// errors.
func (*TestError) Is(target error) bool {
	return target == ErrTestFailed
}

func (e *TestError) Unwrap() error {
	return e.Err
}
