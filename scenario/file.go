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
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// DefaultScenarioFile is the file tag test 0 and link test 0 replay
const DefaultScenarioFile = "scenario.txt"

// ParseScenario reads one hex APDU per line. Lines starting with '#' are
// comments and blank lines are skipped; whitespace inside a line is ignored.
func ParseScenario(r io.Reader) ([][]byte, error) {
	var apdus [][]byte
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		apdu, err := ParseHex(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(apdu) == 0 {
			continue
		}
		apdus = append(apdus, apdu)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	return apdus, nil
}

// LoadScenarioFile parses the scenario file at path.
func LoadScenarioFile(path string) ([][]byte, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("failed to open scenario: %w", err)
	}
	defer func() { _ = f.Close() }()

	apdus, err := ParseScenario(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return apdus, nil
}
