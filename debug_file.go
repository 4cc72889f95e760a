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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

// SessionInfo names the validation run a session log records.
type SessionInfo struct {
	Mode   string // llcp, tag or manager
	Device string // serial port, empty for an in-process peer
	Test   int
}

func (s SessionInfo) String() string {
	return fmt.Sprintf("%s test %d", s.Mode, s.Test)
}

// Session log state
var (
	sessionLogMu      sync.Mutex
	sessionLogFile    *os.File
	sessionLogPath    string
	sessionLogWriter  io.Writer
	sessionLogInfo    SessionInfo
	sessionLogStarted time.Time
)

// InitSessionLog creates the log file for one validation run in dir, or in
// the current directory when dir is empty. The file is named after the mode
// and test number. Returns the log file path for display.
func InitSessionLog(dir string, info SessionInfo) (string, error) {
	started := time.Now()
	filename := filepath.Join(dir, fmt.Sprintf("phdc_%s_test%d_%s.log",
		info.Mode, info.Test, started.Format("20060102_150405")))

	logFile, err := os.Create(filename) //nolint:gosec // filename is constructed internally
	if err != nil {
		return "", fmt.Errorf("failed to create session log: %w", err)
	}

	sessionLogMu.Lock()
	defer sessionLogMu.Unlock()

	sessionLogFile = logFile
	sessionLogPath = filename
	sessionLogWriter = logFile
	sessionLogInfo = info
	sessionLogStarted = started
	writeSessionHeader(logFile, info, started)

	return filename, nil
}

// CloseSessionLog records the outcome of the run and closes the log file.
// A nil result marks the test as passed.
func CloseSessionLog(result error) error {
	sessionLogMu.Lock()
	defer sessionLogMu.Unlock()

	if sessionLogFile == nil {
		return nil
	}

	writeSessionFooter(sessionLogWriter, sessionLogInfo, time.Since(sessionLogStarted), result)

	err := sessionLogFile.Close()
	sessionLogFile = nil
	sessionLogPath = ""
	sessionLogWriter = nil
	sessionLogInfo = SessionInfo{}
	if err != nil {
		return fmt.Errorf("failed to close session log: %w", err)
	}
	return nil
}

// GetSessionLogPath returns the current session log file path.
func GetSessionLogPath() string {
	sessionLogMu.Lock()
	defer sessionLogMu.Unlock()
	return sessionLogPath
}

func writeSessionHeader(w io.Writer, info SessionInfo, started time.Time) {
	device := info.Device
	if device == "" {
		device = "in-process"
	}
	_, _ = fmt.Fprintf(w, "=== PHDC %s ===\n", info)
	_, _ = fmt.Fprintf(w, "Mode:    %s\n", info.Mode)
	_, _ = fmt.Fprintf(w, "Test:    %d\n", info.Test)
	_, _ = fmt.Fprintf(w, "Peer:    %s\n", device)
	_, _ = fmt.Fprintf(w, "Started: %s\n", started.Format(time.RFC3339))
	_, _ = fmt.Fprintf(w, "Host:    %s/%s %s\n", runtime.GOOS, runtime.GOARCH, runtime.Version())
	_, _ = fmt.Fprintf(w, "Args:    %s\n\n", strings.Join(os.Args[1:], " "))
}

func writeSessionFooter(w io.Writer, info SessionInfo, elapsed time.Duration, result error) {
	timestamp := time.Now().Format("15:04:05.000")
	outcome := "passed"
	if result != nil {
		outcome = "failed: " + result.Error()
	}
	_, _ = fmt.Fprintf(w, "\n%s === %s %s after %s ===\n",
		timestamp, info, outcome, elapsed.Round(time.Millisecond))
}
