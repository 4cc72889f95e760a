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
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	console "github.com/phsym/console-slog"
)

// debugEnabled controls whether debug logging reaches the logger
var debugEnabled atomic.Bool

// logLevel is shared by the default handler so SetDebugEnabled can lower it
var logLevel = new(slog.LevelVar)

var logger atomic.Pointer[slog.Logger]

func init() {
	logLevel.Set(slog.LevelWarn)
	logger.Store(slog.New(console.NewHandler(os.Stderr, &console.HandlerOptions{
		Level:      logLevel,
		TimeFormat: "15:04:05.000",
	})))

	if os.Getenv("PHDC_DEBUG") != "" || os.Getenv("DEBUG") != "" {
		SetDebugEnabled(true)
	}
}

// Logger returns the logger used by the package.
func Logger() *slog.Logger {
	return logger.Load()
}

// SetLogger replaces the package logger. Passing nil is ignored.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger.Store(l)
	}
}

// SetDebugEnabled allows programmatic control of debug logging.
// It also lowers the default console handler to debug level.
func SetDebugEnabled(enabled bool) {
	debugEnabled.Store(enabled)
	if enabled {
		logLevel.Set(slog.LevelDebug)
	} else {
		logLevel.Set(slog.LevelWarn)
	}
}

// SetLogLevel sets the level of the default console handler. Debug output
// still needs SetDebugEnabled.
func SetLogLevel(level slog.Level) {
	logLevel.Set(level)
}

// Debugf logs a debug message.
// Always writes to the session log file (if initialized) with a timestamp.
// Only reaches the logger when debug mode is enabled.
func Debugf(format string, args ...any) {
	message := fmt.Sprintf(format, args...)
	writeSessionLine("DEBUG", message)

	if debugEnabled.Load() {
		Logger().Debug(message)
	}
}

// Debugln logs a debug message built like fmt.Sprintln, without the
// trailing newline.
func Debugln(args ...any) {
	message := strings.TrimSuffix(fmt.Sprintln(args...), "\n")
	writeSessionLine("DEBUG", message)

	if debugEnabled.Load() {
		Logger().Debug(message)
	}
}

// Infof logs a session event at info level and to the session log file.
func Infof(format string, args ...any) {
	message := fmt.Sprintf(format, args...)
	writeSessionLine("INFO", message)
	Logger().Info(message)
}

func writeSessionLine(level, message string) {
	sessionLogMu.Lock()
	defer sessionLogMu.Unlock()

	if sessionLogWriter != nil {
		timestamp := time.Now().Format("15:04:05.000")
		_, _ = fmt.Fprintf(sessionLogWriter, "%s %s: %s\n", timestamp, level, message)
	}
}
