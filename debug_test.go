//nolint:paralleltest // Tests modify package-level debug state, cannot run in parallel
package phdc

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// saveDebugState captures debug state for restoration after a test
func saveDebugState(t *testing.T) {
	t.Helper()
	enabled := debugEnabled.Load()
	writer := sessionLogWriter
	l := Logger()
	t.Cleanup(func() {
		SetDebugEnabled(enabled)
		sessionLogWriter = writer
		SetLogger(l)
	})
}

func TestDebugf_WritesToSessionLog(t *testing.T) {
	saveDebugState(t)

	var buf bytes.Buffer
	sessionLogWriter = &buf
	SetDebugEnabled(false)

	Debugf("test message %d", 42)

	output := buf.String()
	assert.Contains(t, output, "DEBUG: test message 42")
	assert.True(t, strings.HasSuffix(output, "\n"))
}

func TestDebugf_NilSessionLog(t *testing.T) {
	saveDebugState(t)

	sessionLogWriter = nil
	SetDebugEnabled(false)

	assert.NotPanics(t, func() {
		Debugf("no session log %s", "here")
	})
}

func TestDebugf_ReachesLoggerOnlyWhenEnabled(t *testing.T) {
	saveDebugState(t)
	sessionLogWriter = nil

	var out bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug})))

	SetDebugEnabled(false)
	Debugf("hidden")
	assert.Empty(t, out.String())

	SetDebugEnabled(true)
	Debugf("[phdc] <<< %x", []byte{0x81, 0xE2})
	assert.Contains(t, out.String(), "[phdc] <<< 81e2")
}

func TestInfof_AlwaysWritesSessionLog(t *testing.T) {
	saveDebugState(t)

	var buf bytes.Buffer
	sessionLogWriter = &buf
	SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	Infof("entering %s", "run loop")

	assert.Contains(t, buf.String(), "INFO: entering run loop")
}

func TestSetLogger_IgnoresNil(t *testing.T) {
	saveDebugState(t)

	before := Logger()
	SetLogger(nil)
	require.Same(t, before, Logger())
}
