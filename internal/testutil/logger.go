// Package testutil holds logging helpers shared by package tests.
package testutil

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

// NewTestLogger routes debug-level records into the test log, so engine
// and session chatter shows up next to the failing assertion.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(tbWriter{tb: t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type tbWriter struct {
	tb testing.TB
}

func (w tbWriter) Write(p []byte) (int, error) {
	w.tb.Helper()
	w.tb.Log(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}

// NewBufferLogger returns a logger that writes text records to the returned
// buffer, for tests that assert on what was logged.
func NewBufferLogger(level slog.Level) (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: level})), buf
}
