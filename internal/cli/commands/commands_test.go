package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/formrepl/internal/cli/testutil"
	"github.com/leapstack-labs/formrepl/internal/repl"
	"github.com/leapstack-labs/formrepl/internal/state"
)

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		name  string
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{name: "run", cmd: NewRunCommand(), use: "run FILE...", flags: []string{"watch", "quiet"}},
		{name: "log", cmd: NewLogCommand(), use: "log", flags: []string{"session", "limit", "full"}},
		{name: "themes", cmd: NewThemesCommand(), use: "themes"},
		{name: "config", cmd: NewConfigCommand(), use: "config", flags: []string{"path"}},
		{name: "doctor", cmd: NewDoctorCommand(), use: "doctor", flags: []string{"format", "no-probe"}},
		{name: "serve", cmd: NewServeCommand("test"), use: "serve", flags: []string{"addr"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func TestBatchResult(t *testing.T) {
	require.NoError(t, batchResult(repl.Summary{Cycles: 3}))

	err := batchResult(repl.Summary{Cycles: 3, Failed: 2})
	require.Error(t, err)
	assert.Equal(t, "2 of 3 submissions failed", err.Error())
}

func TestSummarizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "single line", in: "Local F = x;", want: "Local F = x;"},
		{name: "multi line", in: "Symbols x;\nLocal F = x;", want: "Symbols x; ..."},
		{name: "surrounding space", in: "\n  F = x\n", want: "F = x"},
		{name: "long line", in: string(bytes.Repeat([]byte("a"), 80)), want: string(bytes.Repeat([]byte("a"), 57)) + "..."},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, summarizeText(tt.in))
		})
	}
}

func TestRenderJournal(t *testing.T) {
	ctx := context.Background()
	j, err := state.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	require.NoError(t, j.Migrate(ctx))

	id, err := j.StartSession(ctx, "/usr/bin/form")
	require.NoError(t, err)
	require.NoError(t, j.RecordEntry(ctx, state.Entry{
		SessionID: id, Seq: 1, Input: "Local F = x;", Output: "   F = x;", Duration: 20 * time.Millisecond, SubmittedAt: time.Now(),
	}))
	require.NoError(t, j.RecordEntry(ctx, state.Entry{
		SessionID: id, Seq: 2, Input: "Local G = ;", Failure: "exit status 1", Stderr: "Illegal statement", SubmittedAt: time.Now(),
	}))

	t.Run("sessions", func(t *testing.T) {
		sessions, err := j.ListSessions(ctx, 0)
		require.NoError(t, err)

		var buf bytes.Buffer
		renderSessions(&buf, sessions)
		assert.Contains(t, buf.String(), id[:8])
		assert.Contains(t, buf.String(), "/usr/bin/form")
	})

	t.Run("no sessions", func(t *testing.T) {
		var buf bytes.Buffer
		renderSessions(&buf, nil)
		assert.Equal(t, "No sessions recorded.\n", buf.String())
	})

	t.Run("entries", func(t *testing.T) {
		entries, err := j.ListEntries(ctx, id)
		require.NoError(t, err)

		var buf bytes.Buffer
		renderEntries(&buf, id, entries)
		out := buf.String()
		assert.Contains(t, out, "Session "+id)
		assert.Contains(t, out, "Local F = x;")
		assert.Contains(t, out, "failed: exit status 1")
	})

	t.Run("full entries", func(t *testing.T) {
		entries, err := j.ListEntries(ctx, id)
		require.NoError(t, err)

		var buf bytes.Buffer
		renderEntriesFull(&buf, entries)
		out := buf.String()
		assert.Contains(t, out, "In [1]:\nLocal F = x;\n")
		assert.Contains(t, out, "Out[1]:\n   F = x;\n")
		assert.Contains(t, out, "Failed (exit status 1)\nIllegal statement\n")
	})
}

func TestRunCommand(t *testing.T) {
	dir := testutil.Isolate(t)
	t.Setenv("FORM_PATH", testutil.WriteFakeForm(t, t.TempDir()))

	t.Run("successful file", func(t *testing.T) {
		path := filepath.Join(dir, "ok.frm")
		require.NoError(t, os.WriteFile(path, []byte("Local E = 1;\nPrint;\n\n"), 0o644))

		out, _, err := testutil.ExecuteCommand(t, NewRunCommand(), "", path)
		require.NoError(t, err)
		assert.Contains(t, out, "In [1]: Local E = 1;")
		assert.Contains(t, out, "   Local E = 1;")
		assert.NotContains(t, out, "FORM 4.3.1")
		testutil.AssertNoANSI(t, out)
	})

	t.Run("failing submission", func(t *testing.T) {
		path := filepath.Join(dir, "bad.frm")
		require.NoError(t, os.WriteFile(path, []byte("Local E = 1;\n\nLocal G = fail;\n"), 0o644))

		_, errOut, err := testutil.ExecuteCommand(t, NewRunCommand(), "", path)
		require.Error(t, err)
		assert.Equal(t, "1 of 2 submissions failed", err.Error())
		assert.Contains(t, errOut, "Illegal statement")
	})

	t.Run("quiet from stdin", func(t *testing.T) {
		out, _, err := testutil.ExecuteCommand(t, NewRunCommand(), "Local H = 2;\n", "--quiet", "-")
		require.NoError(t, err)
		assert.NotContains(t, out, "In [1]:")
		assert.Contains(t, out, "   Local H = 2;")
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := testutil.ExecuteCommand(t, NewRunCommand(), "", filepath.Join(dir, "nope.frm"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to open")
	})
}

func TestDoctorCommand(t *testing.T) {
	testutil.Isolate(t)
	t.Setenv("FORM_PATH", testutil.WriteFakeForm(t, t.TempDir()))

	t.Run("text without probe", func(t *testing.T) {
		out, _, err := testutil.ExecuteCommand(t, NewDoctorCommand(), "", "--no-probe")
		require.NoError(t, err)
		assert.Contains(t, out, "from FORM_PATH")
		assert.Contains(t, out, "Warn")
		assert.Contains(t, out, "skipped")
		assert.Contains(t, out, "All checks passed.")
	})

	t.Run("json with probe", func(t *testing.T) {
		out, _, err := testutil.ExecuteCommand(t, NewDoctorCommand(), "", "--format", "json")
		require.NoError(t, err)

		var got DoctorOutput
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Zero(t, got.Errors)

		statuses := make(map[string]string)
		for _, c := range got.Checks {
			statuses[c.Name] = c.Status
		}
		assert.Equal(t, statusPass, statuses["executable"])
		assert.Equal(t, statusPass, statuses["probe"])
		assert.Equal(t, statusPass, statuses["journal"])
	})

	t.Run("unknown format", func(t *testing.T) {
		_, _, err := testutil.ExecuteCommand(t, NewDoctorCommand(), "", "--no-probe", "--format", "xml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown format")
	})
}

func TestConfigCommand(t *testing.T) {
	testutil.Isolate(t)

	out, _, err := testutil.ExecuteCommand(t, NewConfigCommand(), "")
	require.NoError(t, err)
	assert.Contains(t, out, "sentinel: .end")
	assert.Contains(t, out, "timeout: 1m0s")
	assert.Contains(t, out, "history:")

	out, _, err = testutil.ExecuteCommand(t, NewConfigCommand(), "", "--path")
	require.NoError(t, err)
	assert.Equal(t, "(none)\n", out)
}

func TestThemesCommand(t *testing.T) {
	testutil.Isolate(t)

	out, _, err := testutil.ExecuteCommand(t, NewThemesCommand(), "")
	require.NoError(t, err)
	assert.Contains(t, out, "* default")
	assert.Contains(t, out, themeSample)
	testutil.AssertNoANSI(t, out)
}

func TestWatchFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "watched.frm")
	require.NoError(t, os.WriteFile(path, []byte("Local E = 1;\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cc := &CommandContext{Logger: slog.New(slog.DiscardHandler)}

	var runs atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- watchFiles(ctx, cc, []string{path}, func(string) { runs.Add(1) })
	}()

	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("Local E = 2;\n"), 0o644)
		return runs.Load() > 0
	}, 5*time.Second, 300*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatchFilesNothingToWatch(t *testing.T) {
	cc := &CommandContext{Logger: slog.New(slog.DiscardHandler)}
	err := watchFiles(context.Background(), cc, []string{"-"}, func(string) {})
	require.Error(t, err)
}
