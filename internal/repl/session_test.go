package repl

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/formrepl/internal/engine"
	"github.com/leapstack-labs/formrepl/internal/input"
	"github.com/leapstack-labs/formrepl/internal/magic"
	"github.com/leapstack-labs/formrepl/internal/session"
	"github.com/leapstack-labs/formrepl/internal/testutil"
)

// fakeRunner answers each unit with a scripted response.
type fakeRunner struct {
	mu    sync.Mutex
	units []string
	fn    func(unit string) (*engine.Result, error)
}

func (f *fakeRunner) Invoke(_ context.Context, unit string) (*engine.Result, error) {
	f.mu.Lock()
	f.units = append(f.units, unit)
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(unit)
	}
	return &engine.Result{DisplayText: "   E = " + unit + ";", Duration: 10 * time.Millisecond}, nil
}

func (f *fakeRunner) Units() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.units...)
}

type fakeRecorder struct {
	entries []session.Entry
	resets  int
	err     error
}

func (f *fakeRecorder) Record(_ context.Context, e session.Entry) error {
	f.entries = append(f.entries, e)
	return f.err
}

func (f *fakeRecorder) Reset(context.Context) error {
	f.resets++
	f.entries = nil
	return nil
}

func newTestSession(t *testing.T, runner Runner, mutate ...func(*Config)) *Session {
	t.Helper()
	cfg := Config{
		Sentinel:         ".end",
		ValidateBrackets: true,
		Version:          "test",
		EnginePath:       "/opt/form/bin/form",
		Logger:           testutil.NewTestLogger(t),
	}
	for _, m := range mutate {
		m(&cfg)
	}
	return NewSession(runner, cfg)
}

func feed(t *testing.T, s *Session, lines ...string) []Step {
	t.Helper()
	steps := make([]Step, 0, len(lines))
	for _, l := range lines {
		steps = append(steps, s.HandleLine(context.Background(), l))
	}
	return steps
}

func TestSession_BlankLineSubmits(t *testing.T) {
	runner := &fakeRunner{}
	s := newTestSession(t, runner)

	steps := feed(t, s, "Symbols x;", "Local E = x^2;", "Print;", "")
	for _, st := range steps[:3] {
		assert.Equal(t, StepContinue, st.Kind)
	}
	last := steps[3]
	require.Equal(t, StepCycle, last.Kind)
	require.NotNil(t, last.Cycle)

	assert.Equal(t, 1, last.Cycle.Seq)
	assert.Equal(t, "Symbols x;\nLocal E = x^2;\nPrint;", last.Cycle.Source)
	assert.Equal(t, []string{"Symbols x;\nLocal E = x^2;\nPrint;"}, runner.Units())
	assert.False(t, last.Cycle.Failed())

	entry, ok := s.Store().Lookup(1)
	require.True(t, ok)
	assert.True(t, entry.Completed)
	assert.Equal(t, []string{"x"}, s.Store().DeclaredSymbols())
}

func TestSession_SentinelSubmitsWithSentinelKept(t *testing.T) {
	runner := &fakeRunner{}
	s := newTestSession(t, runner)

	steps := feed(t, s, "Local E = 1;", ".end")
	require.Equal(t, StepCycle, steps[1].Kind)
	assert.Equal(t, "Local E = 1;", steps[1].Cycle.Source)
}

func TestSession_HighlightClassifiesInput(t *testing.T) {
	s := newTestSession(t, &fakeRunner{}, func(c *Config) { c.Highlight = true })

	steps := feed(t, s, "Local E = 1;", "Print;", "")
	require.Equal(t, StepCycle, steps[2].Kind)
	assert.Len(t, steps[2].Cycle.Input, 2)
}

func TestSession_FailureKeepsNumbering(t *testing.T) {
	runner := &fakeRunner{fn: func(unit string) (*engine.Result, error) {
		if strings.Contains(unit, "bad") {
			return nil, &engine.ExecutionError{Status: 1, Stderr: "bad.frm Line 1 --> Illegal\n", Stdout: "partial"}
		}
		return &engine.Result{DisplayText: "ok"}, nil
	}}
	rec := &fakeRecorder{}
	s := newTestSession(t, runner, func(c *Config) { c.Recorder = rec })

	first := feed(t, s, "Local E = 1;", "")[1]
	second := feed(t, s, "bad;", "")[1]
	third := feed(t, s, "Local F = 2;", "")[1]

	assert.Equal(t, 1, first.Cycle.Seq)
	assert.Equal(t, 2, second.Cycle.Seq)
	assert.Equal(t, 3, third.Cycle.Seq)

	require.True(t, second.Cycle.Failed())
	assert.ErrorIs(t, second.Cycle.Err, engine.ErrExecution)
	assert.Equal(t, "partial", second.Cycle.Display)
	assert.Equal(t, "bad.frm Line 1 --> Illegal\n", second.Cycle.Stderr)

	entry, ok := s.Store().Lookup(2)
	require.True(t, ok)
	assert.Equal(t, "exit status 1", entry.Failure)
	assert.False(t, entry.Completed)

	require.Len(t, rec.entries, 3)
	assert.Equal(t, 2, rec.entries[1].Seq)
	assert.Equal(t, "exit status 1", rec.entries[1].Failure)
}

func TestSession_TimeoutKeepsPartialOutput(t *testing.T) {
	runner := &fakeRunner{fn: func(string) (*engine.Result, error) {
		return nil, &engine.TimeoutError{Timeout: time.Second, Partial: "   E ="}
	}}
	s := newTestSession(t, runner)

	st := feed(t, s, "Local E = 1;", "")[1]
	require.Equal(t, StepCycle, st.Kind)
	assert.ErrorIs(t, st.Cycle.Err, engine.ErrTimeout)
	assert.Equal(t, "   E =", st.Cycle.Display)
}

func TestSession_CommandsBypassEngine(t *testing.T) {
	runner := &fakeRunner{}
	s := newTestSession(t, runner)

	tests := []struct {
		line string
		kind StepKind
		res  magic.Kind
	}{
		{line: ".help", kind: StepCommand, res: magic.Help},
		{line: "%lsmagic", kind: StepCommand, res: magic.Output},
		{line: "%bogus", kind: StepCommand, res: magic.Unknown},
		{line: ".clear", kind: StepCommand, res: magic.ClearScreen},
		{line: "%quit", kind: StepExit, res: magic.Exit},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			st := s.HandleLine(context.Background(), tt.line)
			assert.Equal(t, tt.kind, st.Kind)
			require.NotNil(t, st.Command)
			assert.Equal(t, tt.res, st.Command.Kind)
		})
	}
	assert.Empty(t, runner.Units())
	assert.Equal(t, 1, s.Store().NextSeq())
}

func TestSession_CommandOnlyOnFirstLine(t *testing.T) {
	runner := &fakeRunner{}
	s := newTestSession(t, runner)

	steps := feed(t, s, "Local E = 1;", "%who", "")
	assert.Equal(t, StepContinue, steps[1].Kind)
	require.Equal(t, StepCycle, steps[2].Kind)
	assert.Equal(t, "Local E = 1;\n%who", steps[2].Cycle.Source)
}

func TestSession_ModuleInstructionGoesToEngine(t *testing.T) {
	runner := &fakeRunner{}
	s := newTestSession(t, runner)

	steps := feed(t, s, ".sort", "")
	require.Equal(t, StepCycle, steps[1].Kind)
	assert.Equal(t, []string{".sort"}, runner.Units())
}

func TestSession_ResetRestartsNumbering(t *testing.T) {
	rec := &fakeRecorder{}
	s := newTestSession(t, &fakeRunner{}, func(c *Config) { c.Recorder = rec })

	feed(t, s, "Local E = 1;", "")
	feed(t, s, "Local F = 2;", "")
	require.Equal(t, 3, s.Store().NextSeq())

	st := s.HandleLine(context.Background(), "%reset")
	require.Equal(t, StepCommand, st.Kind)
	assert.Equal(t, "Session reset. History cleared.", st.Command.Text)
	assert.Equal(t, 1, rec.resets)
	assert.Empty(t, rec.entries)

	next := feed(t, s, "Local G = 3;", "")[1]
	assert.Equal(t, 1, next.Cycle.Seq)
}

func TestSession_TimingToggleShowsDuration(t *testing.T) {
	s := newTestSession(t, &fakeRunner{})

	before := feed(t, s, "Local E = 1;", "")[1]
	assert.False(t, before.Cycle.ShowDuration)

	s.HandleLine(context.Background(), "%time")
	after := feed(t, s, "Local E = 1;", "")[1]
	assert.True(t, after.Cycle.ShowDuration)
	assert.Equal(t, 10*time.Millisecond, after.Cycle.Duration)
}

func TestSession_RejectedKeepsBuffer(t *testing.T) {
	runner := &fakeRunner{}
	s := newTestSession(t, runner)

	steps := feed(t, s, "Local E = f(x;", "")
	require.Equal(t, StepRejected, steps[1].Kind)
	assert.ErrorIs(t, steps[1].Err, input.ErrUnbalanced)
	assert.True(t, s.Collecting())
	assert.Empty(t, runner.Units())

	st := s.Interrupt()
	assert.Equal(t, StepCancelled, st.Kind)
	assert.Equal(t, 1, st.Discarded)
	assert.False(t, s.Collecting())
}

func TestSession_ValidationDisabled(t *testing.T) {
	runner := &fakeRunner{}
	s := newTestSession(t, runner, func(c *Config) { c.ValidateBrackets = false })

	steps := feed(t, s, "Local E = f(x;", "")
	assert.Equal(t, StepCycle, steps[1].Kind)
}

func TestSession_EndOfInput(t *testing.T) {
	t.Run("submits pending", func(t *testing.T) {
		s := newTestSession(t, &fakeRunner{})
		feed(t, s, "Local E = 1;")

		st := s.EndOfInput(context.Background())
		require.Equal(t, StepCycle, st.Kind)
		assert.Equal(t, "Local E = 1;", st.Cycle.Source)
		assert.Equal(t, StepExit, s.EndOfInput(context.Background()).Kind)
	})

	t.Run("idle exits", func(t *testing.T) {
		s := newTestSession(t, &fakeRunner{})
		assert.Equal(t, StepExit, s.EndOfInput(context.Background()).Kind)
	})

	t.Run("rejected is discarded", func(t *testing.T) {
		runner := &fakeRunner{}
		s := newTestSession(t, runner)
		feed(t, s, "Local E = (1;")

		st := s.EndOfInput(context.Background())
		assert.Equal(t, StepRejected, st.Kind)
		assert.Equal(t, StepExit, s.EndOfInput(context.Background()).Kind)
		assert.Empty(t, runner.Units())
	})
}

func TestSession_SubmitText(t *testing.T) {
	runner := &fakeRunner{}
	s := newTestSession(t, runner)

	c := s.SubmitText(context.Background(), "\r\n  Symbols x;\r\n\r\n  Local E = x;\r\n\n")
	assert.Equal(t, 1, c.Seq)
	assert.Equal(t, "Symbols x;\n\nLocal E = x;", c.Source)
	assert.Equal(t, []string{"Symbols x;\n\nLocal E = x;"}, runner.Units())
}

func TestSession_Prompt(t *testing.T) {
	s := newTestSession(t, &fakeRunner{})
	assert.Equal(t, "In [1]: ", s.Prompt())

	feed(t, s, "Local E = 1;")
	assert.Equal(t, "   ...: ", s.Prompt())
	assert.Len(t, s.Prompt(), len("In [1]: "))

	for i := 0; i < 9; i++ {
		feed(t, s, "")
		feed(t, s, "Local E = 1;")
	}
	assert.Equal(t, "    ...: ", s.Prompt())
	feed(t, s, "")
	assert.Equal(t, "In [11]: ", s.Prompt())
}

func TestSession_RecorderErrorIsLogged(t *testing.T) {
	logger, buf := testutil.NewBufferLogger(slog.LevelDebug)
	rec := &fakeRecorder{err: errors.New("disk full")}
	s := newTestSession(t, &fakeRunner{}, func(c *Config) {
		c.Recorder = rec
		c.Logger = logger
	})

	st := feed(t, s, "Local E = 1;", "")[1]
	assert.False(t, st.Cycle.Failed())
	assert.Contains(t, buf.String(), "failed to journal entry")
	assert.Contains(t, buf.String(), "disk full")
}
