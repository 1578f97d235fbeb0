// Package repl drives interaction cycles: raw lines go through the input
// assembler, local commands through the dispatcher, and finished units
// through the engine, with every cycle recorded in the session store.
package repl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/leapstack-labs/formrepl/internal/engine"
	"github.com/leapstack-labs/formrepl/internal/input"
	"github.com/leapstack-labs/formrepl/internal/magic"
	"github.com/leapstack-labs/formrepl/internal/session"
	"github.com/leapstack-labs/formrepl/pkg/lexer"
)

// Runner executes one unit of source text.
type Runner interface {
	Invoke(ctx context.Context, unit string) (*engine.Result, error)
}

// Recorder receives every finished cycle, e.g. to journal it.
type Recorder interface {
	Record(ctx context.Context, e session.Entry) error
	Reset(ctx context.Context) error
}

// Config holds the already-resolved options of a Session.
type Config struct {
	Sentinel         string
	Highlight        bool
	ShowTiming       bool
	ValidateBrackets bool
	OutputCache      int
	Themes           magic.Themes
	Version          string
	EnginePath       string
	Recorder         Recorder
	Logger           *slog.Logger
}

// StepKind says what a single input event produced.
type StepKind int

// Step kinds.
const (
	// StepContinue means more input is needed.
	StepContinue StepKind = iota
	// StepCycle means a unit was submitted; Cycle is set.
	StepCycle
	// StepCommand means a local command ran; Command is set.
	StepCommand
	// StepCancelled means pending input was discarded.
	StepCancelled
	// StepRejected means validation refused the pending unit; Err is set.
	StepRejected
	// StepExit means the session should end.
	StepExit
)

// Step is the result of one input event.
type Step struct {
	Kind      StepKind
	Cycle     *Cycle
	Command   *magic.Result
	Err       error
	Discarded int
}

// Cycle is everything a caller needs to render one submission.
type Cycle struct {
	Seq int
	// Source is the submitted text.
	Source string
	// Input holds the classified source lines when highlighting is on.
	Input        [][]lexer.Token
	Display      string
	Stderr       string
	Duration     time.Duration
	ShowDuration bool
	Err          error
}

// Failed reports whether the invocation failed.
func (c *Cycle) Failed() bool { return c.Err != nil }

// Session owns the state of one interactive session. It is driven by a
// single goroutine.
type Session struct {
	asm        *input.Assembler
	store      *session.Store
	dispatcher *magic.Dispatcher
	runner     Runner
	recorder   Recorder
	themes     magic.Themes
	highlight  bool
	logger     *slog.Logger
}

// NewSession wires an assembler, store and dispatcher around runner.
func NewSession(runner Runner, cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Session{
		store:     session.NewStore(session.WithOutputCapacity(cfg.OutputCache)),
		runner:    runner,
		recorder:  cfg.Recorder,
		themes:    cfg.Themes,
		highlight: cfg.Highlight,
		logger:    logger,
	}

	s.dispatcher = magic.New(s.store,
		magic.WithLogger(logger),
		magic.WithThemes(cfg.Themes),
		magic.WithVersion(cfg.Version),
		magic.WithEnginePath(cfg.EnginePath),
		magic.WithShowTiming(cfg.ShowTiming),
		magic.WithHighlight(cfg.Highlight),
		magic.WithSentinel(cfg.Sentinel),
		magic.WithOnReset(s.onReset),
	)

	opts := []input.Option{
		input.WithSentinel(cfg.Sentinel),
		input.WithDirectiveFunc(s.dispatcher.IsCommand),
	}
	if cfg.ValidateBrackets {
		opts = append(opts, input.WithValidator(input.BracketValidator))
	}
	s.asm = input.New(opts...)

	return s
}

// Store exposes the session store for read access.
func (s *Session) Store() *session.Store { return s.store }

// Collecting reports whether a unit is being assembled.
func (s *Session) Collecting() bool { return s.asm.State() == input.Collecting }

// Prompt returns the prompt for the next line: "In [N]: " when idle and an
// aligned "...: " continuation while collecting.
func (s *Session) Prompt() string {
	in := inPrompt(s.store.NextSeq())
	if !s.Collecting() {
		return in
	}
	return continuationPrompt(in)
}

func inPrompt(seq int) string { return fmt.Sprintf("In [%d]: ", seq) }

func continuationPrompt(in string) string {
	const cont = "...: "
	return strings.Repeat(" ", max(len(in)-len(cont), 0)) + cont
}

// HandleLine feeds one raw line.
func (s *Session) HandleLine(ctx context.Context, line string) Step {
	o := s.asm.Feed(line)
	switch o.Kind {
	case input.Submitted:
		c := s.Submit(ctx, o.Unit)
		return Step{Kind: StepCycle, Cycle: &c}
	case input.Cleared:
		res := s.dispatcher.Dispatch(line)
		return Step{Kind: StepCommand, Command: &res}
	case input.Directive:
		res := s.dispatcher.Dispatch(o.Line)
		if res.Kind == magic.Exit {
			return Step{Kind: StepExit, Command: &res}
		}
		return Step{Kind: StepCommand, Command: &res}
	case input.Rejected:
		s.logger.Debug("unit rejected", "error", o.Err)
		return Step{Kind: StepRejected, Err: o.Err}
	default:
		return Step{Kind: StepContinue}
	}
}

// Interrupt discards pending input.
func (s *Session) Interrupt() Step {
	o := s.asm.Cancel()
	return Step{Kind: StepCancelled, Discarded: o.Discarded}
}

// EndOfInput submits pending input or ends the session when there is none.
// A pending unit that fails validation is discarded so the next call ends
// the session.
func (s *Session) EndOfInput(ctx context.Context) Step {
	o := s.asm.EOF()
	switch o.Kind {
	case input.Submitted:
		c := s.Submit(ctx, o.Unit)
		return Step{Kind: StepCycle, Cycle: &c}
	case input.Rejected:
		s.asm.Cancel()
		return Step{Kind: StepRejected, Err: o.Err}
	default:
		return Step{Kind: StepExit}
	}
}

// SubmitText submits free-form text as one unit, bypassing line assembly.
func (s *Session) SubmitText(ctx context.Context, text string) Cycle {
	var lines []string
	for _, l := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		lines = append(lines, strings.TrimSpace(l))
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}
	return s.Submit(ctx, input.NewUnit(lines...))
}

// Submit runs a finalized unit through the engine and records the outcome.
// Failures are recorded too, so numbering always advances.
func (s *Session) Submit(ctx context.Context, unit input.Unit) Cycle {
	text := unit.Text()
	seq := s.store.AppendPending(text)

	c := Cycle{
		Seq:          seq,
		Source:       text,
		ShowDuration: s.dispatcher.ShowTiming(),
	}
	if s.highlight {
		for _, l := range unit.Lines() {
			c.Input = append(c.Input, lexer.Classify(l))
		}
	}

	start := time.Now()
	res, err := s.runner.Invoke(ctx, text)
	if err != nil {
		c.Err = err
		c.Duration = time.Since(start)
		c.Display = engine.PartialOutput(err)
		var execErr *engine.ExecutionError
		if errors.As(err, &execErr) {
			c.Stderr = execErr.Stderr
			c.Display = execErr.Stdout
		}
		if ferr := s.store.Fail(seq, failureReason(err), c.Stderr); ferr != nil {
			s.logger.Error("failed to record failure", "seq", seq, "error", ferr)
		}
		s.logger.Debug("cycle failed", "seq", seq, "error", err)
	} else {
		c.Display = res.DisplayText
		c.Stderr = res.Stderr
		c.Duration = res.Duration
		if cerr := s.store.Complete(seq, res.DisplayText, res.Duration); cerr != nil {
			s.logger.Error("failed to record output", "seq", seq, "error", cerr)
		}
	}

	s.record(ctx, seq)
	return c
}

func (s *Session) record(ctx context.Context, seq int) {
	if s.recorder == nil {
		return
	}
	entry, ok := s.store.Lookup(seq)
	if !ok {
		return
	}
	// Record even when the invocation was interrupted.
	if err := s.recorder.Record(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Warn("failed to journal entry", "seq", seq, "error", err)
	}
}

// Reset clears history and restarts numbering, as %reset does.
func (s *Session) Reset() {
	s.store.Clear()
	s.onReset()
}

func (s *Session) onReset() {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Reset(context.Background()); err != nil {
		s.logger.Warn("failed to reset journal", "error", err)
	}
}

func failureReason(err error) string {
	var execErr *engine.ExecutionError
	if errors.As(err, &execErr) {
		return fmt.Sprintf("exit status %d", execErr.Status)
	}
	return err.Error()
}
