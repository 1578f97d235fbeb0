package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/chzyer/readline"

	"github.com/leapstack-labs/formrepl/internal/history"
)

// RunOptions configures the terminal loop.
type RunOptions struct {
	HistoryFile  string
	HistoryLimit int
	SaveHistory  bool
	Painter      readline.Painter
	Stdin        io.ReadCloser
	Stdout       io.Writer
	Stderr       io.Writer
}

// Run drives s interactively until the user exits or ctx is done.
func Run(ctx context.Context, s *Session, r *Renderer, opts RunOptions) error {
	limit := opts.HistoryLimit
	if limit <= 0 {
		limit = history.DefaultMaxEntries
	}

	var recall []string
	if opts.HistoryFile != "" {
		loaded, err := history.Load(opts.HistoryFile, limit)
		if err != nil {
			s.logger.Warn("failed to load history", "path", opts.HistoryFile, "error", err)
		}
		recall = loaded
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:                 r.Prompt(s.Prompt()),
		HistoryLimit:           limit,
		DisableAutoSaveHistory: true,
		HistorySearchFold:      true,
		AutoComplete:           newCompleter(s),
		Painter:                opts.Painter,
		InterruptPrompt:        "^C",
		EOFPrompt:              "",
		Stdin:                  opts.Stdin,
		Stdout:                 opts.Stdout,
		Stderr:                 opts.Stderr,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	for _, e := range recall {
		_ = rl.SaveHistory(e)
	}

	defer func() {
		if opts.HistoryFile == "" || !opts.SaveHistory {
			return
		}
		if err := history.Save(opts.HistoryFile, recall, limit); err != nil {
			s.logger.Warn("failed to save history", "path", opts.HistoryFile, "error", err)
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		rl.SetPrompt(r.Prompt(s.Prompt()))

		line, err := rl.Readline()
		var st Step
		switch {
		case errors.Is(err, readline.ErrInterrupt):
			st = s.Interrupt()
		case errors.Is(err, io.EOF):
			st = interruptible(ctx, s.EndOfInput)
		case err != nil:
			return fmt.Errorf("read input: %w", err)
		default:
			st = interruptible(ctx, func(ctx context.Context) Step { return s.HandleLine(ctx, line) })
		}

		r.Step(st)
		if st.Kind == StepCycle {
			recall = history.Append(recall, st.Cycle.Source, limit)
			_ = rl.SaveHistory(st.Cycle.Source)
		}
		if st.Kind == StepExit {
			return nil
		}
	}
}

// interruptible runs fn with a context that is canceled by ^C, so an
// in-flight invocation can be stopped without leaving the loop.
func interruptible(ctx context.Context, fn func(context.Context) Step) Step {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	return fn(ctx)
}

// Summary counts what a batch run did.
type Summary struct {
	Cycles int
	Failed int
}

// RunBatch feeds every line of in to s and submits whatever is pending at
// the end of input.
func RunBatch(ctx context.Context, s *Session, r *Renderer, in io.Reader) (Summary, error) {
	var sum Summary
	count := func(st Step) {
		if st.Kind == StepCycle {
			sum.Cycles++
			if st.Cycle.Failed() {
				sum.Failed++
			}
		}
	}

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		st := s.HandleLine(ctx, sc.Text())
		r.Step(st)
		count(st)
		if st.Kind == StepExit {
			return sum, nil
		}
	}
	if err := sc.Err(); err != nil {
		return sum, fmt.Errorf("read input: %w", err)
	}

	for {
		st := s.EndOfInput(ctx)
		r.Step(st)
		count(st)
		if st.Kind == StepExit {
			return sum, nil
		}
	}
}
