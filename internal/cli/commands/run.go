package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/formrepl/internal/engine"
	"github.com/leapstack-labs/formrepl/internal/repl"
	"github.com/leapstack-labs/formrepl/internal/theme"
)

// watchDebounce coalesces the bursts of events editors produce on save.
const watchDebounce = 150 * time.Millisecond

// RunOptions holds options for the run command.
type RunOptions struct {
	Watch bool
	Quiet bool
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run FILE...",
		Short: "Run FORM source files as REPL input",
		Long: `Run each file as if its lines were typed into a session.

Blank lines and the sentinel submit, commands such as %time or %who work,
and every file gets a fresh session. Use "-" to read standard input.

With --watch the files are run again whenever they change.`,
		Example: `  # Run a file
  formrepl run examples/expand.frm

  # Re-run on every save
  formrepl run --watch work.frm`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Re-run files when they change")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Do not echo input before its output")

	return cmd
}

func runRun(cmd *cobra.Command, files []string, opts *RunOptions) error {
	cc := NewCommandContext(cmd)
	ctx := cmd.Context()

	inv, err := cc.Invoker()
	if err != nil {
		return err
	}
	themes, err := cc.Themes(cc.Out)
	if err != nil {
		return err
	}

	var total repl.Summary
	for _, f := range files {
		sum, err := runFile(ctx, cmd, cc, inv, themes, f, opts)
		if err != nil {
			return err
		}
		total.Cycles += sum.Cycles
		total.Failed += sum.Failed
	}

	if !opts.Watch {
		return batchResult(total)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	return watchFiles(ctx, cc, files, func(f string) {
		if _, err := runFile(ctx, cmd, cc, inv, themes, f, opts); err != nil {
			cc.Logger.Error("run failed", "file", f, "error", err)
		}
	})
}

func runFile(ctx context.Context, cmd *cobra.Command, cc *CommandContext, inv *engine.Invoker, themes *theme.Switcher, path string, opts *RunOptions) (repl.Summary, error) {
	sess, cleanup, err := cc.Session(ctx, inv, themes, "")
	if err != nil {
		return repl.Summary{}, err
	}
	defer cleanup()

	r := cc.Renderer(themes)
	r.EchoInput = !opts.Quiet

	if path == "-" {
		return repl.RunBatch(ctx, sess, r, cmd.InOrStdin())
	}

	f, err := os.Open(path)
	if err != nil {
		return repl.Summary{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if len(cmd.Flags().Args()) > 1 || opts.Watch {
		_, _ = fmt.Fprintf(cc.Out, "==> %s <==\n", path)
	}
	return repl.RunBatch(ctx, sess, r, f)
}

// watchFiles calls run for a file whenever it is written, until ctx is done.
// Directories are watched rather than files so editors that replace the
// file on save are still seen.
func watchFiles(ctx context.Context, cc *CommandContext, files []string, run func(string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	watched := make(map[string]string)
	for _, f := range files {
		if f == "-" {
			continue
		}
		abs, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		watched[abs] = f
		if err := watcher.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("failed to watch %s: %w", f, err)
		}
	}
	if len(watched) == 0 {
		return errors.New("nothing to watch")
	}

	cc.Logger.Info("watching for changes", "files", len(watched))

	var mu sync.Mutex // one re-run at a time
	timers := make(map[string]*time.Timer)
	for {
		select {
		case <-ctx.Done():
			for _, t := range timers {
				t.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			name, ok := watched[filepath.Clean(event.Name)]
			if !ok {
				continue
			}

			if t := timers[name]; t != nil {
				t.Stop()
			}
			timers[name] = time.AfterFunc(watchDebounce, func() {
				mu.Lock()
				defer mu.Unlock()
				if ctx.Err() != nil {
					return
				}
				cc.Logger.Debug("file changed, re-running", "file", name)
				run(name)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			cc.Logger.Error("watcher error", "error", err)
		}
	}
}
