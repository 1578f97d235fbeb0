package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/leapstack-labs/formrepl/internal/cli/config"
	"github.com/leapstack-labs/formrepl/internal/engine"
	"github.com/leapstack-labs/formrepl/internal/repl"
	"github.com/leapstack-labs/formrepl/internal/state"
	"github.com/leapstack-labs/formrepl/internal/theme"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg    *config.Config
	Logger *slog.Logger
	Out    io.Writer
	ErrOut io.Writer
}

// NewCommandContext collects the loaded config and logger for cmd.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	return &CommandContext{
		Cfg:    getConfig(),
		Logger: config.GetLogger(cmd.Context()),
		Out:    cmd.OutOrStdout(),
		ErrOut: cmd.ErrOrStderr(),
	}
}

// getConfig returns the current configuration, or defaults when none was
// loaded.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return config.Default()
}

// Invoker resolves the engine executable and builds an invoker for it.
func (c *CommandContext) Invoker() (*engine.Invoker, error) {
	res, err := c.Cfg.ResolveFormPath()
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("resolved FORM executable", "path", res.Path, "source", res.Source)

	return engine.New(engine.Config{
		ExecutablePath: res.Path,
		Args:           c.Cfg.FormArgs,
		WorkDir:        c.Cfg.WorkDir,
		Timeout:        c.Cfg.Timeout,
		AutoEnd:        c.Cfg.AutoEnd,
		Sentinel:       c.Cfg.Sentinel,
		Logger:         c.Logger,
	})
}

// Themes builds the theme switcher for w, or nil when highlighting is off.
func (c *CommandContext) Themes(w io.Writer) (*theme.Switcher, error) {
	if !c.Cfg.Highlight {
		return nil, nil
	}
	return theme.NewSwitcher(c.Cfg.Theme, theme.NewRenderer(w, colorEnabled(w)))
}

// Session wires a REPL session around inv. The returned cleanup ends the
// journal session, if one was opened.
func (c *CommandContext) Session(ctx context.Context, inv *engine.Invoker, themes *theme.Switcher, version string) (*repl.Session, func(), error) {
	rc := repl.Config{
		Sentinel:         c.Cfg.Sentinel,
		Highlight:        c.Cfg.Highlight,
		ShowTiming:       c.Cfg.ShowTiming,
		ValidateBrackets: c.Cfg.ValidateBrackets,
		OutputCache:      c.Cfg.OutputCache,
		Version:          version,
		EnginePath:       inv.ExecutablePath(),
		Logger:           c.Logger,
	}
	if themes != nil {
		rc.Themes = themes
	}

	cleanup := func() {}
	if c.Cfg.Journal.Enabled {
		j, id, err := c.startJournal(ctx, inv.ExecutablePath())
		if err != nil {
			return nil, nil, err
		}
		rc.Recorder = repl.JournalRecorder{Journal: j, SessionID: id}
		cleanup = func() {
			if err := j.EndSession(context.WithoutCancel(ctx), id); err != nil {
				c.Logger.Warn("failed to end journal session", "error", err)
			}
			_ = j.Close()
		}
	}

	return repl.NewSession(inv, rc), cleanup, nil
}

func (c *CommandContext) startJournal(ctx context.Context, enginePath string) (*state.Journal, string, error) {
	j, err := c.OpenJournal(ctx)
	if err != nil {
		return nil, "", err
	}
	id, err := j.StartSession(ctx, enginePath)
	if err != nil {
		_ = j.Close()
		return nil, "", err
	}
	c.Logger.Debug("journaling session", "id", id, "path", j.Path())
	return j, id, nil
}

// OpenJournal opens and migrates the configured journal database.
func (c *CommandContext) OpenJournal(ctx context.Context) (*state.Journal, error) {
	j, err := state.Open(c.Cfg.Journal.Path)
	if err != nil {
		return nil, err
	}
	if err := j.Migrate(ctx); err != nil {
		_ = j.Close()
		return nil, fmt.Errorf("failed to migrate journal: %w", err)
	}
	return j, nil
}

// Renderer builds a cycle renderer for the command's output streams.
func (c *CommandContext) Renderer(themes *theme.Switcher) *repl.Renderer {
	return repl.NewRenderer(c.Out, c.ErrOut, themes)
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f any) bool {
	fd, ok := f.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(fd.Fd()))
}

func colorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isTerminal(w)
}
