package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/formrepl/internal/repl"
	"github.com/leapstack-labs/formrepl/internal/theme"
)

// RunSession starts an interactive session when standard input is a
// terminal and runs standard input as a batch otherwise.
func RunSession(cmd *cobra.Command, version string) error {
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
	sess, cleanup, err := cc.Session(ctx, inv, themes, version)
	if err != nil {
		return err
	}
	defer cleanup()

	r := cc.Renderer(themes)
	in := cmd.InOrStdin()

	if !isTerminal(in) {
		r.EchoInput = true
		sum, err := repl.RunBatch(ctx, sess, r, in)
		if err != nil {
			return err
		}
		return batchResult(sum)
	}

	r.Interactive = true
	r.Banner(version, inv.ExecutablePath(), cc.Cfg.Sentinel)

	opts := repl.RunOptions{
		HistoryFile:  cc.Cfg.History.File,
		HistoryLimit: cc.Cfg.History.MaxEntries,
		SaveHistory:  cc.Cfg.History.SaveOnExit,
		Stdout:       cc.Out,
		Stderr:       cc.ErrOut,
	}
	if rc, ok := in.(io.ReadCloser); ok && in != os.Stdin {
		opts.Stdin = rc
	}
	if themes != nil {
		opts.Painter = theme.Painter{Switcher: themes}
	}
	return repl.Run(ctx, sess, r, opts)
}

// batchResult turns failed submissions into a non-zero exit.
func batchResult(sum repl.Summary) error {
	if sum.Failed > 0 {
		return fmt.Errorf("%d of %d submissions failed", sum.Failed, sum.Cycles)
	}
	return nil
}
