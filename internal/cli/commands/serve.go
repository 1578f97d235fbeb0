package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/formrepl/internal/server"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(version string) *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a session over HTTP",
		Long: `Run one session behind a small JSON API.

Endpoints:
  POST   /api/execute   submit {"input": "..."} as one unit
  GET    /api/history   recent cycles, newest first (?count=N)
  DELETE /api/history   clear history and restart numbering
  GET    /api/info      version, engine and session details

Submissions are executed one at a time.`,
		Example: `  formrepl serve --addr 127.0.0.1:9000`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts, version)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "Listen address (default "+server.DefaultAddr+")")
	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions, version string) error {
	cc := NewCommandContext(cmd)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	inv, err := cc.Invoker()
	if err != nil {
		return err
	}
	sess, cleanup, err := cc.Session(ctx, inv, nil, version)
	if err != nil {
		return err
	}
	defer cleanup()

	addr := opts.Addr
	if addr == "" {
		addr = cc.Cfg.Server.Addr
	}

	srv := server.New(server.Config{
		Addr:       addr,
		Session:    sess,
		Version:    version,
		EnginePath: inv.ExecutablePath(),
		Sentinel:   cc.Cfg.Sentinel,
		Timeout:    cc.Cfg.Timeout,
		Logger:     cc.Logger,
	})
	_, _ = fmt.Fprintf(cc.Out, "Serving on http://%s\n", addr)
	return srv.Serve(ctx)
}
