package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/formrepl/internal/magic"
	"github.com/leapstack-labs/formrepl/internal/state"
)

// LogOptions holds options for the log command.
type LogOptions struct {
	Session string
	Limit   int
	Full    bool
}

// NewLogCommand creates the log command.
func NewLogCommand() *cobra.Command {
	opts := &LogOptions{}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show journaled sessions",
		Long: `List sessions recorded in the journal, or the entries of one session.

Sessions are only journaled when journal.enabled is true.`,
		Example: `  # List recent sessions
  formrepl log

  # Show the entries of a session by ID prefix
  formrepl log --session 3f2a`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLog(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Session, "session", "s", "", "Session ID or unique prefix")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Maximum number of sessions to list (0 for all)")
	cmd.Flags().BoolVar(&opts.Full, "full", false, "Print complete inputs and outputs")

	return cmd
}

func runLog(cmd *cobra.Command, opts *LogOptions) error {
	cc := NewCommandContext(cmd)
	ctx := cmd.Context()

	j, err := cc.OpenJournal(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = j.Close() }()

	if opts.Session == "" {
		sessions, err := j.ListSessions(ctx, opts.Limit)
		if err != nil {
			return err
		}
		renderSessions(cc.Out, sessions)
		return nil
	}

	id, err := j.ResolveSession(ctx, opts.Session)
	if err != nil {
		return err
	}
	entries, err := j.ListEntries(ctx, id)
	if err != nil {
		return err
	}
	if opts.Full {
		renderEntriesFull(cc.Out, entries)
		return nil
	}
	renderEntries(cc.Out, id, entries)
	return nil
}

func renderSessions(w io.Writer, sessions []state.Session) {
	if len(sessions) == 0 {
		_, _ = fmt.Fprintln(w, "No sessions recorded.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Started", "Ended", "Entries", "Engine"})
	for _, s := range sessions {
		ended := "-"
		if s.EndedAt != nil {
			ended = s.EndedAt.Format(time.DateTime)
		}
		t.AppendRow(table.Row{s.ID[:8], s.StartedAt.Format(time.DateTime), ended, s.Entries, s.EnginePath})
	}
	t.Render()
}

func renderEntries(w io.Writer, id string, entries []state.Entry) {
	_, _ = fmt.Fprintf(w, "Session %s\n", id)
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(w, "No entries.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Input", "Result", "Time"})
	for _, e := range entries {
		result := summarizeText(e.Output)
		if e.Failure != "" {
			result = "failed: " + e.Failure
		}
		t.AppendRow(table.Row{e.Seq, summarizeText(e.Input), result, magic.FormatDuration(e.Duration)})
	}
	t.Render()
}

func renderEntriesFull(w io.Writer, entries []state.Entry) {
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "In [%d]:\n%s\n", e.Seq, e.Input)
		switch {
		case e.Failure != "":
			_, _ = fmt.Fprintf(w, "Failed (%s)\n", e.Failure)
			if e.Stderr != "" {
				_, _ = fmt.Fprintln(w, e.Stderr)
			}
		case e.Output != "":
			_, _ = fmt.Fprintf(w, "Out[%d]:\n%s\n", e.Seq, e.Output)
		}
		_, _ = fmt.Fprintln(w)
	}
}

// summarizeText shortens text to its first line, marking anything cut.
func summarizeText(s string) string {
	s = strings.TrimSpace(s)
	line := firstLine(s)
	if len(line) > 60 {
		return line[:57] + "..."
	}
	if line != s {
		return line + " ..."
	}
	return line
}
