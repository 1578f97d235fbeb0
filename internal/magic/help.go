package magic

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/leapstack-labs/formrepl/internal/session"
)

const lsmagicText = `Available magic commands:
  %help, %?             Show REPL help
  %quit, %exit, %q      Exit the REPL
  %history [N]          Show last N history entries (default 10)
  %reset                Clear session state and history
  %time                 Toggle timing display
  %who                  List declared symbols
  %last, %_ [K]         Show the K-th most recent output (default 0)
  %recall [N]           Recall the input of session N (default last)
  %theme [name]         List themes or switch to one
  %info                 Show session info
  %lsmagic              List magic commands`

// HelpText returns the REPL help screen.
func HelpText(sentinel string) string {
	return fmt.Sprintf(`Enter FORM statements. Input is submitted on a blank line or %s.

Commands:
  .help           Show this help message
  .clear          Clear the screen (first line only)
  .quit / .exit   Exit the REPL

Keys:
  Ctrl-C          Discard the current input, or interrupt a running program
  Ctrl-D          Submit pending input, or exit on an empty prompt

%s`, sentinel, lsmagicText)
}

func (d *Dispatcher) history(n int) string {
	entries := d.store.Recent(n)
	if len(entries) == 0 {
		return "No history."
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Input", "Output", "Time"})
	for _, e := range entries {
		t.AppendRow(table.Row{e.Seq, summarize(e.Input), entryOutcome(e), entryDuration(e)})
	}
	return t.Render()
}

func entryOutcome(e session.Entry) string {
	switch {
	case e.Failure != "":
		return "error: " + summarize(e.Failure)
	case !e.Completed:
		return "(pending)"
	default:
		return summarize(e.Output)
	}
}

func entryDuration(e session.Entry) string {
	if !e.Completed {
		return ""
	}
	return FormatDuration(e.Duration)
}

// summarize keeps the first non-blank line and marks elided lines.
func summarize(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	first := strings.TrimSpace(lines[0])
	if len(lines) > 1 {
		return first + " ..."
	}
	return first
}

// FormatDuration renders a duration the way timing lines show it.
func FormatDuration(d time.Duration) string {
	return fmt.Sprintf("%.3fs", d.Seconds())
}
