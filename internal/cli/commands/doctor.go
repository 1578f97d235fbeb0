package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/formrepl/internal/cli/config"
	"github.com/leapstack-labs/formrepl/internal/engine"
)

// probeProgram is a minimal program every working FORM installation runs.
const probeProgram = "Local E = 1;\nPrint;"

// Check statuses.
const (
	statusPass  = "pass"
	statusWarn  = "warn"
	statusError = "error"
)

// DoctorOptions holds options for the doctor command.
type DoctorOptions struct {
	Format  string // Output format: text, json
	NoProbe bool
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	opts := &DoctorOptions{}
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the FORM installation and formrepl setup",
		Long: `Check that formrepl can find and run FORM.

The doctor command reports:
- which config file is in effect
- where the FORM executable was found
- whether the scratch directory is writable
- whether a trivial program runs (skip with --no-probe)
- the state of the history file and journal`,
		Example: `  # Run all checks
  formrepl doctor

  # Output as JSON
  formrepl doctor --format json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&opts.NoProbe, "no-probe", false, "Do not run FORM")

	return cmd
}

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	Checks []HealthCheck `json:"checks"`
	Errors int           `json:"errors"`
}

// HealthCheck represents a single check result.
type HealthCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

func runDoctor(cmd *cobra.Command, opts *DoctorOptions) error {
	cc := NewCommandContext(cmd)

	out := buildDoctorOutput(cmd.Context(), cc, opts)

	switch opts.Format {
	case "json":
		enc := json.NewEncoder(cc.Out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
	case "text", "":
		renderDoctorText(cc.Out, out)
	default:
		return fmt.Errorf("unknown format %q (expected text or json)", opts.Format)
	}

	if out.Errors > 0 {
		return fmt.Errorf("%d check(s) failed", out.Errors)
	}
	return nil
}

func buildDoctorOutput(ctx context.Context, cc *CommandContext, opts *DoctorOptions) *DoctorOutput {
	cfg := cc.Cfg
	out := &DoctorOutput{}
	add := func(name, status, detail string) {
		out.Checks = append(out.Checks, HealthCheck{Name: name, Status: status, Detail: detail})
		if status == statusError {
			out.Errors++
		}
	}

	if f := config.GetConfigFileUsed(); f != "" {
		add("config", statusPass, f)
	} else {
		add("config", statusPass, "defaults (no config file)")
	}

	res, resolveErr := cfg.ResolveFormPath()
	if resolveErr != nil {
		add("executable", statusError, resolveErr.Error())
	} else {
		add("executable", statusPass, fmt.Sprintf("%s (from %s)", res.Path, res.Source))
	}

	if err := checkDirWritable(cfg.WorkDir); err != nil {
		add("work dir", statusError, err.Error())
	} else {
		add("work dir", statusPass, cfg.WorkDir)
	}

	switch {
	case opts.NoProbe:
		add("probe", statusWarn, "skipped")
	case resolveErr != nil:
		add("probe", statusWarn, "skipped: no executable")
	default:
		status, detail := probe(ctx, cc)
		add("probe", status, detail)
	}

	add(historyStatus(cfg))

	if cfg.Journal.Enabled {
		status, detail := journalStatus(ctx, cc)
		add("journal", status, detail)
	} else {
		add("journal", statusPass, "disabled")
	}

	return out
}

func probe(ctx context.Context, cc *CommandContext) (string, string) {
	inv, err := cc.Invoker()
	if err != nil {
		return statusError, err.Error()
	}
	res, err := inv.Invoke(ctx, probeProgram)
	if err != nil {
		var execErr *engine.ExecutionError
		if errors.As(err, &execErr) {
			return statusError, firstLine(execErr.Message())
		}
		return statusError, err.Error()
	}
	if !strings.Contains(res.DisplayText, "E =") {
		return statusWarn, fmt.Sprintf("unexpected output: %q", firstLine(res.DisplayText))
	}
	return statusPass, fmt.Sprintf("ran in %s", res.Duration.Round(time.Millisecond))
}

func historyStatus(cfg *config.Config) (string, string, string) {
	if cfg.History.File == "" {
		return "history", statusWarn, "no history file configured"
	}
	if err := checkDirWritable(filepath.Dir(cfg.History.File)); err != nil {
		return "history", statusWarn, err.Error()
	}
	return "history", statusPass, cfg.History.File
}

func journalStatus(ctx context.Context, cc *CommandContext) (string, string) {
	j, err := cc.OpenJournal(ctx)
	if err != nil {
		return statusError, err.Error()
	}
	defer func() { _ = j.Close() }()

	version, err := j.MigrationVersion(ctx)
	if err != nil {
		return statusError, err.Error()
	}
	return statusPass, fmt.Sprintf("%s (schema v%d)", j.Path(), version)
}

func checkDirWritable(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	f, err := os.CreateTemp(dir, ".formrepl-doctor-*")
	if err != nil {
		return fmt.Errorf("%s is not writable: %w", dir, err)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

func renderDoctorText(w io.Writer, out *DoctorOutput) {
	titleCaser := cases.Title(language.English)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Check", "Status", "Detail"})
	for _, c := range out.Checks {
		t.AppendRow(table.Row{c.Name, titleCaser.String(c.Status), c.Detail})
	}
	t.Render()

	if out.Errors == 0 {
		_, _ = fmt.Fprintln(w, "All checks passed.")
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
