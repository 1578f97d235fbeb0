package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version, buildDate, gitCommit string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display formrepl version and build information.`,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "formrepl v%s\n", version)
			_, _ = fmt.Fprintln(out, "Interactive session for the FORM symbolic manipulation system")
			if gitCommit != "" {
				_, _ = fmt.Fprintf(out, "commit: %s\n", gitCommit)
			}
			if buildDate != "" {
				_, _ = fmt.Fprintf(out, "built:  %s\n", buildDate)
			}
			_, _ = fmt.Fprintf(out, "go:     %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
