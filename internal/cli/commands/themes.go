package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/formrepl/internal/theme"
)

// themeSample is highlighted once per theme so they can be compared.
const themeSample = "Symbols x,y; Local F = (x+y)^2; #define N \"3\" * note"

// NewThemesCommand creates the themes command.
func NewThemesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "themes",
		Short: "List the available color themes",
		Long: `List the color themes that can be selected with --theme, the theme
config key or %theme inside a session. The active theme is marked with *.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContext(cmd)
			r := theme.NewRenderer(cc.Out, colorEnabled(cc.Out))
			current, _ := theme.Canonical(cc.Cfg.Theme)

			for _, name := range theme.Names() {
				t, err := theme.New(name, r)
				if err != nil {
					return err
				}
				marker := " "
				if name == current {
					marker = "*"
				}
				_, _ = fmt.Fprintf(cc.Out, "%s %-10s %s\n", marker, name, t.Line(themeSample))
			}
			return nil
		},
	}
}
