package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/formrepl/internal/cli/config"
)

// NewConfigCommand creates the config command.
func NewConfigCommand() *cobra.Command {
	var showPath bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after defaults, the config file, FORMREPL_*
environment variables and flags have been applied, as YAML.`,
		Example: `  # Show the effective configuration
  formrepl config

  # Show which config file was loaded
  formrepl config --path`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContext(cmd)

			if showPath {
				if f := config.GetConfigFileUsed(); f != "" {
					_, _ = fmt.Fprintln(cc.Out, f)
				} else {
					_, _ = fmt.Fprintln(cc.Out, "(none)")
				}
				return nil
			}

			if f := config.GetConfigFileUsed(); f != "" {
				_, _ = fmt.Fprintf(cc.Out, "# loaded from %s\n", f)
			}
			enc := yaml.NewEncoder(cc.Out)
			enc.SetIndent(2)
			if err := enc.Encode(cc.Cfg); err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			return enc.Close()
		},
	}

	cmd.Flags().BoolVar(&showPath, "path", false, "Only print the config file in use")
	return cmd
}
