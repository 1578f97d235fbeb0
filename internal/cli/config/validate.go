package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/formrepl/internal/theme"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error

	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if c.Sentinel == "" || strings.ContainsAny(c.Sentinel, " \t\n") {
		errs = append(errs, fmt.Errorf("sentinel must be a single non-empty word, got %q", c.Sentinel))
	}
	if _, ok := theme.Canonical(c.Theme); !ok {
		errs = append(errs, fmt.Errorf("unknown theme %q (available: %s)", c.Theme, strings.Join(theme.Names(), ", ")))
	}
	if c.OutputCache < 1 {
		errs = append(errs, fmt.Errorf("output_cache must be at least 1, got %d", c.OutputCache))
	}
	if c.History.MaxEntries < 0 {
		errs = append(errs, fmt.Errorf("history.max_entries must not be negative, got %d", c.History.MaxEntries))
	}
	if c.WorkDir == "" {
		errs = append(errs, errors.New("work_dir is required"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
