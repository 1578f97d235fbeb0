// Package config provides configuration management for the formrepl CLI.
//
// Values are layered from defaults, an optional YAML file, FORMREPL_*
// environment variables and explicitly set command-line flags, in that
// order of precedence.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/leapstack-labs/formrepl/internal/engine"
	"github.com/leapstack-labs/formrepl/internal/history"
	"github.com/leapstack-labs/formrepl/internal/server"
	"github.com/leapstack-labs/formrepl/internal/session"
	"github.com/leapstack-labs/formrepl/internal/theme"
)

// Config holds all CLI configuration options.
type Config struct {
	FormPath         string        `koanf:"form_path" yaml:"form_path"`
	FormArgs         []string      `koanf:"form_args" yaml:"form_args"`
	WorkDir          string        `koanf:"work_dir" yaml:"work_dir"`
	Timeout          time.Duration `koanf:"timeout" yaml:"timeout"`
	Sentinel         string        `koanf:"sentinel" yaml:"sentinel"`
	AutoEnd          bool          `koanf:"auto_end" yaml:"auto_end"`
	Highlight        bool          `koanf:"highlight" yaml:"highlight"`
	Theme            string        `koanf:"theme" yaml:"theme"`
	ShowTiming       bool          `koanf:"show_timing" yaml:"show_timing"`
	ValidateBrackets bool          `koanf:"validate_brackets" yaml:"validate_brackets"`
	OutputCache      int           `koanf:"output_cache" yaml:"output_cache"`
	Verbose          bool          `koanf:"verbose" yaml:"verbose"`
	History          HistoryConfig `koanf:"history" yaml:"history"`
	Journal          JournalConfig `koanf:"journal" yaml:"journal"`
	Server           ServerConfig  `koanf:"server" yaml:"server"`
}

// HistoryConfig controls recall persistence across runs.
type HistoryConfig struct {
	File       string `koanf:"file" yaml:"file"`
	MaxEntries int    `koanf:"max_entries" yaml:"max_entries"`
	SaveOnExit bool   `koanf:"save_on_exit" yaml:"save_on_exit"`
}

// JournalConfig controls the SQLite session journal.
type JournalConfig struct {
	Enabled bool   `koanf:"enabled" yaml:"enabled"`
	Path    string `koanf:"path" yaml:"path"`
}

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	Addr string `koanf:"addr" yaml:"addr"`
}

// Default configuration values.
const (
	DefaultHistoryName = ".formrepl_history"
	DefaultJournalPath = ".formrepl/journal.db"
)

// DefaultHistoryFile returns the recall file under the user's home
// directory, or in the working directory when there is no home.
func DefaultHistoryFile() string {
	return homePath(DefaultHistoryName)
}

// DefaultJournalFile returns the default journal database path.
func DefaultJournalFile() string {
	return homePath(DefaultJournalPath)
}

func homePath(rel string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return rel
	}
	return filepath.Join(home, rel)
}

func defaults() map[string]any {
	return map[string]any{
		"form_path":         "",
		"form_args":         append([]string(nil), engine.DefaultArgs...),
		"work_dir":          os.TempDir(),
		"timeout":           engine.DefaultTimeout.String(),
		"sentinel":          engine.DefaultSentinel,
		"auto_end":          true,
		"highlight":         true,
		"theme":             theme.DefaultName,
		"show_timing":       false,
		"validate_brackets": true,
		"output_cache":      session.DefaultOutputCapacity,
		"verbose":           false,

		"history.file":         DefaultHistoryFile(),
		"history.max_entries":  history.DefaultMaxEntries,
		"history.save_on_exit": true,

		"journal.enabled": false,
		"journal.path":    DefaultJournalFile(),

		"server.addr": server.DefaultAddr,
	}
}
