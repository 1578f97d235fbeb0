package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
)

// FormPathEnv names the environment variable consulted when no executable
// is configured. It may point at the executable or at its directory.
const FormPathEnv = "FORM_PATH"

// ErrFormNotFound is returned when no engine executable can be located.
var ErrFormNotFound = errors.New("FORM executable not found")

// knownLocations are tried after the configured path and FORM_PATH.
var knownLocations = []string{
	"sources/form",
	"../sources/form",
	"/usr/local/bin/form",
	"/usr/bin/form",
}

// lookPath is replaced in tests.
var lookPath = exec.LookPath

// Resolution records where an executable was found.
type Resolution struct {
	Path   string
	Source string
}

// ResolveFormPath locates the engine executable: the configured path, then
// FORM_PATH, then known install locations, then the search path.
func (c *Config) ResolveFormPath() (Resolution, error) {
	if c.FormPath != "" {
		if err := checkExecutable(c.FormPath); err != nil {
			return Resolution{}, fmt.Errorf("form_path %s: %w", c.FormPath, err)
		}
		return absResolution(c.FormPath, "config")
	}

	if env := os.Getenv(FormPathEnv); env != "" {
		candidate := env
		if info, err := os.Stat(env); err == nil && info.IsDir() {
			candidate = filepath.Join(env, "form")
		}
		if err := checkExecutable(candidate); err != nil {
			return Resolution{}, fmt.Errorf("%s=%s: %w", FormPathEnv, env, err)
		}
		return absResolution(candidate, FormPathEnv)
	}

	for _, p := range knownLocations {
		if checkExecutable(p) == nil {
			return absResolution(p, "known location")
		}
	}

	if p, err := lookPath("form"); err == nil {
		return absResolution(p, "PATH")
	}

	return Resolution{}, fmt.Errorf("%w: set form_path, --form or %s", ErrFormNotFound, FormPathEnv)
}

func absResolution(p, source string) (Resolution, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return Resolution{}, fmt.Errorf("resolve %s: %w", p, err)
	}
	return Resolution{Path: abs, Source: source}, nil
}

func checkExecutable(p string) error {
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrFormNotFound
		}
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file")
	}
	if info.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("not executable")
	}
	return nil
}
