// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"testing"

	"github.com/spf13/cobra"
)

// fakeFormScript behaves enough like FORM for the CLI tests: it prints a
// banner, echoes the program it was given, and fails on programs that
// contain the word "fail".
const fakeFormScript = `#!/bin/sh
prog=$(cat)
echo "FORM 4.3.1 (Jan 1 2026) 64-bits"
echo "    Run at: Thu Jan  1 00:00:00 2026"
case "$prog" in
*fail*)
	echo "Illegal statement" >&2
	exit 1
	;;
esac
printf '%s\n' "$prog" | sed 's/^/   /'
echo "  0.00 sec out of 0.00 sec"
`

// WriteFakeForm writes an executable stand-in for the engine into dir and
// returns its path. Tests calling it are skipped on Windows.
func WriteFakeForm(t *testing.T, dir string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake engine is a shell script")
	}

	path := filepath.Join(dir, "form")
	if err := os.WriteFile(path, []byte(fakeFormScript), 0o755); err != nil {
		t.Fatalf("failed to write fake form: %v", err)
	}
	return path
}

// ExecuteCommand runs cmd with args and returns what it wrote to stdout and
// stderr.
func ExecuteCommand(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, string, error) {
	t.Helper()

	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetIn(bytes.NewBufferString(stdin))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// Isolate points HOME and the working directory at fresh temporary
// directories and clears FORM_PATH and NO_COLOR, so tests never pick up
// the developer's config, history or engine.
func Isolate(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("FORM_PATH", "")
	t.Setenv("NO_COLOR", "1")

	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}
