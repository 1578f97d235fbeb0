// Package engine runs FORM programs as one-shot subprocesses.
//
// Each invocation is isolated: a fresh process, fresh stream handles and a
// fresh scratch working directory that is removed afterwards. The engine
// keeps no state between calls.
package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

// Defaults applied by New.
const (
	DefaultTimeout  = 60 * time.Second
	DefaultSentinel = ".end"
	// waitDelay bounds how long Wait blocks on I/O after the process is killed.
	waitDelay = 2 * time.Second
)

// DefaultArgs makes the engine read its program from stdin.
var DefaultArgs = []string{"-"}

// Config holds the resolved inputs of an Invoker.
type Config struct {
	// ExecutablePath is a resolved path to the engine. It is never looked
	// up on PATH.
	ExecutablePath string
	Args           []string
	// Env is appended to the inherited environment.
	Env []string
	// WorkDir is the parent of the per-invocation scratch directories.
	WorkDir  string
	Timeout  time.Duration
	AutoEnd  bool
	Sentinel string
	Logger   *slog.Logger
}

// Result is a successful invocation.
type Result struct {
	// DisplayText is the normalized stdout.
	DisplayText string
	Stdout      string
	Stderr      string
	ExitCode    int
	Duration    time.Duration
}

// Invoker executes units against the engine. It holds no per-call state and
// is safe for concurrent use, though callers normally run one at a time.
type Invoker struct {
	cfg    Config
	logger *slog.Logger
}

// New validates cfg and returns an Invoker.
func New(cfg Config) (*Invoker, error) {
	if cfg.ExecutablePath == "" {
		return nil, errors.New("engine executable path is required")
	}
	abs, err := filepath.Abs(cfg.ExecutablePath)
	if err != nil {
		return nil, fmt.Errorf("resolve executable path: %w", err)
	}
	cfg.ExecutablePath = abs

	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}
	if err := checkWritableDir(cfg.WorkDir); err != nil {
		return nil, err
	}
	if cfg.Args == nil {
		cfg.Args = DefaultArgs
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Sentinel == "" {
		cfg.Sentinel = DefaultSentinel
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Invoker{cfg: cfg, logger: logger}, nil
}

// ExecutablePath returns the absolute engine path.
func (i *Invoker) ExecutablePath() string { return i.cfg.ExecutablePath }

// Timeout returns the per-invocation deadline.
func (i *Invoker) Timeout() time.Duration { return i.cfg.Timeout }

// Invoke runs one unit of source text through the engine.
//
// The unit is written to stdin followed by a newline, then stdin is closed
// before any output is read. Stdout and stderr are drained concurrently
// and the process is waited for. The timeout covers writing, draining and
// waiting; when it expires the process is killed and a *TimeoutError is
// returned. On Unix the engine runs in its own process group and the whole
// group is killed. Canceling ctx yields a *CanceledError.
func (i *Invoker) Invoke(ctx context.Context, unit string) (*Result, error) {
	start := time.Now()

	scratch, err := os.MkdirTemp(i.cfg.WorkDir, "formrepl-")
	if err != nil {
		return nil, &SpawnError{Path: i.cfg.ExecutablePath, Err: fmt.Errorf("create scratch directory: %w", err)}
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			i.logger.Warn("failed to remove scratch directory", "dir", scratch, "error", err)
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, i.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, i.cfg.ExecutablePath, i.cfg.Args...)
	cmd.Dir = scratch
	cmd.WaitDelay = waitDelay
	configureProcess(cmd)
	if len(i.cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), i.cfg.Env...)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &StreamError{Op: "open stdin", Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &StreamError{Op: "open stdout", Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, &StreamError{Op: "open stderr", Err: err}
	}

	payload := i.payload(unit)
	i.logger.Debug("starting engine",
		"path", i.cfg.ExecutablePath,
		"args", i.cfg.Args,
		"dir", scratch,
		"bytes", len(payload))

	if err := cmd.Start(); err != nil {
		return nil, &SpawnError{Path: i.cfg.ExecutablePath, Err: err}
	}

	// Descendants of the engine may hold the pipes open after it is killed,
	// so the pipes are closed on expiry as well.
	stopCut := context.AfterFunc(runCtx, func() {
		_ = stdin.Close()
		_ = stdout.Close()
		_ = stderr.Close()
	})

	writeErr := writeAndClose(stdin, payload)

	var outBuf, errBuf bytes.Buffer
	var g errgroup.Group
	g.Go(func() error { return drain(&outBuf, stdout, "read stdout") })
	g.Go(func() error { return drain(&errBuf, stderr, "read stderr") })
	readErr := g.Wait()

	waitErr := cmd.Wait()
	cut := !stopCut()
	duration := time.Since(start)
	out, errText := outBuf.String(), errBuf.String()

	i.logger.Debug("engine finished",
		"duration", duration,
		"stdout_bytes", len(out),
		"stderr_bytes", len(errText),
		"error", waitErr)

	if waitErr != nil || readErr != nil || writeErr != nil || cut {
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, &TimeoutError{Timeout: time.Since(start).Round(time.Millisecond), Partial: Normalize(out)}
			}
			return nil, &CanceledError{Partial: Normalize(out)}
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{Timeout: i.cfg.Timeout, Partial: Normalize(out)}
		}
	}

	if writeErr != nil {
		return nil, &StreamError{Op: "write stdin", Err: writeErr, Partial: Normalize(out)}
	}
	if readErr != nil {
		var se *StreamError
		if errors.As(readErr, &se) {
			se.Partial = Normalize(out)
		}
		return nil, readErr
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return nil, &ExecutionError{
				Status: exitErr.ExitCode(),
				Stderr: errText,
				Stdout: Normalize(out),
			}
		}
		return nil, &StreamError{Op: "wait", Err: waitErr, Partial: Normalize(out)}
	}

	return &Result{
		DisplayText: Normalize(out),
		Stdout:      out,
		Stderr:      errText,
		ExitCode:    cmd.ProcessState.ExitCode(),
		Duration:    duration,
	}, nil
}

// payload appends the sentinel when AutoEnd is set and the unit does not
// already end with it, and always terminates the text with a newline.
func (i *Invoker) payload(unit string) string {
	text := strings.TrimRight(unit, "\r\n")
	if i.cfg.AutoEnd && !endsWithSentinel(text, i.cfg.Sentinel) {
		if text != "" {
			text += "\n"
		}
		text += i.cfg.Sentinel
	}
	return text + "\n"
}

func endsWithSentinel(text, sentinel string) bool {
	lines := strings.Split(text, "\n")
	for j := len(lines) - 1; j >= 0; j-- {
		l := strings.TrimSpace(lines[j])
		if l == "" {
			continue
		}
		return strings.EqualFold(l, sentinel)
	}
	return false
}

// writeAndClose writes the payload and closes stdin. A broken pipe means
// the engine exited before reading everything; its exit status tells the
// real story, so that is not reported as a stream failure.
func writeAndClose(w io.WriteCloser, payload string) error {
	_, werr := io.WriteString(w, payload)
	cerr := w.Close()
	if werr != nil && !isBrokenPipe(werr) {
		return werr
	}
	if cerr != nil && !isBrokenPipe(cerr) {
		return cerr
	}
	return nil
}

func isBrokenPipe(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, os.ErrClosed)
}

func drain(dst *bytes.Buffer, src io.Reader, op string) error {
	if _, err := io.Copy(dst, src); err != nil && !errors.Is(err, os.ErrClosed) {
		return &StreamError{Op: op, Err: err}
	}
	return nil
}

func checkWritableDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("work directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("work directory %s is not a directory", dir)
	}
	probe, err := os.MkdirTemp(dir, ".formrepl-probe-")
	if err != nil {
		return fmt.Errorf("work directory %s is not writable: %w", dir, err)
	}
	return os.Remove(probe)
}
