package engine

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for each failure class. Every typed error below matches
// exactly one of them with errors.Is.
var (
	ErrSpawn     = errors.New("engine could not be started")
	ErrStream    = errors.New("engine stream failure")
	ErrTimeout   = errors.New("engine timed out")
	ErrExecution = errors.New("engine exited with an error")
	ErrCanceled  = errors.New("engine invocation canceled")
)

// SpawnError reports that the executable could not be started.
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start %s: %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// Is reports whether target is ErrSpawn.
func (e *SpawnError) Is(target error) bool { return target == ErrSpawn }

// StreamError reports a read or write failure on one of the process
// streams, along with whatever output had been collected.
type StreamError struct {
	Op      string
	Err     error
	Partial string
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

// Is reports whether target is ErrStream.
func (e *StreamError) Is(target error) bool { return target == ErrStream }

// TimeoutError reports that the deadline passed and the process was killed.
type TimeoutError struct {
	Timeout time.Duration
	Partial string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("execution timed out after %s", e.Timeout)
}

// Is reports whether target is ErrTimeout.
func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// ExecutionError reports a non-zero exit status. Stderr is kept verbatim.
type ExecutionError struct {
	Status int
	Stderr string
	Stdout string
}

// Message returns the most useful text for the user: stderr when present,
// then stdout, then the bare status.
func (e *ExecutionError) Message() string {
	switch {
	case e.Stderr != "":
		return e.Stderr
	case e.Stdout != "":
		return e.Stdout
	default:
		return fmt.Sprintf("exit status %d", e.Status)
	}
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("engine exited with status %d: %s", e.Status, firstLine(e.Message()))
}

// Is reports whether target is ErrExecution.
func (e *ExecutionError) Is(target error) bool { return target == ErrExecution }

// CanceledError reports that the caller canceled the invocation.
type CanceledError struct {
	Partial string
}

func (e *CanceledError) Error() string { return "execution interrupted" }

// Is reports whether target is ErrCanceled.
func (e *CanceledError) Is(target error) bool { return target == ErrCanceled }

// PartialOutput returns output collected before a failure, if any.
func PartialOutput(err error) string {
	var (
		se *StreamError
		te *TimeoutError
		ce *CanceledError
	)
	switch {
	case errors.As(err, &se):
		return se.Partial
	case errors.As(err, &te):
		return te.Partial
	case errors.As(err, &ce):
		return ce.Partial
	default:
		return ""
	}
}
