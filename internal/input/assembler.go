// Package input assembles raw lines typed at a prompt into submittable units.
//
// The Assembler is a small state machine. It starts Idle, begins Collecting
// on the first line with content, and emits a Unit when the sentinel line, a
// blank line, or end of input arrives. A caller-driven cancel discards the
// buffer. Directives are only recognized on the first line of a unit.
package input

import (
	"strings"
)

// Default literals recognized by the assembler.
const (
	DefaultSentinel       = ".end"
	DefaultClearDirective = ".clear"
)

// State is the resting state of an Assembler between lines.
type State int

// Assembler states. Submit and Cancelled are transient and only surface as
// outcomes.
const (
	Idle State = iota
	Collecting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Collecting:
		return "collecting"
	default:
		return "unknown"
	}
}

// OutcomeKind says what a single assembler step produced.
type OutcomeKind int

// Outcome kinds.
const (
	// Continue means more input is needed.
	Continue OutcomeKind = iota
	// Submitted carries a finalized Unit.
	Submitted
	// Cancelled means the buffer was discarded by Cancel.
	Cancelled
	// Cleared means the clear directive arrived on an empty buffer.
	Cleared
	// Directive means the first line is a command for the dispatcher.
	Directive
	// Rejected means the validator refused the pending unit; the buffer is kept.
	Rejected
	// Terminate means end of input arrived on an empty buffer.
	Terminate
)

var outcomeNames = map[OutcomeKind]string{
	Continue:  "continue",
	Submitted: "submitted",
	Cancelled: "cancelled",
	Cleared:   "cleared",
	Directive: "directive",
	Rejected:  "rejected",
	Terminate: "terminate",
}

func (k OutcomeKind) String() string {
	if name, ok := outcomeNames[k]; ok {
		return name
	}
	return "unknown"
}

// Outcome is the result of feeding one line or signal to the Assembler.
type Outcome struct {
	Kind OutcomeKind
	// Unit is set for Submitted.
	Unit Unit
	// Line is the trimmed directive text for Directive.
	Line string
	// Err is set for Rejected.
	Err error
	// Discarded is the number of buffered lines dropped by Cancel.
	Discarded int
}

// Unit is one finalized block of source text. It is immutable.
type Unit struct {
	lines []string
}

// NewUnit builds a unit from already trimmed lines.
func NewUnit(lines ...string) Unit {
	return Unit{lines: append([]string(nil), lines...)}
}

// Lines returns a copy of the unit's lines.
func (u Unit) Lines() []string {
	return append([]string(nil), u.lines...)
}

// Len returns the number of lines in the unit.
func (u Unit) Len() int { return len(u.lines) }

// Text joins the lines with newlines.
func (u Unit) Text() string {
	return strings.Join(u.lines, "\n")
}

// Validator is an optional pre-submission check.
type Validator func(Unit) error

// Option configures an Assembler.
type Option func(*Assembler)

// WithSentinel sets the literal line that ends collection.
func WithSentinel(s string) Option {
	return func(a *Assembler) {
		if s != "" {
			a.sentinel = s
		}
	}
}

// WithClearDirective sets the first-line directive that resets the buffer.
// An empty string disables it.
func WithClearDirective(s string) Option {
	return func(a *Assembler) { a.clear = s }
}

// WithValidator installs a pre-submission check.
func WithValidator(v Validator) Option {
	return func(a *Assembler) { a.validator = v }
}

// WithDirectiveFunc sets the predicate deciding whether a first line is a
// command rather than source.
func WithDirectiveFunc(fn func(line string) bool) Option {
	return func(a *Assembler) { a.isDirective = fn }
}

// Assembler turns a sequence of raw lines into units. It is not safe for
// concurrent use; one controlling goroutine drives it.
type Assembler struct {
	sentinel    string
	clear       string
	validator   Validator
	isDirective func(string) bool

	lines []string
}

// New creates an Assembler in the Idle state.
func New(opts ...Option) *Assembler {
	a := &Assembler{
		sentinel: DefaultSentinel,
		clear:    DefaultClearDirective,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// State reports whether the assembler is idle or collecting.
func (a *Assembler) State() State {
	if len(a.lines) == 0 {
		return Idle
	}
	return Collecting
}

// Pending returns a copy of the buffered lines.
func (a *Assembler) Pending() []string {
	return append([]string(nil), a.lines...)
}

// Feed advances the state machine by one raw line.
func (a *Assembler) Feed(line string) Outcome {
	trimmed := strings.TrimSpace(line)

	if len(a.lines) == 0 {
		switch {
		case trimmed == "":
			return Outcome{Kind: Continue}
		case a.isSentinel(trimmed):
			// Nothing to submit.
			return Outcome{Kind: Continue}
		case a.clear != "" && strings.EqualFold(trimmed, a.clear):
			return Outcome{Kind: Cleared}
		case a.isDirective != nil && a.isDirective(trimmed):
			return Outcome{Kind: Directive, Line: trimmed}
		}
		a.lines = append(a.lines, trimmed)
		return Outcome{Kind: Continue}
	}

	if trimmed == "" || a.isSentinel(trimmed) {
		return a.submit()
	}
	a.lines = append(a.lines, trimmed)
	return Outcome{Kind: Continue}
}

// Cancel discards any buffered lines and returns to Idle.
func (a *Assembler) Cancel() Outcome {
	n := len(a.lines)
	a.lines = nil
	return Outcome{Kind: Cancelled, Discarded: n}
}

// EOF handles end of input: a non-empty buffer is submitted as if the
// sentinel had arrived, an empty one asks the caller to terminate.
func (a *Assembler) EOF() Outcome {
	if len(a.lines) == 0 {
		return Outcome{Kind: Terminate}
	}
	return a.submit()
}

func (a *Assembler) submit() Outcome {
	unit := NewUnit(a.lines...)
	if a.validator != nil {
		if err := a.validator(unit); err != nil {
			return Outcome{Kind: Rejected, Err: err}
		}
	}
	a.lines = nil
	return Outcome{Kind: Submitted, Unit: unit}
}

func (a *Assembler) isSentinel(line string) bool {
	return strings.EqualFold(line, a.sentinel)
}
