// Package magic interprets REPL commands that never reach the engine:
// "."-prefixed session directives and "%"-prefixed meta-commands.
package magic

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/leapstack-labs/formrepl/internal/session"
	"github.com/leapstack-labs/formrepl/pkg/lexer"
)

// ErrUnknownCommand is returned for a "."/"%" line that names no command.
var ErrUnknownCommand = errors.New("not a known command")

// Kind says what the caller should do with a Result.
type Kind int

// Result kinds.
const (
	// Output means Text should be displayed.
	Output Kind = iota
	// Exit asks the caller to end the session.
	Exit
	// Help means Text holds the help screen.
	Help
	// ClearScreen asks the caller to clear the terminal.
	ClearScreen
	// Unknown means the command was not recognized; Err is set.
	Unknown
)

// Result is the outcome of one dispatched command.
type Result struct {
	Kind Kind
	Text string
	// Recalled holds the classified lines of a recalled input, when
	// highlighting is on.
	Recalled [][]lexer.Token
	Err      error
}

// Themes lists and switches presentation themes.
type Themes interface {
	Names() []string
	Current() string
	Set(name string) error
}

// moduleInstructions are engine instructions that share the "." prefix.
var moduleInstructions = map[string]bool{
	".sort":   true,
	".store":  true,
	".global": true,
	".end":    true,
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithThemes enables %theme listing and switching.
func WithThemes(t Themes) Option {
	return func(d *Dispatcher) { d.themes = t }
}

// WithVersion sets the version reported by %info.
func WithVersion(v string) Option {
	return func(d *Dispatcher) { d.version = v }
}

// WithEnginePath sets the engine path reported by %info.
func WithEnginePath(p string) Option {
	return func(d *Dispatcher) { d.enginePath = p }
}

// WithShowTiming sets the initial timing display flag.
func WithShowTiming(on bool) Option {
	return func(d *Dispatcher) { d.showTiming = on }
}

// WithHighlight sets whether recalled input is classified for display.
func WithHighlight(on bool) Option {
	return func(d *Dispatcher) { d.highlight = on }
}

// WithSentinel sets the submission sentinel so it is never taken for a
// command.
func WithSentinel(s string) Option {
	return func(d *Dispatcher) {
		if s != "" {
			d.sentinel = strings.ToLower(s)
		}
	}
}

// WithOnReset registers a callback run after %reset clears the store.
func WithOnReset(fn func()) Option {
	return func(d *Dispatcher) { d.onReset = fn }
}

// Dispatcher maps command lines to pure functions over the session store.
type Dispatcher struct {
	store  *session.Store
	logger *slog.Logger
	themes Themes

	version    string
	enginePath string
	highlight  bool
	sentinel   string
	onReset    func()

	mu         sync.Mutex
	showTiming bool
}

// New creates a Dispatcher over store.
func New(store *session.Store, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:     store,
		logger:    slog.New(slog.DiscardHandler),
		version:   "dev",
		highlight: true,
		sentinel:  ".end",
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ShowTiming reports whether durations should be displayed.
func (d *Dispatcher) ShowTiming() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.showTiming
}

// IsCommand reports whether line, as the first line of a unit, is handled
// here instead of being sent to the engine.
func (d *Dispatcher) IsCommand(line string) bool {
	trimmed := strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(trimmed, "%"):
		return true
	case strings.HasPrefix(trimmed, "."):
		word := strings.ToLower(strings.Fields(trimmed)[0])
		if word == d.sentinel || moduleInstructions[word] {
			return false
		}
		// ".5" and similar are numbers, not directives.
		return len(word) > 1 && isLetter(word[1])
	default:
		return false
	}
}

// Dispatch runs one command line.
func (d *Dispatcher) Dispatch(line string) Result {
	trimmed := strings.TrimSpace(line)
	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return unknown("empty command")
	}

	name := strings.ToLower(fields[0])
	args := fields[1:]
	d.logger.Debug("dispatching command", "command", name, "args", args)

	switch name[0] {
	case '.':
		return d.directive(name)
	case '%':
		return d.meta(name[1:], args)
	default:
		return unknown(fmt.Sprintf("%s is not a command", fields[0]))
	}
}

func (d *Dispatcher) directive(name string) Result {
	switch name {
	case ".quit", ".exit", ".q":
		return Result{Kind: Exit}
	case ".clear":
		return Result{Kind: ClearScreen}
	case ".help":
		return Result{Kind: Help, Text: HelpText(d.sentinel)}
	default:
		return unknown(fmt.Sprintf("Unknown command: %s (type .help for commands)", name))
	}
}

func (d *Dispatcher) meta(name string, args []string) Result {
	switch name {
	case "":
		return unknown("Empty magic command")
	case "help", "?":
		return Result{Kind: Help, Text: HelpText(d.sentinel)}
	case "quit", "exit", "q":
		return Result{Kind: Exit}
	case "history", "hist", "h":
		return output(d.history(intArg(args, 10)))
	case "reset", "clear":
		d.store.Clear()
		if d.onReset != nil {
			d.onReset()
		}
		return output("Session reset. History cleared.")
	case "time", "timeit":
		return output("Timing display: " + onOff(d.toggleTiming()))
	case "who", "whos":
		symbols := d.store.DeclaredSymbols()
		if len(symbols) == 0 {
			return output("No symbols declared in this session.")
		}
		return output("Declared symbols: " + strings.Join(symbols, ", "))
	case "last", "_":
		if out, ok := d.store.LastOutput(intArg(args, 0)); ok {
			return output(out)
		}
		return output("No output history.")
	case "recall", "r":
		return d.recall(args)
	case "theme", "themes":
		return d.theme(args)
	case "info", "about":
		return output(d.info())
	case "lsmagic", "magic":
		return output(lsmagicText)
	default:
		return unknown(fmt.Sprintf("Unknown magic command: %%%s\nUse %%lsmagic to see available commands.", name))
	}
}

func (d *Dispatcher) toggleTiming() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.showTiming = !d.showTiming
	return d.showTiming
}

func (d *Dispatcher) recall(args []string) Result {
	seq := d.store.NextSeq() - 1
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return Result{Kind: Output, Text: fmt.Sprintf("Invalid session number: %s", args[0]), Err: err}
		}
		seq = n
	}

	entry, ok := d.store.Lookup(seq)
	if !ok {
		return Result{
			Kind: Output,
			Text: fmt.Sprintf("No entry found for session %d", seq),
			Err:  fmt.Errorf("%w: %d", session.ErrUnknownEntry, seq),
		}
	}

	res := output(fmt.Sprintf("In [%d]:\n%s", seq, entry.Input))
	if d.highlight {
		for _, l := range strings.Split(entry.Input, "\n") {
			res.Recalled = append(res.Recalled, lexer.Classify(l))
		}
	}
	return res
}

func (d *Dispatcher) theme(args []string) Result {
	if d.themes == nil {
		return output("Themes are not available.")
	}
	if len(args) == 0 {
		current := d.themes.Current()
		if !d.highlight {
			current = "disabled"
		}
		return output(fmt.Sprintf("Available themes: %s\nCurrent: %s",
			strings.Join(d.themes.Names(), ", "), current))
	}
	if err := d.themes.Set(args[0]); err != nil {
		return Result{Kind: Output, Text: err.Error(), Err: err}
	}
	d.logger.Info("theme switched", "theme", d.themes.Current())
	return output("Theme: " + d.themes.Current())
}

func (d *Dispatcher) info() string {
	var b strings.Builder
	fmt.Fprintf(&b, "formrepl %s\n", d.version)
	if d.enginePath != "" {
		fmt.Fprintf(&b, "Engine: %s\n", d.enginePath)
	}
	fmt.Fprintf(&b, "Sessions: %d\n", d.store.NextSeq()-1)
	fmt.Fprintf(&b, "History entries: %d\n", d.store.Len())
	fmt.Fprintf(&b, "Timing display: %s", onOff(d.ShowTiming()))
	return b.String()
}

func output(text string) Result { return Result{Kind: Output, Text: text} }

func unknown(msg string) Result {
	return Result{Kind: Unknown, Text: msg, Err: fmt.Errorf("%w: %s", ErrUnknownCommand, firstLine(msg))}
}

func intArg(args []string, def int) int {
	if len(args) == 0 {
		return def
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		return def
	}
	return n
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
