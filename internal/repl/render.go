package repl

import (
	"fmt"
	"io"
	"strings"

	"github.com/leapstack-labs/formrepl/internal/magic"
	"github.com/leapstack-labs/formrepl/internal/theme"
	"github.com/leapstack-labs/formrepl/pkg/lexer"
)

const clearScreen = "\033[H\033[2J"

// Renderer writes steps for a human. Colors come from the active theme
// when highlighting is on.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	themes *theme.Switcher

	// Highlight enables theme colors.
	Highlight bool
	// EchoInput prints each submitted unit before its output, for batch runs.
	EchoInput bool
	// Interactive enables terminal control such as clearing the screen.
	Interactive bool
}

// NewRenderer creates a Renderer. themes may be nil for plain output.
func NewRenderer(out, errOut io.Writer, themes *theme.Switcher) *Renderer {
	return &Renderer{
		out:       out,
		errOut:    errOut,
		themes:    themes,
		Highlight: themes != nil,
	}
}

func (r *Renderer) theme() *theme.Theme {
	if !r.Highlight || r.themes == nil {
		return nil
	}
	return r.themes.Theme()
}

// Prompt styles a prompt string.
func (r *Renderer) Prompt(p string) string {
	if t := r.theme(); t != nil {
		return t.Prompt(p)
	}
	return p
}

// Banner prints the startup message.
func (r *Renderer) Banner(version, enginePath, sentinel string) {
	_, _ = fmt.Fprintf(r.out, "formrepl %s (engine: %s)\n", version, enginePath)
	_, _ = fmt.Fprintf(r.out, "Submit with a blank line or %s. Type .help or %%lsmagic for commands, .quit to exit.\n\n", sentinel)
}

// Step renders one step.
func (r *Renderer) Step(st Step) {
	switch st.Kind {
	case StepCycle:
		r.Cycle(st.Cycle)
	case StepCommand, StepExit:
		if st.Command != nil {
			r.Command(st.Command)
		}
	case StepRejected:
		r.errorf("Input rejected: %v", st.Err)
	}
}

// Cycle renders a finished submission.
func (r *Renderer) Cycle(c *Cycle) {
	if c == nil {
		return
	}
	t := r.theme()

	if r.EchoInput {
		r.echo(c)
	}

	if c.Display != "" {
		if c.Err == nil {
			_, _ = fmt.Fprintln(r.out, r.label(fmt.Sprintf("Out[%d]:", c.Seq)))
		}
		text := c.Display
		if t != nil {
			text = t.Output(text)
		}
		_, _ = fmt.Fprintln(r.out, text)
	}

	switch {
	case c.Err != nil && c.Stderr != "":
		r.errorText(strings.TrimRight(c.Stderr, "\n"))
	case c.Err != nil:
		r.errorf("Error: %v", c.Err)
	case c.Stderr != "":
		_, _ = fmt.Fprint(r.errOut, c.Stderr)
		if !strings.HasSuffix(c.Stderr, "\n") {
			_, _ = fmt.Fprintln(r.errOut)
		}
	}

	if c.ShowDuration {
		line := fmt.Sprintf("(%s)", magic.FormatDuration(c.Duration))
		if t != nil {
			line = t.Timing(line)
		}
		_, _ = fmt.Fprintln(r.out, line)
	}
	_, _ = fmt.Fprintln(r.out)
}

func (r *Renderer) echo(c *Cycle) {
	lines := strings.Split(c.Source, "\n")
	in := inPrompt(c.Seq)
	cont := continuationPrompt(in)
	for i, l := range lines {
		prefix := cont
		if i == 0 {
			prefix = in
		}
		_, _ = fmt.Fprintln(r.out, r.Prompt(prefix)+r.source(c, i, l))
	}
}

func (r *Renderer) source(c *Cycle, i int, line string) string {
	t := r.theme()
	if t == nil {
		return line
	}
	if i < len(c.Input) {
		return t.Tokens(c.Input[i])
	}
	return t.Line(line)
}

// Command renders a dispatcher result.
func (r *Renderer) Command(res *magic.Result) {
	switch res.Kind {
	case magic.Exit:
		return
	case magic.ClearScreen:
		if r.Interactive {
			_, _ = fmt.Fprint(r.out, clearScreen)
		}
		return
	case magic.Unknown:
		r.errorText(res.Text)
		return
	}

	if res.Err != nil {
		r.errorText(res.Text)
		return
	}
	if len(res.Recalled) > 0 && r.theme() != nil {
		header, _, _ := strings.Cut(res.Text, "\n")
		_, _ = fmt.Fprintln(r.out, r.label(header))
		r.tokens(res.Recalled)
		return
	}
	_, _ = fmt.Fprintln(r.out, res.Text)
}

func (r *Renderer) tokens(lines [][]lexer.Token) {
	t := r.theme()
	for _, l := range lines {
		_, _ = fmt.Fprintln(r.out, t.Tokens(l))
	}
}

func (r *Renderer) label(s string) string {
	if t := r.theme(); t != nil {
		return t.Label(s)
	}
	return s
}

func (r *Renderer) errorText(s string) {
	if t := r.theme(); t != nil {
		s = t.Error(s)
	}
	_, _ = fmt.Fprintln(r.errOut, s)
}

func (r *Renderer) errorf(format string, args ...any) {
	r.errorText(fmt.Sprintf(format, args...))
}
