// Package theme colors classified tokens and engine output for the
// terminal.
package theme

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/leapstack-labs/formrepl/pkg/lexer"
)

// Theme is a resolved set of styles bound to one renderer.
type Theme struct {
	name   string
	tokens map[lexer.Category]lipgloss.Style

	prompt      *lipgloss.Style
	output      *lipgloss.Style
	outputLabel *lipgloss.Style
	timing      *lipgloss.Style
	err         *lipgloss.Style
}

// Names returns the canonical theme names, sorted.
func Names() []string {
	names := make([]string, 0, len(palettes))
	for name := range palettes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Canonical resolves aliases and case to a canonical theme name.
func Canonical(name string) (string, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := aliases[n]; ok {
		n = alias
	}
	_, ok := palettes[n]
	return n, ok
}

// NewRenderer returns a lipgloss renderer writing to w. With color off the
// ASCII profile is forced so no escape sequences are emitted.
func NewRenderer(w io.Writer, color bool) *lipgloss.Renderer {
	r := lipgloss.NewRenderer(w)
	if !color {
		r.SetColorProfile(termenv.Ascii)
	}
	return r
}

// New builds the named theme on r.
func New(name string, r *lipgloss.Renderer) (*Theme, error) {
	canonical, ok := Canonical(name)
	if !ok {
		return nil, fmt.Errorf("unknown theme %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	p := palettes[canonical]

	t := &Theme{
		name:   canonical,
		tokens: make(map[lexer.Category]lipgloss.Style),
	}
	set := func(c lexer.Category, color string, bold bool) {
		if s := style(r, color, bold); s != nil {
			t.tokens[c] = *s
		}
	}
	set(lexer.Keyword, p.keyword, p.boldKeywords)
	set(lexer.Declaration, p.declaration, p.boldKeywords)
	set(lexer.BuiltinFunction, p.builtin, false)
	set(lexer.Preprocessor, p.preprocessor, false)
	set(lexer.Number, p.number, false)
	set(lexer.Operator, p.operator, false)
	set(lexer.StringLiteral, p.str, false)
	set(lexer.Identifier, p.identifier, false)
	if s := style(r, p.comment, false); s != nil {
		t.tokens[lexer.Comment] = s.Italic(true)
	}

	t.prompt = style(r, p.prompt, true)
	t.output = style(r, p.output, false)
	t.outputLabel = style(r, p.outputLabel, true)
	t.timing = style(r, p.timing, false)
	if t.timing != nil {
		faint := t.timing.Faint(true)
		t.timing = &faint
	}
	t.err = style(r, p.err, true)

	return t, nil
}

func style(r *lipgloss.Renderer, color string, bold bool) *lipgloss.Style {
	if color == "" {
		return nil
	}
	s := r.NewStyle().
		Foreground(lipgloss.Color(color)).
		Bold(bold).
		TabWidth(lipgloss.NoTabConversion)
	return &s
}

// Name returns the canonical theme name.
func (t *Theme) Name() string { return t.name }

// Tokens renders classified tokens. Whitespace, punctuation and categories
// without a color are written unchanged.
func (t *Theme) Tokens(tokens []lexer.Token) string {
	var b strings.Builder
	for _, tok := range tokens {
		s, ok := t.tokens[tok.Category]
		if !ok || tok.Text == "" {
			b.WriteString(tok.Text)
			continue
		}
		b.WriteString(s.Render(tok.Text))
	}
	return b.String()
}

// Line classifies and renders one line of source.
func (t *Theme) Line(line string) string {
	return t.Tokens(lexer.Classify(line))
}

// Source renders multi-line source text.
func (t *Theme) Source(text string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = t.Line(l)
	}
	return strings.Join(lines, "\n")
}

// Output renders engine output line by line: expression labels, timing and
// diagnostics get their own styles, expression text is token-highlighted.
func (t *Theme) Output(text string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		switch lexer.ClassifyOutputLine(l) {
		case lexer.OutputBlank:
		case lexer.OutputLabel:
			lines[i] = apply(t.outputLabel, l)
		case lexer.OutputTiming:
			lines[i] = apply(t.timing, l)
		case lexer.OutputDiagnostic:
			lines[i] = apply(t.err, l)
		default:
			if t.output != nil {
				lines[i] = apply(t.output, l)
			} else {
				lines[i] = t.Line(l)
			}
		}
	}
	return strings.Join(lines, "\n")
}

// Prompt renders a prompt string.
func (t *Theme) Prompt(s string) string { return apply(t.prompt, s) }

// Error renders error text, line by line.
func (t *Theme) Error(s string) string { return applyLines(t.err, s) }

// Timing renders a timing line.
func (t *Theme) Timing(s string) string { return apply(t.timing, s) }

// Label renders an Out[N] style label.
func (t *Theme) Label(s string) string { return apply(t.outputLabel, s) }

func apply(s *lipgloss.Style, text string) string {
	if s == nil || text == "" {
		return text
	}
	return s.Render(text)
}

func applyLines(s *lipgloss.Style, text string) string {
	if s == nil {
		return text
	}
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = apply(s, l)
	}
	return strings.Join(lines, "\n")
}

// Switcher holds the active theme and allows switching it at runtime.
type Switcher struct {
	mu       sync.RWMutex
	renderer *lipgloss.Renderer
	current  *Theme
}

// NewSwitcher builds the named theme as the initial active theme.
func NewSwitcher(name string, r *lipgloss.Renderer) (*Switcher, error) {
	t, err := New(name, r)
	if err != nil {
		return nil, err
	}
	return &Switcher{renderer: r, current: t}, nil
}

// Theme returns the active theme.
func (s *Switcher) Theme() *Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Names returns the available theme names.
func (s *Switcher) Names() []string { return Names() }

// Current returns the active theme name.
func (s *Switcher) Current() string { return s.Theme().Name() }

// Set switches to the named theme.
func (s *Switcher) Set(name string) error {
	t, err := New(name, s.renderer)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.current = t
	s.mu.Unlock()
	return nil
}

// Painter highlights the line being edited. It satisfies readline's
// Painter interface.
type Painter struct {
	Switcher *Switcher
}

// Paint returns line with token colors applied. The cursor position is
// unaffected since only escape sequences are added.
func (p Painter) Paint(line []rune, _ int) []rune {
	if p.Switcher == nil || len(line) == 0 {
		return line
	}
	return []rune(p.Switcher.Theme().Line(string(line)))
}
