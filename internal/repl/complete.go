package repl

import (
	"strings"
	"unicode"

	"github.com/chzyer/readline"

	"github.com/leapstack-labs/formrepl/pkg/lexer"
)

// completer completes commands on the first line of a unit and FORM
// words plus declared symbols everywhere else.
type completer struct {
	session  *Session
	commands *readline.PrefixCompleter
}

func newCompleter(s *Session) *completer {
	themeNames := func(string) []string {
		if s.themes == nil {
			return nil
		}
		return s.themes.Names()
	}

	items := []readline.PrefixCompleterInterface{
		readline.PcItem(".help"),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
		readline.PcItem("%help"),
		readline.PcItem("%history"),
		readline.PcItem("%reset"),
		readline.PcItem("%time"),
		readline.PcItem("%who"),
		readline.PcItem("%last"),
		readline.PcItem("%recall"),
		readline.PcItem("%theme", readline.PcItemDynamic(themeNames)),
		readline.PcItem("%info"),
		readline.PcItem("%lsmagic"),
		readline.PcItem("%quit"),
		readline.PcItem("%exit"),
	}
	return &completer{session: s, commands: readline.NewPrefixCompleter(items...)}
}

// Do implements readline.AutoCompleter.
func (c *completer) Do(line []rune, pos int) ([][]rune, int) {
	head := strings.TrimLeft(string(line[:pos]), " \t")
	if !c.session.Collecting() && (strings.HasPrefix(head, "%") || strings.HasPrefix(head, ".")) {
		return c.commands.Do(line, pos)
	}

	start := pos
	for start > 0 && isWordRune(line[start-1]) {
		start--
	}
	prefix := string(line[start:pos])
	if prefix == "" {
		return nil, 0
	}

	lower := strings.ToLower(prefix)
	seen := make(map[string]bool)
	var out [][]rune
	for _, w := range c.candidates() {
		if len(w) <= len(prefix) || !strings.HasPrefix(strings.ToLower(w), lower) || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, []rune(w[len(prefix):]))
	}
	return out, len([]rune(prefix))
}

func (c *completer) candidates() []string {
	return append(c.session.Store().DeclaredSymbols(), lexer.Words()...)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '$'
}
