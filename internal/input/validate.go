package input

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/formrepl/pkg/lexer"
)

// ErrUnbalanced is matched by every bracket validation failure.
var ErrUnbalanced = errors.New("unbalanced brackets")

// ValidationError locates a bracket mismatch inside a unit.
// Line and Column are 1-based; Column counts bytes.
type ValidationError struct {
	Line   int
	Column int
	Found  rune
	Want   rune
}

func (e *ValidationError) Error() string {
	switch {
	case e.Found == 0:
		return fmt.Sprintf("unclosed %q opened at line %d, column %d", opening[e.Want], e.Line, e.Column)
	case e.Want == 0:
		return fmt.Sprintf("unexpected %q at line %d, column %d", e.Found, e.Line, e.Column)
	default:
		return fmt.Sprintf("expected %q but found %q at line %d, column %d", e.Want, e.Found, e.Line, e.Column)
	}
}

// Is reports whether target is ErrUnbalanced.
func (e *ValidationError) Is(target error) bool {
	return target == ErrUnbalanced
}

var closing = map[rune]rune{'(': ')', '[': ']', '{': '}'}

var opening = map[rune]rune{')': '(', ']': '[', '}': '{'}

type openBracket struct {
	r         rune
	line, col int
}

// BracketValidator checks that (), [] and {} are balanced across the whole
// unit. Brackets inside comments and string literals are ignored.
func BracketValidator(u Unit) error {
	var stack []openBracket
	for i, line := range u.lines {
		col := 1
		for _, tok := range lexer.Classify(line) {
			if tok.Category == lexer.Punctuation {
				for _, r := range tok.Text {
					if _, ok := closing[r]; ok {
						stack = append(stack, openBracket{r: r, line: i + 1, col: col})
						continue
					}
					if _, ok := opening[r]; !ok {
						continue
					}
					if len(stack) == 0 {
						return &ValidationError{Line: i + 1, Column: col, Found: r}
					}
					top := stack[len(stack)-1]
					if want := closing[top.r]; want != r {
						return &ValidationError{Line: i + 1, Column: col, Found: r, Want: want}
					}
					stack = stack[:len(stack)-1]
				}
			}
			col += len(tok.Text)
		}
	}
	if len(stack) > 0 {
		top := stack[len(stack)-1]
		return &ValidationError{Line: top.line, Column: top.col, Want: closing[top.r]}
	}
	return nil
}
