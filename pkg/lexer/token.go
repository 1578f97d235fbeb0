// Package lexer classifies single lines of FORM source text into tokens for
// presentation.
//
// Classification is line-local: no state is carried between lines, and the
// tokens of a line always concatenate back to the line itself.
package lexer

import "strings"

// Category is the presentation class of a token.
type Category int

// Category values, in no particular order of precedence.
const (
	Keyword Category = iota
	Declaration
	BuiltinFunction
	Preprocessor
	Number
	Operator
	Comment
	StringLiteral
	Identifier
	Punctuation
	Whitespace
)

var categoryNames = map[Category]string{
	Keyword:         "Keyword",
	Declaration:     "Declaration",
	BuiltinFunction: "BuiltinFunction",
	Preprocessor:    "Preprocessor",
	Number:          "Number",
	Operator:        "Operator",
	Comment:         "Comment",
	StringLiteral:   "StringLiteral",
	Identifier:      "Identifier",
	Punctuation:     "Punctuation",
	Whitespace:      "Whitespace",
}

// String returns a human-readable name for the category.
func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "Unknown"
}

// Token is one classified span of a line.
type Token struct {
	Category Category
	Text     string
}

// Join concatenates token texts in order.
func Join(tokens []Token) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(t.Text)
	}
	return b.String()
}
