package lexer

import (
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

const (
	commentMarker  = '*'
	stringDelim    = '"'
	escapeChar     = '\\'
	directiveLead  = '#'
	moduleLead     = '.'
	operatorRunes  = "+-*/^=<>!&|?:"
	identLeadExtra = "_$"
)

// Classify splits line into classified tokens.
//
// At every position the rules are tried in a fixed order: comment, string
// literal, number, word, preprocessor, operator run, whitespace run, and
// finally a single punctuation rune. Words are extracted as a maximal
// identifier run first and only then looked up in the keyword, declaration
// and builtin sets, so a keyword that prefixes a longer identifier never
// matches on its own.
func Classify(line string) []Token {
	if line == "" {
		return nil
	}
	s := &scanner{src: line, folder: cases.Fold()}
	s.run()
	return s.tokens
}

type scanner struct {
	src    string
	pos    int
	tokens []Token
	folder cases.Caser
}

func (s *scanner) run() {
	lead := 0
	for lead < len(s.src) {
		r, size := utf8.DecodeRuneInString(s.src[lead:])
		if !unicode.IsSpace(r) {
			break
		}
		lead += size
	}

	// A comment swallows the whole rest of the line.
	if lead < len(s.src) && s.src[lead] == commentMarker {
		if lead > 0 {
			s.emit(Whitespace, lead)
		}
		s.emit(Comment, len(s.src))
		return
	}

	for s.pos < len(s.src) {
		r, size := utf8.DecodeRuneInString(s.src[s.pos:])
		next := s.peekAfter(size)

		switch {
		case r == stringDelim:
			s.scanString()
		case isDigit(r) || (r == moduleLead && isDigit(next)):
			s.scanWhile(Number, isNumberRune)
		case isIdentStart(r):
			s.scanWord()
		case r == directiveLead || (r == moduleLead && s.pos == lead && unicode.IsLetter(next)):
			s.scanPreprocessor(size)
		case isOperator(r):
			s.scanWhile(Operator, isOperator)
		case unicode.IsSpace(r):
			s.scanWhile(Whitespace, unicode.IsSpace)
		default:
			s.emit(Punctuation, s.pos+size)
		}
	}
}

// emit appends the token spanning s.pos up to end and advances.
func (s *scanner) emit(cat Category, end int) {
	s.tokens = append(s.tokens, Token{Category: cat, Text: s.src[s.pos:end]})
	s.pos = end
}

func (s *scanner) peekAfter(offset int) rune {
	if s.pos+offset >= len(s.src) {
		return utf8.RuneError
	}
	r, _ := utf8.DecodeRuneInString(s.src[s.pos+offset:])
	return r
}

// scanWhile emits the maximal run of runes satisfying ok.
func (s *scanner) scanWhile(cat Category, ok func(rune) bool) {
	end := s.pos
	for end < len(s.src) {
		r, size := utf8.DecodeRuneInString(s.src[end:])
		if !ok(r) {
			break
		}
		end += size
	}
	s.emit(cat, end)
}

// scanString consumes a literal up to the matching delimiter or end of line.
func (s *scanner) scanString() {
	end := s.pos + 1
	for end < len(s.src) {
		c := s.src[end]
		if c == escapeChar && end+1 < len(s.src) {
			_, size := utf8.DecodeRuneInString(s.src[end+1:])
			end += 1 + size
			continue
		}
		end++
		if c == stringDelim {
			break
		}
	}
	s.emit(StringLiteral, end)
}

func (s *scanner) scanWord() {
	_, size := utf8.DecodeRuneInString(s.src[s.pos:])
	end := s.pos + size
	for end < len(s.src) {
		r, size := utf8.DecodeRuneInString(s.src[end:])
		if !isIdentPart(r) {
			break
		}
		end += size
	}
	s.emit(s.lookup(s.src[s.pos:end]), end)
}

// scanPreprocessor consumes the lead rune and the word that follows it.
func (s *scanner) scanPreprocessor(leadSize int) {
	end := s.pos + leadSize
	for end < len(s.src) {
		r, size := utf8.DecodeRuneInString(s.src[end:])
		if !isIdentPart(r) {
			break
		}
		end += size
	}
	s.emit(Preprocessor, end)
}

func (s *scanner) lookup(word string) Category {
	folded := s.folder.String(word)
	switch {
	case keywords.has(folded):
		return Keyword
	case declarations.has(folded):
		return Declaration
	case builtins.has(folded):
		return BuiltinFunction
	default:
		return Identifier
	}
}

func fold(word string) string {
	return cases.Fold().String(word)
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isNumberRune(r rune) bool { return isDigit(r) || r == moduleLead }

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || containsRune(identLeadExtra, r)
}

func isIdentPart(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func isOperator(r rune) bool { return containsRune(operatorRunes, r) }

func containsRune(set string, r rune) bool {
	for _, c := range set {
		if c == r {
			return true
		}
	}
	return false
}
