package session

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// A declaration continues onto the next line only after a trailing comma.
var declarationRe = regexp.MustCompile(
	`(?i)\b(?:symbols?|vectors?|index|indices|c?functions?|nfunctions?|commuting|c?tensors?|ntensors?)\s+((?:[^;\n]|,[ \t]*\r?\n)+);`)

// ExtractSymbols returns the sorted, de-duplicated names declared by
// declaration statements in the given inputs. Arguments such as ranges,
// dimensions or powers after a name are dropped: "x(:10)" yields "x".
func ExtractSymbols(inputs ...string) []string {
	seen := make(map[string]struct{})
	for _, in := range inputs {
		for _, m := range declarationRe.FindAllStringSubmatch(in, -1) {
			for _, field := range splitArgs(m[1]) {
				name := field
				if i := strings.IndexAny(name, "(=:"); i >= 0 {
					name = name[:i]
				}
				name = strings.TrimSpace(name)
				if r, _ := utf8.DecodeRuneInString(name); name == "" || !unicode.IsLetter(r) {
					continue
				}
				seen[name] = struct{}{}
			}
		}
	}

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// splitArgs splits a declaration argument list on commas and blanks that
// are not inside parentheses.
func splitArgs(list string) []string {
	var (
		fields []string
		depth  int
		start  int
	)
	for i, r := range list {
		switch {
		case r == '(':
			depth++
		case r == ')':
			if depth > 0 {
				depth--
			}
		case depth == 0 && (r == ',' || unicode.IsSpace(r)):
			if f := strings.TrimSpace(list[start:i]); f != "" {
				fields = append(fields, f)
			}
			start = i + utf8.RuneLen(r)
		}
	}
	if f := strings.TrimSpace(list[start:]); f != "" {
		fields = append(fields, f)
	}
	return fields
}
