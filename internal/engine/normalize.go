package engine

import "strings"

var dropPrefixes = []string{
	"FORM ",
	"TFORM ",
	"ParFORM ",
	"Run at:",
	"Time =",
}

var dropContains = []string{
	"sec out of",
	"Generated terms",
	"Terms in output",
	"Terms active",
	"Bytes used",
	"Bytes in use",
}

// Normalize removes engine metadata lines (version banner, run timestamp,
// timing and term/byte statistics) from raw output. Every other line is
// kept byte for byte and in order; only blank lines at the very start and
// end are dropped.
func Normalize(raw string) string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	lines := strings.Split(raw, "\n")

	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if isMetadata(line) {
			continue
		}
		kept = append(kept, line)
	}

	start, end := 0, len(kept)
	for start < end && strings.TrimSpace(kept[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(kept[end-1]) == "" {
		end--
	}
	return strings.Join(kept[start:end], "\n")
}

func isMetadata(line string) bool {
	trimmed := strings.TrimSpace(line)
	for _, p := range dropPrefixes {
		if strings.HasPrefix(trimmed, p) {
			return true
		}
	}
	for _, s := range dropContains {
		if strings.Contains(trimmed, s) {
			return true
		}
	}
	return false
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
