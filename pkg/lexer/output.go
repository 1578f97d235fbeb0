package lexer

import "strings"

// OutputKind classifies a whole line of engine output.
type OutputKind int

// OutputKind values.
const (
	OutputBlank OutputKind = iota
	OutputLabel
	OutputTiming
	OutputDiagnostic
	OutputExpression
)

// ClassifyOutputLine decides how a line printed by the engine should be
// presented: expression labels ("   E ="), timing statistics, error and
// warning diagnostics, or ordinary expression text.
func ClassifyOutputLine(line string) OutputKind {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		return OutputBlank
	case trimmed == "=" || strings.HasSuffix(trimmed, " ="):
		return OutputLabel
	case strings.Contains(trimmed, "sec out of") || strings.HasPrefix(trimmed, "Time ="):
		return OutputTiming
	case strings.HasPrefix(trimmed, "Error") || strings.HasPrefix(trimmed, "Warning"):
		return OutputDiagnostic
	default:
		return OutputExpression
	}
}
