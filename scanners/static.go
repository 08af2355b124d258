package scanners

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/JA3G3R/reviewcrew/types"
)

// DefaultMaxLineLength is the style limit for line length, in characters.
const DefaultMaxLineLength = 120

var (
	bareExceptRe   = regexp.MustCompile(`^\s*except\s*:`)
	evalExecCallRe = regexp.MustCompile(`(?:^|[^.\w])(eval|exec)\s*\(`)
	looseEqualRe   = regexp.MustCompile(`[^=!]==[^=]`)
	todoRe         = regexp.MustCompile(`(?i)(TODO|FIXME|HACK)`)
)

// StaticAnalyzer reports code-quality and style issues.
type StaticAnalyzer struct {
	MaxLineLength int
	Tool          *ExternalTool
}

func NewStaticAnalyzer(maxLineLength int, tool *ExternalTool) *StaticAnalyzer {
	if maxLineLength <= 0 {
		maxLineLength = DefaultMaxLineLength
	}
	return &StaticAnalyzer{MaxLineLength: maxLineLength, Tool: tool}
}

func (a *StaticAnalyzer) Name() string { return "static" }

func (a *StaticAnalyzer) Analyze(ctx context.Context, f types.FileRecord) []types.Finding {
	var out []types.Finding

	// A cut-off file always looks broken to a parser.
	if !f.Truncated {
		if se, ok := checkSyntax(ctx, f.Language, f.Path, f.Content); ok {
			out = append(out, types.Finding{
				Scanner:    a.Name(),
				Rule:       "Syntax Error",
				Severity:   types.SevCritical,
				File:       f.Path,
				Line:       se.Line,
				Column:     se.Column,
				Message:    "Syntax error: " + se.Message,
				Suggestion: "Fix the syntax error",
			})
		}
	}

	switch f.Language {
	case "python":
		out = append(out, a.python(f)...)
		out = append(out, a.pylint(ctx, f)...)
	case "javascript":
		out = append(out, a.javascript(f)...)
	}
	out = append(out, a.generic(f)...)

	types.SortFindings(out)
	return out
}

func (a *StaticAnalyzer) python(f types.FileRecord) []types.Finding {
	var out []types.Finding
	for i, line := range splitLines(f.Content) {
		if bareExceptRe.MatchString(line) {
			out = append(out, lineFinding(a.Name(), f, i+1, "Code Quality", types.SevMedium,
				"Bare except clause catches all exceptions",
				"Catch specific exception types instead of using bare except",
				strings.TrimSpace(line)))
		}
		if m := evalExecCallRe.FindStringSubmatch(line); m != nil {
			out = append(out, lineFinding(a.Name(), f, i+1, "Security", types.SevHigh,
				fmt.Sprintf("Use of %s() is dangerous", m[1]),
				"Avoid eval/exec or use safer alternatives",
				strings.TrimSpace(line)))
		}
	}
	return out
}

func (a *StaticAnalyzer) javascript(f types.FileRecord) []types.Finding {
	var out []types.Finding
	for i, line := range splitLines(f.Content) {
		if strings.Contains(line, "console.log") {
			out = append(out, lineFinding(a.Name(), f, i+1, "Code Quality", types.SevLow,
				"console.log statement found",
				"Remove console.log statements in production code",
				strings.TrimSpace(line)))
		}
		if looseEqualRe.MatchString(line) {
			out = append(out, lineFinding(a.Name(), f, i+1, "Code Quality", types.SevMedium,
				"Use of == instead of ===",
				"Use strict equality (===) instead of loose equality (==)",
				strings.TrimSpace(line)))
		}
	}
	return out
}

func (a *StaticAnalyzer) generic(f types.FileRecord) []types.Finding {
	var out []types.Finding
	for i, line := range splitLines(f.Content) {
		if n := utf8.RuneCountInString(line); n > a.MaxLineLength {
			out = append(out, lineFinding(a.Name(), f, i+1, "Style", types.SevLow,
				fmt.Sprintf("Line too long (%d characters)", n),
				"Break long lines for better readability",
				""))
		}
		if todoRe.MatchString(line) {
			out = append(out, lineFinding(a.Name(), f, i+1, "Code Quality", types.SevLow,
				"Unresolved TODO/FIXME comment",
				"Address the TODO/FIXME or remove if no longer needed",
				strings.TrimSpace(line)))
		}
	}
	return out
}

type pylintMessage struct {
	Type    string `json:"type"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Symbol  string `json:"symbol"`
	Message string `json:"message"`
}

func (a *StaticAnalyzer) pylint(ctx context.Context, f types.FileRecord) []types.Finding {
	raw, ok := a.Tool.Run(ctx, "pylint", "--output-format=json", f.Path)
	if !ok {
		return nil
	}
	var msgs []pylintMessage
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil
	}
	out := make([]types.Finding, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, types.Finding{
			Scanner:    a.Name(),
			Rule:       "Pylint " + m.Type,
			Severity:   pylintSeverity(m.Type),
			File:       f.Path,
			Line:       m.Line,
			Column:     m.Column,
			Message:    m.Message,
			Suggestion: fmt.Sprintf("Pylint %s: %s", m.Symbol, m.Message),
		})
	}
	return out
}

func pylintSeverity(kind string) types.Severity {
	switch strings.ToLower(kind) {
	case "error", "fatal":
		return types.SevCritical
	case "warning":
		return types.SevMedium
	case "refactor", "convention", "info":
		return types.SevLow
	default:
		return types.SevMedium
	}
}
