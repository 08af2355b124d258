package scanners

import (
	"context"
	"regexp"
	"strings"

	"github.com/JA3G3R/reviewcrew/types"
)

// maxLoopDepth is the nesting level above which loops are reported.
const maxLoopDepth = 2

var loopRe = regexp.MustCompile(`\bfor\b|\bwhile\b`)

// PerformanceAnalyzer flags likely hot spots.
type PerformanceAnalyzer struct{}

func NewPerformanceAnalyzer() *PerformanceAnalyzer { return &PerformanceAnalyzer{} }

func (a *PerformanceAnalyzer) Name() string { return "performance" }

func (a *PerformanceAnalyzer) Analyze(ctx context.Context, f types.FileRecord) []types.Finding {
	lines := splitLines(f.Content)
	var out []types.Finding

	for i, line := range lines {
		code := strings.TrimSpace(line)
		switch f.Language {
		case "python":
			if strings.Contains(line, "+=") && strings.Contains(strings.ToLower(line), "str") {
				out = append(out, lineFinding(a.Name(), f, i+1, "String Concatenation", types.SevMedium,
					"Inefficient string concatenation in loop",
					"Use join() or f-strings for better performance", code))
			}
			if strings.Contains(line, "for ") && strings.Contains(line, "append(") {
				out = append(out, lineFinding(a.Name(), f, i+1, "List Operations", types.SevLow,
					"Could use list comprehension",
					"Consider using list comprehension for better performance", code))
			}
		case "javascript":
			if strings.Contains(line, "document.getElementById") && strings.Contains(line, "for") {
				out = append(out, lineFinding(a.Name(), f, i+1, "DOM Operations", types.SevMedium,
					"DOM query inside loop",
					"Cache DOM elements outside loops", code))
			}
		}
	}

	depth := 0
	for i, line := range lines {
		if loopRe.MatchString(line) {
			depth++
			if depth > maxLoopDepth {
				out = append(out, lineFinding(a.Name(), f, i+1, "Algorithmic Complexity", types.SevHigh,
					"Deeply nested loops detected",
					"Consider optimizing algorithm to reduce complexity", strings.TrimSpace(line)))
			}
			continue
		}
		if strings.TrimSpace(line) == "" || !startsIndented(line) {
			depth = 0
		}
	}

	types.SortFindings(out)
	return out
}

func startsIndented(line string) bool {
	return strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")
}
