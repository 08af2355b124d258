package scanners

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/JA3G3R/reviewcrew/types"
)

type Band string

const (
	BandLow      Band = "Low"
	BandModerate Band = "Moderate"
	BandHigh     Band = "High"
)

// Functions above this cyclomatic complexity are reported as findings.
const functionComplexityLimit = 10

var decisionKeywords = []string{"if", "elif", "else", "for", "while", "try", "except", "case", "switch", "catch"}

type FunctionComplexity struct {
	Name       string `json:"name"`
	Line       int    `json:"lineno"`
	Complexity int    `json:"complexity"`
	Rank       string `json:"rank"`
}

// Complexity is either radon's per-function report or a keyword estimate.
type Complexity struct {
	File      string
	Score     int
	Band      Band
	Functions []FunctionComplexity
	Source    string // "radon" or "estimate"
}

type ComplexityAnalyzer struct {
	Tool *ExternalTool
}

func NewComplexityAnalyzer(tool *ExternalTool) *ComplexityAnalyzer {
	return &ComplexityAnalyzer{Tool: tool}
}

func (a *ComplexityAnalyzer) Name() string { return "complexity" }

// Measure prefers radon for Python files and falls back to counting
// decision points.
func (a *ComplexityAnalyzer) Measure(ctx context.Context, f types.FileRecord) Complexity {
	if f.Language == "python" {
		if c, ok := a.radon(ctx, f); ok {
			return c
		}
	}
	score := EstimateComplexity(f.Content)
	return Complexity{File: f.Path, Score: score, Band: bandFor(score), Source: "estimate"}
}

func (a *ComplexityAnalyzer) Analyze(ctx context.Context, f types.FileRecord) []types.Finding {
	return a.Findings(f, a.Measure(ctx, f))
}

// Findings turns a measurement into findings: one per radon function over
// the limit, or a single whole-file finding for a high estimate.
func (a *ComplexityAnalyzer) Findings(f types.FileRecord, c Complexity) []types.Finding {
	var out []types.Finding
	if c.Source == "radon" {
		for _, fn := range c.Functions {
			if fn.Complexity <= functionComplexityLimit {
				continue
			}
			out = append(out, lineFinding(a.Name(), f, fn.Line, "Complexity", types.SevMedium,
				fmt.Sprintf("Function %s has cyclomatic complexity %d (grade %s)", fn.Name, fn.Complexity, fn.Rank),
				"Split the function into smaller units", ""))
		}
		return out
	}
	if c.Band == BandHigh {
		out = append(out, lineFinding(a.Name(), f, 0, "Complexity", types.SevMedium,
			fmt.Sprintf("Estimated cyclomatic complexity %d", c.Score),
			"Consider refactoring into smaller functions", ""))
	}
	return out
}

func (a *ComplexityAnalyzer) radon(ctx context.Context, f types.FileRecord) (Complexity, bool) {
	raw, ok := a.Tool.Run(ctx, "radon", "cc", f.Path, "-j")
	if !ok {
		return Complexity{}, false
	}
	var report map[string][]FunctionComplexity
	if err := json.Unmarshal(raw, &report); err != nil {
		return Complexity{}, false
	}
	fns, ok := report[f.Path]
	if !ok {
		return Complexity{}, false
	}
	sort.SliceStable(fns, func(i, j int) bool { return fns[i].Line < fns[j].Line })

	c := Complexity{File: f.Path, Functions: fns, Source: "radon", Score: 1}
	for _, fn := range fns {
		if fn.Complexity > c.Score {
			c.Score = fn.Complexity
		}
	}
	c.Band = bandFor(c.Score)
	return c, true
}

// EstimateComplexity is 1 plus the number of decision keywords found.
func EstimateComplexity(content string) int {
	score := 1
	for _, line := range splitLines(content) {
		trimmed := strings.TrimSpace(line)
		for _, kw := range decisionKeywords {
			if strings.Contains(line, " "+kw+" ") || startsWithWord(trimmed, kw) {
				score++
			}
		}
	}
	return score
}

func startsWithWord(s, word string) bool {
	if !strings.HasPrefix(s, word) {
		return false
	}
	if len(s) == len(word) {
		return true
	}
	c := s[len(word)]
	return !(c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9')
}

func bandFor(score int) Band {
	switch {
	case score > 10:
		return BandHigh
	case score > 5:
		return BandModerate
	default:
		return BandLow
	}
}
