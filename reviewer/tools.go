package reviewer

import (
	"context"
	"errors"
	"strings"

	"github.com/JA3G3R/reviewcrew/crew"
	"github.com/JA3G3R/reviewcrew/report"
)

var errNoPath = errors.New(`no "path" input`)

// scanTool renders one view of the snapshot for inputs["path"].
type scanTool struct {
	name        string
	description string
	scanner     *Scanner
	render      func(*Snapshot) string
}

func (t *scanTool) Name() string        { return t.name }
func (t *scanTool) Description() string { return t.description }

func (t *scanTool) Run(ctx context.Context, inputs map[string]string) (string, error) {
	path := inputs["path"]
	if path == "" {
		return "", errNoPath
	}
	snap, err := t.scanner.Snapshot(ctx, path)
	if err != nil {
		return "", err
	}
	return t.render(snap), nil
}

// Tools returns the code review tools keyed by the names agents refer to.
func Tools(s *Scanner) map[string]crew.Tool {
	tools := []*scanTool{
		{
			name:        "code_parser",
			description: "Parses files or directories to identify code files for analysis",
			render:      func(snap *Snapshot) string { return report.Inventory(snap.Files) },
		},
		{
			name:        "static_analysis",
			description: "Performs static code analysis using various tools and techniques",
			render:      perFile("static", report.Static),
		},
		{
			name:        "security_analyzer",
			description: "Analyzes code for security vulnerabilities and unsafe patterns",
			render:      perFile("security", report.Security),
		},
		{
			name:        "performance_analyzer",
			description: "Analyzes code for performance issues and optimization opportunities",
			render:      perFile("performance", report.Performance),
		},
		{
			name:        "complexity_analyzer",
			description: "Analyzes code complexity metrics",
			render:      complexityReport,
		},
	}
	out := make(map[string]crew.Tool, len(tools))
	for _, t := range tools {
		t.scanner = s
		out[t.name] = t
	}
	return out
}

func perFile(analyzer string, kind report.Kind) func(*Snapshot) string {
	return func(snap *Snapshot) string {
		var parts []string
		for _, fr := range snap.Results {
			if !fr.File.Readable() {
				continue
			}
			parts = append(parts, report.Markdown(kind, fr.File.Path, fr.Findings[analyzer]))
		}
		if len(parts) == 0 {
			return "No supported code files found."
		}
		return strings.Join(parts, "\n\n---\n\n")
	}
}

func complexityReport(snap *Snapshot) string {
	if len(snap.Complexity) == 0 {
		return "No supported code files found."
	}
	parts := make([]string, 0, len(snap.Complexity))
	for _, c := range snap.Complexity {
		parts = append(parts, report.Complexity(c.File, c))
	}
	return strings.Join(parts, "\n---\n\n")
}
