package scanners

import (
	"context"
	"runtime"

	"github.com/JA3G3R/reviewcrew/types"
	"golang.org/x/sync/errgroup"
)

// Analyzer is one independent pass over a file's text.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, file types.FileRecord) []types.Finding
}

// FileResult holds every analyzer's findings for one file.
type FileResult struct {
	File     types.FileRecord
	Findings map[string][]types.Finding
}

type Results []FileResult

// ByAnalyzer flattens the findings of one analyzer across files, in file order.
func (r Results) ByAnalyzer(name string) []types.Finding {
	var out []types.Finding
	for _, fr := range r {
		out = append(out, fr.Findings[name]...)
	}
	return out
}

// All flattens every finding, severity first.
func (r Results) All() []types.Finding {
	var out []types.Finding
	for _, fr := range r {
		for _, fs := range fr.Findings {
			out = append(out, fs...)
		}
	}
	types.SortFindings(out)
	return out
}

// Run applies every analyzer to every readable file. Files are processed
// concurrently but results keep the input order.
func Run(ctx context.Context, files []types.FileRecord, analyzers []Analyzer, workers int) (Results, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	out := make(Results, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, f := range files {
		out[i] = FileResult{File: f, Findings: make(map[string][]types.Finding, len(analyzers))}
		if !f.Readable() {
			continue
		}
		g.Go(func() error {
			for _, a := range analyzers {
				if err := ctx.Err(); err != nil {
					return err
				}
				out[i].Findings[a.Name()] = a.Analyze(ctx, f)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Default returns the static, security and performance analyzers.
func Default(maxLineLength int, tool *ExternalTool) []Analyzer {
	return []Analyzer{
		NewStaticAnalyzer(maxLineLength, tool),
		NewSecurityAnalyzer(),
		NewPerformanceAnalyzer(),
	}
}

// lineFinding fills the fields every per-line check shares.
func lineFinding(scanner string, f types.FileRecord, line int, rule string, sev types.Severity, msg, suggestion, code string) types.Finding {
	return types.Finding{
		Scanner:    scanner,
		Rule:       rule,
		Severity:   sev,
		File:       f.Path,
		Line:       line,
		Message:    msg,
		Suggestion: suggestion,
		Code:       code,
	}
}
