package reviewer

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/JA3G3R/reviewcrew/logging"
	"github.com/JA3G3R/reviewcrew/scanners"
	"github.com/JA3G3R/reviewcrew/types"
	"go.uber.org/zap"
)

// Snapshot is one scan of a review target. The pipeline and every tool of a
// run read the same snapshot.
type Snapshot struct {
	Root       string
	Files      []types.FileRecord
	Results    scanners.Results
	Complexity []scanners.Complexity // one per readable file, in file order
}

// Findings returns every analyzer finding plus complexity findings,
// severity first.
func (s *Snapshot) Findings(c *scanners.ComplexityAnalyzer) []types.Finding {
	out := s.Results.All()
	byPath := make(map[string]types.FileRecord, len(s.Files))
	for _, f := range s.Files {
		byPath[f.Path] = f
	}
	for _, m := range s.Complexity {
		out = append(out, c.Findings(byPath[m.File], m)...)
	}
	types.SortFindings(out)
	return out
}

// Scanner discovers and analyzes a path once and caches the snapshot until
// Forget is called.
type Scanner struct {
	MaxContentBytes int
	Workers         int
	Analyzers       []scanners.Analyzer
	Complexity      *scanners.ComplexityAnalyzer
	Log             *zap.SugaredLogger

	mu    sync.Mutex
	cache map[string]*Snapshot
}

func NewScanner(maxContentBytes, maxLineLength, workers int, tool *scanners.ExternalTool, log *zap.SugaredLogger) *Scanner {
	log = logging.OrNop(log)
	return &Scanner{
		MaxContentBytes: maxContentBytes,
		Workers:         workers,
		Analyzers:       scanners.Default(maxLineLength, tool),
		Complexity:      scanners.NewComplexityAnalyzer(tool),
		Log:             log,
		cache:           make(map[string]*Snapshot),
	}
}

// Snapshot returns the cached scan of path, scanning it on first use.
func (s *Scanner) Snapshot(ctx context.Context, path string) (*Snapshot, error) {
	key := filepath.Clean(path)

	s.mu.Lock()
	defer s.mu.Unlock()
	if snap, ok := s.cache[key]; ok {
		return snap, nil
	}

	files, err := scanners.DiscoverFiles(ctx, path, s.MaxContentBytes)
	if err != nil {
		return nil, err
	}
	results, err := scanners.Run(ctx, files, s.Analyzers, s.Workers)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{Root: path, Files: files, Results: results}
	for _, f := range files {
		if !f.Readable() {
			continue
		}
		snap.Complexity = append(snap.Complexity, s.Complexity.Measure(ctx, f))
	}
	s.Log.Debugw("scanned target", "path", path, "files", len(files))

	if s.cache == nil {
		s.cache = make(map[string]*Snapshot)
	}
	s.cache[key] = snap
	return snap, nil
}

// Forget drops the cached snapshot for path so the next call rescans it.
func (s *Scanner) Forget(path string) {
	s.mu.Lock()
	delete(s.cache, filepath.Clean(path))
	s.mu.Unlock()
}
