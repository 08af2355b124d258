package reviewer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/JA3G3R/reviewcrew/llm"
	"github.com/JA3G3R/reviewcrew/scanners"
	"github.com/JA3G3R/reviewcrew/store"
	"github.com/JA3G3R/reviewcrew/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const appPy = `import os

def handler(req):
    try:
        return eval(req.body)
    except:
        pass
`

func writeTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.py"), []byte(appPy), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.js"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))
	return dir
}

// capture keeps every request so tests can inspect what the agents saw.
type capture struct {
	mu   sync.Mutex
	reqs []llm.Request
	err  error
}

func (c *capture) Name() string { return "capture" }

func (c *capture) Generate(ctx context.Context, req llm.Request) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reqs = append(c.reqs, req)
	if c.err != nil {
		return "", c.err
	}
	return "# report\n", nil
}

func TestSnapshotIsCached(t *testing.T) {
	dir := writeTree(t)
	s := NewScanner(scanners.DefaultMaxContentBytes, scanners.DefaultMaxLineLength, 2, nil, nil)

	first, err := s.Snapshot(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, first.Files, 2)
	second, err := s.Snapshot(context.Background(), dir+string(filepath.Separator))
	require.NoError(t, err)
	assert.Same(t, first, second)

	s.Forget(dir)
	third, err := s.Snapshot(context.Background(), dir)
	require.NoError(t, err)
	assert.NotSame(t, first, third)

	_, err = s.Snapshot(context.Background(), filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, scanners.ErrPathNotFound)
}

func TestTools(t *testing.T) {
	dir := writeTree(t)
	tools := Tools(NewScanner(scanners.DefaultMaxContentBytes, scanners.DefaultMaxLineLength, 1, nil, nil))
	require.Len(t, tools, 5)
	ctx := context.Background()
	in := map[string]string{"path": dir}

	inv, err := tools["code_parser"].Run(ctx, in)
	require.NoError(t, err)
	assert.Contains(t, inv, "**Total files found:** 2")

	sec, err := tools["security_analyzer"].Run(ctx, in)
	require.NoError(t, err)
	assert.Contains(t, sec, "Command Injection")
	// the empty file gets the no-issues message
	assert.Contains(t, sec, "empty.js")

	static, err := tools["static_analysis"].Run(ctx, in)
	require.NoError(t, err)
	assert.Contains(t, static, "Code Quality")

	cx, err := tools["complexity_analyzer"].Run(ctx, in)
	require.NoError(t, err)
	assert.Contains(t, cx, "Estimated Cyclomatic Complexity")

	_, err = tools["performance_analyzer"].Run(ctx, map[string]string{})
	assert.Error(t, err)
}

func newPipeline(t *testing.T, gen llm.Generator, st Store) *Pipeline {
	t.Helper()
	return &Pipeline{
		Scanner:   NewScanner(scanners.DefaultMaxContentBytes, scanners.DefaultMaxLineLength, 2, nil, nil),
		Generator: gen,
		Store:     st,
		OutputDir: filepath.Join(t.TempDir(), "output"),
	}
}

func TestPipelineRun(t *testing.T) {
	ctx := context.Background()
	dir := writeTree(t)
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "h.db"))
	require.NoError(t, err)
	require.NoError(t, st.Init(ctx))
	t.Cleanup(func() { _ = st.Close() })

	gen := &capture{}
	p := newPipeline(t, gen, st)
	sum, err := p.Run(ctx, dir)
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Files)
	assert.NotEmpty(t, sum.RunID)
	assert.Positive(t, sum.Counts[types.SevCritical])
	require.Len(t, sum.Reports, 3)
	for i, name := range []string{"error_suggestions_report.md", "security_report.md", "performance_report.md"} {
		assert.Equal(t, filepath.Join(p.OutputDir, name), sum.Reports[i])
		data, err := os.ReadFile(sum.Reports[i])
		require.NoError(t, err)
		assert.Equal(t, "# report\n", string(data))
	}

	// three agents, each seeing its own tools and not the other reports
	require.Len(t, gen.reqs, 3)
	assert.Len(t, gen.reqs[0].Context, 3)
	require.Len(t, gen.reqs[1].Context, 1)
	assert.True(t, strings.HasPrefix(gen.reqs[1].Context[0], "## Tool: security_analyzer"))
	assert.Contains(t, gen.reqs[1].Prompt, dir)

	run, err := st.GetRun(ctx, sum.RunID)
	require.NoError(t, err)
	assert.Equal(t, store.RunStatusSucceeded, run.Status)
	assert.Equal(t, sum.String(), run.Summary)

	stored, err := st.Findings(ctx, sum.RunID)
	require.NoError(t, err)
	assert.Len(t, stored, sum.Findings)

	outs, err := st.TaskOutputs(ctx, sum.RunID)
	require.NoError(t, err)
	require.Len(t, outs, 3)
	assert.Equal(t, "performance_analysis_task", outs[2].Task)
}

func TestPipelineFailureMarksRun(t *testing.T) {
	ctx := context.Background()
	dir := writeTree(t)
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "h.db"))
	require.NoError(t, err)
	require.NoError(t, st.Init(ctx))
	t.Cleanup(func() { _ = st.Close() })

	p := newPipeline(t, &capture{err: errors.New("429 quota exceeded")}, st)
	_, err = p.Run(ctx, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error_analysis_task")

	runs, err := st.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, store.RunStatusFailed, runs[0].Status)
}

func TestPipelineMissingPath(t *testing.T) {
	p := newPipeline(t, llm.Offline{}, nil)
	_, err := p.Run(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, scanners.ErrPathNotFound)
}

func TestPipelineOfflineWithoutStore(t *testing.T) {
	p := newPipeline(t, llm.Offline{}, nil)
	sum, err := p.Run(context.Background(), writeTree(t))
	require.NoError(t, err)
	assert.Len(t, sum.Reports, 3)
	assert.Contains(t, sum.String(), "Reviewed 2 files")
}

func TestSummaryString(t *testing.T) {
	s := Summary{Path: "src", Files: 3, Unreadable: 1, Findings: 4, Counts: map[types.Severity]int{types.SevHigh: 1, types.SevLow: 3}}
	assert.Equal(t, "Reviewed 3 files in src (1 unreadable): 4 findings (1 High, 3 Low)", s.String())
}
