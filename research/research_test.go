package research

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JA3G3R/reviewcrew/llm"
	"github.com/JA3G3R/reviewcrew/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scripted struct {
	reqs []llm.Request
	err  error
}

func (s *scripted) Name() string { return "scripted" }

func (s *scripted) Generate(ctx context.Context, req llm.Request) (string, error) {
	s.reqs = append(s.reqs, req)
	if s.err != nil {
		return "", s.err
	}
	if len(s.reqs) == 1 {
		return "- point one\n- point two", nil
	}
	return "# Report\n\nExpanded.", nil
}

var fixedNow = func() time.Time { return time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC) }

func TestRespondRunsBothTasks(t *testing.T) {
	gen := &scripted{}
	out := t.TempDir()
	r := &Runner{Generator: gen, OutputDir: out, Now: fixedNow}

	got := r.Respond(context.Background(), "AI LLMs")
	assert.Equal(t, "# Report\n\nExpanded.", got)

	require.Len(t, gen.reqs, 2)
	assert.Contains(t, gen.reqs[0].Prompt, "Conduct a thorough research about AI LLMs.")
	assert.Contains(t, gen.reqs[0].Prompt, "the current year is 2026")
	assert.Contains(t, gen.reqs[0].Prompt, "10 bullet points")
	assert.True(t, strings.HasPrefix(gen.reqs[0].System, "You are AI LLMs Senior Data Researcher."))
	require.Len(t, gen.reqs[1].Context, 1)
	assert.Contains(t, gen.reqs[1].Context[0], "- point one")

	data, err := os.ReadFile(filepath.Join(out, "AI LLMs_20261019_083000.md"))
	require.NoError(t, err)
	assert.Equal(t, got, string(data))
}

func TestRespondFallsBackToSafeMode(t *testing.T) {
	r := &Runner{Generator: &scripted{err: errors.New("quota")}, OutputDir: t.TempDir(), Now: fixedNow}
	got := r.Respond(context.Background(), "quantum")
	assert.Equal(t, "🤖 (Safe Mode) Unable to use Knowledge DB. Response for: quantum", got)

	// no generator at all
	r = &Runner{OutputDir: t.TempDir()}
	assert.Equal(t, SafeMode("x"), r.Respond(context.Background(), "x"))
}

func TestRunRecordsHistory(t *testing.T) {
	ctx := context.Background()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "h.db"))
	require.NoError(t, err)
	require.NoError(t, st.Init(ctx))
	t.Cleanup(func() { _ = st.Close() })

	r := &Runner{Generator: &scripted{}, Store: st, OutputDir: t.TempDir(), Now: fixedNow}
	_, err = r.Run(ctx, "agents")
	require.NoError(t, err)

	runs, err := st.ListRuns(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, CrewName, runs[0].Kind)
	assert.Equal(t, "agents", runs[0].Target)
	assert.Equal(t, store.RunStatusSucceeded, runs[0].Status)
	assert.JSONEq(t, `{"topic":"agents","current_year":"2026"}`, runs[0].InputsJSON)

	outs, err := st.TaskOutputs(ctx, runs[0].RunID)
	require.NoError(t, err)
	require.Len(t, outs, 2)
	assert.Equal(t, "research_task", outs[0].Task)
	assert.Equal(t, "reporting_analyst", outs[1].Agent)
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, "short", summarize("short"))
	long := strings.Repeat("é", 250)
	assert.Equal(t, strings.Repeat("é", 200)+"...", summarize(long))
}
