package crew

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JA3G3R/reviewcrew/eventlog"
	"github.com/JA3G3R/reviewcrew/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder answers every request with a fixed reply and keeps the requests.
type recorder struct {
	mu    sync.Mutex
	reqs  []llm.Request
	reply func(llm.Request) (string, error)
}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) Generate(ctx context.Context, req llm.Request) (string, error) {
	r.mu.Lock()
	r.reqs = append(r.reqs, req)
	r.mu.Unlock()
	if r.reply != nil {
		return r.reply(req)
	}
	return "answer to: " + strings.SplitN(req.Prompt, "\n", 2)[0], nil
}

type events struct {
	mu  sync.Mutex
	got []eventlog.Event
}

func (e *events) Emit(ev eventlog.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.got = append(e.got, ev)
	return nil
}

func (e *events) types() []string {
	out := make([]string, len(e.got))
	for i, ev := range e.got {
		out[i] = ev.Type
	}
	return out
}

type staticTool struct {
	name string
	out  string
	err  error
}

func (s staticTool) Name() string        { return s.name }
func (s staticTool) Description() string { return "test tool" }
func (s staticTool) Run(ctx context.Context, inputs map[string]string) (string, error) {
	return s.out + inputs["topic"], s.err
}

func researchCrew(t *testing.T, gen llm.Generator) (*Crew, *events) {
	t.Helper()
	researcher := &Agent{Name: "researcher", Role: "{topic} Senior Data Researcher", Goal: "Uncover {topic}", Backstory: "Seasoned."}
	analyst := &Agent{Name: "reporting_analyst", Role: "{topic} Reporting Analyst", Goal: "Report", Backstory: "Meticulous."}
	ev := &events{}
	return &Crew{
		Name:   "research",
		Agents: []*Agent{researcher, analyst},
		Tasks: []Task{
			{Name: "research_task", Description: "Research {topic} as of {current_year}", ExpectedOutput: "10 bullet points", Agent: researcher},
			{Name: "reporting_task", Description: "Expand {topic} into a report", ExpectedOutput: "markdown", Agent: analyst, OutputFile: "{topic}_{timestamp}.md"},
		},
		Generator: gen,
		OutputDir: t.TempDir(),
		Events:    ev,
		Now:       func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) },
	}, ev
}

func TestKickoffRunsTasksInOrder(t *testing.T) {
	gen := &recorder{}
	c, ev := researchCrew(t, gen)

	res, err := c.Kickoff(context.Background(), map[string]string{"topic": "AI LLMs", "current_year": "2026"})
	require.NoError(t, err)

	require.Len(t, gen.reqs, 2)
	assert.Contains(t, gen.reqs[0].Prompt, "Research AI LLMs as of 2026")
	assert.Contains(t, gen.reqs[0].System, "You are AI LLMs Senior Data Researcher.")
	assert.Contains(t, gen.reqs[0].Prompt, "10 bullet points")
	assert.Empty(t, gen.reqs[0].Context)

	// the second task sees the first task's output
	require.Len(t, gen.reqs[1].Context, 1)
	assert.Contains(t, gen.reqs[1].Context[0], "answer to: Research AI LLMs as of 2026")

	require.Len(t, res.Tasks, 2)
	assert.Equal(t, res.Tasks[1].Output, res.String())

	wantFile := filepath.Join(c.OutputDir, "AI LLMs_20260102_030405.md")
	assert.Equal(t, wantFile, res.Tasks[1].OutputFile)
	data, err := os.ReadFile(wantFile)
	require.NoError(t, err)
	assert.Equal(t, res.Raw, string(data))

	assert.Equal(t, []string{
		eventlog.KickoffStarted,
		eventlog.TaskStarted, eventlog.TaskFinished,
		eventlog.TaskStarted, eventlog.TaskFinished,
		eventlog.KickoffFinished,
	}, ev.types())
	assert.Equal(t, "research", ev.got[0].Crew)
}

func TestKickoffHooks(t *testing.T) {
	gen := &recorder{}
	c, _ := researchCrew(t, gen)
	c.BeforeKickoff = func(in map[string]string) (map[string]string, error) {
		in["topic"] = strings.ToUpper(in["topic"])
		return in, nil
	}
	c.AfterKickoff = func(r Result) (Result, error) {
		r.Raw = "post: " + r.Raw
		return r, nil
	}

	res, err := c.Kickoff(context.Background(), map[string]string{"topic": "go"})
	require.NoError(t, err)
	assert.Contains(t, gen.reqs[0].Prompt, "Research GO")
	assert.True(t, strings.HasPrefix(res.String(), "post: "))
}

func TestKickoffFailureAborts(t *testing.T) {
	boom := errors.New("rate limited")
	gen := &recorder{reply: func(llm.Request) (string, error) { return "", boom }}
	c, ev := researchCrew(t, gen)

	_, err := c.Kickoff(context.Background(), map[string]string{"topic": "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.Contains(t, err.Error(), `task "research_task"`)
	assert.Len(t, gen.reqs, 1)
	assert.Equal(t, eventlog.KickoffFailed, ev.got[len(ev.got)-1].Type)
}

func TestKickoffNoTasks(t *testing.T) {
	c := &Crew{Generator: &recorder{}}
	_, err := c.Kickoff(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoTasks)
}

func TestToolOutputAndFailureGoToContext(t *testing.T) {
	gen := &recorder{}
	c, ev := researchCrew(t, gen)
	c.Tasks[0].Agent.Tools = []Tool{
		staticTool{name: "search", out: "results for "},
		staticTool{name: "broken", err: errors.New("no network")},
	}

	_, err := c.Kickoff(context.Background(), map[string]string{"topic": "rust"})
	require.NoError(t, err)

	ctxBlocks := gen.reqs[0].Context
	require.Len(t, ctxBlocks, 2)
	assert.Equal(t, "## Tool: search\n\nresults for rust", ctxBlocks[0])
	assert.Equal(t, "Tool broken failed: no network", ctxBlocks[1])
	assert.Contains(t, ev.types(), eventlog.ToolFailed)
}

func TestReplayFromTask(t *testing.T) {
	gen := &recorder{}
	c, _ := researchCrew(t, gen)
	prior := []TaskOutput{{Task: "research_task", Agent: "researcher", Output: "stored bullets"}}

	res, err := c.Replay(context.Background(), map[string]string{"topic": "go"}, "reporting_task", prior)
	require.NoError(t, err)

	require.Len(t, gen.reqs, 1)
	assert.Contains(t, gen.reqs[0].Context[0], "stored bullets")
	require.Len(t, res.Tasks, 2)
	assert.Equal(t, "stored bullets", res.Tasks[0].Output)

	_, err = c.Replay(context.Background(), nil, "nope", nil)
	assert.ErrorIs(t, err, ErrUnknownTask)
}

func TestInterpolate(t *testing.T) {
	vars := map[string]string{"topic": "AI", "year": "2026"}
	assert.Equal(t, "AI in 2026 {missing}", Interpolate("{topic} in {year} {missing}", vars))
	assert.Equal(t, "{ not a placeholder }", Interpolate("{ not a placeholder }", vars))
}

func TestOutputFileNameIsSanitized(t *testing.T) {
	gen := &recorder{}
	c, _ := researchCrew(t, gen)

	res, err := c.Kickoff(context.Background(), map[string]string{"topic": "../etc/passwd"})
	require.NoError(t, err)
	assert.Equal(t, c.OutputDir, filepath.Dir(res.Tasks[1].OutputFile))
}

func TestRecordsRoundTrip(t *testing.T) {
	at := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	outs := []TaskOutput{{Task: "a", Agent: "x", Output: "one"}, {Task: "b", Agent: "y", Output: "two", OutputFile: "b.md"}}

	recs := Records("run-1", outs, at)
	require.Len(t, recs, 2)
	assert.Equal(t, 1, recs[1].Seq)
	assert.Equal(t, "run-1", recs[0].RunID)
	assert.Equal(t, outs, FromRecords(recs))
}
