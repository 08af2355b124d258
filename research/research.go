package research

import (
	"context"
	"embed"
	"encoding/json"
	"io/fs"
	"strconv"
	"time"

	"github.com/JA3G3R/reviewcrew/crew"
	"github.com/JA3G3R/reviewcrew/llm"
	"github.com/JA3G3R/reviewcrew/logging"
	"github.com/JA3G3R/reviewcrew/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CrewName is the run kind recorded for research runs.
const CrewName = "research"

//go:embed config/*.yaml
var configFS embed.FS

// Defaults holds the built-in agents.yaml and tasks.yaml.
func Defaults() fs.FS {
	sub, err := fs.Sub(configFS, "config")
	if err != nil {
		panic(err)
	}
	return sub
}

// Store is the part of the history store a research run writes to.
type Store interface {
	CreateRun(ctx context.Context, run store.RunRecord) error
	FinishRun(ctx context.Context, runID, status, summary string) error
	InsertTaskOutputs(ctx context.Context, outputs []store.TaskOutputRecord) error
}

// Runner answers topics with the research crew.
type Runner struct {
	Generator  llm.Generator
	Store      Store // optional
	Events     crew.EventSink
	OutputDir  string
	AgentsFile string
	TasksFile  string
	Log        *zap.SugaredLogger
	Now        func() time.Time
}

// Crew builds the researcher/reporting analyst crew with logging hooks.
func (r *Runner) Crew(runID string) (*crew.Crew, error) {
	agentCfgs, taskCfgs, err := crew.Definitions(Defaults(), r.AgentsFile, r.TasksFile)
	if err != nil {
		return nil, err
	}
	agents, tasks, err := crew.Build(agentCfgs, taskCfgs, nil)
	if err != nil {
		return nil, err
	}
	log := r.logger()
	return &crew.Crew{
		Name:      CrewName,
		Agents:    agents,
		Tasks:     tasks,
		Generator: r.Generator,
		OutputDir: r.OutputDir,
		RunID:     runID,
		Events:    r.Events,
		Log:       r.Log,
		Now:       r.Now,
		BeforeKickoff: func(inputs map[string]string) (map[string]string, error) {
			log.Infow("before kickoff", "inputs", inputs)
			return inputs, nil
		},
		AfterKickoff: func(res crew.Result) (crew.Result, error) {
			log.Infow("after kickoff", "tasks", len(res.Tasks), "chars", len(res.Raw))
			return res, nil
		},
	}, nil
}

// Inputs returns the crew inputs for a topic.
func (r *Runner) Inputs(topic string) map[string]string {
	return map[string]string{
		"topic":        topic,
		"current_year": strconv.Itoa(r.now().Year()),
	}
}

// Run kicks off the crew for topic and records the run.
func (r *Runner) Run(ctx context.Context, topic string) (crew.Result, error) {
	runID := uuid.NewString()
	inputs := r.Inputs(topic)
	log := r.logger()

	if r.Store != nil {
		raw, err := json.Marshal(inputs)
		if err != nil {
			log.Warnw("encode run inputs", "run_id", runID, "error", err)
		}
		if err := r.Store.CreateRun(ctx, store.RunRecord{
			RunID:      runID,
			Kind:       CrewName,
			Target:     topic,
			StartedAt:  r.now(),
			InputsJSON: string(raw),
		}); err != nil {
			log.Warnw("create run", "error", err)
		}
	}

	c, err := r.Crew(runID)
	if err != nil {
		r.finish(ctx, runID, store.RunStatusFailed, err.Error())
		return crew.Result{}, err
	}
	res, err := c.Kickoff(ctx, inputs)
	if err != nil {
		r.finish(ctx, runID, store.RunStatusFailed, err.Error())
		return crew.Result{}, err
	}
	if r.Store != nil {
		if err := r.Store.InsertTaskOutputs(ctx, crew.Records(runID, res.Tasks, r.now())); err != nil {
			log.Warnw("store task outputs", "error", err)
		}
	}
	r.finish(ctx, runID, store.RunStatusSucceeded, summarize(res.Raw))
	return res, nil
}

// Respond never fails: any error yields the safe-mode text for topic.
func (r *Runner) Respond(ctx context.Context, topic string) string {
	res, err := r.Run(ctx, topic)
	if err != nil {
		r.logger().Errorw("research crew failed", "topic", topic, "error", err)
		return SafeMode(topic)
	}
	return res.String()
}

// SafeMode is the canned reply used when the crew cannot answer.
func SafeMode(topic string) string {
	return "🤖 (Safe Mode) Unable to use Knowledge DB. Response for: " + topic
}

func (r *Runner) finish(ctx context.Context, runID, status, summary string) {
	if r.Store == nil {
		return
	}
	if err := r.Store.FinishRun(ctx, runID, status, summary); err != nil {
		r.logger().Warnw("finish run", "run_id", runID, "error", err)
	}
}

func (r *Runner) logger() *zap.SugaredLogger {
	return logging.OrNop(r.Log)
}

func (r *Runner) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func summarize(s string) string {
	const limit = 200
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
