package reviewer

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/JA3G3R/reviewcrew/crew"
	"github.com/JA3G3R/reviewcrew/llm"
	"github.com/JA3G3R/reviewcrew/logging"
	"github.com/JA3G3R/reviewcrew/store"
	"github.com/JA3G3R/reviewcrew/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CrewName is the run kind recorded for code reviews.
const CrewName = "review"

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

// Store is the part of the history store a review writes to.
type Store interface {
	CreateRun(ctx context.Context, run store.RunRecord) error
	FinishRun(ctx context.Context, runID, status, summary string) error
	InsertFindings(ctx context.Context, runID string, findings []types.Finding) error
	InsertTaskOutputs(ctx context.Context, outputs []store.TaskOutputRecord) error
}

// Pipeline scans a path and hands the results to the review crew.
type Pipeline struct {
	Scanner    *Scanner
	Generator  llm.Generator
	Store      Store // optional
	Events     crew.EventSink
	OutputDir  string
	AgentsFile string
	TasksFile  string
	Log        *zap.SugaredLogger
	Now        func() time.Time
}

// Summary describes a finished review.
type Summary struct {
	RunID      string
	Path       string
	Files      int
	Unreadable int
	Findings   int
	Counts     map[types.Severity]int
	Reports    []string
	Result     crew.Result
}

func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Reviewed %d files in %s", s.Files, s.Path)
	if s.Unreadable > 0 {
		fmt.Fprintf(&b, " (%d unreadable)", s.Unreadable)
	}
	fmt.Fprintf(&b, ": %d findings", s.Findings)
	var parts []string
	for _, sev := range types.Severities() {
		if n := s.Counts[sev]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, sev))
		}
	}
	if len(parts) > 0 {
		b.WriteString(" (" + strings.Join(parts, ", ") + ")")
	}
	return b.String()
}

// Crew builds the review crew from the configured or built-in definitions.
func (p *Pipeline) Crew(runID string) (*crew.Crew, error) {
	agentCfgs, taskCfgs, err := crew.Definitions(Defaults(), p.AgentsFile, p.TasksFile)
	if err != nil {
		return nil, err
	}
	agents, tasks, err := crew.Build(agentCfgs, taskCfgs, Tools(p.Scanner))
	if err != nil {
		return nil, err
	}
	return &crew.Crew{
		Name:      CrewName,
		Agents:    agents,
		Tasks:     tasks,
		Generator: p.Generator,
		OutputDir: p.OutputDir,
		RunID:     runID,
		Events:    p.Events,
		Log:       p.Log,
		Now:       p.Now,
	}, nil
}

// Run reviews path: discover, scan, persist findings, then run the crew.
func (p *Pipeline) Run(ctx context.Context, path string) (Summary, error) {
	log := logging.OrNop(p.Log)
	now := p.Now
	if now == nil {
		now = time.Now
	}

	p.Scanner.Forget(path)
	snap, err := p.Scanner.Snapshot(ctx, path)
	if err != nil {
		return Summary{}, err
	}
	findings := snap.Findings(p.Scanner.Complexity)

	sum := Summary{
		RunID:    uuid.NewString(),
		Path:     path,
		Files:    len(snap.Files),
		Findings: len(findings),
		Counts:   types.CountBySeverity(findings),
	}
	for _, f := range snap.Files {
		if !f.Readable() {
			sum.Unreadable++
		}
	}
	log.Infow("scan complete", "path", path, "files", sum.Files, "findings", sum.Findings)

	inputs := map[string]string{"path": path}
	if err := p.startRun(ctx, sum.RunID, path, inputs, findings, now()); err != nil {
		return Summary{}, err
	}

	if p.OutputDir != "" {
		if err := os.MkdirAll(p.OutputDir, 0o755); err != nil {
			return Summary{}, fmt.Errorf("create output dir: %w", err)
		}
	}
	c, err := p.Crew(sum.RunID)
	if err != nil {
		p.finishRun(ctx, sum.RunID, store.RunStatusFailed, err.Error(), log)
		return Summary{}, err
	}
	res, err := c.Kickoff(ctx, inputs)
	if err != nil {
		p.finishRun(ctx, sum.RunID, store.RunStatusFailed, err.Error(), log)
		return Summary{}, err
	}

	sum.Result = res
	for _, t := range res.Tasks {
		if t.OutputFile != "" {
			sum.Reports = append(sum.Reports, t.OutputFile)
		}
	}
	if p.Store != nil {
		if err := p.Store.InsertTaskOutputs(ctx, crew.Records(sum.RunID, res.Tasks, now())); err != nil {
			log.Warnw("store task outputs", "error", err)
		}
	}
	p.finishRun(ctx, sum.RunID, store.RunStatusSucceeded, sum.String(), log)
	return sum, nil
}

func (p *Pipeline) startRun(ctx context.Context, runID, path string, inputs map[string]string, findings []types.Finding, at time.Time) error {
	if p.Store == nil {
		return nil
	}
	raw, err := json.Marshal(inputs)
	if err != nil {
		return err
	}
	if err := p.Store.CreateRun(ctx, store.RunRecord{
		RunID:      runID,
		Kind:       CrewName,
		Target:     path,
		StartedAt:  at,
		InputsJSON: string(raw),
	}); err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	if err := p.Store.InsertFindings(ctx, runID, findings); err != nil {
		return fmt.Errorf("store findings: %w", err)
	}
	return nil
}

func (p *Pipeline) finishRun(ctx context.Context, runID, status, summary string, log *zap.SugaredLogger) {
	if p.Store == nil {
		return
	}
	if err := p.Store.FinishRun(ctx, runID, status, summary); err != nil {
		log.Warnw("finish run", "run_id", runID, "error", err)
	}
}
