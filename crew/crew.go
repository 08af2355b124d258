package crew

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/JA3G3R/reviewcrew/eventlog"
	"github.com/JA3G3R/reviewcrew/llm"
	"github.com/JA3G3R/reviewcrew/logging"
	"go.uber.org/zap"
)

var (
	ErrNoTasks     = errors.New("crew has no tasks")
	ErrUnknownTask = errors.New("unknown task")
)

// TimestampFormat is used for the {timestamp} placeholder.
const TimestampFormat = "20060102_150405"

// Tool gathers context for an agent before it answers.
type Tool interface {
	Name() string
	Description() string
	Run(ctx context.Context, inputs map[string]string) (string, error)
}

type Agent struct {
	Name      string
	Role      string
	Goal      string
	Backstory string
	Tools     []Tool
}

type Task struct {
	Name           string
	Description    string
	ExpectedOutput string
	Agent          *Agent
	OutputFile     string   // relative to the crew's OutputDir unless absolute
	Context        []string // earlier task names; defaults to the previous task
}

type TaskOutput struct {
	Task       string `json:"task"`
	Agent      string `json:"agent"`
	Output     string `json:"output"`
	OutputFile string `json:"output_file,omitempty"`
}

type Result struct {
	Raw   string
	Tasks []TaskOutput
}

func (r Result) String() string { return r.Raw }

// EventSink receives lifecycle events. *eventlog.EventLog satisfies it.
type EventSink interface {
	Emit(eventlog.Event) error
}

// Crew runs its tasks sequentially, feeding each task the outputs of the
// tasks it depends on.
type Crew struct {
	Name      string
	Agents    []*Agent
	Tasks     []Task
	Generator llm.Generator
	OutputDir string
	RunID     string

	BeforeKickoff func(inputs map[string]string) (map[string]string, error)
	AfterKickoff  func(result Result) (Result, error)

	Events EventSink
	Log    *zap.SugaredLogger
	Now    func() time.Time
}

// Kickoff interpolates inputs into every agent and task, then runs the tasks
// in order. The first failing task aborts the run.
func (c *Crew) Kickoff(ctx context.Context, inputs map[string]string) (Result, error) {
	return c.run(ctx, inputs, 0, nil)
}

// Replay re-runs the crew starting at fromTask. Outputs of earlier tasks are
// taken from prior instead of being regenerated.
func (c *Crew) Replay(ctx context.Context, inputs map[string]string, fromTask string, prior []TaskOutput) (Result, error) {
	start := -1
	for i, t := range c.Tasks {
		if t.Name == fromTask {
			start = i
			break
		}
	}
	if start < 0 {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownTask, fromTask)
	}
	return c.run(ctx, inputs, start, prior)
}

func (c *Crew) run(ctx context.Context, inputs map[string]string, start int, prior []TaskOutput) (Result, error) {
	if len(c.Tasks) == 0 {
		return Result{}, ErrNoTasks
	}
	if c.Generator == nil {
		return Result{}, errors.New("crew has no generator")
	}
	log := logging.OrNop(c.Log)
	now := c.Now
	if now == nil {
		now = time.Now
	}

	vars := make(map[string]string, len(inputs)+1)
	for k, v := range inputs {
		vars[k] = v
	}
	if c.BeforeKickoff != nil {
		var err error
		if vars, err = c.BeforeKickoff(vars); err != nil {
			return Result{}, fmt.Errorf("before kickoff: %w", err)
		}
		if vars == nil {
			vars = make(map[string]string, 1)
		}
	}
	if _, ok := vars["timestamp"]; !ok {
		vars["timestamp"] = now().Format(TimestampFormat)
	}

	began := now()
	c.emit(eventlog.Event{Type: eventlog.KickoffStarted, Detail: fmt.Sprintf("%d tasks from %q", len(c.Tasks)-start, c.Tasks[start].Name)})
	log.Infow("crew kickoff", "crew", c.Name, "tasks", len(c.Tasks)-start)

	outputs := make(map[string]string, len(c.Tasks))
	var result Result
	for i := 0; i < start; i++ {
		for _, p := range prior {
			if p.Task == c.Tasks[i].Name {
				outputs[p.Task] = p.Output
				result.Tasks = append(result.Tasks, p)
				break
			}
		}
	}

	for i := start; i < len(c.Tasks); i++ {
		task := c.Tasks[i]
		out, err := c.runTask(ctx, task, i, vars, outputs, log)
		if err != nil {
			c.emit(eventlog.Event{Type: eventlog.KickoffFailed, Task: task.Name, Detail: err.Error()})
			return Result{}, fmt.Errorf("task %q: %w", task.Name, err)
		}
		outputs[task.Name] = out.Output
		result.Tasks = append(result.Tasks, out)
		result.Raw = out.Output
	}

	if c.AfterKickoff != nil {
		var err error
		if result, err = c.AfterKickoff(result); err != nil {
			return Result{}, fmt.Errorf("after kickoff: %w", err)
		}
	}
	c.emit(eventlog.Event{Type: eventlog.KickoffFinished, Duration: now().Sub(began).Round(time.Millisecond).String()})
	return result, nil
}

func (c *Crew) runTask(ctx context.Context, task Task, index int, vars, outputs map[string]string, log *zap.SugaredLogger) (TaskOutput, error) {
	if err := ctx.Err(); err != nil {
		return TaskOutput{}, err
	}
	if task.Agent == nil {
		return TaskOutput{}, errors.New("no agent assigned")
	}
	agent := task.Agent
	began := time.Now()
	c.emit(eventlog.Event{Type: eventlog.TaskStarted, Task: task.Name, Agent: agent.Name})
	log.Debugw("task started", "task", task.Name, "agent", agent.Name)

	var blocks []string
	for _, tool := range agent.Tools {
		out, err := tool.Run(ctx, vars)
		if err != nil {
			log.Warnw("tool failed", "tool", tool.Name(), "error", err)
			c.emit(eventlog.Event{Type: eventlog.ToolFailed, Task: task.Name, Agent: agent.Name, Detail: tool.Name() + ": " + err.Error()})
			blocks = append(blocks, fmt.Sprintf("Tool %s failed: %v", tool.Name(), err))
			continue
		}
		blocks = append(blocks, fmt.Sprintf("## Tool: %s\n\n%s", tool.Name(), out))
	}

	deps := task.Context
	if deps == nil && index > 0 {
		deps = []string{c.Tasks[index-1].Name}
	}
	for _, dep := range deps {
		if out, ok := outputs[dep]; ok {
			blocks = append(blocks, fmt.Sprintf("## Output of %s\n\n%s", dep, out))
		}
	}

	req := llm.Request{
		System:  systemPrompt(agent, vars),
		Prompt:  taskPrompt(task, vars),
		Context: blocks,
	}
	text, err := c.Generator.Generate(ctx, req)
	if err != nil {
		return TaskOutput{}, err
	}

	out := TaskOutput{Task: task.Name, Agent: agent.Name, Output: text}
	if task.OutputFile != "" {
		path, err := c.writeOutput(task.OutputFile, vars, text)
		if err != nil {
			return TaskOutput{}, err
		}
		out.OutputFile = path
	}

	c.emit(eventlog.Event{Type: eventlog.TaskFinished, Task: task.Name, Agent: agent.Name, Duration: time.Since(began).Round(time.Millisecond).String()})
	log.Infow("task finished", "task", task.Name, "agent", agent.Name, "output_file", out.OutputFile)
	return out, nil
}

func (c *Crew) writeOutput(name string, vars map[string]string, text string) (string, error) {
	path := Interpolate(name, fileSafe(vars))
	if !filepath.IsAbs(path) && c.OutputDir != "" {
		path = filepath.Join(c.OutputDir, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write output: %w", err)
	}
	return path, nil
}

func (c *Crew) emit(e eventlog.Event) {
	if c.Events == nil {
		return
	}
	e.Crew = c.Name
	e.RunID = c.RunID
	if err := c.Events.Emit(e); err != nil && c.Log != nil {
		c.Log.Debugw("emit event", "error", err)
	}
}

func systemPrompt(a *Agent, vars map[string]string) string {
	return fmt.Sprintf("You are %s. %s\nYour personal goal is: %s",
		strings.TrimSpace(Interpolate(a.Role, vars)),
		strings.TrimSpace(Interpolate(a.Backstory, vars)),
		strings.TrimSpace(Interpolate(a.Goal, vars)))
}

func taskPrompt(t Task, vars map[string]string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(Interpolate(t.Description, vars)))
	if t.ExpectedOutput != "" {
		b.WriteString("\n\nThis is the expected criteria for your final answer: ")
		b.WriteString(strings.TrimSpace(Interpolate(t.ExpectedOutput, vars)))
		b.WriteString("\nYou MUST return the actual complete content as the final answer, not a summary.")
	}
	return b.String()
}

var placeholderRe = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Interpolate replaces {key} with vars[key]. Unknown placeholders are left
// in place.
func Interpolate(s string, vars map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(s, func(m string) string {
		if v, ok := vars[m[1:len(m)-1]]; ok {
			return v
		}
		return m
	})
}

var pathSeparators = strings.NewReplacer("/", "_", `\`, "_")

func fileSafe(vars map[string]string) map[string]string {
	out := make(map[string]string, len(vars))
	for k, v := range vars {
		out[k] = pathSeparators.Replace(v)
	}
	return out
}
