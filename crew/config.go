package crew

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// AgentConfig is one agent definition as written in agents.yaml or
// agents.toml.
type AgentConfig struct {
	Name      string   `yaml:"-" toml:"name"`
	Role      string   `yaml:"role" toml:"role"`
	Goal      string   `yaml:"goal" toml:"goal"`
	Backstory string   `yaml:"backstory" toml:"backstory"`
	Tools     []string `yaml:"tools" toml:"tools"`
}

// TaskConfig is one task definition. Order in the file is execution order.
type TaskConfig struct {
	Name           string   `yaml:"-" toml:"name"`
	Description    string   `yaml:"description" toml:"description"`
	ExpectedOutput string   `yaml:"expected_output" toml:"expected_output"`
	Agent          string   `yaml:"agent" toml:"agent"`
	OutputFile     string   `yaml:"output_file" toml:"output_file"`
	Context        []string `yaml:"context" toml:"context"`
}

// LoadAgents reads agent definitions from a .yaml/.yml or .toml file.
func LoadAgents(path string) ([]AgentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read agents: %w", err)
	}
	return ParseAgents(data, formatOf(path))
}

// LoadTasks reads task definitions from a .yaml/.yml or .toml file.
func LoadTasks(path string) ([]TaskConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tasks: %w", err)
	}
	return ParseTasks(data, formatOf(path))
}

// Definitions loads agents and tasks from the given files. An empty path
// falls back to agents.yaml or tasks.yaml in defaults.
func Definitions(defaults fs.FS, agentsFile, tasksFile string) ([]AgentConfig, []TaskConfig, error) {
	var (
		agents []AgentConfig
		tasks  []TaskConfig
		err    error
	)
	if agentsFile != "" {
		agents, err = LoadAgents(agentsFile)
	} else {
		agents, err = parseEmbedded(defaults, "agents.yaml", ParseAgents)
	}
	if err != nil {
		return nil, nil, err
	}
	if tasksFile != "" {
		tasks, err = LoadTasks(tasksFile)
	} else {
		tasks, err = parseEmbedded(defaults, "tasks.yaml", ParseTasks)
	}
	if err != nil {
		return nil, nil, err
	}
	return agents, tasks, nil
}

func parseEmbedded[T any](fsys fs.FS, name string, parse func([]byte, string) ([]T, error)) ([]T, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read built-in %s: %w", name, err)
	}
	return parse(data, "yaml")
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return "toml"
	default:
		return "yaml"
	}
}

// ParseAgents decodes agents. YAML files are a mapping keyed by agent name;
// TOML files use [[agent]] tables with a name key.
func ParseAgents(data []byte, format string) ([]AgentConfig, error) {
	if format == "toml" {
		var file struct {
			Agents []AgentConfig `toml:"agent"`
		}
		if err := toml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse agents toml: %w", err)
		}
		return file.Agents, checkNames("agent", namesOf(file.Agents, func(a AgentConfig) string { return a.Name }))
	}

	var out []AgentConfig
	err := decodeOrderedYAML(data, func(name string, node *yaml.Node) error {
		var a AgentConfig
		if err := node.Decode(&a); err != nil {
			return err
		}
		a.Name = name
		out = append(out, a)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse agents yaml: %w", err)
	}
	return out, nil
}

// ParseTasks decodes tasks; see ParseAgents for the file layouts.
func ParseTasks(data []byte, format string) ([]TaskConfig, error) {
	if format == "toml" {
		var file struct {
			Tasks []TaskConfig `toml:"task"`
		}
		if err := toml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse tasks toml: %w", err)
		}
		return file.Tasks, checkNames("task", namesOf(file.Tasks, func(t TaskConfig) string { return t.Name }))
	}

	var out []TaskConfig
	err := decodeOrderedYAML(data, func(name string, node *yaml.Node) error {
		var t TaskConfig
		if err := node.Decode(&t); err != nil {
			return err
		}
		t.Name = name
		out = append(out, t)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse tasks yaml: %w", err)
	}
	return out, nil
}

// decodeOrderedYAML walks a top-level mapping in document order.
func decodeOrderedYAML(data []byte, fn func(name string, node *yaml.Node) error) error {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	if len(doc.Content) == 0 {
		return nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping of names to definitions", root.Line)
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		if err := fn(root.Content[i].Value, root.Content[i+1]); err != nil {
			return fmt.Errorf("%s: %w", root.Content[i].Value, err)
		}
	}
	return nil
}

func namesOf[T any](items []T, name func(T) string) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = name(it)
	}
	return out
}

func checkNames(kind string, names []string) error {
	seen := make(map[string]bool, len(names))
	for i, n := range names {
		if n == "" {
			return fmt.Errorf("%s #%d has no name", kind, i+1)
		}
		if seen[n] {
			return fmt.Errorf("duplicate %s %q", kind, n)
		}
		seen[n] = true
	}
	return nil
}

// Build resolves agent and tool references into runnable agents and tasks.
func Build(agentCfgs []AgentConfig, taskCfgs []TaskConfig, tools map[string]Tool) ([]*Agent, []Task, error) {
	byName := make(map[string]*Agent, len(agentCfgs))
	agents := make([]*Agent, 0, len(agentCfgs))
	for _, ac := range agentCfgs {
		a := &Agent{Name: ac.Name, Role: ac.Role, Goal: ac.Goal, Backstory: ac.Backstory}
		for _, tn := range ac.Tools {
			tool, ok := tools[tn]
			if !ok {
				return nil, nil, fmt.Errorf("agent %q: unknown tool %q", ac.Name, tn)
			}
			a.Tools = append(a.Tools, tool)
		}
		byName[ac.Name] = a
		agents = append(agents, a)
	}

	tasks := make([]Task, 0, len(taskCfgs))
	defined := make(map[string]bool, len(taskCfgs))
	for _, tc := range taskCfgs {
		agent, ok := byName[tc.Agent]
		if !ok {
			return nil, nil, fmt.Errorf("task %q: unknown agent %q", tc.Name, tc.Agent)
		}
		for _, dep := range tc.Context {
			if !defined[dep] {
				return nil, nil, fmt.Errorf("task %q: context %q is not an earlier task", tc.Name, dep)
			}
		}
		tasks = append(tasks, Task{
			Name:           tc.Name,
			Description:    tc.Description,
			ExpectedOutput: tc.ExpectedOutput,
			Agent:          agent,
			OutputFile:     tc.OutputFile,
			Context:        tc.Context,
		})
		defined[tc.Name] = true
	}
	if len(tasks) == 0 {
		return nil, nil, ErrNoTasks
	}
	return agents, tasks, nil
}
