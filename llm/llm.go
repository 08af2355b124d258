package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/JA3G3R/reviewcrew/logging"
	"go.uber.org/zap"
)

const DefaultModel = "gemini-2.0-flash"

var ErrEmptyResponse = errors.New("model returned an empty response")

// Request is one agent turn. Context carries tool output and earlier task
// results, in order.
type Request struct {
	System  string   `json:"system"`
	Prompt  string   `json:"prompt"`
	Context []string `json:"context,omitempty"`
}

// Generator turns a request into text.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

type Options struct {
	Model   string
	APIKey  string
	Command string // external CLI, takes precedence when set
	Offline bool
	Log     *zap.SugaredLogger
}

// New picks a generator: an external command when configured, Gemini when
// an API key is available, otherwise the offline generator.
func New(ctx context.Context, opts Options) (Generator, error) {
	log := logging.OrNop(opts.Log)
	switch {
	case opts.Offline:
		log.Debugw("using offline generator")
		return Offline{}, nil
	case strings.TrimSpace(opts.Command) != "":
		log.Debugw("using command generator", "command", opts.Command)
		return NewCommand(strings.Fields(opts.Command))
	case opts.APIKey != "":
		log.Debugw("using gemini generator", "model", opts.Model)
		return NewGemini(ctx, opts.APIKey, opts.Model)
	default:
		log.Warnw("no API key or llm_command configured, using offline generator")
		return Offline{}, nil
	}
}

// userText renders the prompt followed by its context blocks.
func userText(req Request) string {
	if len(req.Context) == 0 {
		return req.Prompt
	}
	var b strings.Builder
	b.WriteString(req.Prompt)
	b.WriteString("\n\n# Context\n")
	for _, c := range req.Context {
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(c))
		b.WriteString("\n")
	}
	return b.String()
}
