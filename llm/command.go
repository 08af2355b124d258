package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// Command delegates generation to an external CLI. The request is written
// to stdin as JSON and stdout is taken as the answer.
type Command struct {
	command []string
}

func NewCommand(command []string) (*Command, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("llm command not configured")
	}
	return &Command{command: command}, nil
}

func (c *Command) Name() string {
	return "command:" + c.command[0]
}

func (c *Command) Generate(ctx context.Context, req Request) (string, error) {
	cmd := exec.CommandContext(ctx, c.command[0], c.command[1:]...)
	stdin := &bytes.Buffer{}
	if err := json.NewEncoder(stdin).Encode(req); err != nil {
		return "", err
	}
	cmd.Stdin = stdin

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("llm command failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	text := strings.TrimSpace(stdout.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
