package llm

import (
	"context"
	"strings"
)

const offlineNotice = "_Generated offline: no language model was configured, so this report contains the collected analysis only._"

// Offline answers without a model. The collected context is returned as is,
// which keeps reports useful when no API key is available.
type Offline struct{}

func (Offline) Name() string { return "offline" }

func (Offline) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var parts []string
	for _, c := range req.Context {
		if c = strings.TrimSpace(c); c != "" {
			parts = append(parts, c)
		}
	}
	if len(parts) == 0 {
		return offlineNotice + "\n\n" + strings.TrimSpace(req.Prompt), nil
	}
	return offlineNotice + "\n\n" + strings.Join(parts, "\n\n"), nil
}
