package scanners

import (
	"bytes"
	"context"
	"os/exec"
	"time"

	"github.com/JA3G3R/reviewcrew/logging"
	"go.uber.org/zap"
)

// ExternalTool runs optional helper binaries such as pylint or radon.
// Any failure is logged at debug level and reported as "no output"; a nil
// *ExternalTool disables every optional tool.
type ExternalTool struct {
	Timeout time.Duration
	Log     *zap.SugaredLogger

	lookPath func(string) (string, error)
}

func NewExternalTool(timeout time.Duration, log *zap.SugaredLogger) *ExternalTool {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	log = logging.OrNop(log)
	return &ExternalTool{Timeout: timeout, Log: log, lookPath: exec.LookPath}
}

// Run returns stdout and true when the tool produced any. Linters exit
// non-zero when they find issues, so the exit status alone is not a failure.
func (t *ExternalTool) Run(ctx context.Context, name string, args ...string) ([]byte, bool) {
	if t == nil {
		return nil, false
	}
	lookPath := t.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	bin, err := lookPath(name)
	if err != nil {
		t.Log.Debugw("optional tool not installed", "tool", name)
		return nil, false
	}

	ctx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	if ctx.Err() != nil {
		t.Log.Debugw("optional tool timed out", "tool", name, "timeout", t.Timeout)
		return nil, false
	}
	if stdout.Len() == 0 {
		if err != nil {
			t.Log.Debugw("optional tool failed", "tool", name, "error", err, "stderr", stderr.String())
		}
		return nil, false
	}
	return stdout.Bytes(), true
}
