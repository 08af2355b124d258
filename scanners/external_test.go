package scanners

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/JA3G3R/reviewcrew/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptTool resolves every binary to a shell script that prints out and
// exits with code, the way linters do when they report issues.
func scriptTool(t *testing.T, out string, code int) *ExternalTool {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs /bin/sh")
	}
	dir := t.TempDir()
	payload := filepath.Join(dir, "out.json")
	require.NoError(t, os.WriteFile(payload, []byte(out), 0o644))

	script := filepath.Join(dir, "tool")
	body := fmt.Sprintf("#!/bin/sh\ncat '%s'\nexit %d\n", payload, code)
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))

	tool := NewExternalTool(10*time.Second, nil)
	tool.lookPath = func(string) (string, error) { return script, nil }
	return tool
}

func TestExternalToolExitStatus(t *testing.T) {
	tests := []struct {
		name   string
		stdout string
		code   int
		ok     bool
	}{
		{"clean exit", `[]`, 0, true},
		{"issues found", `[{"type":"warning"}]`, 6, true},
		{"failure without output", ``, 1, false},
		{"clean exit without output", ``, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, ok := scriptTool(t, tt.stdout, tt.code).Run(context.Background(), "pylint", "x.py")
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.stdout, string(out))
		})
	}
}

const pylintOutput = `[
  {"type": "warning", "line": 4, "column": 0, "symbol": "unused-variable", "message": "Unused variable 'x'"},
  {"type": "error", "line": 1, "column": 7, "symbol": "import-error", "message": "Unable to import 'nope'"}
]`

func TestStaticPylintFindings(t *testing.T) {
	a := NewStaticAnalyzer(0, scriptTool(t, pylintOutput, 6))
	got := a.Analyze(context.Background(), record("app.py", "python", "x = 1\n"))

	require.Len(t, got, 2)
	assert.Equal(t, "Pylint error", got[0].Rule)
	assert.Equal(t, types.SevCritical, got[0].Severity)
	assert.Equal(t, 1, got[0].Line)
	assert.Equal(t, 7, got[0].Column)
	assert.Equal(t, "Pylint import-error: Unable to import 'nope'", got[0].Suggestion)

	assert.Equal(t, "Pylint warning", got[1].Rule)
	assert.Equal(t, types.SevMedium, got[1].Severity)
	assert.Equal(t, 4, got[1].Line)
	assert.Equal(t, "app.py", got[1].File)
}

func TestStaticPylintIgnoresGarbage(t *testing.T) {
	a := NewStaticAnalyzer(0, scriptTool(t, "************* Module app\n", 16))
	got := a.Analyze(context.Background(), record("app.py", "python", "x = 1\n"))
	assert.Empty(t, got)
}

func TestPylintSeverity(t *testing.T) {
	tests := map[string]types.Severity{
		"error":      types.SevCritical,
		"Fatal":      types.SevCritical,
		"warning":    types.SevMedium,
		"refactor":   types.SevLow,
		"convention": types.SevLow,
		"info":       types.SevLow,
		"something":  types.SevMedium,
	}
	for kind, want := range tests {
		assert.Equal(t, want, pylintSeverity(kind), kind)
	}
}

const radonOutput = `{"app.py": [
  {"name": "big", "lineno": 8, "complexity": 14, "rank": "C"},
  {"name": "small", "lineno": 2, "complexity": 3, "rank": "A"},
  {"name": "edge", "lineno": 20, "complexity": 10, "rank": "B"}
]}`

func TestComplexityRadon(t *testing.T) {
	ctx := context.Background()
	a := NewComplexityAnalyzer(scriptTool(t, radonOutput, 0))
	f := record("app.py", "python", "def small():\n    pass\n")

	c := a.Measure(ctx, f)
	assert.Equal(t, "radon", c.Source)
	assert.Equal(t, 14, c.Score)
	assert.Equal(t, BandHigh, c.Band)
	require.Len(t, c.Functions, 3)
	assert.Equal(t, []string{"small", "big", "edge"},
		[]string{c.Functions[0].Name, c.Functions[1].Name, c.Functions[2].Name})

	// only functions above the limit are reported
	got := a.Findings(f, c)
	require.Len(t, got, 1)
	assert.Equal(t, 8, got[0].Line)
	assert.Equal(t, types.SevMedium, got[0].Severity)
	assert.Equal(t, "Function big has cyclomatic complexity 14 (grade C)", got[0].Message)
}

func TestComplexityRadonFallsBackToEstimate(t *testing.T) {
	ctx := context.Background()

	// radon reports a different file
	a := NewComplexityAnalyzer(scriptTool(t, radonOutput, 0))
	c := a.Measure(ctx, record("other.py", "python", "if x:\n    pass\n"))
	assert.Equal(t, "estimate", c.Source)
	assert.Equal(t, 2, c.Score)

	// radon is never consulted for other languages
	c = a.Measure(ctx, record("app.js", "javascript", "if (x) {}\n"))
	assert.Equal(t, "estimate", c.Source)

	a = NewComplexityAnalyzer(scriptTool(t, "not json", 1))
	c = a.Measure(ctx, record("app.py", "python", ""))
	assert.Equal(t, "estimate", c.Source)
	assert.Equal(t, BandLow, c.Band)
}
