package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/JA3G3R/reviewcrew/scanners"
	"github.com/JA3G3R/reviewcrew/types"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownEmpty(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{Static, "## Static Analysis: a.py\n\nNo issues found! ✅"},
		{Security, "## Security Analysis: a.py\n\nNo security issues detected! ✅"},
		{Performance, "## Performance Analysis: a.py\n\nNo performance issues detected! ✅"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, Markdown(tt.kind, "a.py", nil))
		})
	}
}

func TestMarkdownGroupsBySeverityInFixedOrder(t *testing.T) {
	findings := []types.Finding{
		{Rule: "Style", Severity: types.SevLow, Line: 9, Message: "long", Suggestion: "wrap"},
		{Rule: "Syntax Error", Severity: types.SevCritical, Line: 1, Message: "bad", Suggestion: "fix"},
		{Rule: "Code Quality", Severity: types.SevLow, Line: 3, Message: "todo", Suggestion: "do it"},
	}
	out := Markdown(Static, "a.py", findings)

	assert.Contains(t, out, "**Total issues found:** 3")
	assert.NotContains(t, out, "### High")
	assert.NotContains(t, out, "### Medium")

	critical := strings.Index(out, "### Critical Issues (1)")
	low := strings.Index(out, "### Low Issues (2)")
	require.True(t, critical >= 0 && low >= 0)
	assert.Less(t, critical, low)

	// discovery order is kept inside a group
	assert.Less(t, strings.Index(out, "**Line 9** - Style"), strings.Index(out, "**Line 3** - Code Quality"))
}

func TestMarkdownSecurityItem(t *testing.T) {
	out := Markdown(Security, "main.tf", []types.Finding{{
		Rule: "IAM Wildcard", Severity: types.SevHigh, Line: 4,
		Message: "wildcard", Suggestion: "scope it",
		BlockRef: "resource.aws_iam_policy.admin", StatementID: "#1",
	}})

	assert.Contains(t, out, "**Total vulnerabilities found:** 1")
	assert.Contains(t, out, "### High Vulnerabilities (1)")
	assert.Contains(t, out, "**IAM Wildcard** (Line 4)")
	assert.Contains(t, out, "- **Block:** resource.aws_iam_policy.admin (statement #1)")
}

func TestMarkdownPerformanceWording(t *testing.T) {
	out := Markdown(Performance, "a.py", []types.Finding{{
		Rule: "Algorithmic Complexity", Severity: types.SevHigh, Line: 3, Code: "for c in zs:",
	}})
	assert.Contains(t, out, "**Total performance issues found:** 1")
	assert.Contains(t, out, "### High Priority (1)")
	assert.Contains(t, out, "- **Code:** `for c in zs:`")
}

func TestInventory(t *testing.T) {
	assert.Equal(t, "No supported code files found.", Inventory(nil))

	out := Inventory([]types.FileRecord{
		{Path: "b.py", Language: "python", SizeBytes: 10, LinesOfCode: 2},
		{Path: "a.js", Language: "javascript", SizeBytes: 5, LinesOfCode: 1},
		{Path: "c.py", Language: "python", SizeBytes: 20, LinesOfCode: 4},
		{Path: "d.py", Language: "python", Err: "could not read file: denied"},
	})

	assert.Contains(t, out, "**Total files found:** 4")
	assert.Contains(t, out, "### Python\n- **Files:** 2\n- **Total Lines:** 6")
	assert.Less(t, strings.Index(out, "### Python"), strings.Index(out, "### Javascript"))
	assert.Contains(t, out, "## Unreadable Files\n\n- d.py: could not read file: denied")
}

func TestComplexityReport(t *testing.T) {
	out := Complexity("a.py", scanners.Complexity{Score: 12, Band: scanners.BandHigh, Source: "estimate"})
	assert.Contains(t, out, "**Estimated Cyclomatic Complexity:** 12")
	assert.Contains(t, out, "High Complexity Warning")

	out = Complexity("a.py", scanners.Complexity{Source: "radon", Functions: []scanners.FunctionComplexity{
		{Name: "run", Line: 3, Complexity: 4, Rank: "A"},
	}})
	assert.Contains(t, out, "**run** (Line 3)\n- Complexity: 4\n- Grade: A")
}

func TestTableAndJSON(t *testing.T) {
	findings := []types.Finding{{Scanner: "security", Rule: "XSS", Severity: types.SevMedium, File: "a.js", Message: "innerHTML"}}

	var buf bytes.Buffer
	require.NoError(t, Table(&buf, findings))
	assert.Contains(t, buf.String(), "SEVERITY")
	assert.Contains(t, buf.String(), "a.js:0")

	buf.Reset()
	require.NoError(t, JSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())

	buf.Reset()
	require.NoError(t, JSON(&buf, findings))
	var back []types.Finding
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	if diff := cmp.Diff(findings, back); diff != "" {
		t.Errorf("JSON round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSARIF(t *testing.T) {
	log := SARIF([]types.Finding{
		{Scanner: "security", Rule: "SQL Injection", Severity: types.SevCritical, File: "./app/db.py", Line: 7, Message: "sql"},
		{Scanner: "static", Rule: "Style", Severity: types.SevLow, File: "../x.go", Line: 0, Message: "long"},
	}, "reviewcrew", "dev")

	require.Len(t, log.Runs, 1)
	res := log.Runs[0].Results
	require.Len(t, res, 2)
	assert.Equal(t, "2.1.0", log.Version)
	assert.Equal(t, "security/sql-injection", res[0].RuleID)
	assert.Equal(t, "error", res[0].Level)
	assert.Equal(t, "app/db.py", res[0].Locations[0].PhysicalLocation.ArtifactLocation.URI)
	assert.Equal(t, "note", res[1].Level)
	assert.Equal(t, 1, res[1].Locations[0].PhysicalLocation.Region.StartLine)
	assert.Equal(t, "x.go", res[1].Locations[0].PhysicalLocation.ArtifactLocation.URI)
}

func TestWriteSARIF(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteSARIF(nil, dir, "scan", "reviewcrew", "dev")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "scan.sarif"))
}

func TestHTMLSanitizes(t *testing.T) {
	out, err := HTML("# Title\n\n<script>alert(1)</script>\n\n- item")
	require.NoError(t, err)
	assert.Contains(t, string(out), "<h1")
	assert.Contains(t, string(out), "<li>item</li>")
	assert.NotContains(t, string(out), "<script>")
}
