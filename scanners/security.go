package scanners

import (
	"context"
	"regexp"
	"strings"

	"github.com/JA3G3R/reviewcrew/types"
)

type vulnClass struct {
	Name           string
	Severity       types.Severity
	Description    string
	Recommendation string
	Patterns       []*regexp.Regexp
}

func patterns(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(`(?i)` + e)
	}
	return out
}

// Line patterns run in this order, so findings on one line follow it too.
var vulnClasses = []vulnClass{
	{
		Name:           "Hardcoded Secrets",
		Severity:       types.SevHigh,
		Description:    "Hardcoded credentials or secrets found",
		Recommendation: "Use environment variables or secure key management systems",
		Patterns: patterns(
			`password\s*=\s*["'][^"']{8,}["']`,
			`api_key\s*=\s*["'][^"']{20,}["']`,
			`secret\s*=\s*["'][^"']{10,}["']`,
			`token\s*=\s*["'][^"']{20,}["']`,
		),
	},
	{
		Name:           "SQL Injection",
		Severity:       types.SevCritical,
		Description:    "Potential SQL injection vulnerability detected",
		Recommendation: "Use parameterized queries or prepared statements",
		Patterns: patterns(
			`execute\s*\(\s*["'].*%.*["']`,
			`query\s*\(\s*["'].*\+.*["']`,
			`SELECT.*\+.*FROM`,
			`INSERT.*\+.*VALUES`,
		),
	},
	{
		Name:           "Command Injection",
		Severity:       types.SevCritical,
		Description:    "Command injection vulnerability detected",
		Recommendation: "Avoid executing user input as commands, use safer alternatives",
		Patterns: patterns(
			`os\.system\s*\(`,
			`subprocess\.(call|run|Popen).*shell\s*=\s*True`,
			`exec\s*\(`,
			`eval\s*\(`,
		),
	},
	{
		Name:           "Path Traversal",
		Severity:       types.SevHigh,
		Description:    "Path traversal vulnerability detected",
		Recommendation: "Validate and sanitize file paths, use allowlists",
		Patterns: patterns(
			`open\s*\(\s*.*\.\./.*\)`,
			`file\s*\(\s*.*\.\./.*\)`,
			`include\s*\(\s*.*\.\./.*\)`,
		),
	},
}

// SecurityAnalyzer flags unsafe patterns with a fixed severity per class.
type SecurityAnalyzer struct{}

func NewSecurityAnalyzer() *SecurityAnalyzer { return &SecurityAnalyzer{} }

func (a *SecurityAnalyzer) Name() string { return "security" }

func (a *SecurityAnalyzer) Analyze(ctx context.Context, f types.FileRecord) []types.Finding {
	var out []types.Finding
	for i, line := range splitLines(f.Content) {
		for _, vc := range vulnClasses {
			for _, re := range vc.Patterns {
				if re.MatchString(line) {
					out = append(out, lineFinding(a.Name(), f, i+1, vc.Name, vc.Severity,
						vc.Description, vc.Recommendation, strings.TrimSpace(line)))
				}
			}
		}
	}

	switch f.Language {
	case "python":
		if strings.Contains(f.Content, "pickle.load") {
			out = append(out, lineFinding(a.Name(), f, 0, "Deserialization", types.SevHigh,
				"Pickle deserialization can execute arbitrary code",
				"Use safer serialization formats like JSON",
				"pickle.load/loads usage detected"))
		}
	case "javascript":
		if strings.Contains(f.Content, "innerHTML") {
			out = append(out, lineFinding(a.Name(), f, 0, "XSS", types.SevMedium,
				"innerHTML can lead to XSS vulnerabilities",
				"Use textContent or properly sanitize input",
				"innerHTML usage detected"))
		}
	case "terraform":
		if !f.Truncated {
			out = append(out, ScanTerraformPolicies(f.Path, []byte(f.Content))...)
		}
	}

	types.SortFindings(out)
	return out
}
