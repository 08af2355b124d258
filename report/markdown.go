package report

import (
	"fmt"
	"strings"

	"github.com/JA3G3R/reviewcrew/scanners"
	"github.com/JA3G3R/reviewcrew/types"
)

// Kind selects the headings and wording of a per-file analyzer report.
type Kind string

const (
	Static      Kind = "static"
	Security    Kind = "security"
	Performance Kind = "performance"
)

type wording struct {
	title    string
	noIssues string
	noun     string
	group    string
}

var wordings = map[Kind]wording{
	Static:      {"Static Analysis", "No issues found! ✅", "issues", "Issues"},
	Security:    {"Security Analysis", "No security issues detected! ✅", "vulnerabilities", "Vulnerabilities"},
	Performance: {"Performance Analysis", "No performance issues detected! ✅", "performance issues", "Priority"},
}

// Markdown renders one analyzer's findings for one file, grouped by severity
// in the fixed order Critical, High, Medium, Low. Empty groups are omitted.
func Markdown(kind Kind, path string, findings []types.Finding) string {
	w, ok := wordings[kind]
	if !ok {
		w = wordings[Static]
	}
	if len(findings) == 0 {
		return fmt.Sprintf("## %s: %s\n\n%s", w.title, path, w.noIssues)
	}

	bySeverity := make(map[types.Severity][]types.Finding)
	for _, f := range findings {
		bySeverity[f.Severity] = append(bySeverity[f.Severity], f)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s: %s\n\n", w.title, path)
	fmt.Fprintf(&b, "**Total %s found:** %d\n\n", w.noun, len(findings))
	for _, sev := range types.Severities() {
		group := bySeverity[sev]
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(&b, "### %s %s (%d)\n\n", sev, w.group, len(group))
		for _, f := range group {
			writeItem(&b, kind, f)
		}
	}
	return b.String()
}

func writeItem(b *strings.Builder, kind Kind, f types.Finding) {
	switch kind {
	case Security:
		fmt.Fprintf(b, "**%s** (%s)\n", f.Rule, lineLabel(f.Line))
		fmt.Fprintf(b, "- **Description:** %s\n", f.Message)
		if f.Code != "" {
			fmt.Fprintf(b, "- **Code:** `%s`\n", f.Code)
		}
		if f.BlockRef != "" {
			fmt.Fprintf(b, "- **Block:** %s", f.BlockRef)
			if f.StatementID != "" {
				fmt.Fprintf(b, " (statement %s)", f.StatementID)
			}
			b.WriteString("\n")
		}
		fmt.Fprintf(b, "- **Recommendation:** %s\n\n", f.Suggestion)
	case Performance:
		fmt.Fprintf(b, "**%s** - %s\n", lineLabel(f.Line), f.Rule)
		fmt.Fprintf(b, "- **Issue:** %s\n", f.Message)
		if f.Code != "" {
			fmt.Fprintf(b, "- **Code:** `%s`\n", f.Code)
		}
		fmt.Fprintf(b, "- **Suggestion:** %s\n\n", f.Suggestion)
	default:
		fmt.Fprintf(b, "**%s** - %s\n", lineLabel(f.Line), f.Rule)
		fmt.Fprintf(b, "- **Issue:** %s\n", f.Message)
		if f.Code != "" {
			fmt.Fprintf(b, "- **Code:** `%s`\n", f.Code)
		}
		fmt.Fprintf(b, "- **Suggestion:** %s\n\n", f.Suggestion)
	}
}

func lineLabel(line int) string {
	if line <= 0 {
		return "Whole file"
	}
	return fmt.Sprintf("Line %d", line)
}

// Inventory summarizes discovered files grouped by language in first-seen
// order.
func Inventory(files []types.FileRecord) string {
	if len(files) == 0 {
		return "No supported code files found."
	}

	var order []string
	byLanguage := make(map[string][]types.FileRecord)
	var unreadable []types.FileRecord
	for _, f := range files {
		if !f.Readable() {
			unreadable = append(unreadable, f)
			continue
		}
		if _, seen := byLanguage[f.Language]; !seen {
			order = append(order, f.Language)
		}
		byLanguage[f.Language] = append(byLanguage[f.Language], f)
	}

	var b strings.Builder
	b.WriteString("# Code Files Inventory\n\n")
	fmt.Fprintf(&b, "**Total files found:** %d\n\n", len(files))
	b.WriteString("## Files by Language\n\n")
	for _, lang := range order {
		group := byLanguage[lang]
		total := 0
		for _, f := range group {
			total += f.LinesOfCode
		}
		fmt.Fprintf(&b, "### %s\n", titleCase(lang))
		fmt.Fprintf(&b, "- **Files:** %d\n", len(group))
		fmt.Fprintf(&b, "- **Total Lines:** %d\n\n", total)
		for _, f := range group {
			fmt.Fprintf(&b, "**%s**\n", f.Path)
			fmt.Fprintf(&b, "- Size: %d bytes\n", f.SizeBytes)
			fmt.Fprintf(&b, "- Lines: %d\n\n", f.LinesOfCode)
		}
	}

	if len(unreadable) > 0 {
		b.WriteString("## Unreadable Files\n\n")
		for _, f := range unreadable {
			fmt.Fprintf(&b, "- %s: %s\n", f.Path, f.Err)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Complexity renders radon's function table when available, otherwise the
// estimated score with its band.
func Complexity(path string, c scanners.Complexity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Complexity Analysis: %s\n\n", path)

	if c.Source == "radon" {
		if len(c.Functions) > 0 {
			b.WriteString("### Function Complexity\n\n")
			for _, fn := range c.Functions {
				fmt.Fprintf(&b, "**%s** (Line %d)\n", fn.Name, fn.Line)
				fmt.Fprintf(&b, "- Complexity: %d\n", fn.Complexity)
				fmt.Fprintf(&b, "- Grade: %s\n\n", fn.Rank)
			}
		}
		return b.String()
	}

	fmt.Fprintf(&b, "**Estimated Cyclomatic Complexity:** %d\n\n", c.Score)
	switch c.Band {
	case scanners.BandHigh:
		b.WriteString("⚠️ **High Complexity Warning**\n")
		b.WriteString("This file has high complexity. Consider refactoring into smaller functions.\n\n")
	case scanners.BandModerate:
		b.WriteString("⚡ **Moderate Complexity**\n")
		b.WriteString("This file has moderate complexity. Monitor for further growth.\n\n")
	default:
		b.WriteString("✅ **Low Complexity**\n")
		b.WriteString("This file has acceptable complexity.\n\n")
	}
	return b.String()
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
