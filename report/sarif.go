package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JA3G3R/reviewcrew/types"
)

const sarifSchema = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"

type Log struct {
	Version string `json:"version"`
	Schema  string `json:"$schema"`
	Runs    []Run  `json:"runs"`
}

type Run struct {
	Tool    Tool     `json:"tool"`
	Results []Result `json:"results"`
}

type Tool struct {
	Driver Driver `json:"driver"`
}

type Driver struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type Result struct {
	RuleID    string     `json:"ruleId"`
	Message   Message    `json:"message"`
	Level     string     `json:"level"` // error, warning, note
	Locations []Location `json:"locations"`
}

type Message struct {
	Text string `json:"text"`
}

type Location struct {
	PhysicalLocation PhysicalLocation `json:"physicalLocation"`
}

type PhysicalLocation struct {
	ArtifactLocation ArtifactLocation `json:"artifactLocation"`
	Region           Region           `json:"region"`
}

type ArtifactLocation struct {
	URI string `json:"uri"`
}

type Region struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn,omitempty"`
}

// SARIF converts findings into a single-run SARIF 2.1.0 log.
func SARIF(findings []types.Finding, toolName, toolVersion string) Log {
	results := make([]Result, 0, len(findings))
	for _, f := range findings {
		uri := toURI(f.File)
		if uri == "" {
			uri = "UNKNOWN"
		}
		start := f.Line
		if start <= 0 {
			start = 1
		}
		text := strings.TrimSpace(f.Message)
		if f.Suggestion != "" {
			text += " " + strings.TrimSpace(f.Suggestion)
		}

		results = append(results, Result{
			RuleID:  ruleID(f),
			Level:   sevToLevel(f.Severity),
			Message: Message{Text: text},
			Locations: []Location{{
				PhysicalLocation: PhysicalLocation{
					ArtifactLocation: ArtifactLocation{URI: uri},
					Region:           Region{StartLine: start, StartColumn: f.Column},
				},
			}},
		})
	}

	return Log{
		Version: "2.1.0",
		Schema:  sarifSchema,
		Runs: []Run{{
			Tool:    Tool{Driver: Driver{Name: toolName, Version: toolVersion}},
			Results: results,
		}},
	}
}

// WriteSARIF writes <outDir>/<base>.sarif and returns its path.
func WriteSARIF(findings []types.Finding, outDir, base, toolName, toolVersion string) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create sarif dir: %w", err)
	}
	data, err := json.MarshalIndent(SARIF(findings, toolName, toolVersion), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal sarif: %w", err)
	}
	outPath := filepath.Join(outDir, base+".sarif")
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return "", fmt.Errorf("write sarif: %w", err)
	}
	return outPath, nil
}

func ruleID(f types.Finding) string {
	id := strings.ToLower(strings.ReplaceAll(f.Rule, " ", "-"))
	if f.Scanner == "" {
		return id
	}
	return f.Scanner + "/" + id
}

func sevToLevel(s types.Severity) string {
	switch s {
	case types.SevCritical, types.SevHigh:
		return "error"
	case types.SevMedium:
		return "warning"
	default:
		return "note"
	}
}

func toURI(p string) string {
	p = filepath.ToSlash(strings.TrimSpace(p))
	for strings.HasPrefix(p, "../") {
		p = strings.TrimPrefix(p, "../")
	}
	return strings.TrimPrefix(p, "./")
}
