package types

import "sort"

type Finding struct {
	Scanner     string   `json:"scanner"`  // e.g., "static", "security", "performance"
	Rule        string   `json:"rule"`     // e.g., "Code Quality", "SQL Injection"
	Severity    Severity `json:"severity"` // Critical, High, Medium, Low
	File        string   `json:"file"`
	Line        int      `json:"line"` // 0 means the whole file
	Column      int      `json:"column,omitempty"`
	Message     string   `json:"message"`
	Suggestion  string   `json:"suggestion"`
	Code        string   `json:"code,omitempty"`
	BlockRef    string   `json:"block_ref,omitempty"` // e.g., resource.aws_iam_policy.my_policy
	StatementID string   `json:"statement_id,omitempty"`
}

// FileRecord is a source file read from disk. Content is truncated at the
// inventory threshold; LinesOfCode always counts the full file.
type FileRecord struct {
	Path        string `json:"path"`
	Language    string `json:"language"`
	SizeBytes   int64  `json:"size_bytes"`
	LinesOfCode int    `json:"lines_of_code"`
	Content     string `json:"-"`
	Truncated   bool   `json:"truncated,omitempty"`
	Err         string `json:"error,omitempty"`
}

// Readable reports whether the file could be read.
func (f FileRecord) Readable() bool {
	return f.Err == ""
}

// SortFindings orders findings by severity rank, keeping discovery order
// within a rank.
func SortFindings(fs []Finding) {
	sort.SliceStable(fs, func(i, j int) bool {
		return fs[i].Severity.Rank() < fs[j].Severity.Rank()
	})
}

// CountBySeverity tallies findings per severity.
func CountBySeverity(fs []Finding) map[Severity]int {
	out := make(map[Severity]int, 4)
	for _, f := range fs {
		out[f.Severity]++
	}
	return out
}
