package types

import "strings"

type Severity string

const (
	SevCritical Severity = "Critical"
	SevHigh     Severity = "High"
	SevMedium   Severity = "Medium"
	SevLow      Severity = "Low"
)

var severityOrder = []Severity{SevCritical, SevHigh, SevMedium, SevLow}

// Severities returns the fixed report order, most severe first.
func Severities() []Severity {
	out := make([]Severity, len(severityOrder))
	copy(out, severityOrder)
	return out
}

// Rank is 0 for Critical through 3 for Low. Unknown severities sort last.
func (s Severity) Rank() int {
	for i, v := range severityOrder {
		if v == s {
			return i
		}
	}
	return len(severityOrder)
}

func (s Severity) String() string {
	return string(s)
}

// ParseSeverity accepts any casing of the four levels. Anything else maps
// to Medium, matching how unknown tool severities are treated.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return SevCritical
	case "high":
		return SevHigh
	case "medium":
		return SevMedium
	case "low":
		return SevLow
	default:
		return SevMedium
	}
}
