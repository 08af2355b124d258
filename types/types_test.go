package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortFindingsStableBySeverity(t *testing.T) {
	fs := []Finding{
		{Rule: "a", Severity: SevLow},
		{Rule: "b", Severity: SevCritical},
		{Rule: "c", Severity: SevLow},
		{Rule: "d", Severity: SevMedium},
		{Rule: "e", Severity: SevCritical},
	}
	SortFindings(fs)

	var got []string
	for _, f := range fs {
		got = append(got, f.Rule)
	}
	assert.Equal(t, []string{"b", "e", "d", "a", "c"}, got)
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want Severity
	}{
		{"CRITICAL", SevCritical},
		{" high ", SevHigh},
		{"medium", SevMedium},
		{"Low", SevLow},
		{"whatever", SevMedium},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSeverity(tt.in))
		})
	}
}

func TestRankOrder(t *testing.T) {
	assert.Less(t, SevCritical.Rank(), SevHigh.Rank())
	assert.Less(t, SevHigh.Rank(), SevMedium.Rank())
	assert.Less(t, SevMedium.Rank(), SevLow.Rank())
	assert.Less(t, SevLow.Rank(), Severity("Info").Rank())
}

func TestCountBySeverity(t *testing.T) {
	counts := CountBySeverity([]Finding{{Severity: SevHigh}, {Severity: SevHigh}, {Severity: SevLow}})
	assert.Equal(t, 2, counts[SevHigh])
	assert.Equal(t, 1, counts[SevLow])
	assert.Equal(t, 0, counts[SevCritical])
}
