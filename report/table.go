package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/JA3G3R/reviewcrew/types"
)

// Table prints one finding per row.
func Table(w io.Writer, findings []types.Finding) error {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEVERITY\tSCANNER\tRULE\tFILE:LINE\tDETAILS")
	for _, f := range findings {
		details := f.Message
		if f.BlockRef != "" {
			details = fmt.Sprintf("%s [%s]", details, f.BlockRef)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s:%d\t%s\n",
			f.Severity, f.Scanner, f.Rule, f.File, f.Line, details)
	}
	return tw.Flush()
}

func JSON(w io.Writer, findings []types.Finding) error {
	if findings == nil {
		findings = []types.Finding{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(findings)
}
