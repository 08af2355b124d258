package crew

import (
	"time"

	"github.com/JA3G3R/reviewcrew/store"
)

// Records converts task outputs to store rows in task order.
func Records(runID string, outputs []TaskOutput, at time.Time) []store.TaskOutputRecord {
	recs := make([]store.TaskOutputRecord, len(outputs))
	for i, o := range outputs {
		recs[i] = store.TaskOutputRecord{
			RunID:      runID,
			Seq:        i,
			Task:       o.Task,
			Agent:      o.Agent,
			Output:     o.Output,
			OutputFile: o.OutputFile,
			CreatedAt:  at,
		}
	}
	return recs
}

// FromRecords is the inverse of Records, used to seed Replay.
func FromRecords(recs []store.TaskOutputRecord) []TaskOutput {
	out := make([]TaskOutput, len(recs))
	for i, r := range recs {
		out[i] = TaskOutput{Task: r.Task, Agent: r.Agent, Output: r.Output, OutputFile: r.OutputFile}
	}
	return out
}
