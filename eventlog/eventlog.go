package eventlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	KickoffStarted  = "kickoff_started"
	KickoffFinished = "kickoff_finished"
	KickoffFailed   = "kickoff_failed"
	TaskStarted     = "task_started"
	TaskFinished    = "task_finished"
	ToolFailed      = "tool_failed"
)

// Event is one crew lifecycle record.
type Event struct {
	Type     string `json:"type"`
	RunID    string `json:"run_id,omitempty"`
	Crew     string `json:"crew,omitempty"`
	Task     string `json:"task,omitempty"`
	Agent    string `json:"agent,omitempty"`
	Detail   string `json:"detail,omitempty"`
	Duration string `json:"duration,omitempty"`
}

// EventLog appends events as JSON lines.
type EventLog struct {
	mu   sync.Mutex
	file *os.File
	now  func() time.Time
}

func New(path string) (*EventLog, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create event log dir: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}

	return &EventLog{file: file, now: time.Now}, nil
}

func (l *EventLog) Emit(event Event) error {
	if l == nil || l.file == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	payload := struct {
		TS string `json:"ts"`
		Event
	}{
		TS:    l.now().UTC().Format(time.RFC3339),
		Event: event,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = l.file.Write(append(data, '\n'))
	return err
}

func (l *EventLog) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}
