package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/JA3G3R/reviewcrew/types"
)

const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

var ErrRunNotFound = errors.New("run not found")

type RunRecord struct {
	RunID      string
	Kind       string // "review" or "research"
	Target     string // reviewed path or research topic
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string
	InputsJSON string
	Summary    string
}

type TaskOutputRecord struct {
	RunID      string
	Seq        int
	Task       string
	Agent      string
	Output     string
	OutputFile string
	CreatedAt  time.Time
}

type Conversation struct {
	ID        int64
	Prompt    string
	Response  string
	CreatedAt time.Time
}

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	ddl := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA foreign_keys=ON;`,
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL UNIQUE,
			kind TEXT NOT NULL,
			target TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			status TEXT NOT NULL,
			inputs_json TEXT NOT NULL,
			summary TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS findings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			scanner TEXT NOT NULL,
			rule TEXT NOT NULL,
			severity TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			message TEXT NOT NULL,
			suggestion TEXT,
			file_path TEXT,
			line INTEGER,
			col INTEGER,
			code TEXT,
			block_ref TEXT,
			created_at TEXT NOT NULL,
			FOREIGN KEY(run_id) REFERENCES runs(run_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_findings_run_scanner ON findings(run_id, scanner);`,
		`CREATE INDEX IF NOT EXISTS idx_findings_fingerprint ON findings(fingerprint);`,
		`CREATE TABLE IF NOT EXISTS task_outputs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			task TEXT NOT NULL,
			agent TEXT NOT NULL,
			output TEXT NOT NULL,
			output_file TEXT,
			created_at TEXT NOT NULL,
			FOREIGN KEY(run_id) REFERENCES runs(run_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_task_outputs_run ON task_outputs(run_id, seq);`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			prompt TEXT NOT NULL,
			response TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
	}

	for _, stmt := range ddl {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run RunRecord) error {
	if run.Status == "" {
		run.Status = RunStatusRunning
	}
	if run.InputsJSON == "" {
		run.InputsJSON = "{}"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, kind, target, started_at, status, inputs_json)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.RunID,
		run.Kind,
		run.Target,
		run.StartedAt.UTC().Format(time.RFC3339),
		run.Status,
		run.InputsJSON,
	)
	return err
}

func (s *SQLiteStore) FinishRun(ctx context.Context, runID, status, summary string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, summary = ?, finished_at = ?
		WHERE run_id = ?`,
		status,
		summary,
		time.Now().UTC().Format(time.RFC3339),
		runID,
	)
	return err
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, kind, target, started_at, finished_at, status, inputs_json, summary
		FROM runs
		WHERE run_id = ?`,
		runID,
	)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return run, err
}

// ListRuns returns the most recent runs first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, kind, target, started_at, finished_at, status, inputs_json, summary
		FROM runs
		ORDER BY id DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunRecord, error) {
	var (
		run        RunRecord
		startedAt  string
		finishedAt sql.NullString
		summary    sql.NullString
	)
	if err := row.Scan(&run.RunID, &run.Kind, &run.Target, &startedAt, &finishedAt, &run.Status, &run.InputsJSON, &summary); err != nil {
		return RunRecord{}, err
	}
	run.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
	if finishedAt.Valid {
		run.FinishedAt, _ = time.Parse(time.RFC3339, finishedAt.String)
	}
	run.Summary = summary.String
	return run, nil
}

func (s *SQLiteStore) InsertFindings(ctx context.Context, runID string, findings []types.Finding) error {
	if len(findings) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO findings (run_id, scanner, rule, severity, fingerprint, message, suggestion, file_path, line, col, code, block_ref, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, f := range findings {
		if _, err := stmt.ExecContext(ctx,
			runID,
			f.Scanner,
			f.Rule,
			string(f.Severity),
			Fingerprint(f),
			f.Message,
			f.Suggestion,
			f.File,
			f.Line,
			f.Column,
			f.Code,
			f.BlockRef,
			now,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Findings returns a run's findings in insertion order.
func (s *SQLiteStore) Findings(ctx context.Context, runID string) ([]types.Finding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT scanner, rule, severity, message, suggestion, file_path, line, col, code, block_ref
		FROM findings
		WHERE run_id = ?
		ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Finding
	for rows.Next() {
		var (
			f                                types.Finding
			severity                         string
			suggestion, file, code, blockRef sql.NullString
			line, col                        sql.NullInt64
		)
		if err := rows.Scan(&f.Scanner, &f.Rule, &severity, &f.Message, &suggestion, &file, &line, &col, &code, &blockRef); err != nil {
			return nil, err
		}
		f.Severity = types.Severity(severity)
		f.Suggestion = suggestion.String
		f.File = file.String
		f.Line = int(line.Int64)
		f.Column = int(col.Int64)
		f.Code = code.String
		f.BlockRef = blockRef.String
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) InsertTaskOutputs(ctx context.Context, outputs []TaskOutputRecord) error {
	if len(outputs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO task_outputs (run_id, seq, task, agent, output, output_file, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, o := range outputs {
		created := o.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}
		if _, err := stmt.ExecContext(ctx,
			o.RunID,
			o.Seq,
			o.Task,
			o.Agent,
			o.Output,
			o.OutputFile,
			created.UTC().Format(time.RFC3339),
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// TaskOutputs returns a run's task outputs in execution order.
func (s *SQLiteStore) TaskOutputs(ctx context.Context, runID string) ([]TaskOutputRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, task, agent, output, output_file, created_at
		FROM task_outputs
		WHERE run_id = ?
		ORDER BY seq, id`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TaskOutputRecord
	for rows.Next() {
		var (
			o          TaskOutputRecord
			outputFile sql.NullString
			createdAt  string
		)
		if err := rows.Scan(&o.Seq, &o.Task, &o.Agent, &o.Output, &outputFile, &createdAt); err != nil {
			return nil, err
		}
		o.RunID = runID
		o.OutputFile = outputFile.String
		o.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AddConversation(ctx context.Context, prompt, response string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (prompt, response, created_at)
		VALUES (?, ?, ?)`,
		prompt,
		response,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// RecentConversations returns up to limit turns, most recent first.
func (s *SQLiteStore) RecentConversations(ctx context.Context, limit int) ([]Conversation, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, prompt, response, created_at
		FROM conversations
		ORDER BY id DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Conversation
	for rows.Next() {
		var (
			c         Conversation
			createdAt string
		)
		if err := rows.Scan(&c.ID, &c.Prompt, &c.Response, &createdAt); err != nil {
			return nil, err
		}
		c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, c)
	}
	return out, rows.Err()
}

// Fingerprint identifies a finding across runs.
func Fingerprint(f types.Finding) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%d|%s|%s", f.Scanner, f.Rule, f.File, f.Line, f.Message, f.Code)))
	return hex.EncodeToString(sum[:8])
}
