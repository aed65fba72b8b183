// Package store persists evaluation runs, sample results and transcripts in
// SQLite.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/evalrun/internal/models"
)

//go:embed schema.sql
var schemaSQL string

var (
	// ErrRunNotFound is returned when no run matches an id or prefix.
	ErrRunNotFound = errors.New("run not found")
	// ErrAmbiguousRun is returned when a run id prefix matches several runs.
	ErrAmbiguousRun = errors.New("run id prefix is ambiguous")
	// ErrSampleNotFound is returned by UpdateScore for an unknown sample.
	ErrSampleNotFound = errors.New("sample not found")
)

// Run is a stored evaluation run with its sample counts
type Run struct {
	ID         string
	CreatedAt  time.Time
	FinishedAt *time.Time
	Tasks      []string
	Model      string
	Status     string
	Samples    int
	Succeeded  int
}

// Store manages the SQLite database of evaluation results
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore creates a new Store instance and initializes the database
func NewStore(dbPath string) (*Store, error) {
	// Handle in-memory database
	if dbPath == ":memory:" {
		return openAndInitStore(dbPath)
	}

	// Ensure parent directory exists for file-based databases
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	return openAndInitStore(dbPath)
}

func openAndInitStore(dbPath string) (*Store, error) {
	// Connection parameters apply to every pooled connection, unlike PRAGMAs
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA busy_timeout=5000", // Must be first
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	store := &Store{db: db, dbPath: dbPath}
	if err := store.ApplyMigrations(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

// execWithRetry executes a statement, retrying with exponential backoff on
// lock errors.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// CreateRun records the start of a run.
func (s *Store) CreateRun(ctx context.Context, runID string, tasks []string, model string) error {
	tasksJSON, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("marshal tasks: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, tasks, model, status) VALUES (?, ?, ?, ?, ?)`,
		runID, time.Now().UTC(), string(tasksJSON), model, models.RunStarted)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun records a run's final status.
func (s *Store) FinishRun(ctx context.Context, runID, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ? WHERE id = ?`,
		status, time.Now().UTC(), runID)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// SaveSample stores a sample result and its transcript, replacing any
// earlier result for the same sample epoch.
func (s *Store) SaveSample(ctx context.Context, runID string, result models.SampleResult) error {
	targets, err := json.Marshal(result.Sample.Target)
	if err != nil {
		return fmt.Errorf("marshal targets: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() // no-op if committed

	var score sql.NullFloat64
	var answer, explanation, scorer string
	if result.Score != nil {
		score = sql.NullFloat64{Float64: result.Score.Value, Valid: true}
		answer, explanation, scorer = result.Score.Answer, result.Score.Explanation, result.Score.Scorer
	}

	_, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO samples
		(run_id, task, sample_id, epoch, input, targets, status, output, score, answer, explanation, scorer, error, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, result.Task, result.Sample.ID, result.Epoch, result.Sample.Input, string(targets),
		result.Status, result.Output, score, answer, explanation, scorer, result.Error, result.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("insert sample: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM messages WHERE run_id = ? AND task = ? AND sample_id = ? AND epoch = ?`,
		runID, result.Task, result.Sample.ID, result.Epoch)
	if err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO messages
		(run_id, task, sample_id, epoch, seq, role, content, tool_calls, tool_call_id, function, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare message insert: %w", err)
	}
	defer stmt.Close()

	for i, msg := range result.Messages {
		var calls sql.NullString
		if len(msg.ToolCalls) > 0 {
			data, err := json.Marshal(msg.ToolCalls)
			if err != nil {
				return fmt.Errorf("marshal tool calls: %w", err)
			}
			calls = sql.NullString{String: string(data), Valid: true}
		}
		_, err = stmt.ExecContext(ctx, runID, result.Task, result.Sample.ID, result.Epoch, i,
			string(msg.Role), msg.Content, calls, msg.ToolCallID, msg.Function, msg.Error)
		if err != nil {
			return fmt.Errorf("insert message %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sample: %w", err)
	}
	return nil
}

const runColumns = `r.id, r.created_at, r.finished_at, r.tasks, r.model, r.status,
	COUNT(s.id), COALESCE(SUM(CASE WHEN s.status = 'success' THEN 1 ELSE 0 END), 0)`

// ListRuns returns runs, newest first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + `
		FROM runs r LEFT JOIN samples s ON s.run_id = r.id
		GROUP BY r.id ORDER BY r.created_at DESC`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRun returns the run whose id is, or starts with, idOrPrefix.
func (s *Store) GetRun(ctx context.Context, idOrPrefix string) (*Run, error) {
	if idOrPrefix == "" {
		return nil, ErrRunNotFound
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+`
		FROM runs r LEFT JOIN samples s ON s.run_id = r.id
		WHERE r.id = ? OR r.id LIKE ? ESCAPE '\'
		GROUP BY r.id`, idOrPrefix, escapeLike(idOrPrefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	defer rows.Close()

	var matches []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		if run.ID == idOrPrefix {
			return run, nil
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, idOrPrefix)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %s matches %d runs", ErrAmbiguousRun, idOrPrefix, len(matches))
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	var finished sql.NullTime
	var tasks string
	var model sql.NullString
	if err := row.Scan(&run.ID, &run.CreatedAt, &finished, &tasks, &model, &run.Status, &run.Samples, &run.Succeeded); err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	run.Model = model.String
	if err := json.Unmarshal([]byte(tasks), &run.Tasks); err != nil {
		return nil, fmt.Errorf("unmarshal run tasks: %w", err)
	}
	return &run, nil
}

// LoadSamples returns the stored results of a run with their transcripts,
// ordered by task, epoch and insertion. A non-empty sampleID restricts the
// result to that sample's epochs.
func (s *Store) LoadSamples(ctx context.Context, runID, sampleID string) ([]models.SampleResult, error) {
	query := `SELECT task, sample_id, epoch, input, targets, status, output, score, answer, explanation, scorer, error, duration_ms
		FROM samples WHERE run_id = ?`
	args := []interface{}{runID}
	if sampleID != "" {
		query += ` AND sample_id = ?`
		args = append(args, sampleID)
	}
	query += ` ORDER BY task, epoch, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}

	var results []models.SampleResult
	for rows.Next() {
		var r models.SampleResult
		var targets, output, answer, explanation, scorer, errMsg sql.NullString
		var score sql.NullFloat64
		var durationMs sql.NullInt64
		if err := rows.Scan(&r.Task, &r.Sample.ID, &r.Epoch, &r.Sample.Input, &targets, &r.Status,
			&output, &score, &answer, &explanation, &scorer, &errMsg, &durationMs); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		if targets.Valid && targets.String != "" {
			if err := json.Unmarshal([]byte(targets.String), &r.Sample.Target); err != nil {
				rows.Close()
				return nil, fmt.Errorf("unmarshal targets: %w", err)
			}
		}
		r.Output = output.String
		r.Error = errMsg.String
		r.Duration = time.Duration(durationMs.Int64) * time.Millisecond
		if score.Valid {
			r.Score = &models.Score{Value: score.Float64, Answer: answer.String, Explanation: explanation.String, Scorer: scorer.String}
		}
		results = append(results, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range results {
		msgs, err := s.loadMessages(ctx, runID, results[i])
		if err != nil {
			return nil, err
		}
		results[i].Messages = msgs
	}
	return results, nil
}

func (s *Store) loadMessages(ctx context.Context, runID string, r models.SampleResult) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT role, content, tool_calls, tool_call_id, function, error
		FROM messages WHERE run_id = ? AND task = ? AND sample_id = ? AND epoch = ? ORDER BY seq`,
		runID, r.Task, r.Sample.ID, r.Epoch)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		var msg models.Message
		var role string
		var content, calls, callID, function, errMsg sql.NullString
		if err := rows.Scan(&role, &content, &calls, &callID, &function, &errMsg); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Role = models.Role(role)
		msg.Content = content.String
		msg.ToolCallID = callID.String
		msg.Function = function.String
		msg.Error = errMsg.String
		if calls.Valid {
			if err := json.Unmarshal([]byte(calls.String), &msg.ToolCalls); err != nil {
				return nil, fmt.Errorf("unmarshal tool calls: %w", err)
			}
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

// UpdateScore replaces the score of one sample epoch.
func (s *Store) UpdateScore(ctx context.Context, runID, task, sampleID string, epoch int, score models.Score) error {
	res, err := s.db.ExecContext(ctx, `UPDATE samples SET score = ?, answer = ?, explanation = ?, scorer = ?
		WHERE run_id = ? AND task = ? AND sample_id = ? AND epoch = ?`,
		score.Value, score.Answer, score.Explanation, score.Scorer, runID, task, sampleID, epoch)
	if err != nil {
		return fmt.Errorf("update score: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s/%s epoch %d", ErrSampleNotFound, task, sampleID, epoch)
	}
	return nil
}
