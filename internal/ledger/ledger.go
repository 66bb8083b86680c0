// Package ledger keeps the run history: one row per batch and one per clip
// outcome, in a SQLite database next to the work root.
package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lukechampine.com/blake3"
	_ "modernc.org/sqlite"

	"github.com/forPelevin/clipforge/internal/types"
)

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 1

var ErrSchemaMismatch = errors.New("schema version mismatch")

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
)

type Run struct {
	ID             string
	SourceKey      string
	SourceHash     string
	Language       string
	TargetLanguage string
	Aspect         string
	Status         string
	ClipsTotal     int
	ClipsOK        int
	Error          string
	StartedAt      time.Time
	FinishedAt     *time.Time
}

type Ledger struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure ledger dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	l := &Ledger{db: db, path: path}
	if err := l.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

func (l *Ledger) Path() string { return l.path }

func (l *Ledger) initSchema(ctx context.Context) error {
	var tableExists int
	if err := l.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists); err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		tx, err := l.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin schema tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		return tx.Commit()
	}

	var version int
	if err := l.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s)",
			ErrSchemaMismatch, version, schemaVersion, l.path)
	}
	return nil
}

func (l *Ledger) BeginRun(ctx context.Context, r Run) error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("ledger: run id required")
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	_, err := l.execWithRetry(ctx, `INSERT INTO runs
		(id, source_key, source_hash, language, target_language, aspect, status, clips_total, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.SourceKey, nullableString(r.SourceHash), nullableString(r.Language),
		nullableString(r.TargetLanguage), nullableString(r.Aspect), StatusRunning, r.ClipsTotal,
		r.StartedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecordClip stores one clip outcome and bumps the run's success counter
// when the clip was published.
func (l *Ledger) RecordClip(ctx context.Context, runID string, c types.ManifestClip) error {
	return l.retryOnBusy(ctx, func() error {
		tx, err := l.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()
		if _, err := tx.ExecContext(ctx, `INSERT INTO clips
			(run_id, idx, start_sec, end_sec, output_key, dubbed, stages, error, error_kind, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, c.Index, c.StartSec, c.EndSec, nullableString(c.OutputKey), boolToInt(c.Dubbed),
			strings.Join(c.Stages, ","), nullableString(c.Error), nullableString(c.ErrorKind),
			time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("insert clip: %w", err)
		}
		if c.Error == "" && c.OutputKey != "" {
			if _, err := tx.ExecContext(ctx, "UPDATE runs SET clips_ok = clips_ok + 1 WHERE id = ?", runID); err != nil {
				return fmt.Errorf("update run: %w", err)
			}
		}
		return tx.Commit()
	})
}

func (l *Ledger) FinishRun(ctx context.Context, runID, status string, runErr error) error {
	var msg string
	if runErr != nil {
		msg = runErr.Error()
	}
	res, err := l.execWithRetry(ctx, "UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?",
		status, nullableString(msg), time.Now().UTC().Format(time.RFC3339Nano), runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run: unknown run %q", runID)
	}
	return nil
}

// Runs returns the most recent runs first.
func (l *Ledger) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx, `SELECT id, source_key, source_hash, language, target_language, aspect,
		status, clips_total, clips_ok, error, started_at, finished_at
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r                                       Run
			hash, lang, target, aspect, errMsg, fin sql.NullString
			started                                 string
		)
		if err := rows.Scan(&r.ID, &r.SourceKey, &hash, &lang, &target, &aspect,
			&r.Status, &r.ClipsTotal, &r.ClipsOK, &errMsg, &started, &fin); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.SourceHash, r.Language, r.TargetLanguage = hash.String, lang.String, target.String
		r.Aspect, r.Error = aspect.String, errMsg.String
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if fin.Valid {
			ts, err := time.Parse(time.RFC3339Nano, fin.String)
			if err != nil {
				return nil, fmt.Errorf("parse finished_at: %w", err)
			}
			r.FinishedAt = &ts
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (l *Ledger) Clips(ctx context.Context, runID string) ([]types.ManifestClip, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT idx, start_sec, end_sec, output_key, dubbed, stages, error, error_kind
		FROM clips WHERE run_id = ? ORDER BY idx, id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query clips: %w", err)
	}
	defer rows.Close()

	var out []types.ManifestClip
	for rows.Next() {
		var (
			c                    types.ManifestClip
			key, errMsg, errKind sql.NullString
			dubbed               int
			stages               string
		)
		if err := rows.Scan(&c.Index, &c.StartSec, &c.EndSec, &key, &dubbed, &stages, &errMsg, &errKind); err != nil {
			return nil, fmt.Errorf("scan clip: %w", err)
		}
		c.OutputKey, c.Error, c.ErrorKind = key.String, errMsg.String, errKind.String
		c.Dubbed = dubbed != 0
		if stages != "" {
			c.Stages = strings.Split(stages, ",")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Fingerprint returns the hex BLAKE3-256 digest of the file at path.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := blake3.New(32, nil)
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("calculating blake3 hash from file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func (l *Ledger) retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil || !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay = min(delay*2, busyRetryMaxBackoff)
	}
	return lastErr
}

func (l *Ledger) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var (
		res     sql.Result
		execErr error
	)
	if err := l.retryOnBusy(ctx, func() error {
		res, execErr = l.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
