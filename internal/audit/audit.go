// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/bookbot/internal/resolver"
	"github.com/jeranaias/bookbot/internal/util"
)

// =============================================================================
// ERRORS
// =============================================================================

var ErrClosed = errors.New("audit log closed")

// maxErrorText bounds the stored error message.
const maxErrorText = 500

// =============================================================================
// LOG
// =============================================================================

// Entry is one stored attempt.
type Entry struct {
	ID        int64
	RequestID string
	Model     string
	Version   string
	Status    int
	Outcome   resolver.Outcome
	Error     string
	Latency   time.Duration
	CreatedAt time.Time
}

// Log is a SQLite-backed attempt log.
type Log struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the audit database at path.
func Open(path string) (*Log, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create audit directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	// Single writer; avoids SQLITE_BUSY between concurrent requests.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	if _, err := db.Exec(InitMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init metadata: %w", err)
	}

	return &Log{db: db, path: path}, nil
}

// Path returns the database path.
func (l *Log) Path() string {
	return l.path
}

// Record stores one attempt.
func (l *Log) Record(ctx context.Context, a resolver.Attempt) error {
	if l == nil || l.db == nil {
		return ErrClosed
	}
	var errText sql.NullString
	if a.Err != nil {
		errText = sql.NullString{String: util.TruncateRunes(a.Err.Error(), maxErrorText), Valid: true}
	}
	_, err := l.db.ExecContext(context.WithoutCancel(ctx), `
		INSERT INTO attempts (request_id, model, version, status, outcome, error, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.RequestID, a.Model, a.Version, a.Status, string(a.Outcome), errText,
		a.Latency.Milliseconds(), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	return nil
}

// Observer adapts the log to a resolver observer. Write failures are logged
// and never affect the request.
func (l *Log) Observer() resolver.Observer {
	return func(ctx context.Context, a resolver.Attempt) {
		if err := l.Record(ctx, a); err != nil {
			log.Printf("AUDIT_WRITE_FAILED | request_id=%s | error=%v", a.RequestID, err)
		}
	}
}

// Recent returns up to limit entries, newest first.
func (l *Log) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if l == nil || l.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, request_id, model, version, status, outcome, error, latency_ms, created_at
		FROM attempts ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			outcome   string
			errText   sql.NullString
			latencyMS int64
			createdMS int64
		)
		if err := rows.Scan(&e.ID, &e.RequestID, &e.Model, &e.Version, &e.Status,
			&outcome, &errText, &latencyMS, &createdMS); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		e.Outcome = resolver.Outcome(outcome)
		e.Error = errText.String
		e.Latency = time.Duration(latencyMS) * time.Millisecond
		e.CreatedAt = time.UnixMilli(createdMS)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of stored attempts.
func (l *Log) Count(ctx context.Context) (int, error) {
	if l == nil || l.db == nil {
		return 0, ErrClosed
	}
	var n int
	if err := l.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM attempts").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Close closes the database.
func (l *Log) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	return err
}
