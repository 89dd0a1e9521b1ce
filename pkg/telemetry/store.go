// Package telemetry records gesture sessions and the intents they emitted
// in a local SQLite database.
package telemetry

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/teslashibe/go-gazenav/pkg/tracking"
)

// ErrNotFound is returned for unknown session IDs.
var ErrNotFound = errors.New("telemetry: session not found")

//go:embed schema.sql
var schemaSQL string

// Store implements tracking.Recorder on SQLite.
type Store struct {
	db *sql.DB
}

var _ tracking.Recorder = (*Store)(nil)

// IntentRecord is one stored intent.
type IntentRecord struct {
	SessionID string          `json:"session_id"`
	Intent    tracking.Intent `json:"intent"`
	At        time.Time       `json:"at"`
}

// Open opens or creates the database at path. ":memory:" gives a private
// in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open telemetry db: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps
	// :memory: databases from splitting across the pool
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply telemetry schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// StartSession inserts a new session.
func (s *Store) StartSession(ctx context.Context, info tracking.SessionInfo) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, gesture, started_ms, samples, intents)
		VALUES (?, ?, ?, ?, ?)
	`, info.ID, info.Gesture.String(), toMillis(info.Started), info.Samples, info.Intents)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	return nil
}

// EndSession stores the session's end time and final counters.
func (s *Store) EndSession(ctx context.Context, info tracking.SessionInfo) error {
	ended := info.Ended
	if ended.IsZero() {
		ended = time.Now()
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET ended_ms = ?, samples = ?, intents = ?
		WHERE id = ?
	`, toMillis(ended), info.Samples, info.Intents, info.ID)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("end session %s: %w", info.ID, ErrNotFound)
	}
	return nil
}

// RecordIntent stores one intent emitted during a session.
func (s *Store) RecordIntent(ctx context.Context, sessionID string, intent tracking.Intent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO intents (session_id, kind, step, delta, at_ms)
		VALUES (?, ?, ?, ?, ?)
	`, sessionID, intent.Kind.String(), intent.Step, intent.Delta, toMillis(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to record intent: %w", err)
	}
	return nil
}

// RecentSessions returns up to limit sessions, newest first.
func (s *Store) RecentSessions(ctx context.Context, limit int) ([]tracking.SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, gesture, started_ms, ended_ms, samples, intents
		FROM sessions
		ORDER BY started_ms DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []tracking.SessionInfo
	for rows.Next() {
		info, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// Session returns one session by ID.
func (s *Store) Session(ctx context.Context, id string) (tracking.SessionInfo, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, gesture, started_ms, ended_ms, samples, intents
		FROM sessions WHERE id = ?
	`, id)
	info, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return tracking.SessionInfo{}, ErrNotFound
	}
	return info, err
}

// SessionIntents returns the intents of one session in emission order.
func (s *Store) SessionIntents(ctx context.Context, sessionID string) ([]IntentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, step, delta, at_ms
		FROM intents
		WHERE session_id = ?
		ORDER BY id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list intents: %w", err)
	}
	defer rows.Close()

	var out []IntentRecord
	for rows.Next() {
		var (
			kind string
			rec  = IntentRecord{SessionID: sessionID}
			atMs int64
		)
		if err := rows.Scan(&kind, &rec.Intent.Step, &rec.Intent.Delta, &atMs); err != nil {
			return nil, err
		}
		if err := rec.Intent.Kind.UnmarshalText([]byte(kind)); err != nil {
			return nil, err
		}
		rec.At = fromMillis(atMs)
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(sc scanner) (tracking.SessionInfo, error) {
	var (
		info      tracking.SessionInfo
		gesture   string
		startedMs int64
		endedMs   sql.NullInt64
	)
	if err := sc.Scan(&info.ID, &gesture, &startedMs, &endedMs, &info.Samples, &info.Intents); err != nil {
		return info, err
	}

	trigger, err := tracking.ParseTrigger(gesture)
	if err != nil {
		return info, err
	}
	info.Gesture = trigger
	info.Started = fromMillis(startedMs)
	if endedMs.Valid {
		info.Ended = fromMillis(endedMs.Int64)
	}
	return info, nil
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}
