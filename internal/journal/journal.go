// Package journal persists every outbound action delivery attempt in SQLite.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gowebpki/jcs"
	"github.com/yolodolo42/a2ui/internal/outbound"

	_ "modernc.org/sqlite"
)

// Store is an append-only table of action deliveries keyed by run id.
type Store struct {
	db *sql.DB
}

// Entry is one journaled delivery.
type Entry struct {
	RunID             string
	ThreadID          string
	SurfaceID         string
	SourceComponentID string
	Action            string
	ContextJSON       string
	Status            outbound.Status
	Error             string
	Timestamp         time.Time
	CreatedAt         time.Time
}

// Open opens (or creates) the journal under dataDir/actions.db.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return OpenDSN(filepath.Join(dataDir, "actions.db"))
}

// OpenDSN opens a journal using the given sqlite DSN/path. Tests may pass
// ":memory:" to avoid touching disk.
func OpenDSN(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}
	// An in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func ensureSchema(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS actions (
	run_id TEXT PRIMARY KEY,
	thread_id TEXT NOT NULL,
	surface_id TEXT NOT NULL,
	source_component_id TEXT,
	action TEXT NOT NULL,
	context_json TEXT,
	status TEXT NOT NULL,
	error TEXT,
	action_ts TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`); err != nil {
		return fmt.Errorf("create actions table: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS actions_surface ON actions(surface_id)`); err != nil {
		return fmt.Errorf("create actions index: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record implements outbound.Recorder. The context is stored as canonical
// JSON so equal contexts compare equal as text.
func (s *Store) Record(ctx context.Context, env outbound.Envelope, status outbound.Status, sendErr error) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("journal not initialized")
	}
	if env.RunID == "" {
		return fmt.Errorf("run id is required")
	}

	ctxJSON, err := canonical(env.UserAction.Context)
	if err != nil {
		return fmt.Errorf("encode context: %w", err)
	}
	var errText string
	if sendErr != nil {
		errText = sendErr.Error()
	}
	ua := env.UserAction
	_, err = s.db.ExecContext(ctx, `
INSERT INTO actions (run_id, thread_id, surface_id, source_component_id, action, context_json, status, error, action_ts)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(run_id) DO UPDATE SET
	status=excluded.status,
	error=excluded.error
`, env.RunID, env.ThreadID, ua.SurfaceID, ua.SourceComponentID, ua.Name, ctxJSON, string(status), errText,
		ua.Timestamp.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("persist action: %w", err)
	}
	return nil
}

func canonical(v map[string]any) (string, error) {
	if v == nil {
		v = map[string]any{}
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	out, err := jcs.Transform(raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Get returns one entry by run id.
func (s *Store) Get(ctx context.Context, runID string) (*Entry, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("journal not initialized")
	}
	if runID == "" {
		return nil, fmt.Errorf("run id is required")
	}
	row := s.db.QueryRowContext(ctx, selectEntry+` WHERE run_id = ?`, runID)
	return scanEntry(row)
}

// List returns the most recent entries, newest first. limit <= 0 means all.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("journal not initialized")
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, selectEntry+` ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

const selectEntry = `SELECT run_id, thread_id, surface_id, COALESCE(source_component_id, ''), action,
	COALESCE(context_json, '{}'), status, COALESCE(error, ''), COALESCE(action_ts, ''), created_at FROM actions`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*Entry, error) {
	var (
		e       Entry
		status  string
		ts      string
		created string
	)
	if err := row.Scan(&e.RunID, &e.ThreadID, &e.SurfaceID, &e.SourceComponentID, &e.Action,
		&e.ContextJSON, &status, &e.Error, &ts, &created); err != nil {
		return nil, err
	}
	e.Status = outbound.Status(status)
	if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		e.Timestamp = t
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, created); err == nil {
			e.CreatedAt = t
			break
		}
	}
	return &e, nil
}
