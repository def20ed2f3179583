package sinks

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"hide-and-seek/server/logging"
)

// SQLite persists events to a local database so a finished match can be
// reviewed after the server exits. Writes arrive serialized from the
// router's sink worker, so no statement-level locking is needed.
type SQLite struct {
	db     *sql.DB
	insert *sql.Stmt
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	type TEXT NOT NULL,
	tick INTEGER NOT NULL,
	time TEXT NOT NULL,
	severity INTEGER NOT NULL,
	category TEXT,
	actor_id TEXT,
	actor_kind TEXT,
	payload TEXT
);
CREATE INDEX IF NOT EXISTS events_type_idx ON events(type);
CREATE INDEX IF NOT EXISTS events_actor_idx ON events(actor_id);
`

// NewSQLite opens (creating if needed) the database at path.
func NewSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite sink requires a path")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open event store: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate event store: %w", err)
	}
	insert, err := db.Prepare(`INSERT INTO events (type, tick, time, severity, category, actor_id, actor_kind, payload) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare event insert: %w", err)
	}
	return &SQLite{db: db, insert: insert}, nil
}

func (s *SQLite) Write(event logging.Event) error {
	payload := ""
	if event.Payload != nil {
		data, err := json.Marshal(event.Payload)
		if err == nil {
			payload = string(data)
		}
	}
	_, err := s.insert.Exec(
		string(event.Type),
		int64(event.Tick),
		event.Time.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		int(event.Severity),
		event.Category,
		event.Actor.ID,
		string(event.Actor.Kind),
		payload,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *SQLite) Close(ctx context.Context) error {
	if s.insert != nil {
		s.insert.Close()
	}
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// EventCount reports how many events the store holds, for diagnostics.
func (s *SQLite) EventCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return count, nil
}
