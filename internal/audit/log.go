// Package audit keeps an append-only SQLite log of cisoplan commands and
// the changes they made to the program.
package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const defaultAuditPath = "audit/audit.sqlite"

// Logger writes audit events to a specific SQLite DB path.
type Logger struct {
	DBPath string
}

// Event is one stored audit record.
type Event struct {
	ID          int64     `json:"id"`
	Timestamp   time.Time `json:"ts"`
	Actor       string    `json:"actor"`
	Type        string    `json:"type"`
	PayloadJSON string    `json:"payload_json"`
}

// NewLogger returns a Logger bound to the provided DB path. An empty path
// uses audit/audit.sqlite relative to the working directory.
func NewLogger(dbPath string) *Logger {
	return &Logger{DBPath: dbPath}
}

// LogEvent writes an audit event to the configured SQLite-backed log.
func (l *Logger) LogEvent(actor string, eventType string, payload any) error {
	dbPath, err := l.resolve(true)
	if err != nil {
		return err
	}
	return writeEvent(dbPath, actor, eventType, payload)
}

// Events returns up to limit events, newest first. A limit <= 0 returns
// all events. A log that was never written yields no events.
func (l *Logger) Events(limit int) ([]Event, error) {
	dbPath, err := l.resolve(false)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, nil
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()
	if err := ensureSchema(db); err != nil {
		return nil, err
	}

	query := "SELECT id, ts, actor, type, payload_json FROM events ORDER BY id DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var ts any
		if err := rows.Scan(&ev.ID, &ts, &ev.Actor, &ev.Type, &ev.PayloadJSON); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		ev.Timestamp = parseTimestamp(ts)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// parseTimestamp accepts the forms the sqlite driver may hand back for a
// DATETIME column.
func parseTimestamp(v any) time.Time {
	switch ts := v.(type) {
	case time.Time:
		return ts
	case []byte:
		return parseTimestamp(string(ts))
	case string:
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, ts); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

func (l *Logger) resolve(create bool) (string, error) {
	dbPath := ""
	if l != nil {
		dbPath = l.DBPath
	}
	if dbPath == "" {
		dbPath = defaultAuditPath
	}
	absPath, err := filepath.Abs(dbPath)
	if err != nil {
		return "", fmt.Errorf("resolve audit db path: %w", err)
	}
	if create {
		if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
			return "", fmt.Errorf("ensure audit db dir: %w", err)
		}
	}
	return absPath, nil
}

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts DATETIME NOT NULL,
			actor TEXT NOT NULL,
			type TEXT NOT NULL,
			payload_json TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create audit schema: %w", err)
	}
	return nil
}

func writeEvent(dbPath string, actor string, eventType string, payload any) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open audit db: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := ensureSchema(db); err != nil {
		return err
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	_, err = db.Exec(
		"INSERT INTO events (ts, actor, type, payload_json) VALUES (?, ?, ?, ?)",
		time.Now().UTC(),
		actor,
		eventType,
		string(payloadJSON),
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}
