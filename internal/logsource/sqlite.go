package logsource

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gosuda/relive/internal/protocol"
)

// Cache is a local SQLite store of fetched session logs, enabling
// offline replay: fetch once through another Source, Save, then Load
// without the server.
type Cache struct {
	db *sql.DB
}

// OpenCache opens (and if needed initializes) the cache at path. Use
// ":memory:" for an ephemeral cache.
func OpenCache(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("logsource.OpenCache: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS cached_sessions (
		id TEXT PRIMARY KEY,
		workspace_dir TEXT NOT NULL,
		saved_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS cached_events (
		session_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		payload TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		PRIMARY KEY (session_id, seq)
	);`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("logsource.OpenCache: schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("logsource.Cache.Close: %w", err)
	}
	return nil
}

// Save stores a fetched log, replacing any previous copy of the same
// session.
func (c *Cache) Save(ctx context.Context, log Log) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("logsource.Cache.Save: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `DELETE FROM cached_events WHERE session_id = ?`, log.SessionID)
	if err != nil {
		return fmt.Errorf("logsource.Cache.Save: clear events: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO cached_sessions (id, workspace_dir, saved_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET workspace_dir = excluded.workspace_dir, saved_at = excluded.saved_at`,
		log.SessionID, log.WorkspaceRoot, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("logsource.Cache.Save: session: %w", err)
	}

	for seq, ev := range log.Events {
		payload, merr := json.Marshal(ev.Content)
		if merr != nil {
			return fmt.Errorf("logsource.Cache.Save: payload: %w", merr)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO cached_events (session_id, seq, id, event_type, payload, timestamp)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			log.SessionID, seq, ev.ID, string(ev.Type), string(payload),
			ev.Timestamp.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("logsource.Cache.Save: event %d: %w", seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("logsource.Cache.Save: commit: %w", err)
	}
	return nil
}

// Load reads a cached log in its original order.
func (c *Cache) Load(ctx context.Context, sessionID string) (Log, error) {
	var workspace string
	err := c.db.QueryRowContext(ctx,
		`SELECT workspace_dir FROM cached_sessions WHERE id = ?`, sessionID,
	).Scan(&workspace)
	if err != nil {
		return Log{}, fmt.Errorf("logsource.Cache.Load: session %s: %w", sessionID, err)
	}

	rows, err := c.db.QueryContext(ctx,
		`SELECT id, event_type, payload, timestamp
		 FROM cached_events WHERE session_id = ? ORDER BY seq ASC`,
		sessionID,
	)
	if err != nil {
		return Log{}, fmt.Errorf("logsource.Cache.Load: events: %w", err)
	}
	defer rows.Close()

	var events []protocol.Event
	for rows.Next() {
		var id, eventType, payload, ts string
		if err := rows.Scan(&id, &eventType, &payload, &ts); err != nil {
			return Log{}, fmt.Errorf("logsource.Cache.Load: scan: %w", err)
		}
		events = append(events, protocol.Event{
			ID:        id,
			Type:      protocol.Kind(eventType),
			Content:   decodePayload([]byte(payload)),
			Timestamp: parseTimestamp(ts),
		})
	}
	if err := rows.Err(); err != nil {
		return Log{}, fmt.Errorf("logsource.Cache.Load: rows: %w", err)
	}

	return Log{
		SessionID:     sessionID,
		WorkspaceRoot: workspace,
		Events:        events,
	}, nil
}

// SessionIDs lists cached sessions, most recently saved first.
func (c *Cache) SessionIDs(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id FROM cached_sessions ORDER BY saved_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("logsource.Cache.SessionIDs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("logsource.Cache.SessionIDs: scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("logsource.Cache.SessionIDs: rows: %w", err)
	}
	return ids, nil
}
