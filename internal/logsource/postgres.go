package logsource

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/relive/internal/protocol"
)

// Postgres reads session logs straight out of the server's database,
// bypassing the REST API. Intended for ops tooling running with direct
// database access.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to the server database at dsn.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("logsource.NewPostgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("logsource.NewPostgres: ping: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool.
func NewPostgresFromPool(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Close releases the pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// Load reads the ordered event log for sessionID.
func (p *Postgres) Load(ctx context.Context, sessionID string) (Log, error) {
	var workspace string
	err := p.pool.QueryRow(ctx,
		`SELECT workspace_dir FROM session WHERE id = $1`,
		sessionID,
	).Scan(&workspace)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Log{}, fmt.Errorf("logsource.Postgres.Load: session %s not found", sessionID)
		}
		return Log{}, fmt.Errorf("logsource.Postgres.Load: session: %w", err)
	}

	rows, err := p.pool.Query(ctx,
		`SELECT id, event_type, event_payload, timestamp
		 FROM event WHERE session_id = $1
		 ORDER BY timestamp ASC`,
		sessionID,
	)
	if err != nil {
		return Log{}, fmt.Errorf("logsource.Postgres.Load: events: %w", err)
	}
	defer rows.Close()

	var events []protocol.Event
	for rows.Next() {
		var (
			id        string
			eventType string
			payload   []byte
			ts        time.Time
		)
		if err := rows.Scan(&id, &eventType, &payload, &ts); err != nil {
			return Log{}, fmt.Errorf("logsource.Postgres.Load: scan: %w", err)
		}
		events = append(events, protocol.Event{
			ID:        id,
			Type:      protocol.Kind(eventType),
			Content:   decodePayload(payload),
			Timestamp: ts,
		})
	}
	if err := rows.Err(); err != nil {
		return Log{}, fmt.Errorf("logsource.Postgres.Load: rows: %w", err)
	}

	return Log{
		SessionID:     sessionID,
		WorkspaceRoot: workspace,
		Events:        events,
	}, nil
}
