// Package logsource supplies the ordered, already-persisted event
// sequence for a session, used in replay mode. Implementations exist for
// the server REST API, a direct Postgres read of the server's event
// table, and a local SQLite cache for offline replay.
package logsource

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gosuda/relive/internal/protocol"
)

// Log is one session's stored history.
type Log struct {
	SessionID     string
	WorkspaceRoot string
	Events        []protocol.Event
}

// Source loads a session log.
type Source interface {
	Load(ctx context.Context, sessionID string) (Log, error)
}

// timestampLayouts covers the formats stored servers emit.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
	"2006-01-02T15:04:05",
}

func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func decodePayload(raw []byte) map[string]any {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil || payload == nil {
		return map[string]any{}
	}
	return payload
}
