package logsource

import (
	"context"
	"fmt"

	"github.com/gosuda/relive/internal/api"
	"github.com/gosuda/relive/internal/protocol"
)

// REST loads session logs through the server's REST API.
type REST struct {
	client *api.Client
}

// NewREST creates a REST-backed source.
func NewREST(client *api.Client) *REST {
	return &REST{client: client}
}

// Load fetches the ordered event log for sessionID.
func (r *REST) Load(ctx context.Context, sessionID string) (Log, error) {
	infos, workspace, err := r.client.SessionEvents(ctx, sessionID)
	if err != nil {
		return Log{}, fmt.Errorf("logsource.REST.Load: %w", err)
	}

	events := make([]protocol.Event, 0, len(infos))
	for _, info := range infos {
		content := info.EventPayload
		if content == nil {
			content = map[string]any{}
		}
		events = append(events, protocol.Event{
			ID:        info.ID,
			Type:      protocol.Kind(info.EventType),
			Content:   content,
			Timestamp: parseTimestamp(info.Timestamp),
		})
	}

	return Log{
		SessionID:     sessionID,
		WorkspaceRoot: workspace,
		Events:        events,
	}, nil
}
