package logsource

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/relive/internal/api"
	"github.com/gosuda/relive/internal/protocol"
)

func TestREST_Load(t *testing.T) {
	t.Parallel()

	r := chi.NewRouter()
	r.Get("/sessions/{sessionID}/events", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "s1", chi.URLParam(req, "sessionID"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"events": []map[string]any{
				{
					"id":            "e1",
					"session_id":    "s1",
					"event_type":    "workspace_info",
					"event_payload": map[string]any{"path": "/w/s1"},
					"timestamp":     "2026-08-01T12:00:00.000001",
					"workspace_dir": "/w/s1",
				},
				{
					"id":         "e2",
					"session_id": "s1",
					"event_type": "agent_response",
					"event_payload": map[string]any{
						"text": "done",
					},
					"timestamp": "2026-08-01T12:00:05.000001",
				},
			},
		})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	src := NewREST(api.New(srv.URL))
	lg, err := src.Load(context.Background(), "s1")
	require.NoError(t, err)

	assert.Equal(t, "s1", lg.SessionID)
	assert.Equal(t, "/w/s1", lg.WorkspaceRoot)
	require.Len(t, lg.Events, 2)
	assert.Equal(t, protocol.KindWorkspaceInfo, lg.Events[0].Type)
	assert.Equal(t, "/w/s1", lg.Events[0].Str("path"))
	assert.Equal(t, "done", lg.Events[1].Str("text"))
	assert.True(t, lg.Events[0].Timestamp.Before(lg.Events[1].Timestamp))
}

func TestREST_LoadServerError(t *testing.T) {
	t.Parallel()

	r := chi.NewRouter()
	r.Get("/sessions/{sessionID}/events", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "session not found"})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	src := NewREST(api.New(srv.URL))
	_, err := src.Load(context.Background(), "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session not found")
}
