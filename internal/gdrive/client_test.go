package gdrive

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDriveServer(t *testing.T, tokenFetches, refreshes *atomic.Int64) *httptest.Server {
	t.Helper()

	r := chi.NewRouter()
	r.Get("/google/status", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]bool{"connected": true})
	})
	r.Post("/google/refresh", func(w http.ResponseWriter, _ *http.Request) {
		refreshes.Add(1)
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/google/picker-token", func(w http.ResponseWriter, _ *http.Request) {
		tokenFetches.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "picker-token",
			"expires_in":   3600,
		})
	})
	r.Get("/google/folders/{id}", func(w http.ResponseWriter, req *http.Request) {
		_ = json.NewEncoder(w).Encode(Folder{
			ID:   chi.URLParam(req, "id"),
			Name: "Notes",
			Files: []DriveFile{
				{ID: "f1", Name: "summary.pdf", MimeType: "application/pdf"},
				{ID: "f2", Name: "draft.md", MimeType: "text/markdown"},
			},
		})
	})
	r.Get("/google/files/{id}", func(w http.ResponseWriter, req *http.Request) {
		_ = json.NewEncoder(w).Encode(DriveFile{
			ID:      chi.URLParam(req, "id"),
			Name:    "summary.pdf",
			Content: "data:application/pdf;base64,JVBERi0=",
		})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Connected(t *testing.T) {
	t.Parallel()

	var fetches, refreshes atomic.Int64
	c := New(newDriveServer(t, &fetches, &refreshes).URL)

	connected, err := c.Connected(context.Background())
	require.NoError(t, err)
	assert.True(t, connected)
}

func TestClient_PickerTokenCaching(t *testing.T) {
	t.Parallel()

	var fetches, refreshes atomic.Int64
	c := New(newDriveServer(t, &fetches, &refreshes).URL)
	ctx := context.Background()

	first, err := c.PickerToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "picker-token", first.AccessToken)
	assert.True(t, first.Valid())

	// A live token is reused without another fetch or refresh.
	second, err := c.PickerToken(ctx)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.EqualValues(t, 1, fetches.Load())
	assert.EqualValues(t, 0, refreshes.Load())
}

func TestClient_FolderAndFile(t *testing.T) {
	t.Parallel()

	var fetches, refreshes atomic.Int64
	c := New(newDriveServer(t, &fetches, &refreshes).URL)
	ctx := context.Background()

	folder, err := c.Folder(ctx, "dir-1")
	require.NoError(t, err)
	assert.Equal(t, "Notes", folder.Name)
	require.Len(t, folder.Files, 2)
	assert.Equal(t, "summary.pdf", folder.Files[0].Name)

	file, err := c.File(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "f1", file.ID)
	assert.Contains(t, file.Content, "base64,")
}

func TestClient_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL)
	_, err := c.Connected(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}
