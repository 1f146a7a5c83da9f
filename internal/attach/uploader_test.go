package attach

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/relive/internal/api"
	"github.com/gosuda/relive/internal/notify"
	"github.com/gosuda/relive/internal/session"
)

type captureNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *captureNotifier) Notify(_ notify.Level, message string) {
	n.mu.Lock()
	n.messages = append(n.messages, message)
	n.mu.Unlock()
}

// newUploadServer serves POST /upload, failing any path containing
// "broken" and echoing the rest back under /workspace/uploads/.
func newUploadServer(t *testing.T, calls *atomic.Int64) *httptest.Server {
	t.Helper()

	r := chi.NewRouter()
	r.Post("/upload", func(w http.ResponseWriter, req *http.Request) {
		calls.Add(1)

		var body struct {
			SessionID string       `json:"session_id"`
			File      api.FileInfo `json:"file"`
		}
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))

		if strings.Contains(body.File.Path, "broken") {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "disk full"})
			return
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": "ok",
			"file": map[string]string{
				"path": "/workspace/uploads/" + body.File.Path,
			},
		})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestUploadAll(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	srv := newUploadServer(t, &calls)

	store := session.NewStore()
	nt := &captureNotifier{}
	u := NewUploader(api.New(srv.URL), store, nt, nil)

	saved := u.UploadAll(context.Background(), "s1", []Upload{
		{Path: "a.txt", Content: []byte("aaa"), MIME: "text/plain"},
		{Path: "b.png", Content: []byte{0x89, 0x50}, MIME: "image/png"},
	})

	assert.Len(t, saved, 2)
	assert.EqualValues(t, 2, calls.Load())
	assert.Empty(t, nt.messages)

	state := store.Snapshot()
	assert.False(t, state.IsUploading)
	assert.ElementsMatch(t, []string{
		"/workspace/uploads/a.txt",
		"/workspace/uploads/b.png",
	}, state.UploadedFiles)
}

func TestUploadAll_PartialFailure(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	srv := newUploadServer(t, &calls)

	store := session.NewStore()
	nt := &captureNotifier{}
	u := NewUploader(api.New(srv.URL), store, nt, nil)

	saved := u.UploadAll(context.Background(), "s1", []Upload{
		{Path: "good.txt", Content: []byte("x")},
		{Path: "broken-1.txt", Content: []byte("x")},
		{Path: "broken-2.txt", Content: []byte("x")},
	})

	// Failures never abort siblings, and are surfaced exactly once.
	assert.Equal(t, []string{"/workspace/uploads/good.txt"}, saved)
	assert.EqualValues(t, 3, calls.Load())
	require.Len(t, nt.messages, 1)
	assert.Equal(t, "2 file(s) failed to upload", nt.messages[0])
	assert.False(t, store.Snapshot().IsUploading)
}

func TestUploadAll_EmptyBatch(t *testing.T) {
	t.Parallel()

	store := session.NewStore()
	u := NewUploader(api.New("http://127.0.0.1:0"), store, nil, nil)
	assert.Nil(t, u.UploadAll(context.Background(), "s1", nil))
	assert.Empty(t, store.Snapshot().UploadedFiles)
}

func TestUploadFolder(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	srv := newUploadServer(t, &calls)

	store := session.NewStore()
	u := NewUploader(api.New(srv.URL), store, &captureNotifier{}, nil)

	saved := u.UploadFolder(context.Background(), "s1", "Notes", []Upload{
		{Path: "summary.pdf", Content: []byte("p")},
		{Path: "draft.md", Content: []byte("d")},
	})

	// Members plus the sentinel pseudo-file.
	assert.Len(t, saved, 3)
	assert.EqualValues(t, 3, calls.Load())

	// Membership was recorded, so the history drops the member files and
	// keeps the sentinel entry.
	var sentinel string
	for _, f := range store.Snapshot().UploadedFiles {
		if strings.Contains(f, "folder:Notes:2") {
			sentinel = f
		}
		assert.NotContains(t, f, "summary.pdf")
		assert.NotContains(t, f, "draft.md")
	}
	assert.NotEmpty(t, sentinel)
}

func TestUploadFolder_DoesNotAliasCallerSlice(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	srv := newUploadServer(t, &calls)

	store := session.NewStore()
	u := NewUploader(api.New(srv.URL), store, &captureNotifier{}, nil)

	// A members slice with spare capacity: the sentinel must not be
	// written into the caller's backing array.
	backing := make([]Upload, 3)
	backing[0] = Upload{Path: "a.txt", Content: []byte("a")}
	backing[1] = Upload{Path: "b.txt", Content: []byte("b")}
	backing[2] = Upload{Path: "guard.txt", Content: []byte("g")}
	members := backing[:2]

	u.UploadFolder(context.Background(), "s1", "Notes", members)

	assert.Equal(t, "guard.txt", backing[2].Path)
}

func TestEncodeContent(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "data:text/plain;base64,aGk=", encodeContent(Upload{
		Content: []byte("hi"),
		MIME:    "text/plain",
	}))
	assert.Equal(t, "data:application/octet-stream;base64,", encodeContent(Upload{}))
}
