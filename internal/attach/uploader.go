// Package attach uploads files and folders out-of-band and feeds the
// resulting paths into the session state.
package attach

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/gosuda/relive/internal/api"
	"github.com/gosuda/relive/internal/notify"
	"github.com/gosuda/relive/internal/session"
)

// defaultUploadRate bounds the request rate of a fan-out batch so a big
// folder does not hammer the server.
var defaultUploadRate = rate.Limit(10)

// Upload is one file to push into the workspace.
type Upload struct {
	Path    string
	Content []byte
	MIME    string
}

// Uploader pushes attachment batches to the server. Files in one batch
// upload concurrently; the uploading flag covers the whole batch and
// per-file failures are aggregated into a single notification without
// aborting siblings.
type Uploader struct {
	client   *api.Client
	store    *session.Store
	notifier notify.Notifier
	registry *Registry
	limiter  *rate.Limiter
}

// NewUploader creates an uploader. registry may be shared with the UI
// layer that renders the deduplicated attachment list.
func NewUploader(client *api.Client, store *session.Store, notifier notify.Notifier, registry *Registry) *Uploader {
	if notifier == nil {
		notifier = notify.Log{}
	}
	if registry == nil {
		registry = NewRegistry()
	}
	return &Uploader{
		client:   client,
		store:    store,
		notifier: notifier,
		registry: registry,
		limiter:  rate.NewLimiter(defaultUploadRate, 4),
	}
}

// Registry returns the folder-membership registry.
func (u *Uploader) Registry() *Registry {
	return u.registry
}

// UploadAll uploads every file concurrently and waits for the batch.
// It returns the saved workspace paths; failures are counted and
// surfaced once.
func (u *Uploader) UploadAll(ctx context.Context, sessionID string, uploads []Upload) []string {
	if len(uploads) == 0 {
		return nil
	}

	u.store.Apply(session.SetUploading{Uploading: true})
	defer u.store.Apply(session.SetUploading{Uploading: false})

	var (
		mu     sync.Mutex
		saved  []string
		failed int
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, up := range uploads {
		up := up
		g.Go(func() error {
			if err := u.limiter.Wait(gctx); err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}

			path, err := u.client.UploadFile(gctx, sessionID, api.FileInfo{
				Path:    up.Path,
				Content: encodeContent(up),
			})

			mu.Lock()
			if err != nil {
				log.Error().Err(err).Str("path", up.Path).Msg("attach: upload failed")
				failed++
			} else {
				saved = append(saved, path)
			}
			mu.Unlock()
			// A per-file failure never aborts its siblings.
			return nil
		})
	}
	_ = g.Wait()

	if failed > 0 {
		u.notifier.Notify(notify.LevelWarning, fmt.Sprintf("%d file(s) failed to upload", failed))
	}
	if len(saved) > 0 {
		u.store.Apply(session.AddUploadedFiles{Files: u.registry.Dedup(saved)})
	}
	return saved
}

// UploadFolder uploads a folder's member files plus the folder sentinel
// pseudo-file, and records membership for exact dedup.
func (u *Uploader) UploadFolder(ctx context.Context, sessionID, folderName string, members []Upload) []string {
	names := make([]string, 0, len(members))
	for _, m := range members {
		names = append(names, m.Path)
	}
	u.registry.RegisterFolder(folderName, names)

	sentinel := Upload{
		Path:    FolderSentinel(folderName, len(members)),
		Content: []byte(strings.Join(names, "\n")),
		MIME:    "text/plain",
	}
	batch := make([]Upload, 0, len(members)+1)
	batch = append(batch, members...)
	batch = append(batch, sentinel)
	return u.UploadAll(ctx, sessionID, batch)
}

// encodeContent produces the data-URL form the upload endpoint expects
// for binary payloads.
func encodeContent(up Upload) string {
	mime := up.MIME
	if mime == "" {
		mime = "application/octet-stream"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(up.Content)
}
