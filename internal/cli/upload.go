package cli

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gosuda/relive/internal/api"
	"github.com/gosuda/relive/internal/attach"
	"github.com/gosuda/relive/internal/config"
	"github.com/gosuda/relive/internal/gdrive"
	"github.com/gosuda/relive/internal/notify"
	"github.com/gosuda/relive/internal/session"
)

func newUploadCmd() *cobra.Command {
	var (
		sessionID   string
		folder      string
		driveFolder string
	)

	cmd := &cobra.Command{
		Use:   "upload --session <id> [<file>... | --drive-folder <id>]",
		Short: "Upload files into a session workspace",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if sessionID == "" {
				return fmt.Errorf("--session is required")
			}
			if driveFolder != "" {
				if len(args) > 0 || folder != "" {
					return fmt.Errorf("--drive-folder cannot be combined with local files")
				}
				return runDriveUpload(cmd.Context(), cfg, sessionID, driveFolder)
			}
			if len(args) == 0 {
				return fmt.Errorf("nothing to upload: pass files or --drive-folder")
			}
			return runUpload(cmd.Context(), cfg, sessionID, folder, args)
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "target session id")
	cmd.Flags().StringVar(&folder, "folder", "", "group the files as one named folder attachment")
	cmd.Flags().StringVar(&driveFolder, "drive-folder", "", "ingest a Google Drive folder by id instead of local files")
	return cmd
}

func runUpload(ctx context.Context, cfg *config.Config, sessionID, folder string, paths []string) error {
	uploads := make([]attach.Upload, 0, len(paths))
	for _, p := range paths {
		content, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("reading %s: %w", p, err)
		}
		uploads = append(uploads, attach.Upload{
			Path:    filepath.Base(p),
			Content: content,
			MIME:    mime.TypeByExtension(filepath.Ext(p)),
		})
	}

	store := session.NewStore()
	notifier := notify.NewRegistry()
	notifier.Register(notify.Func(func(level notify.Level, message string) {
		fmt.Fprintf(os.Stderr, "[%s] %s\n", level, message)
	}))

	uploader := attach.NewUploader(api.New(cfg.Server.APIBase), store, notifier, nil)

	var saved []string
	if folder != "" {
		saved = uploader.UploadFolder(ctx, sessionID, folder, uploads)
	} else {
		saved = uploader.UploadAll(ctx, sessionID, uploads)
	}

	for _, p := range saved {
		fmt.Println(p)
	}
	if len(saved) < len(uploads) {
		return fmt.Errorf("%d of %d uploads failed", len(uploads)-len(saved), len(uploads))
	}
	return nil
}

// runDriveUpload ingests a Google Drive folder: fetch the folder and its
// member files through the server's Drive endpoints, then upload them as
// one named folder attachment so membership is recorded exactly.
func runDriveUpload(ctx context.Context, cfg *config.Config, sessionID, folderID string) error {
	drive := gdrive.New(cfg.Server.APIBase)

	connected, err := drive.Connected(ctx)
	if err != nil {
		return fmt.Errorf("checking Drive connection: %w", err)
	}
	if !connected {
		return fmt.Errorf("the server has no Google Drive credentials; connect Drive first")
	}

	folder, err := drive.Folder(ctx, folderID)
	if err != nil {
		return fmt.Errorf("fetching Drive folder %s: %w", folderID, err)
	}

	uploads := make([]attach.Upload, 0, len(folder.Files))
	for _, f := range folder.Files {
		file := f
		if file.Content == "" {
			file, err = drive.File(ctx, f.ID)
			if err != nil {
				return fmt.Errorf("fetching Drive file %s: %w", f.Name, err)
			}
		}
		content, mimeType := decodeDriveContent(file)
		uploads = append(uploads, attach.Upload{
			Path:    file.Name,
			Content: content,
			MIME:    mimeType,
		})
	}

	store := session.NewStore()
	notifier := notify.NewRegistry()
	notifier.Register(notify.Func(func(level notify.Level, message string) {
		fmt.Fprintf(os.Stderr, "[%s] %s\n", level, message)
	}))

	uploader := attach.NewUploader(api.New(cfg.Server.APIBase), store, notifier, nil)
	saved := uploader.UploadFolder(ctx, sessionID, folder.Name, uploads)

	for _, p := range saved {
		fmt.Println(p)
	}
	// Members plus the folder sentinel.
	if len(saved) < len(uploads)+1 {
		return fmt.Errorf("%d of %d uploads failed", len(uploads)+1-len(saved), len(uploads)+1)
	}
	return nil
}

// decodeDriveContent turns a DriveFile's content (a data URL or bare
// base64) into raw bytes plus the mime type to re-encode with.
func decodeDriveContent(file gdrive.DriveFile) ([]byte, string) {
	content := file.Content
	mimeType := file.MimeType

	if rest, ok := strings.CutPrefix(content, "data:"); ok {
		if meta, payload, found := strings.Cut(rest, ","); found {
			if m, enc, hasEnc := strings.Cut(meta, ";"); hasEnc && enc == "base64" && m != "" {
				mimeType = m
			}
			content = payload
		}
	}

	if decoded, err := base64.StdEncoding.DecodeString(content); err == nil {
		return decoded, mimeType
	}
	// Plain-text Drive exports arrive unencoded.
	return []byte(content), mimeType
}
