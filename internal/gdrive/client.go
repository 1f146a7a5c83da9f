// Package gdrive talks to the agent server's Google Drive integration
// endpoints: connection status, picker tokens, and folder/file
// retrieval. OAuth flows and credential storage live server-side; the
// client only holds short-lived picker tokens.
package gdrive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// Folder is a Drive folder with its member files.
type Folder struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Files []DriveFile `json:"files"`
}

// DriveFile is one Drive file reference; Content is base64 or a data
// URL depending on the mime type.
type DriveFile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Content  string `json:"content,omitempty"`
}

// Client caches the picker token as an oauth2.Token and refreshes it
// through the server when it goes stale.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.Mutex
	token *oauth2.Token
}

// New creates a Drive client against baseURL (the same REST base as the
// api client).
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// NewWithHTTPClient is used by tests.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	return &Client{baseURL: baseURL, http: hc}
}

// Connected reports whether the server holds valid Drive credentials.
func (c *Client) Connected(ctx context.Context) (bool, error) {
	var resp struct {
		Connected bool `json:"connected"`
	}
	if err := c.get(ctx, "/google/status", &resp); err != nil {
		return false, fmt.Errorf("gdrive.Client.Connected: %w", err)
	}
	return resp.Connected, nil
}

// PickerToken returns a valid picker access token, reusing the cached
// one while it lives and asking the server to refresh otherwise.
func (c *Client) PickerToken(ctx context.Context) (*oauth2.Token, error) {
	c.mu.Lock()
	cached := c.token
	c.mu.Unlock()

	if cached.Valid() {
		return cached, nil
	}

	if cached != nil {
		// Stale token: have the server refresh its credentials first.
		if err := c.post(ctx, "/google/refresh", nil); err != nil {
			return nil, fmt.Errorf("gdrive.Client.PickerToken: refresh: %w", err)
		}
	}

	var resp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := c.get(ctx, "/google/picker-token", &resp); err != nil {
		return nil, fmt.Errorf("gdrive.Client.PickerToken: %w", err)
	}

	token := &oauth2.Token{
		AccessToken: resp.AccessToken,
		TokenType:   "Bearer",
	}
	if resp.ExpiresIn > 0 {
		token.Expiry = time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	return token, nil
}

// Folder fetches a folder and its member file listing.
func (c *Client) Folder(ctx context.Context, id string) (Folder, error) {
	var folder Folder
	if err := c.get(ctx, "/google/folders/"+id, &folder); err != nil {
		return Folder{}, fmt.Errorf("gdrive.Client.Folder: %w", err)
	}
	return folder, nil
}

// File fetches a single file including its content.
func (c *Client) File(ctx context.Context, id string) (DriveFile, error) {
	var file DriveFile
	if err := c.get(ctx, "/google/files/"+id, &file); err != nil {
		return DriveFile{}, fmt.Errorf("gdrive.Client.File: %w", err)
	}
	return file, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: status %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", req.URL.Path, err)
	}
	return nil
}
