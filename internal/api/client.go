// Package api is the REST collaborator client: stored event logs,
// session listings, file uploads, and settings.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultTimeout bounds each REST call.
const DefaultTimeout = 60 * time.Second

// Client talks to the agent server's REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for baseURL (e.g. "http://localhost:8000/api").
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: DefaultTimeout},
	}
}

// NewWithHTTPClient creates a client with a caller-provided http.Client,
// used by tests and by callers that need custom transports.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	return &Client{baseURL: baseURL, http: hc}
}

// SessionInfo describes one stored session.
type SessionInfo struct {
	ID           string `json:"id"`
	WorkspaceDir string `json:"workspace_dir"`
	CreatedAt    string `json:"created_at"`
	DeviceID     string `json:"device_id"`
	Name         string `json:"name"`
}

// EventInfo is one stored event row.
type EventInfo struct {
	ID           string         `json:"id"`
	SessionID    string         `json:"session_id"`
	Timestamp    string         `json:"timestamp"`
	EventType    string         `json:"event_type"`
	EventPayload map[string]any `json:"event_payload"`
	WorkspaceDir string         `json:"workspace_dir"`
}

// FileInfo carries one upload payload. Content may be plain text or a
// data URL for binary files.
type FileInfo struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Sessions lists stored sessions for a device, newest first.
func (c *Client) Sessions(ctx context.Context, deviceID string) ([]SessionInfo, error) {
	var resp struct {
		Sessions []SessionInfo `json:"sessions"`
	}
	err := c.get(ctx, "/sessions/"+url.PathEscape(deviceID), &resp)
	if err != nil {
		return nil, fmt.Errorf("api.Client.Sessions: %w", err)
	}
	return resp.Sessions, nil
}

// SessionEvents fetches the ordered event log for a session, oldest
// first, plus the session workspace directory.
func (c *Client) SessionEvents(ctx context.Context, sessionID string) ([]EventInfo, string, error) {
	var resp struct {
		Events []EventInfo `json:"events"`
	}
	err := c.get(ctx, "/sessions/"+url.PathEscape(sessionID)+"/events", &resp)
	if err != nil {
		return nil, "", fmt.Errorf("api.Client.SessionEvents: %w", err)
	}

	workspace := ""
	if len(resp.Events) > 0 {
		workspace = resp.Events[0].WorkspaceDir
	}
	return resp.Events, workspace, nil
}

// UploadFile uploads one file into the session workspace and returns the
// workspace-relative saved path (the server may rename on collision).
func (c *Client) UploadFile(ctx context.Context, sessionID string, file FileInfo) (string, error) {
	req := map[string]any{
		"session_id": sessionID,
		"file":       file,
	}
	var resp struct {
		Message string `json:"message"`
		File    struct {
			Path      string `json:"path"`
			SavedPath string `json:"saved_path"`
		} `json:"file"`
	}
	err := c.post(ctx, "/upload", req, &resp)
	if err != nil {
		return "", fmt.Errorf("api.Client.UploadFile: %w", err)
	}
	return resp.File.Path, nil
}

// Settings fetches the server-side settings document.
func (c *Client) Settings(ctx context.Context) (map[string]any, error) {
	var resp map[string]any
	err := c.get(ctx, "/settings", &resp)
	if err != nil {
		return nil, fmt.Errorf("api.Client.Settings: %w", err)
	}
	return resp, nil
}

// SaveSettings writes the settings document back.
func (c *Client) SaveSettings(ctx context.Context, settings map[string]any) error {
	err := c.post(ctx, "/settings", settings, nil)
	if err != nil {
		return fmt.Errorf("api.Client.SaveSettings: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
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
		var apiErr struct {
			Error  string `json:"error"`
			Detail string `json:"detail"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s", req.Method, req.URL.Path, apiErr.Error)
		}
		if apiErr.Detail != "" {
			return fmt.Errorf("%s %s: %s", req.Method, req.URL.Path, apiErr.Detail)
		}
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
