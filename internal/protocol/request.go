package protocol

import (
	"encoding/json"
	"fmt"
)

// Request is a client-to-server protocol message.
type Request struct {
	Type    string         `json:"type"`
	Content map[string]any `json:"content"`
}

// Encode serializes the request as a wire frame.
func (r Request) Encode() ([]byte, error) {
	frame, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("protocol.Request.Encode: %w", err)
	}
	return frame, nil
}

// WorkspaceInfoRequest is the session bootstrap handshake, sent
// immediately after a successful connect.
func WorkspaceInfoRequest() Request {
	return Request{Type: "workspace_info", Content: map[string]any{}}
}

// InitAgentRequest configures the agent loop for this session.
func InitAgentRequest(model string, toolArgs map[string]any) Request {
	if toolArgs == nil {
		toolArgs = map[string]any{}
	}
	return Request{Type: "init_agent", Content: map[string]any{
		"model_name": model,
		"tool_args":  toolArgs,
	}}
}

// QueryRequest submits user text plus attached file paths.
func QueryRequest(text string, resume bool, files []string) Request {
	return Request{Type: "query", Content: map[string]any{
		"text":   text,
		"resume": resume,
		"files":  files,
	}}
}

// EditQueryRequest rewrites the most recent user query.
func EditQueryRequest(text string, files []string) Request {
	return Request{Type: "edit_query", Content: map[string]any{
		"text":  text,
		"files": files,
	}}
}

// EnhancePromptRequest asks the server to rewrite a draft prompt.
func EnhancePromptRequest(model, text string, files []string, toolArgs map[string]any) Request {
	if toolArgs == nil {
		toolArgs = map[string]any{}
	}
	return Request{Type: "enhance_prompt", Content: map[string]any{
		"model_name": model,
		"text":       text,
		"files":      files,
		"tool_args":  toolArgs,
	}}
}

// CancelRequest interrupts the running agent loop.
func CancelRequest() Request {
	return Request{Type: "cancel", Content: map[string]any{}}
}

// PingRequest is a liveness probe; the server answers with a pong event.
func PingRequest() Request {
	return Request{Type: "ping", Content: map[string]any{}}
}
