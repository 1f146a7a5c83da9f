package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind identifies a server-to-client event.
type Kind string

const (
	KindConnectionEstablished Kind = "connection_established"
	KindAgentInitialized      Kind = "agent_initialized"
	KindUserMessage           Kind = "user_message"
	KindPromptGenerated       Kind = "prompt_generated"
	KindProcessing            Kind = "processing"
	KindWorkspaceInfo         Kind = "workspace_info"
	KindAgentThinking         Kind = "agent_thinking"
	KindToolCall              Kind = "tool_call"
	KindFileEdit              Kind = "file_edit"
	KindBrowserUse            Kind = "browser_use"
	KindToolResult            Kind = "tool_result"
	KindAgentResponse         Kind = "agent_response"
	KindStreamComplete        Kind = "stream_complete"
	KindUploadSuccess         Kind = "upload_success"
	KindSystem                Kind = "system"
	KindPong                  Kind = "pong"
	KindError                 Kind = "error"
)

// Event is one inbound protocol record describing agent activity.
// Events are immutable once decoded.
type Event struct {
	ID        string         `json:"id"`
	Type      Kind           `json:"type"`
	Content   map[string]any `json:"content"`
	Timestamp time.Time      `json:"timestamp,omitzero"`
}

// Decode parses a wire frame into an Event. Frames without an id are
// assigned one so downstream bookkeeping always has a key.
func Decode(frame []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(frame, &ev); err != nil {
		return Event{}, fmt.Errorf("protocol.Decode: %w", err)
	}
	if ev.Type == "" {
		return Event{}, fmt.Errorf("protocol.Decode: frame missing type")
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Content == nil {
		ev.Content = map[string]any{}
	}
	return ev, nil
}

// Str returns the string value stored under key, or "" when absent or
// of another type.
func (e Event) Str(key string) string {
	s, _ := e.Content[key].(string)
	return s
}

// Bool returns the bool value stored under key, defaulting to false.
func (e Event) Bool(key string) bool {
	b, _ := e.Content[key].(bool)
	return b
}

// Map returns the nested mapping stored under key, or nil.
func (e Event) Map(key string) map[string]any {
	m, _ := e.Content[key].(map[string]any)
	return m
}

// Strings returns the string slice stored under key. JSON arrays decode
// as []any, so each element is converted individually.
func (e Event) Strings(key string) []string {
	raw, ok := e.Content[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, sok := v.(string); sok {
			out = append(out, s)
		}
	}
	return out
}
