package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	t.Parallel()

	ev, err := Decode([]byte(`{
		"id": "e1",
		"type": "tool_call",
		"content": {"tool_name": "bash", "tool_input": {"command": "ls"}},
		"timestamp": "2026-08-01T12:00:00Z"
	}`))
	require.NoError(t, err)

	assert.Equal(t, "e1", ev.ID)
	assert.Equal(t, KindToolCall, ev.Type)
	assert.Equal(t, "bash", ev.Str("tool_name"))
	assert.Equal(t, "ls", ev.Map("tool_input")["command"])
	assert.False(t, ev.Timestamp.IsZero())
}

func TestDecode_AssignsMissingID(t *testing.T) {
	t.Parallel()

	ev, err := Decode([]byte(`{"type": "processing"}`))
	require.NoError(t, err)
	assert.NotEmpty(t, ev.ID)
	assert.NotNil(t, ev.Content)
}

func TestDecode_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		frame string
	}{
		{"not json", `{{`},
		{"missing type", `{"id": "e1", "content": {}}`},
		{"empty frame", ``},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Decode([]byte(tt.frame))
			assert.Error(t, err)
		})
	}
}

func TestEventAccessors(t *testing.T) {
	t.Parallel()

	ev := Event{Content: map[string]any{
		"text":    "hello",
		"resume":  true,
		"files":   []any{"a.txt", 7, "b.txt"},
		"file":    map[string]any{"path": "/x"},
		"numeric": 42,
	}}

	assert.Equal(t, "hello", ev.Str("text"))
	assert.Empty(t, ev.Str("numeric"))
	assert.Empty(t, ev.Str("missing"))

	assert.True(t, ev.Bool("resume"))
	assert.False(t, ev.Bool("text"))

	assert.Equal(t, []string{"a.txt", "b.txt"}, ev.Strings("files"))
	assert.Nil(t, ev.Strings("text"))

	assert.Equal(t, "/x", ev.Map("file")["path"])
	assert.Nil(t, ev.Map("text"))
}

func TestToolClassification(t *testing.T) {
	t.Parallel()

	assert.True(t, IsBrowserTool(ToolBrowserClick))
	assert.True(t, IsBrowserTool(ToolBrowserNavigation))
	assert.False(t, IsBrowserTool(ToolWebSearch))

	assert.True(t, IsTextOnlyTool(ToolSequentialThinking))
	assert.True(t, IsTextOnlyTool(ToolMessageUser))
	assert.False(t, IsTextOnlyTool(ToolBash))

	assert.True(t, ResultIgnored(ToolPresentation))
	assert.False(t, ResultIgnored(ToolBash))
	assert.False(t, ResultIgnored(ToolReturnControl))
}

func TestRequestEncode(t *testing.T) {
	t.Parallel()

	frame, err := QueryRequest("run it", true, []string{"a.txt"}).Encode()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(frame, &decoded))
	assert.Equal(t, "query", decoded["type"])

	content := decoded["content"].(map[string]any)
	assert.Equal(t, "run it", content["text"])
	assert.Equal(t, true, content["resume"])
	assert.Equal(t, []any{"a.txt"}, content["files"])
}

func TestInitAgentRequestDefaults(t *testing.T) {
	t.Parallel()

	req := InitAgentRequest("claude-sonnet-4", nil)
	assert.Equal(t, "init_agent", req.Type)
	assert.Equal(t, "claude-sonnet-4", req.Content["model_name"])
	assert.NotNil(t, req.Content["tool_args"])
}
