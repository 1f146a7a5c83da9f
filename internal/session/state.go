package session

import "maps"

// Role marks who authored a timeline message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Surface is the UI pane an action is routed to.
type Surface string

const (
	SurfaceBrowser  Surface = "browser"
	SurfaceCode     Surface = "code"
	SurfaceTerminal Surface = "terminal"
)

// ConnectionState is the transport's three-state status.
type ConnectionState string

const (
	Connecting   ConnectionState = "connecting"
	Connected    ConnectionState = "connected"
	Disconnected ConnectionState = "disconnected"
)

// ActionData carries the call input and, once merged, the result of one
// tool invocation.
type ActionData struct {
	ToolName  string         `json:"tool_name"`
	ToolInput map[string]any `json:"tool_input,omitempty"`
	Result    any            `json:"result,omitempty"`
	IsResult  bool           `json:"isResult,omitempty"`
	Path      string         `json:"path,omitempty"`
	Content   string         `json:"content,omitempty"`
	CallID    string         `json:"tool_call_id,omitempty"`
}

// Action is the call/result pair attached to a message, representing one
// tool invocation. IsResult transitions false to true exactly once.
type Action struct {
	Type string     `json:"type"`
	Data ActionData `json:"data"`
}

// Message is one entry of the ordered conversation timeline.
type Message struct {
	ID           string            `json:"id"`
	Role         Role              `json:"role"`
	Content      string            `json:"content,omitempty"`
	Files        []string          `json:"files,omitempty"`
	FileContents map[string]string `json:"fileContents,omitempty"`
	Action       *Action           `json:"action,omitempty"`
	Timestamp    int64             `json:"timestamp"`
	IsHidden     bool              `json:"isHidden,omitempty"`
}

// AppState is the authoritative session state. It is only mutated through
// the closed Transition set applied by a Store.
type AppState struct {
	Messages []Message

	IsLoading          bool
	IsCompleted        bool
	IsStopped          bool
	IsUploading        bool
	IsGeneratingPrompt bool
	AgentInitialized   bool

	ActiveSurface Surface
	CurrentAction *Action
	BrowserURL    string
	DraftText     string

	WorkspaceRoot string
	UploadedFiles []string
	FilesContent  map[string]string

	Connection    ConnectionState
	ToolSettings  map[string]any
	SelectedModel string
}

// clone returns a deep enough copy for read-only consumers: the message
// slice, actions, and maps are duplicated so later transitions cannot be
// observed through an old snapshot.
func (s AppState) clone() AppState {
	out := s
	out.Messages = make([]Message, len(s.Messages))
	for i, m := range s.Messages {
		out.Messages[i] = m.clone()
	}
	if s.CurrentAction != nil {
		a := *s.CurrentAction
		a.Data.ToolInput = maps.Clone(a.Data.ToolInput)
		out.CurrentAction = &a
	}
	out.UploadedFiles = append([]string(nil), s.UploadedFiles...)
	out.FilesContent = maps.Clone(s.FilesContent)
	out.ToolSettings = maps.Clone(s.ToolSettings)
	return out
}

func (m Message) clone() Message {
	out := m
	out.Files = append([]string(nil), m.Files...)
	out.FileContents = maps.Clone(m.FileContents)
	if m.Action != nil {
		a := *m.Action
		a.Data.ToolInput = maps.Clone(a.Data.ToolInput)
		out.Action = &a
	}
	return out
}

// LastMessage returns the trailing timeline entry.
func (s AppState) LastMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}
