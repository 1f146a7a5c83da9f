package session

import "slices"

// Transition is one element of the closed state-transition set. The
// interface is sealed: only this package can define transitions, which
// keeps every possible AppState mutation enumerable.
type Transition interface {
	apply(*AppState)
}

// AppendMessage appends one message to the timeline.
type AppendMessage struct {
	Message Message
}

func (t AppendMessage) apply(s *AppState) {
	s.Messages = append(s.Messages, t.Message)
}

// PatchAction merges a tool result into the action of the message with
// the given id. IsResult is one-way: once set it is never cleared,
// and an already-resolved action is left untouched.
type PatchAction struct {
	MessageID string
	Result    any
}

func (t PatchAction) apply(s *AppState) {
	m := findMessage(s, t.MessageID)
	if m == nil || m.Action == nil || m.Action.Data.IsResult {
		return
	}
	m.Action.Data.Result = t.Result
	m.Action.Data.IsResult = true
}

// PatchFileEdit updates the path and content of a file-editor action.
type PatchFileEdit struct {
	MessageID string
	Path      string
	Content   string
}

func (t PatchFileEdit) apply(s *AppState) {
	m := findMessage(s, t.MessageID)
	if m == nil || m.Action == nil {
		return
	}
	m.Action.Data.Path = t.Path
	m.Action.Data.Content = t.Content
}

// PatchMessageText rewrites the text and file list of an existing
// message, keyed by id (the edit-query flow).
type PatchMessageText struct {
	MessageID string
	Content   string
	Files     []string
}

func (t PatchMessageText) apply(s *AppState) {
	m := findMessage(s, t.MessageID)
	if m == nil {
		return
	}
	m.Content = t.Content
	m.Files = append([]string(nil), t.Files...)
}

// RecordFileContent stores file content keyed by its workspace-resolved
// absolute path, last write wins.
type RecordFileContent struct {
	Path    string
	Content string
}

func (t RecordFileContent) apply(s *AppState) {
	if s.FilesContent == nil {
		s.FilesContent = map[string]string{}
	}
	s.FilesContent[t.Path] = t.Content
}

// SetLoading toggles the loading flag.
type SetLoading struct{ Loading bool }

func (t SetLoading) apply(s *AppState) { s.IsLoading = t.Loading }

// SetCompleted marks the agent turn finished and stops loading.
type SetCompleted struct{}

func (t SetCompleted) apply(s *AppState) {
	s.IsCompleted = true
	s.IsLoading = false
}

// SetStopped records a user-initiated cancel.
type SetStopped struct{ Stopped bool }

func (t SetStopped) apply(s *AppState) { s.IsStopped = t.Stopped }

// SetUploading toggles the attachment batch flag.
type SetUploading struct{ Uploading bool }

func (t SetUploading) apply(s *AppState) { s.IsUploading = t.Uploading }

// SetGeneratingPrompt toggles the prompt-enhancement flag.
type SetGeneratingPrompt struct{ Generating bool }

func (t SetGeneratingPrompt) apply(s *AppState) { s.IsGeneratingPrompt = t.Generating }

// SetDraftText replaces the composer draft.
type SetDraftText struct{ Text string }

func (t SetDraftText) apply(s *AppState) { s.DraftText = t.Text }

// SetAgentInitialized records the agent_initialized handshake.
type SetAgentInitialized struct{}

func (t SetAgentInitialized) apply(s *AppState) { s.AgentInitialized = true }

// SetWorkspaceRoot records the session workspace directory. First write
// wins; later writes are ignored so paths resolved earlier stay valid.
type SetWorkspaceRoot struct{ Path string }

func (t SetWorkspaceRoot) apply(s *AppState) {
	if s.WorkspaceRoot == "" {
		s.WorkspaceRoot = t.Path
	}
}

// SetBrowserURL updates the embedded browser location.
type SetBrowserURL struct{ URL string }

func (t SetBrowserURL) apply(s *AppState) { s.BrowserURL = t.URL }

// SetActiveSurface selects the visible UI pane.
type SetActiveSurface struct{ Surface Surface }

func (t SetActiveSurface) apply(s *AppState) { s.ActiveSurface = t.Surface }

// SetCurrentAction points the UI at the action most recently routed.
type SetCurrentAction struct{ Action *Action }

func (t SetCurrentAction) apply(s *AppState) { s.CurrentAction = t.Action }

// SetConnection updates the transport status.
type SetConnection struct{ State ConnectionState }

func (t SetConnection) apply(s *AppState) { s.Connection = t.State }

// AddUploadedFiles appends successfully uploaded paths, skipping paths
// already recorded.
type AddUploadedFiles struct{ Files []string }

func (t AddUploadedFiles) apply(s *AppState) {
	for _, f := range t.Files {
		if !slices.Contains(s.UploadedFiles, f) {
			s.UploadedFiles = append(s.UploadedFiles, f)
		}
	}
}

// SetToolSettings replaces the tool configuration map.
type SetToolSettings struct{ Settings map[string]any }

func (t SetToolSettings) apply(s *AppState) { s.ToolSettings = t.Settings }

// SetSelectedModel records the model choice.
type SetSelectedModel struct{ Model string }

func (t SetSelectedModel) apply(s *AppState) { s.SelectedModel = t.Model }

// Reset clears the session back to its initial state (navigate away or
// new task). Connection status survives the reset.
type Reset struct{}

func (t Reset) apply(s *AppState) {
	conn := s.Connection
	*s = AppState{Connection: conn}
}

func findMessage(s *AppState, id string) *Message {
	for i := range s.Messages {
		if s.Messages[i].ID == id {
			return &s.Messages[i]
		}
	}
	return nil
}
