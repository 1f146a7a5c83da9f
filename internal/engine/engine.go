// Package engine is the correlation state machine: it consumes one
// protocol event at a time, from the live transport or the replay
// scheduler, and turns it into session store transitions.
package engine

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/relive/internal/notify"
	"github.com/gosuda/relive/internal/protocol"
	"github.com/gosuda/relive/internal/session"
)

// ActionRouter receives finalized actions for UI-surface routing.
type ActionRouter interface {
	Route(action *session.Action, showTabOnly bool)
}

// Engine reconciles the raw event stream into the session store. Events
// are processed strictly one at a time; every transition is applied
// synchronously, so each event observes the effects of its predecessor.
type Engine struct {
	store    *session.Store
	router   ActionRouter
	notifier notify.Notifier

	mu       sync.Mutex
	pending  *pendingTable
	suppress bool
}

// New creates an engine. router may be nil when no UI surfaces exist
// (headless replay); notifier may be nil to default to the log sink.
func New(store *session.Store, router ActionRouter, notifier notify.Notifier) *Engine {
	if notifier == nil {
		notifier = notify.Log{}
	}
	return &Engine{
		store:    store,
		router:   router,
		notifier: notifier,
		pending:  newPendingTable(),
	}
}

// SuppressEffects toggles visual side effects (action routing). State
// transitions still apply, so a fast-forwarded replay converges to the
// same final state as a fully paced one.
func (e *Engine) SuppressEffects(v bool) {
	e.mu.Lock()
	e.suppress = v
	e.mu.Unlock()
}

// HandleEvent applies one inbound event to the session state.
func (e *Engine) HandleEvent(ev protocol.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch ev.Type {
	case protocol.KindConnectionEstablished:
		if p := ev.Str("workspace_path"); p != "" {
			e.setWorkspaceRoot(p)
		}

	case protocol.KindAgentInitialized:
		e.store.Apply(session.SetAgentInitialized{})

	case protocol.KindUserMessage:
		e.store.Apply(session.AppendMessage{Message: session.Message{
			ID:        messageID(ev),
			Role:      session.RoleUser,
			Content:   ev.Str("text"),
			Files:     ev.Strings("files"),
			Timestamp: timestamp(ev),
		}})

	case protocol.KindPromptGenerated:
		e.store.Apply(
			session.SetGeneratingPrompt{Generating: false},
			session.SetDraftText{Text: ev.Str("result")},
		)

	case protocol.KindProcessing:
		e.store.Apply(
			session.SetLoading{Loading: true},
			session.SetStopped{Stopped: false},
		)

	case protocol.KindWorkspaceInfo:
		e.setWorkspaceRoot(ev.Str("path"))

	case protocol.KindAgentThinking:
		e.appendAssistantText(ev, ev.Str("text"))

	case protocol.KindToolCall:
		e.handleToolCall(ev)

	case protocol.KindFileEdit:
		e.handleFileEdit(ev)

	case protocol.KindBrowserUse:
		// Reserved by the protocol, currently inert.
		log.Debug().Str("event_id", ev.ID).Msg("engine: browser_use event ignored")

	case protocol.KindToolResult:
		e.handleToolResult(ev)

	case protocol.KindAgentResponse:
		e.appendAssistantText(ev, ev.Str("text"))
		e.store.Apply(session.SetCompleted{})

	case protocol.KindStreamComplete:
		e.store.Apply(session.SetLoading{Loading: false})

	case protocol.KindUploadSuccess:
		e.handleUploadSuccess(ev)

	case protocol.KindSystem:
		if msg := ev.Str("message"); msg != "" {
			e.notifier.Notify(notify.LevelInfo, msg)
		}

	case protocol.KindPong:
		// Liveness answer, nothing to reconcile.

	case protocol.KindError:
		e.store.Apply(
			session.SetLoading{Loading: false},
			session.SetUploading{Uploading: false},
			session.SetGeneratingPrompt{Generating: false},
		)
		e.notifier.Notify(notify.LevelError, ev.Str("message"))

	default:
		log.Debug().Str("type", string(ev.Type)).Msg("engine: unknown event kind dropped")
	}
}

func (e *Engine) setWorkspaceRoot(p string) {
	if p == "" {
		return
	}
	if current := e.store.Snapshot().WorkspaceRoot; current != "" {
		if current != p {
			log.Warn().Str("current", current).Str("ignored", p).Msg("engine: workspace root already set")
		}
		return
	}
	e.store.Apply(session.SetWorkspaceRoot{Path: p})
}

func (e *Engine) appendAssistantText(ev protocol.Event, text string) {
	e.store.Apply(session.AppendMessage{Message: session.Message{
		ID:        messageID(ev),
		Role:      session.RoleAssistant,
		Content:   text,
		Timestamp: timestamp(ev),
	}})
}

// handleToolCall appends either a plain text message (thinking and
// user-addressed tools) or an action-carrying message that the result
// will later merge into.
func (e *Engine) handleToolCall(ev protocol.Event) {
	name := ev.Str("tool_name")
	input := ev.Map("tool_input")

	if protocol.IsTextOnlyTool(name) {
		text, _ := input["text"].(string)
		if name == protocol.ToolSequentialThinking {
			text, _ = input["thought"].(string)
		}
		e.appendAssistantText(ev, text)
		return
	}

	action := &session.Action{
		Type: name,
		Data: session.ActionData{
			ToolName:  name,
			ToolInput: input,
			CallID:    ev.Str("tool_call_id"),
		},
	}
	msg := session.Message{
		ID:        messageID(ev),
		Role:      session.RoleAssistant,
		Action:    action,
		Timestamp: timestamp(ev),
	}

	transitions := []session.Transition{session.AppendMessage{Message: msg}}
	if url, ok := input["url"].(string); ok && navigable(url) {
		transitions = append(transitions, session.SetBrowserURL{URL: url})
	}
	e.store.Apply(transitions...)

	e.pending.add(action.Data.CallID, msg.ID, name)
	e.route(action)
}

// handleFileEdit patches the trailing editor action in place and records
// the edited content under its workspace-resolved path. A trailing
// message of any other shape makes this a no-op.
func (e *Engine) handleFileEdit(ev protocol.Event) {
	last, ok := e.store.LastMessage()
	if !ok || last.Action == nil || last.Action.Type != protocol.ToolStrReplaceEditor {
		return
	}

	root := e.store.Snapshot().WorkspaceRoot
	resolved := session.ResolvePath(root, ev.Str("path"))
	content := ev.Str("content")

	e.store.Apply(
		session.PatchFileEdit{MessageID: last.ID, Path: resolved, Content: content},
		session.RecordFileContent{Path: resolved, Content: content},
	)
}

// handleToolResult pairs a result with its originating call. Pairing
// order: correlation id when the server sent one, then the trailing
// message while its same-kind action is still unresolved, then the
// orphan-result fallback (append as a fresh message).
func (e *Engine) handleToolResult(ev protocol.Event) {
	name := ev.Str("tool_name")

	if name == protocol.ToolReturnControl {
		e.store.Apply(session.SetLoading{Loading: false})
		return
	}
	if protocol.ResultIgnored(name) {
		return
	}

	result := ev.Content["result"]
	if protocol.IsBrowserTool(name) {
		result = extractImagePayload(result)
	}

	if targetID, ok := e.resolveTarget(ev.Str("tool_call_id"), name); ok {
		e.store.Apply(session.PatchAction{MessageID: targetID, Result: result})
		e.pending.drop(targetID)
		if merged, found := e.store.MessageByID(targetID); found && merged.Action != nil {
			e.route(merged.Action)
		}
		return
	}

	// Orphan result: no unresolved same-kind call to merge into.
	action := &session.Action{
		Type: name,
		Data: session.ActionData{
			ToolName: name,
			Result:   result,
			IsResult: true,
			CallID:   ev.Str("tool_call_id"),
		},
	}
	e.store.Apply(session.AppendMessage{Message: session.Message{
		ID:        messageID(ev),
		Role:      session.RoleAssistant,
		Action:    action,
		Timestamp: timestamp(ev),
	}})
	e.route(action)
}

// resolveTarget finds the message whose action this result belongs to.
func (e *Engine) resolveTarget(callID, tool string) (string, bool) {
	if callID != "" {
		if call, ok := e.pending.take(callID); ok {
			return call.messageID, true
		}
	}

	last, ok := e.store.LastMessage()
	if ok && last.Action != nil && last.Action.Type == tool && !last.Action.Data.IsResult {
		return last.ID, true
	}
	return "", false
}

func (e *Engine) handleUploadSuccess(ev protocol.Event) {
	var files []string
	if f := ev.Map("file"); f != nil {
		if p, ok := f["path"].(string); ok && p != "" {
			files = append(files, p)
		}
	}
	files = append(files, ev.Strings("files")...)

	transitions := []session.Transition{session.SetUploading{Uploading: false}}
	if len(files) > 0 {
		transitions = append(transitions, session.AddUploadedFiles{Files: files})
	}
	e.store.Apply(transitions...)
}

func (e *Engine) route(action *session.Action) {
	if e.router == nil || e.suppress {
		return
	}
	e.router.Route(action, false)
}

// extractImagePayload digs the screenshot data out of a browser-tool
// result block list. Anything without an image block passes through raw.
func extractImagePayload(result any) any {
	blocks, ok := result.([]any)
	if !ok {
		return result
	}
	for _, b := range blocks {
		m, mok := b.(map[string]any)
		if !mok || m["type"] != "image" {
			continue
		}
		if src, sok := m["source"].(map[string]any); sok {
			if data, dok := src["data"].(string); dok {
				return data
			}
		}
		if data, dok := m["data"].(string); dok {
			return data
		}
	}
	return result
}

func navigable(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

func messageID(ev protocol.Event) string {
	if ev.ID != "" {
		return ev.ID
	}
	return uuid.NewString()
}

func timestamp(ev protocol.Event) int64 {
	if !ev.Timestamp.IsZero() {
		return ev.Timestamp.UnixMilli()
	}
	return time.Now().UnixMilli()
}
