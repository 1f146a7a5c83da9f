// Package router decides which UI surface a finalized action belongs to
// and derives its side-channel payload (terminal lines, active file).
package router

import (
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/relive/internal/protocol"
	"github.com/gosuda/relive/internal/session"
)

// DefaultDebounce coalesces rapid-fire routings of the same tool kind
// (for example a call immediately followed by its merged result) so only
// the trailing one fires.
const DefaultDebounce = 50 * time.Millisecond

type pendingRoute struct {
	action      *session.Action
	showTabOnly bool
}

// Router routes actions to UI surfaces with per-tool-kind trailing-edge
// debouncing. A zero debounce window dispatches synchronously.
type Router struct {
	store    *session.Store
	terminal TerminalSink
	window   time.Duration

	mu         sync.Mutex
	timers     map[string]*time.Timer
	pending    map[string]pendingRoute
	activeFile string
	onFile     func(path string)
	closed     bool
}

// New creates a router writing surface selections to store and shell
// lines to terminal. terminal may be nil when no terminal pane exists.
func New(store *session.Store, terminal TerminalSink, window time.Duration) *Router {
	return &Router{
		store:    store,
		terminal: terminal,
		window:   window,
		timers:   map[string]*time.Timer{},
		pending:  map[string]pendingRoute{},
	}
}

// OnActiveFile registers a callback fired when the active file changes.
func (r *Router) OnActiveFile(fn func(path string)) {
	r.mu.Lock()
	r.onFile = fn
	r.mu.Unlock()
}

// ActiveFile returns the most recently routed editor path.
func (r *Router) ActiveFile() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeFile
}

// Route schedules the action for dispatch. With showTabOnly set, only
// the surface selection happens; terminal emission is skipped. Each tool
// kind has its own trailing-edge window: a newer routing for the same
// kind cancels and replaces a pending one.
func (r *Router) Route(action *session.Action, showTabOnly bool) {
	if action == nil {
		return
	}

	if r.window <= 0 {
		r.dispatch(pendingRoute{action: action, showTabOnly: showTabOnly})
		return
	}

	key := action.Type

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.pending[key] = pendingRoute{action: action, showTabOnly: showTabOnly}
	if timer, ok := r.timers[key]; ok {
		timer.Stop()
	}
	r.timers[key] = time.AfterFunc(r.window, func() { r.fire(key) })
	r.mu.Unlock()
}

// Close cancels pending dispatches.
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	for key, timer := range r.timers {
		timer.Stop()
		delete(r.timers, key)
		delete(r.pending, key)
	}
}

func (r *Router) fire(key string) {
	r.mu.Lock()
	req, ok := r.pending[key]
	delete(r.pending, key)
	delete(r.timers, key)
	closed := r.closed
	r.mu.Unlock()

	if ok && !closed {
		r.dispatch(req)
	}
}

func (r *Router) dispatch(req pendingRoute) {
	action := req.action

	surface, ok := surfaceFor(action.Type)
	if !ok {
		log.Debug().Str("tool", action.Type).Msg("router: unrouted tool kind")
		return
	}

	r.store.Apply(
		session.SetCurrentAction{Action: action},
		session.SetActiveSurface{Surface: surface},
	)

	switch action.Type {
	case protocol.ToolBash:
		if !req.showTabOnly {
			r.emitShell(action)
		}
	case protocol.ToolStrReplaceEditor:
		r.setActiveFile(action)
	}
}

// emitShell writes the command or its output to the terminal pane.
func (r *Router) emitShell(action *session.Action) {
	if r.terminal == nil {
		return
	}

	if !action.Data.IsResult {
		if cmd, ok := action.Data.ToolInput["command"].(string); ok && cmd != "" {
			r.terminal.WriteInput(cmd)
		}
		return
	}

	if out, ok := action.Data.Result.(string); ok {
		for _, line := range strings.Split(out, "\n") {
			r.terminal.WriteOutput(line)
		}
		r.terminal.Prompt()
	}
}

func (r *Router) setActiveFile(action *session.Action) {
	p := action.Data.Path
	if p == "" {
		p, _ = action.Data.ToolInput["path"].(string)
	}
	if p == "" {
		return
	}

	root := r.store.Snapshot().WorkspaceRoot
	resolved := session.ResolvePath(root, p)

	r.mu.Lock()
	r.activeFile = resolved
	fn := r.onFile
	r.mu.Unlock()

	if fn != nil {
		fn(resolved)
	}
}

// surfaceFor maps a tool kind to the UI pane it belongs to. Unrecognized
// kinds are not an error; they simply do not route anywhere.
func surfaceFor(tool string) (session.Surface, bool) {
	switch {
	case tool == protocol.ToolBash:
		return session.SurfaceTerminal, true
	case tool == protocol.ToolStrReplaceEditor:
		return session.SurfaceCode, true
	case tool == protocol.ToolWebSearch, tool == protocol.ToolVisit:
		return session.SurfaceBrowser, true
	case protocol.IsBrowserTool(tool):
		return session.SurfaceBrowser, true
	}
	return "", false
}
