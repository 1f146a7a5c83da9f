package router

import "sync"

// promptMarker is emitted after each command's output block.
const promptMarker = "$ "

// TerminalSink receives the shell tool's side-channel lines.
type TerminalSink interface {
	// WriteInput records a command line as typed at the prompt.
	WriteInput(line string)
	// WriteOutput records one line of command output.
	WriteOutput(line string)
	// Prompt records a fresh prompt marker after an output block.
	Prompt()
}

// Terminal is an in-memory TerminalSink holding the emitted lines in
// order. It backs both the CLI's terminal pane and the tests.
type Terminal struct {
	mu    sync.Mutex
	lines []string
}

// NewTerminal creates an empty terminal buffer.
func NewTerminal() *Terminal {
	return &Terminal{}
}

func (t *Terminal) WriteInput(line string) {
	t.mu.Lock()
	t.lines = append(t.lines, line)
	t.mu.Unlock()
}

func (t *Terminal) WriteOutput(line string) {
	t.mu.Lock()
	t.lines = append(t.lines, line)
	t.mu.Unlock()
}

func (t *Terminal) Prompt() {
	t.mu.Lock()
	t.lines = append(t.lines, promptMarker)
	t.mu.Unlock()
}

// Lines returns a copy of everything emitted so far.
func (t *Terminal) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.lines...)
}
