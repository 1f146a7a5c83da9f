package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_ApplyIsAtomic(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.Apply(
		AppendMessage{Message: Message{ID: "m1", Role: RoleUser, Content: "hi"}},
		SetLoading{Loading: true},
	)

	state := s.Snapshot()
	require.Len(t, state.Messages, 1)
	assert.True(t, state.IsLoading)
}

func TestStore_SnapshotIsolation(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.Apply(AppendMessage{Message: Message{
		ID:     "m1",
		Action: &Action{Type: "bash", Data: ActionData{ToolInput: map[string]any{"command": "ls"}}},
	}})

	snap := s.Snapshot()
	snap.Messages[0].Content = "mutated"
	snap.Messages[0].Action.Data.ToolInput["command"] = "rm -rf /"
	snap.FilesContent = map[string]string{"x": "y"}

	fresh := s.Snapshot()
	assert.Empty(t, fresh.Messages[0].Content)
	assert.Equal(t, "ls", fresh.Messages[0].Action.Data.ToolInput["command"])
	assert.Nil(t, fresh.FilesContent)
}

func TestStore_PatchActionIsOneWay(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.Apply(AppendMessage{Message: Message{
		ID:     "m1",
		Action: &Action{Type: "bash", Data: ActionData{ToolName: "bash"}},
	}})

	s.Apply(PatchAction{MessageID: "m1", Result: "first"})
	s.Apply(PatchAction{MessageID: "m1", Result: "second"})

	msg, ok := s.MessageByID("m1")
	require.True(t, ok)
	assert.True(t, msg.Action.Data.IsResult)
	assert.Equal(t, "first", msg.Action.Data.Result)
}

func TestStore_PatchActionMissingTargets(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.Apply(AppendMessage{Message: Message{ID: "plain", Content: "no action"}})

	// Unknown id and action-less message are both no-ops.
	s.Apply(PatchAction{MessageID: "ghost", Result: "x"})
	s.Apply(PatchAction{MessageID: "plain", Result: "x"})

	msg, ok := s.MessageByID("plain")
	require.True(t, ok)
	assert.Nil(t, msg.Action)
}

func TestStore_WorkspaceRootFirstWriteWins(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.Apply(SetWorkspaceRoot{Path: "/w/a"})
	s.Apply(SetWorkspaceRoot{Path: "/w/b"})
	assert.Equal(t, "/w/a", s.Snapshot().WorkspaceRoot)
}

func TestStore_AddUploadedFilesDedupes(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.Apply(AddUploadedFiles{Files: []string{"a.txt", "b.txt"}})
	s.Apply(AddUploadedFiles{Files: []string{"b.txt", "c.txt"}})
	assert.Equal(t, []string{"a.txt", "b.txt", "c.txt"}, s.Snapshot().UploadedFiles)
}

func TestStore_ResetKeepsConnection(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.Apply(
		SetConnection{State: Connected},
		AppendMessage{Message: Message{ID: "m1", Content: "hi"}},
		SetLoading{Loading: true},
		SetWorkspaceRoot{Path: "/w/a"},
	)

	s.Apply(Reset{})

	state := s.Snapshot()
	assert.Equal(t, Connected, state.Connection)
	assert.Empty(t, state.Messages)
	assert.False(t, state.IsLoading)
	assert.Empty(t, state.WorkspaceRoot)
}

func TestStore_PatchMessageText(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.Apply(AppendMessage{Message: Message{ID: "m1", Role: RoleUser, Content: "old", Files: []string{"a"}}})
	s.Apply(PatchMessageText{MessageID: "m1", Content: "new", Files: []string{"b", "c"}})

	msg, ok := s.MessageByID("m1")
	require.True(t, ok)
	assert.Equal(t, "new", msg.Content)
	assert.Equal(t, []string{"b", "c"}, msg.Files)
}

func TestStore_SetCompletedClearsLoading(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.Apply(SetLoading{Loading: true})
	s.Apply(SetCompleted{})

	state := s.Snapshot()
	assert.True(t, state.IsCompleted)
	assert.False(t, state.IsLoading)
}

func TestStore_SubscribeCoalesces(t *testing.T) {
	t.Parallel()

	s := NewStore()
	ch, cancel := s.Subscribe()
	defer cancel()

	// A burst with no reader keeps only the most recent snapshot.
	for i := 0; i < 10; i++ {
		s.Apply(SetDraftText{Text: "draft"})
	}
	s.Apply(SetDraftText{Text: "final"})

	var last AppState
	deadline := time.After(time.Second)
drain:
	for {
		select {
		case snap := <-ch:
			last = snap
			if last.DraftText == "final" {
				break drain
			}
		case <-deadline:
			t.Fatal("never observed the final snapshot")
		}
	}
	assert.Equal(t, "final", last.DraftText)
}

func TestStore_SubscribeCancelCloses(t *testing.T) {
	t.Parallel()

	s := NewStore()
	ch, cancel := s.Subscribe()
	cancel()
	cancel() // idempotent

	_, open := <-ch
	assert.False(t, open)

	// Publishing after cancel must not panic.
	s.Apply(SetLoading{Loading: true})
}

func TestResolvePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		root string
		p    string
		want string
	}{
		{"relative path joined", "/w/s1", "a/b.py", "/w/s1/a/b.py"},
		{"already rooted passes through", "/w/s1", "/w/s1/a/b.py", "/w/s1/a/b.py"},
		{"root itself passes through", "/w/s1", "/w/s1", "/w/s1"},
		{"similar prefix still joined", "/w/s1", "/w/s10/a.py", "/w/s1/w/s10/a.py"},
		{"trailing slash on root", "/w/s1/", "a.py", "/w/s1/a.py"},
		{"empty root passes through", "", "a/b.py", "a/b.py"},
		{"empty path passes through", "/w/s1", "", ""},
		{"absolute but foreign path joined", "/w/s1", "/etc/passwd", "/w/s1/etc/passwd"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ResolvePath(tt.root, tt.p))
		})
	}
}
