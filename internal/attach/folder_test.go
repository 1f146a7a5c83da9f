package attach

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFolderSentinelRoundtrip(t *testing.T) {
	t.Parallel()

	s := FolderSentinel("Notes", 2)
	assert.Equal(t, "folder:Notes:2", s)

	name, count, ok := ParseFolderSentinel(s)
	assert.True(t, ok)
	assert.Equal(t, "Notes", name)
	assert.Equal(t, 2, count)
}

func TestParseFolderSentinel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		in        string
		wantName  string
		wantCount int
		wantOK    bool
	}{
		{"plain file", "report.pdf", "", 0, false},
		{"no count", "folder:Notes", "", 0, false},
		{"bad count", "folder:Notes:lots", "", 0, false},
		{"empty name", "folder::3", "", 0, false},
		{"name with colon", "folder:a:b:7", "a:b", 7, true},
		{"zero members", "folder:Empty:0", "Empty", 0, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			name, count, ok := ParseFolderSentinel(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantCount, count)
		})
	}
}

func TestDedup_SubstringFallback(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	got := r.Dedup([]string{"report.pdf", "folder:Notes:2", "Notes-summary.pdf"})
	assert.Equal(t, []string{"report.pdf", "folder:Notes:2"}, got)
}

func TestDedup_ExactMembership(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.RegisterFolder("Notes", []string{"summary.pdf", "draft.md"})

	// Known membership: only actual members are dropped, even when an
	// unrelated file's name happens to contain the folder name.
	got := r.Dedup([]string{
		"folder:Notes:2",
		"/uploads/summary.pdf",
		"draft.md",
		"Notes-unrelated.pdf",
	})
	assert.Equal(t, []string{"folder:Notes:2", "Notes-unrelated.pdf"}, got)
}

func TestDedup_NoFolders(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	files := []string{"a.txt", "b.txt"}
	assert.Equal(t, files, r.Dedup(files))
}

func TestDedup_MultipleFolders(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.RegisterFolder("Docs", []string{"spec.pdf"})

	got := r.Dedup([]string{
		"folder:Docs:1",
		"folder:Logs:1",
		"spec.pdf",
		"Logs-2026.txt",
		"keep.me",
	})
	assert.Equal(t, []string{"folder:Docs:1", "folder:Logs:1", "keep.me"}, got)
}
