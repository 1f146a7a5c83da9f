package attach

import (
	"fmt"
	"path"
	"strconv"
	"strings"
	"sync"
)

const folderPrefix = "folder:"

// FolderSentinel encodes a folder attachment as a synthetic pseudo-file
// name carrying the display name and member count, so a whole folder can
// appear as a single entry in the message history.
func FolderSentinel(name string, count int) string {
	return fmt.Sprintf("%s%s:%d", folderPrefix, name, count)
}

// ParseFolderSentinel decodes a sentinel produced by FolderSentinel.
func ParseFolderSentinel(s string) (name string, count int, ok bool) {
	rest, found := strings.CutPrefix(s, folderPrefix)
	if !found {
		return "", 0, false
	}
	idx := strings.LastIndex(rest, ":")
	if idx <= 0 {
		return "", 0, false
	}
	n, err := strconv.Atoi(rest[idx+1:])
	if err != nil {
		return "", 0, false
	}
	return rest[:idx], n, true
}

// Registry tracks folder membership recorded at ingestion time. When a
// folder's members are known, dedup uses exact lookup; sentinels seen
// without membership (e.g. replayed from a stored log) fall back to the
// substring heuristic.
type Registry struct {
	mu      sync.RWMutex
	members map[string]map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{members: map[string]map[string]struct{}{}}
}

// RegisterFolder records the member file names of a folder.
func (r *Registry) RegisterFolder(name string, files []string) {
	set := make(map[string]struct{}, len(files))
	for _, f := range files {
		set[path.Base(f)] = struct{}{}
	}
	r.mu.Lock()
	r.members[name] = set
	r.mu.Unlock()
}

// belongsTo reports whether file is subsumed by the named folder.
func (r *Registry) belongsTo(folder, file string) bool {
	r.mu.RLock()
	set, known := r.members[folder]
	r.mu.RUnlock()

	if known {
		_, member := set[path.Base(file)]
		return member
	}
	return strings.Contains(path.Base(file), folder)
}

// Dedup filters a flat attachment list: individual files subsumed by a
// folder sentinel in the same list are dropped, so the history never
// shows both a folder summary and its members.
func (r *Registry) Dedup(files []string) []string {
	// Saved sentinel paths may come back server-prefixed; detect them by
	// base name.
	var folders []string
	for _, f := range files {
		if name, _, ok := ParseFolderSentinel(path.Base(f)); ok {
			folders = append(folders, name)
		}
	}

	out := make([]string, 0, len(files))
	for _, f := range files {
		if _, _, isSentinel := ParseFolderSentinel(path.Base(f)); isSentinel {
			out = append(out, f)
			continue
		}
		subsumed := false
		for _, folder := range folders {
			if r.belongsTo(folder, f) {
				subsumed = true
				break
			}
		}
		if !subsumed {
			out = append(out, f)
		}
	}
	return out
}
