package session

import (
	"path"
	"strings"
)

// ResolvePath anchors a server-side file path under the workspace root.
// Paths already rooted there pass through unchanged; everything else is
// joined onto the root. Workspace paths are POSIX regardless of the
// client platform.
func ResolvePath(root, p string) string {
	if root == "" || p == "" {
		return p
	}
	root = strings.TrimSuffix(root, "/")
	if p == root || strings.HasPrefix(p, root+"/") {
		return p
	}
	return path.Join(root, p)
}
