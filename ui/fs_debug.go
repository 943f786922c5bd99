//go:build debug

package ui

import (
	"io/fs"
	"os"
)

// DistFS serves the client bundle straight from the ui/ directory on disk,
// so edits to the static files show up without recompiling. The server must
// run from the repository root for the relative path to resolve.
func DistFS() fs.FS {
	return os.DirFS("ui")
}
