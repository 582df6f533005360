// Package static holds the control panel frontend compiled into the binary.
package static

import (
	"embed"
	"io/fs"
	"os"
)

//go:embed index.html
var files embed.FS

// FS returns dir when set, the embedded frontend otherwise.
func FS(dir string) fs.FS {
	if dir != "" {
		return os.DirFS(dir)
	}
	return files
}
