// Package web serves the front-end bundle.
package web

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
)

//go:embed public
var assets embed.FS

// Handler serves static files from dir, or from the embedded bundle when dir is empty.
// A request for "/" returns index.html.
func Handler(dir string) (http.Handler, error) {
	fsys, err := Assets(dir)
	if err != nil {
		return nil, err
	}
	return http.FileServer(http.FS(fsys)), nil
}

// Assets returns the file system Handler serves.
func Assets(dir string) (fs.FS, error) {
	if dir == "" {
		return fs.Sub(assets, "public")
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("static dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("static dir %s is not a directory", dir)
	}
	return os.DirFS(dir), nil
}
