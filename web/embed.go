// Package web embeds the page stylesheet.
package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var staticFS embed.FS

// Static returns the embedded static assets.
// The returned FS has static/ as its root, so files are accessed
// directly (e.g., "style.css" not "static/style.css").
func Static() (fs.FS, error) {
	return fs.Sub(staticFS, "static")
}
