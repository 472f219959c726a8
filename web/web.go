// Package web embeds the viewer page, its static assets and the HTML
// fragments rendered on the server.
package web

import (
	"embed"
	"io/fs"
)

// FS holds templates/ and static/.
//
//go:embed templates static
var FS embed.FS

// Fragments is the template pattern for the server-rendered fragments.
const Fragments = "templates/fragments/*.html"

// Static returns the static assets rooted at static/.
func Static() fs.FS {
	sub, err := fs.Sub(FS, "static")
	if err != nil {
		panic(err) // static/ is embedded
	}
	return sub
}
