// Package templates renders the HTML fragments pushed to the viewer: legends,
// hover popups and SSE patches.
package templates

import (
	"bytes"
	"html/template"
	"io/fs"
	"sync"

	"github.com/rotisserie/eris"
)

// funcMap provides common template functions.
var funcMap = template.FuncMap{
	// dict creates a map from key-value pairs, useful for passing multiple values to nested templates
	"dict": func(values ...any) map[string]any {
		if len(values)%2 != 0 {
			return nil
		}
		m := make(map[string]any, len(values)/2)
		for i := 0; i < len(values); i += 2 {
			key, ok := values[i].(string)
			if !ok {
				continue
			}
			m[key] = values[i+1]
		}
		return m
	},
	"css": func(s string) template.CSS { return template.CSS(s) },
}

// Renderer manages HTML fragment templates.
type Renderer struct {
	templates *template.Template
	mu        sync.RWMutex
}

// New parses every template in fsys matching pattern, e.g. "fragments/*.html".
func New(fsys fs.FS, pattern string) (*Renderer, error) {
	tmpl, err := parse(fsys, pattern)
	if err != nil {
		return nil, err
	}
	return &Renderer{templates: tmpl}, nil
}

func parse(fsys fs.FS, pattern string) (*template.Template, error) {
	tmpl, err := template.New("").Funcs(funcMap).ParseFS(fsys, pattern)
	if err != nil {
		return nil, eris.Wrapf(err, "templates: parse %s", pattern)
	}
	return tmpl, nil
}

// Render renders a named template to a string.
func (r *Renderer) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderToBuffer(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderHTML renders a named template as trusted markup.
func (r *Renderer) RenderHTML(name string, data any) (template.HTML, error) {
	s, err := r.Render(name, data)
	return template.HTML(s), err
}

// RenderToBuffer renders a named template to a buffer.
func (r *Renderer) RenderToBuffer(buf *bytes.Buffer, name string, data any) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := r.templates.ExecuteTemplate(buf, name, data); err != nil {
		return eris.Wrapf(err, "templates: render %s", name)
	}
	return nil
}

// Reload re-parses the templates, used with an on-disk fsys during
// development.
func (r *Renderer) Reload(fsys fs.FS, pattern string) error {
	tmpl, err := parse(fsys, pattern)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.templates = tmpl
	r.mu.Unlock()

	return nil
}
