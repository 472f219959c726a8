package hover

import (
	"html/template"

	"github.com/paulmach/orb"
)

// State records what a Popup was told to do. It backs the hover endpoint,
// which returns the popup to the browser instead of drawing it.
type State struct {
	Visible bool
	At      orb.Point
	HTML    template.HTML
	Cursor  string
}

func (s *State) Show(at orb.Point, markup template.HTML) {
	s.Visible = true
	s.At = at
	s.HTML = markup
}

func (s *State) Remove() {
	s.Visible = false
	s.HTML = ""
}

func (s *State) SetCursor(style string) { s.Cursor = style }
