package mapview

import (
	"strings"
)

// ColorRule is a layer color: a constant, a categorical match or a linear
// ramp. Expression returns the MapLibre style expression for the rule.
type ColorRule interface {
	Expression() any
}

// Constant is a fixed CSS color.
type Constant string

func (c Constant) Expression() any { return string(c) }

// Case pairs a property value with a color.
type Case struct {
	Value string
	Color string
}

// Match colors features by a categorical property.
type Match struct {
	Property string
	Cases    []Case
	Fallback string
}

func (m Match) Expression() any {
	expr := []any{"match", []any{"get", m.Property}}
	for _, c := range m.Cases {
		expr = append(expr, c.Value, c.Color)
	}
	return append(expr, m.Fallback)
}

// Stop is one color stop of a linear ramp.
type Stop struct {
	Value float64
	Color string
}

// Interpolate colors features along a linear ramp over a numeric property.
// Stops must be in ascending order.
type Interpolate struct {
	Property string
	Stops    []Stop
}

func (i Interpolate) Expression() any {
	expr := []any{"interpolate", []any{"linear"}, []any{"get", i.Property}}
	for _, s := range i.Stops {
		expr = append(expr, s.Value, s.Color)
	}
	return expr
}

// Range returns the first and last stop values.
func (i Interpolate) Range() (lo, hi float64) {
	if len(i.Stops) == 0 {
		return 0, 0
	}
	return i.Stops[0].Value, i.Stops[len(i.Stops)-1].Value
}

// Gradient returns a CSS left-to-right gradient through the stop colors.
func (i Interpolate) Gradient() string {
	colors := make([]string, len(i.Stops))
	for n, s := range i.Stops {
		colors[n] = s.Color
	}
	if len(colors) == 1 {
		colors = append(colors, colors[0])
	}
	return "linear-gradient(to right, " + strings.Join(colors, ", ") + ")"
}

// Paint is the styling of a layer. Width only applies to line layers.
type Paint struct {
	Color   ColorRule
	Opacity float64
	Width   float64
}
