// Package zoning derives use categories and FAR changes for rezoned parcels.
package zoning

import "strings"

// Category is the derived use of a zoning district after rezoning.
type Category string

const (
	Manufacturing Category = "Manufacturing"
	Residential   Category = "Residential"
	Mixed         Category = "Mixed"
	Parks         Category = "Parks"
	Unknown       Category = "Unknown"
)

// Categories lists every category in legend order.
var Categories = []Category{Manufacturing, Residential, Mixed, Parks, Unknown}

// Color returns the fill color used for the category on the use layer.
// Unknown shares the layer's fallback gray.
func (c Category) Color() string {
	switch c {
	case Manufacturing:
		return "#ce93d8"
	case Residential:
		return "#fff176"
	case Mixed:
		return "#ffb74d"
	case Parks:
		return "#a5d6a7"
	default:
		return "#9e9e9e"
	}
}

// Description is the legend text for the category.
func (c Category) Description() string {
	switch c {
	case Manufacturing:
		return "preserved for exclusive industrial use"
	case Residential:
		return "opened for new residential uses"
	case Mixed:
		return "New mixed zones allow both residential and light manufacturing, but tend to result in housing due to market pressure."
	case Parks:
		return "open space"
	default:
		return "no zoning district recorded"
	}
}

// DefaultManufacturingPrefixes are the district prefixes kept for exclusive
// industrial use.
var DefaultManufacturingPrefixes = []string{"M1", "M3"}

// Classifier assigns a Category to a zoning district code.
type Classifier struct {
	prefixes []string
}

// NewClassifier returns a classifier using the given manufacturing prefixes,
// or DefaultManufacturingPrefixes when none are given.
func NewClassifier(prefixes ...string) Classifier {
	if len(prefixes) == 0 {
		prefixes = DefaultManufacturingPrefixes
	}
	c := Classifier{prefixes: make([]string, 0, len(prefixes))}
	for _, p := range prefixes {
		if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
			c.prefixes = append(c.prefixes, p)
		}
	}
	return c
}

// Classify applies the rules in order, first match wins:
//
//	contains PARK                          -> Parks
//	manufacturing prefix and no "/"        -> Manufacturing
//	contains "/"                           -> Mixed
//	non-empty                              -> Residential
//	empty                                  -> Unknown
func (c Classifier) Classify(code string) Category {
	code = strings.ToUpper(strings.TrimSpace(code))
	mixed := strings.Contains(code, "/")

	switch {
	case strings.Contains(code, "PARK"):
		return Parks
	case !mixed && c.isManufacturing(code):
		return Manufacturing
	case mixed:
		return Mixed
	case code != "":
		return Residential
	default:
		return Unknown
	}
}

func (c Classifier) isManufacturing(code string) bool {
	for _, p := range c.prefixes {
		if strings.HasPrefix(code, p) {
			return true
		}
	}
	return false
}

// Prefixes returns a copy of the manufacturing prefixes in use.
func (c Classifier) Prefixes() []string {
	return append([]string(nil), c.prefixes...)
}
