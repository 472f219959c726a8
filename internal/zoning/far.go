package zoning

import "strings"

// FARTable maps a residential district (R6, R6A, ...) to its baseline FAR.
// Keys are stored upper-cased.
type FARTable map[string]float64

// DefaultFARTable holds the residential FAR baselines used when the config
// file does not override them.
var DefaultFARTable = FARTable{
	"R5":   1.25,
	"R5D":  2.0,
	"R6":   2.43,
	"R6A":  3.0,
	"R6B":  2.0,
	"R7-1": 3.44,
	"R7-2": 3.44,
	"R7A":  4.0,
	"R7D":  4.2,
	"R7X":  5.0,
	"R8":   6.02,
	"R8A":  6.02,
	"R8B":  4.0,
	"R8X":  6.02,
}

// NewFARTable copies m with normalized keys. Config loaders lower-case map
// keys, so callers must not rely on the input casing.
func NewFARTable(m map[string]float64) FARTable {
	t := make(FARTable, len(m))
	for k, v := range m {
		t[normalizeToken(k)] = v
	}
	return t
}

// Lookup splits a zoning code on "/" and returns the baseline FAR of the
// first token found in the table. ok is false when no token matches, which
// means no adjustment applies.
func (t FARTable) Lookup(code string) (far float64, ok bool) {
	for _, tok := range strings.Split(code, "/") {
		if far, ok = t[normalizeToken(tok)]; ok {
			return far, true
		}
	}
	return 0, false
}

func normalizeToken(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
