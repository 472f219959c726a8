// Package format renders attribute values for popups and legends.
package format

import (
	"math"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// NA is shown for missing or non-numeric values.
const NA = "N/A"

var printer = message.NewPrinter(language.English)

// Currency formats whole dollars with thousands separators. A value that is
// not ok renders as NA.
func Currency(v float64, ok bool) string {
	if !ok {
		return NA
	}
	n := int64(math.Round(v))
	if n < 0 {
		return printer.Sprintf("-$%d", -n)
	}
	return printer.Sprintf("$%d", n)
}

// Number formats v in its shortest decimal form, or NA.
func Number(v float64, ok bool) string {
	if !ok {
		return NA
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// CompactCurrency formats large dollar amounts in words, "$150 million".
// Amounts below a million fall back to Currency.
func CompactCurrency(v float64) string {
	abs := math.Abs(v)
	sign := ""
	if v < 0 {
		sign = "-"
	}
	switch {
	case abs >= 1e9:
		return sign + "$" + short(abs/1e9) + " billion"
	case abs >= 1e6:
		return sign + "$" + short(abs/1e6) + " million"
	default:
		return Currency(v, true)
	}
}

func short(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}
