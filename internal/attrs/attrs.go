// Package attrs reads GeoJSON feature properties without caring about key case.
//
// Source files disagree on attribute casing (ZONEDIST vs zonedist, block vs
// BLOCK), so every lookup tries the exact key first and then a case-folded
// match.
package attrs

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"
)

// Lookup returns the value stored under key. An exact key wins over a
// case-insensitive match.
func Lookup(p geojson.Properties, key string) (any, bool) {
	if p == nil {
		return nil, false
	}
	if v, ok := p[key]; ok {
		return v, true
	}
	for k, v := range p {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

// String returns the first non-empty string value among keys. Numbers are
// formatted in their shortest form so a numeric block id still reads back.
func String(p geojson.Properties, keys ...string) string {
	for _, key := range keys {
		v, ok := Lookup(p, key)
		if !ok || v == nil {
			continue
		}
		var s string
		switch t := v.(type) {
		case string:
			s = strings.TrimSpace(t)
		case float64:
			s = strconv.FormatFloat(t, 'f', -1, 64)
		case int:
			s = strconv.Itoa(t)
		case int64:
			s = strconv.FormatInt(t, 10)
		case bool:
			s = strconv.FormatBool(t)
		default:
			s = fmt.Sprint(t)
		}
		if s != "" {
			return s
		}
	}
	return ""
}

// Number returns key as a finite float64. Numeric strings are accepted;
// anything else reports false.
func Number(p geojson.Properties, key string) (float64, bool) {
	v, ok := Lookup(p, key)
	if !ok || v == nil {
		return 0, false
	}
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Set writes key, replacing any existing key that differs only in case so a
// feature never carries both FAR_AFTER and far_after.
func Set(p geojson.Properties, key string, value any) {
	for k := range p {
		if k != key && strings.EqualFold(k, key) {
			delete(p, k)
		}
	}
	p[key] = value
}
