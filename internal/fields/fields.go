// Package fields reads values out of decoded JSON documents (nested map[string]any / []any trees)
// without failing on missing or wrongly shaped data.
//
// A path is a sequence of segments: a string selects a key of a map, an int selects an element of a
// slice (negative indices count from the end). Whenever a segment cannot be followed, or the value at
// the end of the path is not of the requested type, the caller's default is returned instead.
package fields

import (
	"encoding/json"
	"math"
	"strings"
)

// Extract walks doc along path and returns the value found there as a T, or def.
//
// JSON numbers (float64 or [json.Number]) are converted when T is int, int64 or float64.
func Extract[T any](doc any, def T, path ...any) T {
	node, ok := walk(doc, path)
	if !ok {
		return def
	}
	return as(node, def)
}

// Text is [Extract] for strings, additionally treating a blank string as missing.
func Text(doc any, def string, path ...any) string {
	s := Extract(doc, "", path...)
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// First returns the first element of seq as a T, or def when seq is empty, absent or not a slice.
func First[T any](seq any, def T) T {
	return Extract(seq, def, 0)
}

// Last returns the last element of seq as a T, or def when seq is empty, absent or not a slice.
func Last[T any](seq any, def T) T {
	return Extract(seq, def, -1)
}

// Take returns at most n leading elements of seq. A missing or non-slice seq yields an empty slice.
// A negative n is a programming error and panics.
func Take(seq any, n int) []any {
	if n < 0 {
		panic("fields: negative cap passed to Take")
	}
	items, _ := seq.([]any)
	if len(items) > n {
		items = items[:n]
	}
	out := make([]any, len(items))
	copy(out, items)
	return out
}

func walk(node any, path []any) (any, bool) {
	for _, seg := range path {
		switch key := seg.(type) {
		case string:
			m, ok := node.(map[string]any)
			if !ok {
				return nil, false
			}
			if node, ok = m[key]; !ok {
				return nil, false
			}
		case int:
			items, ok := node.([]any)
			if !ok {
				return nil, false
			}
			if key < 0 {
				key += len(items)
			}
			if key < 0 || key >= len(items) {
				return nil, false
			}
			node = items[key]
		default:
			return nil, false
		}
	}
	return node, true
}

func as[T any](v any, def T) T {
	if t, ok := v.(T); ok {
		return t
	}

	f, ok := number(v)
	if !ok {
		return def
	}
	var out any
	switch any(def).(type) {
	case int:
		out = int(f)
	case int64:
		out = int64(f)
	case float64:
		out = f
	default:
		return def
	}
	return out.(T)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
