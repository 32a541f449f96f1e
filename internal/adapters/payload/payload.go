// Package payload reads loosely-shaped provider JSON decoded into map[string]any.
// Paths are dot-separated; numeric segments index into arrays ("offers.0.price.total").
package payload

import (
	"encoding/json"
	"strconv"
	"strings"
)

type Object = map[string]any

/********** lookups **********/

// Lookup walks a dot path through maps and slices; nil when any hop is missing.
func Lookup(m Object, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[part]
			if !ok {
				return nil
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil
			}
			cur = node[i]
		default:
			return nil
		}
	}
	return cur
}

// Str returns the first non-empty string (or number rendered as string) at any path.
func Str(m Object, paths ...string) string {
	for _, p := range paths {
		switch v := Lookup(m, p).(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case json.Number:
			return v.String()
		}
	}
	return ""
}

// Float accepts float64/int/json.Number/strings like "123.40" or "8,0".
func Float(m Object, paths ...string) (float64, bool) {
	for _, p := range paths {
		switch v := Lookup(m, p).(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return f, true
			}
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

func FloatOr(m Object, def float64, paths ...string) float64 {
	if f, ok := Float(m, paths...); ok {
		return f
	}
	return def
}

func IntOr(m Object, def int, paths ...string) int {
	if f, ok := Float(m, paths...); ok {
		return int(f)
	}
	return def
}

// Objects returns the []any at path filtered to its object elements.
func Objects(m Object, path string) []Object {
	raw, ok := Lookup(m, path).([]any)
	if !ok {
		return nil
	}
	out := make([]Object, 0, len(raw))
	for _, it := range raw {
		if o, ok := it.(map[string]any); ok {
			out = append(out, o)
		}
	}
	return out
}

// FirstURL accepts []any holding either strings or {uri/url/src} objects.
func FirstURL(m Object, paths ...string) string {
	for _, p := range paths {
		raw, ok := Lookup(m, p).([]any)
		if !ok {
			continue
		}
		for _, it := range raw {
			switch t := it.(type) {
			case string:
				if t != "" {
					return t
				}
			case map[string]any:
				for _, k := range []string{"uri", "url", "src"} {
					if u, ok := t[k].(string); ok && u != "" {
						return u
					}
				}
			}
		}
	}
	return ""
}
