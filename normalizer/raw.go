package normalizer

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Raw is a loosely-typed store payload as decoded from JSON. Accessors never
// panic: absent, null or mistyped values degrade to zero values.
type Raw map[string]any

// AsRaw converts a decoded JSON value to Raw, returning nil for non-objects.
func AsRaw(v any) Raw {
	switch typed := v.(type) {
	case Raw:
		return typed
	case map[string]any:
		return Raw(typed)
	default:
		return nil
	}
}

func (r Raw) value(key string) (any, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Text returns the first non-empty value among keys, coerced to a cleaned string.
func (r Raw) Text(keys ...string) string {
	for _, key := range keys {
		v, ok := r.value(key)
		if !ok {
			continue
		}
		if s, ok := asString(v); ok {
			if s = cleanText(s); s != "" {
				return s
			}
		}
	}
	return ""
}

// FirstText returns the first non-null element of a list value as a string.
// Scalars are coerced directly.
func (r Raw) FirstText(key string) string {
	v, ok := r.value(key)
	if !ok {
		return ""
	}
	list, isList := v.([]any)
	if !isList {
		s, _ := asString(v)
		return cleanText(s)
	}
	for _, item := range list {
		if item == nil {
			continue
		}
		if s, ok := asString(item); ok {
			return cleanText(s)
		}
	}
	return ""
}

// Float returns the first parseable numeric value among keys.
func (r Raw) Float(keys ...string) (float64, bool) {
	for _, key := range keys {
		v, ok := r.value(key)
		if !ok {
			continue
		}
		if f, ok := asFloat(v); ok {
			return f, true
		}
	}
	return 0, false
}

// FloatOr returns the numeric value for key or zero.
func (r Raw) FloatOr(key string) float64 {
	f, _ := r.Float(key)
	return f
}

// Int returns the numeric value for key truncated to an integer.
func (r Raw) Int(key string) (int, bool) {
	f, ok := r.Float(key)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// Bool interprets booleans, "true"/"false" strings and non-zero numbers.
func (r Raw) Bool(key string) bool {
	v, ok := r.value(key)
	if !ok {
		return false
	}
	switch typed := v.(type) {
	case bool:
		return typed
	case string:
		switch strings.ToLower(strings.TrimSpace(typed)) {
		case "true", "1", "yes", "y":
			return true
		}
		return false
	default:
		f, ok := asFloat(v)
		return ok && f != 0
	}
}

// Object returns a nested object or nil.
func (r Raw) Object(key string) Raw {
	v, _ := r.value(key)
	return AsRaw(v)
}

// List returns a nested list or nil.
func (r Raw) List(key string) []any {
	v, _ := r.value(key)
	list, _ := v.([]any)
	return list
}

// StringList coerces every scalar element of a list, dropping empty tokens.
func (r Raw) StringList(key string) []string {
	var out []string
	for _, item := range r.List(key) {
		if s, ok := asString(item); ok {
			if s = cleanText(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func asString(v any) (string, bool) {
	switch typed := v.(type) {
	case string:
		return typed, true
	case json.Number:
		return typed.String(), true
	case float64:
		if math.IsNaN(typed) || math.IsInf(typed, 0) {
			return "", false
		}
		return strconv.FormatFloat(typed, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(typed), 'f', -1, 32), true
	case int:
		return strconv.Itoa(typed), true
	case int64:
		return strconv.FormatInt(typed, 10), true
	case bool:
		return strconv.FormatBool(typed), true
	default:
		return "", false
	}
}

func asFloat(v any) (float64, bool) {
	var f float64
	switch typed := v.(type) {
	case float64:
		f = typed
	case float32:
		f = float64(typed)
	case int:
		f = float64(typed)
	case int64:
		f = float64(typed)
	case json.Number:
		parsed, err := typed.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(typed)
		if s == "" {
			return 0, false
		}
		if strings.Contains(s, ",") && !strings.Contains(s, ".") {
			s = strings.ReplaceAll(s, ",", ".")
		}
		parsed, err := strconv.ParseFloat(s, 64)
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

func cleanText(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}
