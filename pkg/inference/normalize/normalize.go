// Package normalize reduces the many shapes a tool or a transport may return
// to a single canonical value: a scalar, a flat mapping, or an error marker.
package normalize

import (
	"encoding/json"
	"reflect"
	"strings"
)

// StructuredContentCarrier is implemented by transport results that carry a
// structured payload next to their textual rendering.
type StructuredContentCarrier interface {
	StructuredContent() any
}

type DataCarrier interface {
	Data() any
}

type TextCarrier interface {
	Text() string
}

type ValueCarrier interface {
	Value() any
}

type rule struct {
	name  string
	apply func(v any) (any, bool)
}

// chain is evaluated in order, the first matching rule wins. It is filled in
// init because the rules recurse into Normalize.
var chain []rule

func init() {
	chain = []rule{
		{"structured_content", structuredContent},
		{"data", data},
		{"text", text},
		{"value", value},
		{"singleton", singleton},
		{"single_numeric", singleNumeric},
	}
}

// Normalize returns the canonical form of raw. It never fails: values that
// match no rule are returned unchanged.
func Normalize(raw any) any {
	for _, r := range chain {
		if out, ok := r.apply(raw); ok {
			return out
		}
	}
	if g, ok := toGeneric(raw); ok {
		return Normalize(g)
	}
	return raw
}

// ErrorMarker is the canonical shape of a failed tool call.
func ErrorMarker(msg string) map[string]any {
	return map[string]any{"error": msg}
}

// IsErrorMarker reports whether v is an error marker and returns its message.
func IsErrorMarker(v any) (string, bool) {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return "", false
	}
	msg, ok := m["error"].(string)
	return msg, ok
}

func structuredContent(v any) (any, bool) {
	if c, ok := v.(StructuredContentCarrier); ok {
		if inner := c.StructuredContent(); !isEmpty(inner) {
			return Normalize(inner), true
		}
	}
	if m, ok := v.(map[string]any); ok {
		for _, k := range []string{"structured_content", "structuredContent"} {
			if inner, ok := m[k]; ok && !isEmpty(inner) {
				return Normalize(inner), true
			}
		}
	}
	return nil, false
}

func data(v any) (any, bool) {
	if c, ok := v.(DataCarrier); ok {
		if inner := c.Data(); !isEmpty(inner) {
			return Normalize(inner), true
		}
	}
	if m, ok := v.(map[string]any); ok {
		if inner, ok := m["data"]; ok && !isEmpty(inner) {
			return Normalize(inner), true
		}
	}
	return nil, false
}

func text(v any) (any, bool) {
	var s string
	switch c := v.(type) {
	case TextCarrier:
		s = c.Text()
	case map[string]any:
		t, ok := c["text"].(string)
		if !ok {
			return nil, false
		}
		s = t
	default:
		return nil, false
	}

	var parsed any
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &parsed); err != nil {
		return s, true
	}
	return Normalize(parsed), true
}

func value(v any) (any, bool) {
	if c, ok := v.(ValueCarrier); ok {
		return Normalize(c.Value()), true
	}
	if m, ok := v.(map[string]any); ok && len(m) == 1 {
		if inner, ok := m["value"]; ok {
			return Normalize(inner), true
		}
	}
	return nil, false
}

func singleton(v any) (any, bool) {
	if s, ok := v.([]any); ok && len(s) == 1 {
		return Normalize(s[0]), true
	}
	return nil, false
}

func singleNumeric(v any) (any, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	var found any
	n := 0
	for _, inner := range m {
		if isNumber(inner) {
			found = inner
			n++
		}
	}
	if n == 1 {
		return found, true
	}
	return nil, false
}

func isNumber(v any) bool {
	switch v.(type) {
	case float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, json.Number:
		return true
	}
	return false
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Map, reflect.Slice, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// toGeneric converts typed Go values (structs, typed maps and slices) into
// their generic JSON form. It reports false when v already is generic or
// cannot be converted.
func toGeneric(v any) (any, bool) {
	switch v.(type) {
	case nil, string, bool, map[string]any, []any:
		return nil, false
	}
	if isNumber(v) {
		return nil, false
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, false
	}
	return out, true
}
