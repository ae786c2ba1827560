package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// coerce converts v to the declared argument type. The returned string is a
// reason suitable for InvalidArgumentsError when the conversion fails.
func coerce(v any, t ArgType) (any, string) {
	switch t {
	case ArgNumber:
		f, ok := toFloat(v)
		if !ok {
			return nil, fmt.Sprintf("expected number, got %T", v)
		}
		return f, ""
	case ArgInteger:
		f, ok := toFloat(v)
		if !ok {
			return nil, fmt.Sprintf("expected integer, got %T", v)
		}
		if f != math.Trunc(f) {
			return nil, fmt.Sprintf("expected integer, got %v", f)
		}
		return int(f), ""
	case ArgBoolean:
		switch b := v.(type) {
		case bool:
			return b, ""
		case string:
			parsed, err := strconv.ParseBool(strings.TrimSpace(b))
			if err != nil {
				return nil, fmt.Sprintf("expected boolean, got %q", b)
			}
			return parsed, ""
		}
		return nil, fmt.Sprintf("expected boolean, got %T", v)
	case ArgString:
		switch s := v.(type) {
		case string:
			return s, ""
		case json.Number:
			return s.String(), ""
		case bool:
			return strconv.FormatBool(s), ""
		}
		if f, ok := toFloat(v); ok {
			return strconv.FormatFloat(f, 'f', -1, 64), ""
		}
		return nil, fmt.Sprintf("expected string, got %T", v)
	}
	// Undeclared types are passed through.
	return v, ""
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
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
