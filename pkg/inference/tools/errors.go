package tools

import (
	"fmt"
	"strings"
)

// DuplicateToolError is returned when a tool name is registered twice.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool already registered: %s", e.Name)
}

// UnknownToolError is returned when a tool name is not in the registry.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("tool not found: %s", e.Name)
}

// InvalidArgumentsError names the arguments that were missing or could not be
// coerced to their declared type.
type InvalidArgumentsError struct {
	Tool      string
	Missing   []string
	Malformed []string
	// Reasons maps a malformed field to a short explanation.
	Reasons map[string]string
}

// Fields returns every offending field, missing ones first.
func (e *InvalidArgumentsError) Fields() []string {
	out := make([]string, 0, len(e.Missing)+len(e.Malformed))
	out = append(out, e.Missing...)
	out = append(out, e.Malformed...)
	return out
}

func (e *InvalidArgumentsError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	for _, f := range e.Malformed {
		if r, ok := e.Reasons[f]; ok && r != "" {
			parts = append(parts, fmt.Sprintf("malformed %s (%s)", f, r))
		} else {
			parts = append(parts, "malformed "+f)
		}
	}
	return fmt.Sprintf("invalid arguments for tool %s: %s", e.Tool, strings.Join(parts, "; "))
}
