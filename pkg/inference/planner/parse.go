package planner

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

var (
	thoughtRE = regexp.MustCompile(`(?m)^\s*Thought:\s*(.*)$`)
	actionRE  = regexp.MustCompile(`(?m)^\s*Action:\s*([A-Za-z0-9_.\-]+)`)
	argsRE    = regexp.MustCompile(`Args:\s*\{`)
)

// ParseError reports a planner reply that matched neither a structured tool
// call nor the Thought/Action/Args text pattern. It is never fatal: callers
// treat the text as a final answer.
type ParseError struct {
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not parse planner reply: %s", e.Reason)
}

// ParseText reads a free text planner reply. A reply carrying an
// "Action: <name>" line becomes a tool call, its arguments taken from the
// JSON object following "Args:". Anything else is a final answer, returned
// together with a *ParseError describing why no call was found.
func ParseText(text string) (Reply, error) {
	trimmed := strings.TrimSpace(text)
	action := actionRE.FindStringSubmatch(trimmed)
	if action == nil {
		return FinalText(finalAnswer(trimmed)), &ParseError{Text: trimmed, Reason: "no Action line"}
	}

	call := ToolCall{Name: action[1], Args: map[string]any{}}
	if m := thoughtRE.FindStringSubmatch(trimmed); m != nil {
		call.Thought = strings.TrimSpace(m[1])
	}

	if loc := argsRE.FindStringIndex(trimmed); loc != nil {
		args, err := decodeArgs(trimmed[loc[1]-1:])
		if err != nil {
			return FinalText(trimmed), &ParseError{Text: trimmed, Reason: err.Error()}
		}
		call.Args = args
	}

	return Call(trimmed, call), nil
}

// decodeArgs reads the JSON object s starts with. Text after the object is
// ignored, and braces inside string values do not end it.
func decodeArgs(s string) (map[string]any, error) {
	var args map[string]any
	if err := json.NewDecoder(strings.NewReader(s)).Decode(&args); err != nil {
		return nil, errors.Wrap(err, "args are not a JSON object")
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// finalAnswer strips a leading "Final:" or "Final Answer:" marker.
func finalAnswer(text string) string {
	for _, prefix := range []string{"Final Answer:", "Final:"} {
		if strings.HasPrefix(text, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(text, prefix))
		}
	}
	return text
}
