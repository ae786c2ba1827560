package conversation

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Role string

const (
	RoleSystem      Role = "system"
	RoleUser        Role = "user"
	RoleAssistant   Role = "assistant"
	RoleObservation Role = "tool-observation"
)

// ToolCallContent is the tool request an assistant turn carried, if any.
type ToolCallContent struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

func (t *ToolCallContent) String() string {
	args, err := json.Marshal(t.Arguments)
	if err != nil {
		args = []byte(fmt.Sprintf("%v", t.Arguments))
	}
	return fmt.Sprintf("%s(%s)", t.Name, args)
}

// Turn is a single entry of a conversation.
//
// Text holds the content as it is replayed to the planner. Assistant turns that
// requested a tool keep the request in ToolCall, and observation turns keep the
// canonical tool result in Observation (Text is its JSON rendering).
type Turn struct {
	Role        Role             `json:"role"`
	Text        string           `json:"text"`
	ToolCall    *ToolCallContent `json:"tool_call,omitempty"`
	ToolCallID  string           `json:"tool_call_id,omitempty"`
	Observation any              `json:"observation,omitempty"`
}

func (t Turn) String() string {
	return t.Text
}

func (t Turn) View() string {
	text := strings.TrimRight(t.Text, "\n")
	if t.ToolCall != nil && text == "" {
		text = t.ToolCall.String()
	}
	return fmt.Sprintf("[%s]: %s", t.Role, text)
}

// RenderObservation renders a canonical tool result the way it is shown to
// the planner.
func RenderObservation(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
