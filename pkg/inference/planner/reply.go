package planner

import (
	"context"

	"github.com/go-go-golems/wayfinder/pkg/conversation"
	"github.com/go-go-golems/wayfinder/pkg/inference/tools"
)

// ToolCall is a tool request extracted from a planner reply.
type ToolCall struct {
	ID      string         `json:"id,omitempty"`
	Name    string         `json:"name"`
	Args    map[string]any `json:"args"`
	Thought string         `json:"thought,omitempty"`
}

// Content converts the call into the form stored on an assistant turn.
func (c *ToolCall) Content() *conversation.ToolCallContent {
	if c == nil {
		return nil
	}
	return &conversation.ToolCallContent{ID: c.ID, Name: c.Name, Arguments: c.Args}
}

// Reply is either a final text answer or a single tool call.
//
// Text is always the raw planner text (it may be empty for structured tool
// calls). Dropped lists structured calls beyond the first one, which are never
// dispatched.
type Reply struct {
	Text     string
	ToolCall *ToolCall
	Dropped  []ToolCall
}

// FinalText builds a final answer reply.
func FinalText(text string) Reply {
	return Reply{Text: text}
}

// Call builds a tool call reply.
func Call(text string, call ToolCall) Reply {
	return Reply{Text: text, ToolCall: &call}
}

func (r Reply) IsToolCall() bool {
	return r.ToolCall != nil
}

// Planner produces the next step of an episode from the running conversation.
type Planner interface {
	Plan(ctx context.Context, conv *conversation.Conversation, specs []tools.ToolSpec) (Reply, error)
}

// PlannerFunc adapts a function to the Planner interface.
type PlannerFunc func(ctx context.Context, conv *conversation.Conversation, specs []tools.ToolSpec) (Reply, error)

func (f PlannerFunc) Plan(ctx context.Context, conv *conversation.Conversation, specs []tools.ToolSpec) (Reply, error) {
	return f(ctx, conv, specs)
}

// Completer is a plain single-shot completion, used outside of tool episodes
// (fact lists, city extraction).
type Completer interface {
	Complete(ctx context.Context, system string, user string) (string, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, system string, user string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, system string, user string) (string, error) {
	return f(ctx, system, user)
}
