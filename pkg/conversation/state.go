package conversation

import (
	"github.com/huandu/go-clone"
	"github.com/pkg/errors"
)

// Conversation is the append-only list of turns of a single episode.
// The system turn is always first and there is exactly one of it.
type Conversation struct {
	turns []Turn
}

// New creates a conversation seeded with the system prompt.
func New(systemPrompt string) *Conversation {
	return &Conversation{
		turns: []Turn{{Role: RoleSystem, Text: systemPrompt}},
	}
}

// Append adds a turn at the end of the conversation.
func (c *Conversation) Append(t Turn) error {
	if c == nil {
		return errors.New("conversation is nil")
	}
	if t.Role == RoleSystem {
		return errors.New("conversation already has a system turn")
	}
	switch t.Role {
	case RoleUser, RoleAssistant, RoleObservation:
	default:
		return errors.Errorf("unknown role %q", t.Role)
	}
	c.turns = append(c.turns, t)
	return nil
}

func (c *Conversation) AppendUser(text string) error {
	return c.Append(Turn{Role: RoleUser, Text: text})
}

func (c *Conversation) AppendAssistant(text string, call *ToolCallContent) error {
	return c.Append(Turn{Role: RoleAssistant, Text: text, ToolCall: call})
}

// AppendObservation appends a canonical tool result. toolCallID links it to
// the assistant turn that requested it (may be empty for text planners).
func (c *Conversation) AppendObservation(toolCallID string, observation any) error {
	return c.Append(Turn{
		Role:        RoleObservation,
		Text:        RenderObservation(observation),
		ToolCallID:  toolCallID,
		Observation: observation,
	})
}

// Turns returns a copy of the turns in order.
func (c *Conversation) Turns() []Turn {
	if c == nil {
		return nil
	}
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

func (c *Conversation) Len() int {
	if c == nil {
		return 0
	}
	return len(c.turns)
}

func (c *Conversation) SystemPrompt() string {
	if c == nil || len(c.turns) == 0 {
		return ""
	}
	return c.turns[0].Text
}

// Last returns the last turn with the given role.
func (c *Conversation) Last(role Role) (Turn, bool) {
	if c == nil {
		return Turn{}, false
	}
	for i := len(c.turns) - 1; i >= 0; i-- {
		if c.turns[i].Role == role {
			return c.turns[i], true
		}
	}
	return Turn{}, false
}

// Clone deep copies the conversation, including observation payloads.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	return &Conversation{turns: clone.Clone(c.turns).([]Turn)}
}
