package toolloop

import (
	"github.com/go-go-golems/wayfinder/pkg/conversation"
	"github.com/go-go-golems/wayfinder/pkg/inference/normalize"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrStepBudgetExceeded is returned when the planner did not produce a final
// answer within the step budget. The episode still carries a partial answer.
var ErrStepBudgetExceeded = errors.New("step budget exceeded")

// State is the position of an episode in the plan/act/observe cycle.
type State int

const (
	StateAwaitingPlan State = iota
	StateExecutingTool
	StateTerminal
)

func (s State) String() string {
	switch s {
	case StateAwaitingPlan:
		return "awaiting-plan"
	case StateExecutingTool:
		return "executing-tool"
	case StateTerminal:
		return "terminal"
	}
	return "unknown"
}

// Status is how a terminal episode ended.
type Status string

const (
	StatusRunning            Status = "running"
	StatusCompleted          Status = "completed"
	StatusStepBudgetExceeded Status = "step-budget-exceeded"
	StatusFailed             Status = "failed"
)

// Observation is the canonical result of one tool call.
type Observation struct {
	Step       int            `json:"step"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	Tool       string         `json:"tool"`
	Args       map[string]any `json:"args"`
	Value      any            `json:"value"`
	IsError    bool           `json:"is_error,omitempty"`
}

// Episode is one plan/act/observe run answering a single question.
type Episode struct {
	ID           uuid.UUID                  `json:"id"`
	Question     string                     `json:"question"`
	Answer       string                     `json:"answer"`
	Status       Status                     `json:"status"`
	State        State                      `json:"-"`
	Steps        int                        `json:"steps"`
	Observations []Observation              `json:"observations"`
	Conversation *conversation.Conversation `json:"-"`
}

// LastObservation returns the most recent successful observation of the named
// tool. An empty name matches any tool.
func (e *Episode) LastObservation(tool string) (Observation, bool) {
	if e == nil {
		return Observation{}, false
	}
	for i := len(e.Observations) - 1; i >= 0; i-- {
		o := e.Observations[i]
		if o.IsError || (tool != "" && o.Tool != tool) {
			continue
		}
		return o, true
	}
	return Observation{}, false
}

// partialAnswer is the best effort answer of an episode that ran out of
// steps: the last assistant text, else the last observation.
func (e *Episode) partialAnswer() string {
	if t, ok := e.Conversation.Last(conversation.RoleAssistant); ok && t.Text != "" && t.ToolCall == nil {
		return t.Text
	}
	if len(e.Observations) > 0 {
		last := e.Observations[len(e.Observations)-1]
		if msg, ok := normalize.IsErrorMarker(last.Value); ok {
			return "Sorry, I could not finish: " + msg
		}
		return conversation.RenderObservation(last.Value)
	}
	return "Sorry, I could not find an answer."
}
