package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type EventType string

const (
	EventTypeStart       EventType = "episode-start"
	EventTypePlan        EventType = "plan"
	EventTypeToolCall    EventType = "tool-call"
	EventTypeRetry       EventType = "tool-retry"
	EventTypeObservation EventType = "observation"
	EventTypeFinal       EventType = "final"
	EventTypeError       EventType = "error"
)

// EventMetadata identifies the episode and step an event belongs to.
type EventMetadata struct {
	EpisodeID uuid.UUID `json:"episode_id"`
	Step      int       `json:"step"`
}

func (em EventMetadata) MarshalZerologObject(e *zerolog.Event) {
	e.Str("episode_id", em.EpisodeID.String())
	e.Int("step", em.Step)
}

type Event interface {
	Type() EventType
	Metadata() EventMetadata
}

type EventImpl struct {
	Type_ EventType     `json:"type"`
	Meta  EventMetadata `json:"meta"`
}

func (e *EventImpl) Type() EventType {
	return e.Type_
}

func (e *EventImpl) Metadata() EventMetadata {
	return e.Meta
}

// EventStart carries the user question that opened an episode.
type EventStart struct {
	EventImpl
	Question string `json:"question"`
}

func NewStartEvent(metadata EventMetadata, question string) *EventStart {
	return &EventStart{
		EventImpl: EventImpl{Type_: EventTypeStart, Meta: metadata},
		Question:  question,
	}
}

// EventPlan carries the raw planner text of a step.
type EventPlan struct {
	EventImpl
	Text string `json:"text"`
}

func NewPlanEvent(metadata EventMetadata, text string) *EventPlan {
	return &EventPlan{
		EventImpl: EventImpl{Type_: EventTypePlan, Meta: metadata},
		Text:      text,
	}
}

type ToolCall struct {
	ID    string         `json:"id,omitempty" yaml:"id,omitempty"`
	Name  string         `json:"name" yaml:"name"`
	Input map[string]any `json:"input" yaml:"input"`
}

type EventToolCall struct {
	EventImpl
	ToolCall ToolCall `json:"tool_call"`
}

func NewToolCallEvent(metadata EventMetadata, toolCall ToolCall) *EventToolCall {
	return &EventToolCall{
		EventImpl: EventImpl{Type_: EventTypeToolCall, Meta: metadata},
		ToolCall:  toolCall,
	}
}

// EventRetry is published before the invoker backs off after a transient
// failure.
type EventRetry struct {
	EventImpl
	Tool        string        `json:"tool"`
	Attempt     int           `json:"attempt"`
	MaxAttempts int           `json:"max_attempts"`
	Delay       time.Duration `json:"delay"`
	ErrorString string        `json:"error"`
}

func NewRetryEvent(metadata EventMetadata, tool string, attempt, maxAttempts int, delay time.Duration, err error) *EventRetry {
	ret := &EventRetry{
		EventImpl:   EventImpl{Type_: EventTypeRetry, Meta: metadata},
		Tool:        tool,
		Attempt:     attempt,
		MaxAttempts: maxAttempts,
		Delay:       delay,
	}
	if err != nil {
		ret.ErrorString = err.Error()
	}
	return ret
}

// EventObservation carries the canonical result of a tool call.
type EventObservation struct {
	EventImpl
	ToolCallID  string `json:"tool_call_id,omitempty"`
	Tool        string `json:"tool"`
	Observation any    `json:"observation"`
	IsError     bool   `json:"is_error,omitempty"`
}

func NewObservationEvent(metadata EventMetadata, toolCallID string, tool string, observation any, isError bool) *EventObservation {
	return &EventObservation{
		EventImpl:   EventImpl{Type_: EventTypeObservation, Meta: metadata},
		ToolCallID:  toolCallID,
		Tool:        tool,
		Observation: observation,
		IsError:     isError,
	}
}

type EventFinal struct {
	EventImpl
	Text   string `json:"text"`
	Status string `json:"status"`
}

func NewFinalEvent(metadata EventMetadata, text string, status string) *EventFinal {
	return &EventFinal{
		EventImpl: EventImpl{Type_: EventTypeFinal, Meta: metadata},
		Text:      text,
		Status:    status,
	}
}

type EventError struct {
	EventImpl
	ErrorString string `json:"error"`
}

func NewErrorEvent(metadata EventMetadata, err error) *EventError {
	ret := &EventError{EventImpl: EventImpl{Type_: EventTypeError, Meta: metadata}}
	if err != nil {
		ret.ErrorString = err.Error()
	}
	return ret
}

// NewEventFromJson decodes an event serialized by a sink back into its typed
// form.
func NewEventFromJson(b []byte) (Event, error) {
	var hdr struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(b, &hdr); err != nil {
		return nil, err
	}

	var ev Event
	switch hdr.Type {
	case EventTypeStart:
		ev = &EventStart{}
	case EventTypePlan:
		ev = &EventPlan{}
	case EventTypeToolCall:
		ev = &EventToolCall{}
	case EventTypeRetry:
		ev = &EventRetry{}
	case EventTypeObservation:
		ev = &EventObservation{}
	case EventTypeFinal:
		ev = &EventFinal{}
	case EventTypeError:
		ev = &EventError{}
	default:
		return nil, fmt.Errorf("unknown event type %q", hdr.Type)
	}
	if err := json.Unmarshal(b, ev); err != nil {
		return nil, err
	}
	return ev, nil
}
