package events

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog/log"
)

const TraceHeader = "--- Thought → Action → Observation → Final ---"

// TracePrinter writes the Thought/Action/Observation trace of an episode.
// Text planners already print their Action line as part of the plan, so a
// tool call is only echoed when the plan text did not show it.
type TracePrinter struct {
	mu          sync.Mutex
	w           io.Writer
	actionShown bool
	skipFinal   bool
}

var _ EventSink = (*TracePrinter)(nil)

type TracePrinterOption func(*TracePrinter)

// WithoutFinal leaves the final answer to the caller.
func WithoutFinal() TracePrinterOption {
	return func(p *TracePrinter) { p.skipFinal = true }
}

func NewTracePrinter(w io.Writer, opts ...TracePrinterOption) *TracePrinter {
	p := &TracePrinter{w: w}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Handler returns a watermill handler feeding the printer.
func (p *TracePrinter) Handler() func(msg *message.Message) error {
	return func(msg *message.Message) error {
		defer msg.Ack()

		e, err := NewEventFromJson(msg.Payload)
		if err != nil {
			log.Warn().Err(err).Msg("trace printer: could not decode event")
			return nil
		}
		return p.PublishEvent(e)
	}
}

func (p *TracePrinter) PublishEvent(e Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	switch ev := e.(type) {
	case *EventStart:
		_, err = fmt.Fprintf(p.w, "\n%s\n\n", TraceHeader)
	case *EventPlan:
		text := strings.TrimSpace(ev.Text)
		p.actionShown = strings.Contains(text, "Action:")
		if text != "" {
			_, err = fmt.Fprintf(p.w, "%s\n\n", text)
		}
	case *EventToolCall:
		if p.actionShown {
			p.actionShown = false
			return nil
		}
		var args []byte
		args, err = json.Marshal(ev.ToolCall.Input)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(p.w, "Action: %s\nArgs: %s\n\n", ev.ToolCall.Name, args)
	case *EventRetry:
		_, err = fmt.Fprintf(p.w, "Retry: %s attempt %d/%d failed (%s), waiting %s\n",
			ev.Tool, ev.Attempt, ev.MaxAttempts, ev.ErrorString, ev.Delay)
	case *EventObservation:
		var obs []byte
		obs, err = json.Marshal(ev.Observation)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(p.w, "Observation: %s\n\n", obs)
	case *EventFinal:
		if !p.skipFinal {
			_, err = fmt.Fprintf(p.w, "Final: %s\n\n", ev.Text)
		}
	case *EventError:
		_, err = fmt.Fprintf(p.w, "Error: %s\n\n", ev.ErrorString)
	}
	return err
}
