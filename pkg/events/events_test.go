package events

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestPublishEventToContext(t *testing.T) {
	a, b := &CollectingSink{}, &CollectingSink{}
	ctx := WithEventSinks(context.Background(), a)
	ctx = WithEventSinks(ctx, b)
	require.Len(t, GetEventSinks(ctx), 2)

	PublishEventToContext(ctx, NewFinalEvent(EventMetadata{Step: 1}, "done", "completed"))
	require.Equal(t, []EventType{EventTypeFinal}, a.Types())
	require.Equal(t, []EventType{EventTypeFinal}, b.Types())

	// no sinks is a no-op
	PublishEventToContext(context.Background(), NewErrorEvent(EventMetadata{}, errors.New("x")))
}

func TestNewEventFromJson(t *testing.T) {
	meta := EventMetadata{EpisodeID: uuid.New(), Step: 2}
	in := NewObservationEvent(meta, "call_1", "get_weather",
		map[string]any{"temperature": 15.0, "code": 3.0, "conditions": "Overcast"}, false)
	b, err := json.Marshal(in)
	require.NoError(t, err)

	out, err := NewEventFromJson(b)
	require.NoError(t, err)
	obs, ok := out.(*EventObservation)
	require.True(t, ok)
	require.Equal(t, meta, obs.Metadata())
	require.Equal(t, "get_weather", obs.Tool)
	require.Equal(t, in.Observation, obs.Observation)

	_, err = NewEventFromJson([]byte(`{"type":"nope"}`))
	require.Error(t, err)
}

func TestTracePrinter_TextPlanner(t *testing.T) {
	var buf bytes.Buffer
	p := NewTracePrinter(&buf)
	meta := EventMetadata{}

	require.NoError(t, p.PublishEvent(NewStartEvent(meta, "weather in London?")))
	require.NoError(t, p.PublishEvent(NewPlanEvent(meta, "Thought: look it up\nAction: get_weather\nArgs: {\"lat\":51.5,\"lon\":-0.12}")))
	require.NoError(t, p.PublishEvent(NewToolCallEvent(meta, ToolCall{Name: "get_weather", Input: map[string]any{"lat": 51.5, "lon": -0.12}})))
	require.NoError(t, p.PublishEvent(NewRetryEvent(meta, "get_weather", 1, 3, 1500*time.Millisecond, errors.New("status 429"))))
	require.NoError(t, p.PublishEvent(NewObservationEvent(meta, "", "get_weather", map[string]any{"temperature": 15.0}, false)))
	require.NoError(t, p.PublishEvent(NewFinalEvent(meta, "Overcast (59.0 °F)", "completed")))

	out := buf.String()
	require.Contains(t, out, TraceHeader)
	require.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("Action: get_weather")))
	require.Contains(t, out, "Retry: get_weather attempt 1/3 failed (status 429), waiting 1.5s")
	require.Contains(t, out, `Observation: {"temperature":15}`)
	require.Contains(t, out, "Final: Overcast (59.0 °F)")
}

func TestTracePrinter_StructuredPlanner(t *testing.T) {
	var buf bytes.Buffer
	p := NewTracePrinter(&buf)
	require.NoError(t, p.PublishEvent(NewPlanEvent(EventMetadata{}, "")))
	require.NoError(t, p.PublishEvent(NewToolCallEvent(EventMetadata{}, ToolCall{Name: "convert_c_to_f", Input: map[string]any{"c": 20}})))
	require.Equal(t, "Action: convert_c_to_f\nArgs: {\"c\":20}\n\n", buf.String())
}

func TestTracePrinter_WithoutFinal(t *testing.T) {
	var buf bytes.Buffer
	p := NewTracePrinter(&buf, WithoutFinal())
	require.NoError(t, p.PublishEvent(NewFinalEvent(EventMetadata{}, "done", "completed")))
	require.Empty(t, buf.String())
}

func TestEventRouter_DeliversToTracePrinter(t *testing.T) {
	router, err := NewEventRouter(WithLogger(watermill.NopLogger{}))
	require.NoError(t, err)

	var buf bytes.Buffer
	printer := NewTracePrinter(&buf)
	received := make(chan struct{}, 1)
	router.AddHandler("trace", "episode", func(msg *message.Message) error {
		err := printer.Handler()(msg)
		received <- struct{}{}
		return err
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = router.Run(ctx)
	}()
	<-router.Running()

	sink := router.Sink("episode")
	require.NoError(t, sink.PublishEvent(NewFinalEvent(EventMetadata{}, "68.0", "completed")))

	select {
	case <-received:
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered")
	}
	require.NoError(t, router.Close())
	require.Equal(t, "Final: 68.0\n\n", buf.String())
}
