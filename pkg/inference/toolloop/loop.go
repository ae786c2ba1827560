package toolloop

import (
	"context"

	"github.com/go-go-golems/wayfinder/pkg/conversation"
	"github.com/go-go-golems/wayfinder/pkg/events"
	"github.com/go-go-golems/wayfinder/pkg/inference/normalize"
	"github.com/go-go-golems/wayfinder/pkg/inference/planner"
	"github.com/go-go-golems/wayfinder/pkg/inference/retry"
	"github.com/go-go-golems/wayfinder/pkg/inference/tools"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Loop drives the plan/act/observe cycle of an episode. A Loop holds no
// per-episode state and can run concurrent episodes.
type Loop struct {
	planner      planner.Planner
	registry     tools.Registry
	invoker      *retry.Invoker
	loopCfg      LoopConfig
	toolCfg      tools.ToolConfig
	systemPrompt string
	snapshotHook SnapshotHook
}

// SnapshotHook sees the conversation after each phase of a step: pre_plan,
// post_plan and post_tool.
type SnapshotHook func(ctx context.Context, conv *conversation.Conversation, phase string)

type Option func(*Loop)

func New(opts ...Option) *Loop {
	l := &Loop{
		loopCfg: DefaultLoopConfig(),
		toolCfg: tools.DefaultToolConfig(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	if l.invoker == nil {
		l.invoker = retry.NewInvoker()
	}
	return l
}

func WithPlanner(p planner.Planner) Option {
	return func(l *Loop) { l.planner = p }
}

func WithRegistry(reg tools.Registry) Option {
	return func(l *Loop) { l.registry = reg }
}

// WithInvoker sets the invoker network tools are dispatched through.
func WithInvoker(inv *retry.Invoker) Option {
	return func(l *Loop) { l.invoker = inv }
}

func WithLoopConfig(cfg LoopConfig) Option {
	return func(l *Loop) { l.loopCfg = cfg }
}

func WithToolConfig(cfg tools.ToolConfig) Option {
	return func(l *Loop) { l.toolCfg = cfg }
}

func WithSystemPrompt(prompt string) Option {
	return func(l *Loop) { l.systemPrompt = prompt }
}

func WithSnapshotHook(h SnapshotHook) Option {
	return func(l *Loop) { l.snapshotHook = h }
}

func (l *Loop) snapshot(ctx context.Context, conv *conversation.Conversation, phase string) {
	if l.snapshotHook != nil {
		l.snapshotHook(ctx, conv, phase)
	}
}

// Run answers a single question. The returned episode is always non-nil once
// the loop is configured. The error is nil when the planner produced a final
// answer, ErrStepBudgetExceeded when it ran out of steps (the episode then
// carries a partial answer), an *tools.UnknownToolError when it requested a
// tool that does not exist, or the planner or context error.
func (l *Loop) Run(ctx context.Context, question string) (*Episode, error) {
	if l == nil {
		return nil, errors.New("tool loop is nil")
	}
	if l.planner == nil {
		return nil, errors.New("tool loop planner is nil")
	}
	if l.registry == nil {
		return nil, errors.New("tool loop registry is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if l.loopCfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.loopCfg.Timeout)
		defer cancel()
	}

	maxSteps := l.loopCfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultLoopConfig().MaxSteps
	}

	ep := &Episode{
		ID:           uuid.New(),
		Question:     question,
		Status:       StatusRunning,
		State:        StateAwaitingPlan,
		Conversation: conversation.New(l.systemPrompt),
	}
	if err := ep.Conversation.AppendUser(question); err != nil {
		return ep, err
	}

	logger := log.With().Str("episode_id", ep.ID.String()).Logger()
	events.PublishEventToContext(ctx, events.NewStartEvent(events.EventMetadata{EpisodeID: ep.ID}, question))

	specs := l.toolCfg.FilterTools(l.registry.List())

	for step := 1; step <= maxSteps; step++ {
		ep.Steps = step
		ep.State = StateAwaitingPlan
		meta := events.EventMetadata{EpisodeID: ep.ID, Step: step}
		logger.Debug().Int("step", step).Msg("toolloop: planning step")

		l.snapshot(ctx, ep.Conversation, "pre_plan")
		reply, err := l.planner.Plan(ctx, ep.Conversation, specs)
		if err != nil {
			return l.fail(ctx, ep, meta, errors.Wrap(err, "planner failed"))
		}
		events.PublishEventToContext(ctx, events.NewPlanEvent(meta, reply.Text))

		if !reply.IsToolCall() {
			if err := ep.Conversation.AppendAssistant(reply.Text, nil); err != nil {
				return l.fail(ctx, ep, meta, err)
			}
			l.snapshot(ctx, ep.Conversation, "post_plan")
			ep.Answer = reply.Text
			ep.Status = StatusCompleted
			ep.State = StateTerminal
			logger.Debug().Int("steps", step).Msg("toolloop: final answer")
			events.PublishEventToContext(ctx, events.NewFinalEvent(meta, ep.Answer, string(ep.Status)))
			return ep, nil
		}

		call := reply.ToolCall
		if len(reply.Dropped) > 0 {
			dropped := make([]string, 0, len(reply.Dropped))
			for _, d := range reply.Dropped {
				dropped = append(dropped, d.Name)
			}
			logger.Warn().
				Str("tool", call.Name).
				Strs("dropped", dropped).
				Msg("toolloop: planner requested several tools, only the first is executed")
		}
		if err := ep.Conversation.AppendAssistant(reply.Text, call.Content()); err != nil {
			return l.fail(ctx, ep, meta, err)
		}
		l.snapshot(ctx, ep.Conversation, "post_plan")
		events.PublishEventToContext(ctx, events.NewToolCallEvent(meta, events.ToolCall{
			ID:    call.ID,
			Name:  call.Name,
			Input: call.Args,
		}))

		ep.State = StateExecutingTool
		obs, err := l.execute(ctx, meta, call)
		if err != nil {
			return l.fail(ctx, ep, meta, err)
		}

		if err := ep.Conversation.AppendObservation(call.ID, obs.Value); err != nil {
			return l.fail(ctx, ep, meta, err)
		}
		ep.Observations = append(ep.Observations, obs)
		l.snapshot(ctx, ep.Conversation, "post_tool")
		events.PublishEventToContext(ctx, events.NewObservationEvent(meta, call.ID, call.Name, obs.Value, obs.IsError))
	}

	ep.State = StateTerminal
	ep.Status = StatusStepBudgetExceeded
	ep.Answer = ep.partialAnswer()
	logger.Warn().Int("max_steps", maxSteps).Msg("toolloop: step budget exhausted")
	events.PublishEventToContext(ctx, events.NewFinalEvent(
		events.EventMetadata{EpisodeID: ep.ID, Step: ep.Steps}, ep.Answer, string(ep.Status)))
	return ep, errors.Wrapf(ErrStepBudgetExceeded, "no final answer after %d steps", maxSteps)
}

func (l *Loop) fail(ctx context.Context, ep *Episode, meta events.EventMetadata, err error) (*Episode, error) {
	ep.State = StateTerminal
	ep.Status = StatusFailed
	log.Debug().Err(err).Str("episode_id", ep.ID.String()).Msg("toolloop: episode failed")
	events.PublishEventToContext(ctx, events.NewErrorEvent(meta, err))
	return ep, err
}

// execute validates and dispatches a tool call. Only an unknown tool or an
// abandoned context is returned as an error, every other failure becomes an
// error observation the planner can react to.
func (l *Loop) execute(ctx context.Context, meta events.EventMetadata, call *planner.ToolCall) (Observation, error) {
	obs := Observation{Step: meta.Step, ToolCallID: call.ID, Tool: call.Name, Args: call.Args}

	if !l.toolCfg.IsToolAllowed(call.Name) {
		return obs, &tools.UnknownToolError{Name: call.Name}
	}
	tool, err := l.registry.Lookup(call.Name)
	if err != nil {
		return obs, err
	}

	args, err := l.registry.Validate(call.Name, call.Args)
	if err != nil {
		var unknown *tools.UnknownToolError
		if errors.As(err, &unknown) {
			return obs, err
		}
		log.Debug().Err(err).Str("tool", call.Name).Msg("toolloop: invalid tool arguments")
		obs.Value = normalize.ErrorMarker(err.Error())
		obs.IsError = true
		return obs, nil
	}
	obs.Args = args

	raw, err := l.dispatch(ctx, meta, tool, args)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return obs, errors.Wrap(ctxErr, "episode abandoned")
		}
		log.Warn().Err(err).Str("tool", call.Name).Msg("toolloop: tool call failed")
		obs.Value = normalize.ErrorMarker(failureMessage(call.Name, err))
		obs.IsError = true
		return obs, nil
	}

	obs.Value = normalize.Normalize(raw)
	if _, isErr := normalize.IsErrorMarker(obs.Value); isErr {
		obs.IsError = true
	}
	return obs, nil
}

func (l *Loop) dispatch(ctx context.Context, meta events.EventMetadata, tool *tools.Tool, args map[string]any) (any, error) {
	if l.toolCfg.ExecutionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.toolCfg.ExecutionTimeout)
		defer cancel()
	}

	if !tool.Spec.Network {
		return tool.Impl(ctx, args)
	}

	ctx = retry.ContextWithObserver(ctx, func(ctx context.Context, st retry.State, err error) {
		events.PublishEventToContext(ctx, events.NewRetryEvent(meta, tool.Spec.Name, st.Attempt, st.MaxAttempts, st.NextDelay, err))
	})
	return l.invoker.Invoke(ctx, func(ctx context.Context) (any, error) {
		return tool.Impl(ctx, args)
	})
}

// failureMessage is the plain text shown to the planner for a failed call.
func failureMessage(tool string, err error) string {
	var exhausted *retry.RetryExhaustedError
	if errors.As(err, &exhausted) {
		return tool + " is unavailable right now, please try again later"
	}
	var status *retry.StatusError
	if errors.As(err, &status) {
		return tool + " failed: " + status.Error()
	}
	return tool + " failed: " + err.Error()
}
