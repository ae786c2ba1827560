package retry

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Policy bounds the retries of a single invocation.
type Policy struct {
	MaxAttempts int           `json:"max_attempts" mapstructure:"max-attempts"`
	BaseDelay   time.Duration `json:"base_delay" mapstructure:"base-delay"`
	Multiplier  float64       `json:"multiplier" mapstructure:"multiplier"`
	// MaxDelay caps a single backoff interval. Zero means no cap.
	MaxDelay time.Duration `json:"max_delay" mapstructure:"max-delay"`
}

// DefaultPolicy is three attempts waiting 1.5s then 2.25s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   1500 * time.Millisecond,
		Multiplier:  1.5,
	}
}

// Delay returns the wait after the given failed attempt (1-indexed):
// BaseDelay * Multiplier^(attempt-1).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	m := p.Multiplier
	if m <= 0 {
		m = 1
	}
	d := time.Duration(float64(p.BaseDelay) * math.Pow(m, float64(attempt-1)))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// WorstCase is the total backoff a fully exhausted invocation sleeps.
func (p Policy) WorstCase() time.Duration {
	var total time.Duration
	for a := 1; a < p.MaxAttempts; a++ {
		total += p.Delay(a)
	}
	return total
}

// State is the bookkeeping of one invocation. A fresh state is created for
// every call and dropped when it resolves.
type State struct {
	Attempt     int
	MaxAttempts int
	NextDelay   time.Duration
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// ContextSleeper is the default Sleeper.
func ContextSleeper(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Call is one attempt against the upstream.
type Call[T any] func(ctx context.Context) (T, error)

// Invoker runs calls under a retry policy.
type Invoker struct {
	policy   Policy
	classify Classifier
	sleep    Sleeper
	onRetry  func(ctx context.Context, st State, err error)
}

type Option func(*Invoker)

func WithPolicy(p Policy) Option {
	return func(i *Invoker) { i.policy = p }
}

func WithClassifier(c Classifier) Option {
	return func(i *Invoker) { i.classify = c }
}

func WithSleeper(s Sleeper) Option {
	return func(i *Invoker) { i.sleep = s }
}

// WithOnRetry registers a hook called before each backoff sleep.
func WithOnRetry(fn func(ctx context.Context, st State, err error)) Option {
	return func(i *Invoker) { i.onRetry = fn }
}

type observerKey struct{}

// ContextWithObserver attaches a hook called before each backoff sleep of the
// invocations run with the returned context, in addition to the invoker's own
// hook.
func ContextWithObserver(ctx context.Context, fn func(ctx context.Context, st State, err error)) context.Context {
	if fn == nil {
		return ctx
	}
	return context.WithValue(ctx, observerKey{}, fn)
}

func observerFromContext(ctx context.Context) func(ctx context.Context, st State, err error) {
	fn, _ := ctx.Value(observerKey{}).(func(ctx context.Context, st State, err error))
	return fn
}

func NewInvoker(opts ...Option) *Invoker {
	i := &Invoker{
		policy:   DefaultPolicy(),
		classify: DefaultClassifier,
		sleep:    ContextSleeper,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(i)
		}
	}
	if i.policy.MaxAttempts < 1 {
		i.policy.MaxAttempts = 1
	}
	return i
}

func (i *Invoker) Policy() Policy {
	return i.policy
}

// Invoke runs call with the invoker's policy.
func (i *Invoker) Invoke(ctx context.Context, call Call[any]) (any, error) {
	return Do(ctx, i, call)
}

// Do runs call until it succeeds, fails fatally, or the attempts run out.
func Do[T any](ctx context.Context, i *Invoker, call Call[T]) (T, error) {
	var zero T
	if i == nil {
		i = NewInvoker()
	}

	st := State{MaxAttempts: i.policy.MaxAttempts}
	for {
		st.Attempt++
		if err := ctx.Err(); err != nil {
			return zero, errors.Wrap(err, "invocation cancelled")
		}

		v, err := call(ctx)
		if err == nil {
			if st.Attempt > 1 {
				log.Debug().Int("attempt", st.Attempt).Msg("retry: call succeeded after retry")
			}
			return v, nil
		}

		class := i.classify(err)
		if class == Fatal {
			log.Debug().Err(err).Int("attempt", st.Attempt).Msg("retry: fatal error, not retrying")
			return zero, err
		}
		if st.Attempt >= st.MaxAttempts {
			log.Warn().Err(err).Int("attempts", st.Attempt).Msg("retry: attempts exhausted")
			return zero, &RetryExhaustedError{Attempts: st.Attempt, Last: err}
		}

		st.NextDelay = i.policy.Delay(st.Attempt)
		log.Debug().
			Err(err).
			Int("attempt", st.Attempt).
			Int("max_attempts", st.MaxAttempts).
			Dur("backoff", st.NextDelay).
			Msg("retry: transient error, backing off")
		if i.onRetry != nil {
			i.onRetry(ctx, st, err)
		}
		if fn := observerFromContext(ctx); fn != nil {
			fn(ctx, st, err)
		}
		if err := i.sleep(ctx, st.NextDelay); err != nil {
			return zero, errors.Wrap(err, "cancelled during retry backoff")
		}
	}
}
