package retry

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type recordingSleeper struct {
	slept []time.Duration
}

func (r *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	r.slept = append(r.slept, d)
	return nil
}

func (r *recordingSleeper) total() time.Duration {
	var t time.Duration
	for _, d := range r.slept {
		t += d
	}
	return t
}

// failThen fails with the given errors in order, then succeeds with value.
func failThen(value string, errs ...error) (Call[any], *int) {
	calls := 0
	return func(context.Context) (any, error) {
		calls++
		if calls <= len(errs) {
			return nil, errs[calls-1]
		}
		return value, nil
	}, &calls
}

func TestPolicy_Delay(t *testing.T) {
	p := DefaultPolicy()
	require.Equal(t, 1500*time.Millisecond, p.Delay(1))
	require.Equal(t, 2250*time.Millisecond, p.Delay(2))
	require.Equal(t, 3750*time.Millisecond, p.WorstCase())

	p.MaxDelay = 2 * time.Second
	require.Equal(t, 2*time.Second, p.Delay(2))
}

func TestInvoke_RetriesTransientStatusThenSucceeds(t *testing.T) {
	sleeper := &recordingSleeper{}
	inv := NewInvoker(WithSleeper(sleeper.Sleep))

	call, calls := failThen("ok",
		&StatusError{StatusCode: http.StatusServiceUnavailable},
		&StatusError{StatusCode: http.StatusServiceUnavailable},
	)
	v, err := inv.Invoke(context.Background(), call)
	require.NoError(t, err)
	require.Equal(t, "ok", v)
	require.Equal(t, 3, *calls)
	require.Equal(t, []time.Duration{1500 * time.Millisecond, 2250 * time.Millisecond}, sleeper.slept)
	require.Equal(t, 3750*time.Millisecond, sleeper.total())
}

func TestInvoke_ElapsedTimeMatchesBackoff(t *testing.T) {
	inv := NewInvoker(WithPolicy(Policy{MaxAttempts: 3, BaseDelay: 20 * time.Millisecond, Multiplier: 1.5}))

	call, _ := failThen("ok",
		&StatusError{StatusCode: http.StatusServiceUnavailable},
		&StatusError{StatusCode: http.StatusServiceUnavailable},
	)
	start := time.Now()
	_, err := inv.Invoke(context.Background(), call)
	elapsed := time.Since(start)
	require.NoError(t, err)
	require.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	require.Less(t, elapsed, 50*time.Millisecond+time.Second)
}

func TestInvoke_FatalStatusFailsImmediately(t *testing.T) {
	sleeper := &recordingSleeper{}
	inv := NewInvoker(WithSleeper(sleeper.Sleep))

	calls := 0
	_, err := inv.Invoke(context.Background(), func(context.Context) (any, error) {
		calls++
		return nil, &StatusError{StatusCode: http.StatusNotFound}
	})
	require.Error(t, err)
	require.Equal(t, 1, calls)
	require.Empty(t, sleeper.slept)

	var status *StatusError
	require.True(t, errors.As(err, &status))
	require.Equal(t, http.StatusNotFound, status.StatusCode)

	var exhausted *RetryExhaustedError
	require.False(t, errors.As(err, &exhausted))
}

func TestInvoke_ExhaustsTransientFailures(t *testing.T) {
	sleeper := &recordingSleeper{}
	inv := NewInvoker(WithSleeper(sleeper.Sleep))

	calls := 0
	_, err := inv.Invoke(context.Background(), func(context.Context) (any, error) {
		calls++
		return nil, &StatusError{StatusCode: http.StatusTooManyRequests}
	})
	var exhausted *RetryExhaustedError
	require.True(t, errors.As(err, &exhausted))
	require.Equal(t, 3, exhausted.Attempts)
	require.Equal(t, 3, calls)
	require.Len(t, sleeper.slept, 2)

	var status *StatusError
	require.True(t, errors.As(err, &status))
	require.Equal(t, http.StatusTooManyRequests, status.StatusCode)
}

func TestInvoke_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	inv := NewInvoker(WithSleeper(func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}))

	calls := 0
	_, err := inv.Invoke(ctx, func(context.Context) (any, error) {
		calls++
		return nil, &StatusError{StatusCode: http.StatusBadGateway}
	})
	require.Error(t, err)
	require.True(t, errors.Is(err, context.Canceled))
	require.Equal(t, 1, calls)
}

func TestInvoke_OnRetryHook(t *testing.T) {
	var states []State
	inv := NewInvoker(
		WithSleeper((&recordingSleeper{}).Sleep),
		WithOnRetry(func(_ context.Context, st State, _ error) { states = append(states, st) }),
	)
	call, _ := failThen("ok", &StatusError{StatusCode: 500})
	_, err := inv.Invoke(context.Background(), call)
	require.NoError(t, err)
	require.Equal(t, []State{{Attempt: 1, MaxAttempts: 3, NextDelay: 1500 * time.Millisecond}}, states)
}

func TestDo_Typed(t *testing.T) {
	inv := NewInvoker(WithSleeper((&recordingSleeper{}).Sleep))
	calls := 0
	v, err := Do(context.Background(), inv, func(context.Context) (float64, error) {
		calls++
		if calls == 1 {
			return 0, MarkTransient(fmt.Errorf("flaky"))
		}
		return 68.0, nil
	})
	require.NoError(t, err)
	require.Equal(t, 68.0, v)
}

func TestDefaultClassifier(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Class
	}{
		{"429", &StatusError{StatusCode: 429}, Transient},
		{"500", &StatusError{StatusCode: 500}, Transient},
		{"502", &StatusError{StatusCode: 502}, Transient},
		{"503", &StatusError{StatusCode: 503}, Transient},
		{"504", &StatusError{StatusCode: 504}, Transient},
		{"400", &StatusError{StatusCode: 400}, Fatal},
		{"404", &StatusError{StatusCode: 404}, Fatal},
		{"wrapped 503", errors.Wrap(&StatusError{StatusCode: 503}, "get weather"), Transient},
		{"malformed", &MalformedResponseError{Err: fmt.Errorf("bad json")}, Fatal},
		{"net op error", &net.OpError{Op: "dial", Err: fmt.Errorf("connection refused")}, Transient},
		{"unexpected eof", errors.Wrap(io.ErrUnexpectedEOF, "read"), Transient},
		{"cancelled", context.Canceled, Fatal},
		{"plain", fmt.Errorf("boom"), Fatal},
		{"marked", MarkTransient(fmt.Errorf("boom")), Transient},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, DefaultClassifier(tc.err))
		})
	}
}

func TestInvoke_ContextObserver(t *testing.T) {
	inv := NewInvoker(WithSleeper((&recordingSleeper{}).Sleep))
	var attempts []int
	ctx := ContextWithObserver(context.Background(), func(_ context.Context, st State, _ error) {
		attempts = append(attempts, st.Attempt)
	})
	call, _ := failThen("ok", &StatusError{StatusCode: 503}, &StatusError{StatusCode: 503})
	_, err := inv.Invoke(ctx, call)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, attempts)
}
