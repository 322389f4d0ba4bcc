package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("503 Service Unavailable")

func TestDoSuccess(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), Policy{Attempts: 3, BaseDelay: time.Millisecond}, func(context.Context, int) (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	require.Equal(t, "ok", got)
	require.Equal(t, 1, calls)
}

func TestDoRetryThenSuccess(t *testing.T) {
	var attempts []int
	got, err := Do(context.Background(), Policy{Attempts: 3, BaseDelay: time.Millisecond}, func(_ context.Context, attempt int) (string, error) {
		attempts = append(attempts, attempt)
		if attempt < 3 {
			return "", errTransient
		}
		return "ok", nil
	})
	require.NoError(t, err)
	require.Equal(t, "ok", got)
	require.Equal(t, []int{1, 2, 3}, attempts)
}

func TestDoExhausted(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), Policy{Attempts: 2, BaseDelay: time.Millisecond}, func(context.Context, int) (int, error) {
		calls++
		return 0, errTransient
	})
	require.ErrorIs(t, err, errTransient)
	require.Equal(t, 2, calls)
}

func TestDoPermanent(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), Policy{Attempts: 3, BaseDelay: time.Millisecond}, func(context.Context, int) (int, error) {
		calls++
		return 0, Permanent(errTransient)
	})
	require.Equal(t, errTransient, err)
	require.False(t, IsPermanent(err))
	require.Equal(t, 1, calls)

	require.True(t, IsPermanent(Permanent(errTransient)))
}

func TestDoZeroAttempts(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), Policy{}, func(context.Context, int) (int, error) {
		calls++
		return 0, errTransient
	})
	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestDoContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Do(ctx, Policy{Attempts: 3, BaseDelay: time.Hour}, func(context.Context, int) (int, error) {
		calls++
		cancel()
		return 0, errTransient
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}

func TestDoContextDoneBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	_, err := Do(ctx, Policy{Attempts: 3, BaseDelay: time.Millisecond}, func(context.Context, int) (int, error) {
		calls++
		return 0, nil
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 0, calls)
}

func TestDelay(t *testing.T) {
	linear := Policy{BaseDelay: 800 * time.Millisecond}
	require.Equal(t, 800*time.Millisecond, linear.Delay(1))
	require.Equal(t, 1600*time.Millisecond, linear.Delay(2))

	b := &linearBackOff{policy: Policy{BaseDelay: 100 * time.Millisecond}}
	require.Equal(t, 100*time.Millisecond, b.NextBackOff())
	require.Equal(t, 200*time.Millisecond, b.NextBackOff())
	b.Reset()
	require.Equal(t, 100*time.Millisecond, b.NextBackOff())

	require.Nil(t, Permanent(nil))
}
