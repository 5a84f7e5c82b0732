package atproto

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func TestLimiterSpendsWithinBudget(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewLimiter(10, time.Minute, clock, nil)

	for range 10 {
		require.NoError(t, l.Spend(context.Background(), PointsGet))
	}
	require.Equal(t, 10, l.Spent())
	require.Zero(t, l.Throttled())
}

func TestLimiterThrottlesUntilRefill(t *testing.T) {
	clock := clockwork.NewFakeClock()

	var waits []time.Duration
	l := NewLimiter(2, time.Minute, clock, func(d time.Duration) { waits = append(waits, d) })

	require.NoError(t, l.Spend(context.Background(), 2))

	done := make(chan error, 1)
	go func() { done <- l.Spend(context.Background(), PointsDelete) }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(31 * time.Second)

	require.NoError(t, <-done)
	require.Equal(t, 3, l.Spent())
	require.Equal(t, 1, l.Throttled())
	require.Len(t, waits, 1)
	require.InDelta(t, float64(30*time.Second), float64(waits[0]), float64(time.Millisecond))
}

func TestLimiterCancelledWhileThrottled(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewLimiter(1, time.Hour, clock, nil)
	require.NoError(t, l.Spend(context.Background(), 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, l.Spend(ctx, 1), context.Canceled)
	require.Equal(t, 1, l.Spent())
}

func TestLimiterRejectsOversizedSpend(t *testing.T) {
	l := NewLimiter(5, time.Minute, clockwork.NewFakeClock(), nil)
	require.ErrorIs(t, l.Spend(context.Background(), 6), ErrOverBudget)
}
