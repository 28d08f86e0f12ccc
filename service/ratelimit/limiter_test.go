package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_RatchetsToStrictestInterval(t *testing.T) {
	l := New(1000) // 1ms interval
	first := l.Interval()
	assert.Equal(t, time.Millisecond, first)

	l.SetRPS(10) // 100ms interval, stricter
	assert.Equal(t, 100*time.Millisecond, l.Interval())

	l.SetRPS(1000) // looser than 100ms, must not relax
	assert.Equal(t, 100*time.Millisecond, l.Interval())
}

func TestLimiter_EnforcesMinimumSpacing(t *testing.T) {
	l := New(40) // 25ms interval
	ctx := context.Background()

	require.NoError(t, l.Acquire(ctx))
	start := time.Now()
	require.NoError(t, l.Acquire(ctx))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 20*time.Millisecond)
}

func TestLimiter_AcquireRespectsCancellation(t *testing.T) {
	l := New(1) // 1s interval, very slow
	ctx := context.Background()
	require.NoError(t, l.Acquire(ctx))

	cancelCtx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := l.Acquire(cancelCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
