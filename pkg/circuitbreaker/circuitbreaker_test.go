package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRedisDown = errors.New("connection refused")

func failingCall(_ context.Context) error { return errRedisDown }
func healthyCall(_ context.Context) error { return nil }

func TestBreakerOpensAfterThreshold(t *testing.T) {
	cb := New("cache", WithFailureThreshold(3))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, cb.Execute(ctx, failingCall), errRedisDown)
		assert.True(t, cb.IsClosed())
	}

	assert.ErrorIs(t, cb.Execute(ctx, failingCall), errRedisDown)
	assert.True(t, cb.IsOpen())

	// Open circuit short-circuits without calling through.
	called := false
	err := cb.Execute(ctx, func(_ context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestBreakerSuccessResetsFailureStreak(t *testing.T) {
	cb := New("cache", WithFailureThreshold(3))
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, failingCall))
	require.Error(t, cb.Execute(ctx, failingCall))
	require.NoError(t, cb.Execute(ctx, healthyCall))
	require.Error(t, cb.Execute(ctx, failingCall))
	require.Error(t, cb.Execute(ctx, failingCall))

	assert.True(t, cb.IsClosed())
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	cb := New("cache",
		WithFailureThreshold(1),
		WithSuccessThreshold(1),
		WithTimeout(10*time.Millisecond),
	)
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, failingCall))
	require.True(t, cb.IsOpen())

	time.Sleep(20 * time.Millisecond)

	// First probe after the timeout goes through and closes the circuit.
	require.NoError(t, cb.Execute(ctx, healthyCall))
	assert.True(t, cb.IsClosed())
}

func TestBreakerReopensOnHalfOpenFailure(t *testing.T) {
	cb := New("cache",
		WithFailureThreshold(1),
		WithSuccessThreshold(1),
		WithTimeout(10*time.Millisecond),
	)
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, failingCall))
	time.Sleep(20 * time.Millisecond)

	require.Error(t, cb.Execute(ctx, failingCall))
	assert.True(t, cb.IsOpen())
}

func TestBreakerIsFailureFilter(t *testing.T) {
	benign := errors.New("key not found")
	cb := New("cache",
		WithFailureThreshold(1),
		WithIsFailure(func(err error) bool { return !errors.Is(err, benign) }),
	)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.Error(t, cb.Execute(ctx, func(_ context.Context) error { return benign }))
	}
	assert.True(t, cb.IsClosed())

	require.Error(t, cb.Execute(ctx, failingCall))
	assert.True(t, cb.IsOpen())
}

func TestBreakerExecuteWithFallback(t *testing.T) {
	cb := New("cache", WithFailureThreshold(1))
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, failingCall))
	require.True(t, cb.IsOpen())

	fellBack := false
	err := cb.ExecuteWithFallback(ctx, healthyCall, func(_ error) error {
		fellBack = true
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, fellBack)
}

func TestBreakerReset(t *testing.T) {
	cb := New("cache", WithFailureThreshold(1))
	require.Error(t, cb.Execute(context.Background(), failingCall))
	require.True(t, cb.IsOpen())

	cb.Reset()
	assert.True(t, cb.IsClosed())
	assert.Equal(t, Counts{}, cb.Counts())
}

func TestBreakerStateChangeCallback(t *testing.T) {
	var transitions []string
	cb := New("cache",
		WithFailureThreshold(1),
		WithOnStateChange(func(name string, from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		}),
	)

	require.Error(t, cb.Execute(context.Background(), failingCall))
	assert.Equal(t, []string{"closed->open"}, transitions)
}
