package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoRetriesRetryableErrors(t *testing.T) {
	transient := errors.New("serialization conflict")

	attempts := 0
	err := Do(context.Background(), func(_ context.Context) error {
		attempts++
		if attempts < 3 {
			return Retryable(transient)
		}
		return nil
	}, WithMaxAttempts(3), WithInitialDelay(time.Millisecond), WithJitter(0))

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoStopsOnPlainError(t *testing.T) {
	boom := errors.New("boom")

	attempts := 0
	err := Do(context.Background(), func(_ context.Context) error {
		attempts++
		return boom
	}, WithMaxAttempts(3), WithInitialDelay(time.Millisecond))

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, attempts)
}

func TestDoUnwrapsPermanentError(t *testing.T) {
	boom := errors.New("boom")

	attempts := 0
	err := Do(context.Background(), func(_ context.Context) error {
		attempts++
		return Permanent(boom)
	}, WithMaxAttempts(3), WithInitialDelay(time.Millisecond))

	assert.Equal(t, boom, err)
	assert.Equal(t, 1, attempts)
}

func TestDoUnwrapsRetryableOnExhaustion(t *testing.T) {
	transient := errors.New("still conflicting")

	attempts := 0
	err := Do(context.Background(), func(_ context.Context) error {
		attempts++
		return Retryable(transient)
	}, WithMaxAttempts(2), WithInitialDelay(time.Millisecond), WithJitter(0))

	// The caller gets the underlying error, not the retry wrapper.
	assert.Equal(t, transient, err)
	assert.Equal(t, 2, attempts)
}

func TestDoWithRetryIf(t *testing.T) {
	conflict := errors.New("conflict")
	fatal := errors.New("fatal")

	attempts := 0
	err := Do(context.Background(), func(_ context.Context) error {
		attempts++
		if attempts == 1 {
			return conflict
		}
		return fatal
	},
		WithMaxAttempts(5),
		WithInitialDelay(time.Millisecond),
		WithRetryIf(func(err error) bool { return errors.Is(err, conflict) }),
	)

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 2, attempts)
}

func TestDoHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	transient := errors.New("conflict")
	attempts := 0
	err := Do(ctx, func(_ context.Context) error {
		attempts++
		cancel()
		return Retryable(transient)
	}, WithMaxAttempts(10), WithInitialDelay(time.Hour))

	assert.ErrorIs(t, err, transient)
	assert.Equal(t, 1, attempts)
}

func TestDoWithData(t *testing.T) {
	attempts := 0
	value, err := DoWithData(context.Background(), func(_ context.Context) (int, error) {
		attempts++
		if attempts < 2 {
			return 0, Retryable(errors.New("not yet"))
		}
		return 42, nil
	}, WithInitialDelay(time.Millisecond), WithJitter(0))

	require.NoError(t, err)
	assert.Equal(t, 42, value)
}

func TestOnRetryCallback(t *testing.T) {
	var seen []int
	_ = Do(context.Background(), func(_ context.Context) error {
		return Retryable(errors.New("conflict"))
	},
		WithMaxAttempts(3),
		WithInitialDelay(time.Millisecond),
		WithJitter(0),
		WithOnRetry(func(attempt int, _ error, _ time.Duration) {
			seen = append(seen, attempt)
		}),
	)

	assert.Equal(t, []int{1, 2}, seen)
}

func TestErrorClassifiers(t *testing.T) {
	boom := errors.New("boom")

	assert.True(t, IsRetryable(Retryable(boom)))
	assert.False(t, IsRetryable(boom))
	assert.True(t, IsPermanent(Permanent(boom)))
	assert.False(t, IsPermanent(boom))

	assert.Nil(t, Retryable(nil))
	assert.Nil(t, Permanent(nil))

	assert.ErrorIs(t, Retryable(boom), boom)
	assert.ErrorIs(t, Permanent(boom), boom)
}

func TestCalculateDelayIsCapped(t *testing.T) {
	r := New(
		WithInitialDelay(100*time.Millisecond),
		WithMaxDelay(300*time.Millisecond),
		WithMultiplier(10),
		WithJitter(0),
	)

	assert.Equal(t, 100*time.Millisecond, r.calculateDelay(1))
	assert.Equal(t, 300*time.Millisecond, r.calculateDelay(2))
	assert.Equal(t, 300*time.Millisecond, r.calculateDelay(5))
}

func TestConflictRetrierRetriesOnce(t *testing.T) {
	attempts := 0
	err := ConflictRetrier().Do(context.Background(), func(_ context.Context) error {
		attempts++
		return Retryable(errors.New("conflict"))
	})

	assert.Error(t, err)
	assert.Equal(t, 2, attempts)
}
