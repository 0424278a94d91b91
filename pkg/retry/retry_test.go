package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fastConfig(retries int) *Config {
	return &Config{
		MaxRetries:      retries,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2.0,
	}
}

func TestNew_FillsDefaults(t *testing.T) {
	r := New(&Config{JitterFactor: 3})

	assert.Equal(t, 500*time.Millisecond, r.config.InitialInterval)
	assert.Equal(t, 10*time.Second, r.config.MaxInterval)
	assert.Equal(t, 2.0, r.config.Multiplier)
	assert.Equal(t, 1.0, r.config.JitterFactor)
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	result := New(fastConfig(3)).Do(context.Background(), func(ctx context.Context) error { return nil })

	assert.NoError(t, result.Err)
	assert.Equal(t, 1, result.Attempts)
}

func TestDo_SucceedsAfterRetries(t *testing.T) {
	calls := 0
	result := New(fastConfig(3)).Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("gateway timeout")
		}
		return nil
	})

	assert.NoError(t, result.Err)
	assert.Equal(t, 3, result.Attempts)
}

func TestDo_MaxRetriesExceeded(t *testing.T) {
	boom := errors.New("boom")
	result := New(fastConfig(2)).Do(context.Background(), func(ctx context.Context) error { return boom })

	assert.ErrorIs(t, result.Err, ErrMaxRetriesExceeded)
	assert.ErrorIs(t, result.LastError, boom)
	assert.Equal(t, 3, result.Attempts)
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	invalid := errors.New("invalid destination")
	calls := 0
	result := New(fastConfig(5)).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Permanent(invalid)
	})

	assert.ErrorIs(t, result.Err, invalid)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := New(fastConfig(3)).Do(ctx, func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, result.Err, ErrContextCanceled)
	assert.Equal(t, 0, result.Attempts)
}

func TestInterval_CappedAtMax(t *testing.T) {
	r := New(&Config{InitialInterval: time.Second, MaxInterval: 3 * time.Second, Multiplier: 10})

	assert.Equal(t, time.Second, r.interval(0))
	assert.Equal(t, 3*time.Second, r.interval(4))
}

func TestPermanent_Nil(t *testing.T) {
	assert.Nil(t, Permanent(nil))
}
