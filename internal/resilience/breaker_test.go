package resilience

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreaker("marcone", 2, time.Minute)
	b.now = func() time.Time { return now }

	transient := NewTransientError(errors.New("503"), 503)

	assert.NoError(t, b.Allow())
	b.Record(transient)
	assert.NoError(t, b.Allow())
	b.Record(transient)
	assert.ErrorIs(t, b.Allow(), ErrCircuitOpen)
	assert.True(t, b.Open())

	now = now.Add(time.Minute)
	assert.NoError(t, b.Allow(), "trial call allowed after cooldown")

	b.Record(transient)
	assert.True(t, b.Open(), "failed trial call reopens")

	now = now.Add(time.Minute)
	b.Record(nil)
	assert.False(t, b.Open())
}

func TestBreaker_HalfOpenAdmitsOneCall(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreaker("reliable", 1, time.Minute)
	b.now = func() time.Time { return now }

	b.Record(NewTransientError(errors.New("502"), 502))
	now = now.Add(time.Minute)
	assert.False(t, b.Open())

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if b.Allow() == nil {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), allowed.Load())
	assert.True(t, b.Open(), "rejects others while the trial call is out")

	b.Record(nil)
	assert.False(t, b.Open())
	assert.NoError(t, b.Allow())
	assert.NoError(t, b.Allow())
}

func TestBreaker_PermanentErrorsDoNotTrip(t *testing.T) {
	b := NewBreaker("encompass", 1, time.Minute)
	b.Record(errors.New("part not found"))
	assert.False(t, b.Open())
}

func TestBreakers_Get(t *testing.T) {
	bs := NewBreakers(3, time.Second)
	a := bs.Get("amazon")
	assert.Same(t, a, bs.Get("amazon"))
	assert.NotSame(t, a, bs.Get("reliable"))
	assert.Equal(t, 3, a.threshold)
}

func TestNewBreakerDefaults(t *testing.T) {
	b := NewBreaker("x", 0, 0)
	assert.Equal(t, 5, b.threshold)
	assert.Equal(t, 30*time.Second, b.cooldown)
}
