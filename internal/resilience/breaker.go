package resilience

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrCircuitOpen is returned when a call is skipped because its breaker is
// open.
var ErrCircuitOpen = eris.New("circuit breaker is open")

// Breaker stops calling a service after Threshold consecutive transient
// failures. Once Cooldown has passed it goes half-open: a single trial call
// is let through and everyone else is rejected until that call is recorded.
type Breaker struct {
	name      string
	threshold int
	cooldown  time.Duration

	mu       sync.Mutex
	failures int
	openedAt time.Time
	trialOut bool
	now      func() time.Time
}

// NewBreaker creates a closed breaker.
func NewBreaker(name string, threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{name: name, threshold: threshold, cooldown: cooldown, now: time.Now}
}

// Allow returns ErrCircuitOpen while the breaker is open. In the half-open
// state the first caller claims the trial call; it must report back via Record.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failures < b.threshold {
		return nil
	}
	if !b.trialOut && b.now().Sub(b.openedAt) >= b.cooldown {
		b.trialOut = true
		return nil
	}
	return ErrCircuitOpen
}

// Record feeds a call result into the breaker. Only transient failures
// count; a success or a permanent error (not found, bad request) closes it.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.trialOut = false
	if err == nil || !IsTransient(err) {
		b.failures = 0
		return
	}

	b.failures++
	if b.failures >= b.threshold {
		if b.failures == b.threshold {
			zap.L().Warn("resilience: circuit opened", zap.String("service", b.name))
		}
		b.openedAt = b.now()
	}
}

// Open reports whether a call made now would be rejected. It does not claim
// the half-open trial call.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failures < b.threshold {
		return false
	}
	return b.trialOut || b.now().Sub(b.openedAt) < b.cooldown
}

// Breakers holds one breaker per named service.
type Breakers struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	m         map[string]*Breaker
}

// NewBreakers creates an empty registry whose breakers share one setting.
func NewBreakers(threshold int, cooldown time.Duration) *Breakers {
	return &Breakers{threshold: threshold, cooldown: cooldown, m: make(map[string]*Breaker)}
}

// Get returns the breaker for name, creating it on first use.
func (bs *Breakers) Get(name string) *Breaker {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	b, ok := bs.m[name]
	if !ok {
		b = NewBreaker(name, bs.threshold, bs.cooldown)
		bs.m[name] = b
	}
	return b
}
