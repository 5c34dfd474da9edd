package reststore

import (
	"sync"
	"time"
)

type outcome int

const (
	succeeded outcome = iota
	failed
	abandoned // the caller gave up; says nothing about the store
)

// breaker fails fast after threshold consecutive failed calls. Once the
// cool-down has passed one probe call goes out and its outcome closes the
// breaker or trips it again.
type breaker struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	fails     int
	openUntil time.Time // zero while closed
	probing   bool
}

func newBreaker(threshold int, cooldown time.Duration) *breaker {
	return &breaker{threshold: threshold, cooldown: cooldown, now: time.Now}
}

// acquire reports whether a call may go out and whether it is the probe.
// Every granted call must be followed by exactly one release.
func (b *breaker) acquire() (ok, probe bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.openUntil.IsZero() {
		return true, false
	}
	if b.probing || b.now().Before(b.openUntil) {
		return false, false
	}
	b.probing = true
	return true, true
}

func (b *breaker) release(probe bool, o outcome) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if probe {
		b.probing = false
	}
	switch o {
	case succeeded:
		b.fails = 0
		b.openUntil = time.Time{}
	case failed:
		b.fails++
		if probe || (b.openUntil.IsZero() && b.fails >= b.threshold) {
			b.openUntil = b.now().Add(b.cooldown)
		}
	}
}
