// internal/domain/cart/monitor.go
package cart

import (
	"sync"
	"time"
)

// DefaultAbandonThreshold is the wall-clock inactivity window after which
// a non-empty cart is considered abandoned.
const DefaultAbandonThreshold = 30 * time.Minute

// Monitor watches cart activity and fires a callback when the inactivity
// threshold elapses without a mutation or pulse. It holds at most one
// pending timer; every observed transition cancels and reschedules it.
// An empty or already-abandoned cart runs no timer.
type Monitor struct {
	mu        sync.Mutex
	threshold time.Duration
	clock     Clock
	onExpire  func()
	timer     Timer
	stopped   bool
}

// NewMonitor creates a monitor. onExpire is invoked from the timer
// goroutine; the owner revalidates staleness before acting on it.
func NewMonitor(threshold time.Duration, clock Clock, onExpire func()) *Monitor {
	if threshold <= 0 {
		threshold = DefaultAbandonThreshold
	}
	return &Monitor{
		threshold: threshold,
		clock:     clock,
		onExpire:  onExpire,
	}
}

// Threshold returns the configured inactivity window.
func (m *Monitor) Threshold() time.Duration {
	return m.threshold
}

// Observe reschedules the abandonment timer against the given state.
func (m *Monitor) Observe(state State) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if m.stopped || state.IsEmpty() || state.IsAbandoned {
		return
	}

	delay := m.threshold - m.clock.Now().Sub(state.LastActivity)
	if delay < 0 {
		delay = 0
	}
	m.timer = m.clock.AfterFunc(delay, m.expire)
}

// Stop cancels any pending timer. The monitor must not fire after the
// owning store has been torn down.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopped = true
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Monitor) expire() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	m.mu.Unlock()

	m.onExpire()
}
