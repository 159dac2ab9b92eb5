package cart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMonitorDefaultThreshold(t *testing.T) {
	m := NewMonitor(0, newFakeClock(testNow), func() {})
	assert.Equal(t, DefaultAbandonThreshold, m.Threshold())

	m = NewMonitor(10*time.Minute, newFakeClock(testNow), func() {})
	assert.Equal(t, 10*time.Minute, m.Threshold())
}

func TestMonitorSchedulesOnlyForActiveCarts(t *testing.T) {
	clock := newFakeClock(testNow)
	fired := 0
	m := NewMonitor(30*time.Minute, clock, func() { fired++ })

	// Empty cart: no timer.
	m.Observe(State{Items: []Line{}, LastActivity: testNow})
	clock.Advance(time.Hour)
	assert.Zero(t, fired)

	// Abandoned cart: no timer either.
	m.Observe(State{
		Items:        []Line{{ID: "p1", Quantity: 1}},
		LastActivity: testNow,
		IsAbandoned:  true,
	})
	clock.Advance(time.Hour)
	assert.Zero(t, fired)

	// Active non-empty cart fires after the threshold.
	m.Observe(State{
		Items:        []Line{{ID: "p1", Quantity: 1}},
		LastActivity: clock.Now(),
	})
	clock.Advance(30 * time.Minute)
	assert.Equal(t, 1, fired)
}

func TestMonitorObserveReplacesPendingTimer(t *testing.T) {
	clock := newFakeClock(testNow)
	fired := 0
	m := NewMonitor(30*time.Minute, clock, func() { fired++ })

	state := State{Items: []Line{{ID: "p1", Quantity: 1}}, LastActivity: testNow}
	m.Observe(state)

	// A fresh observation cancels the old timer and starts over.
	clock.Advance(20 * time.Minute)
	state.LastActivity = clock.Now()
	m.Observe(state)

	clock.Advance(20 * time.Minute)
	assert.Zero(t, fired)

	clock.Advance(10 * time.Minute)
	assert.Equal(t, 1, fired)
}

func TestMonitorStopPreventsFiring(t *testing.T) {
	clock := newFakeClock(testNow)
	fired := 0
	m := NewMonitor(30*time.Minute, clock, func() { fired++ })

	m.Observe(State{Items: []Line{{ID: "p1", Quantity: 1}}, LastActivity: testNow})
	m.Stop()

	clock.Advance(time.Hour)
	assert.Zero(t, fired)

	// Observations after Stop never schedule again.
	m.Observe(State{Items: []Line{{ID: "p1", Quantity: 1}}, LastActivity: clock.Now()})
	clock.Advance(time.Hour)
	assert.Zero(t, fired)
}
