package gameserver

import (
	"context"
	"sort"
	"sync"
	"time"
)

// TickDriver runs a fixed-step tick for each registered session.
// Callbacks run sequentially on the driver goroutine in ID order.
//
// Invariant: every callback is invoked at most once per tick interval.
type TickDriver struct {
	interval time.Duration
	mu       sync.Mutex
	ticks    map[string]func(dt time.Duration)
}

// NewTickDriver returns a driver that fires every interval.
//
// Precondition: interval must be > 0.
func NewTickDriver(interval time.Duration) *TickDriver {
	if interval <= 0 {
		panic("gameserver.NewTickDriver: interval must be > 0")
	}
	return &TickDriver{
		interval: interval,
		ticks:    make(map[string]func(time.Duration)),
	}
}

// Interval returns the fixed step passed to every callback.
func (d *TickDriver) Interval() time.Duration { return d.interval }

// RegisterTick registers fn for id. Replaces any existing callback.
func (d *TickDriver) RegisterTick(id string, fn func(dt time.Duration)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ticks[id] = fn
}

// Unregister removes the callback for id.
func (d *TickDriver) Unregister(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.ticks, id)
}

// Len returns the number of registered callbacks.
func (d *TickDriver) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.ticks)
}

// Step invokes every registered callback once with dt.
// Callbacks may register or unregister while Step runs; changes apply from the next step.
func (d *TickDriver) Step(dt time.Duration) {
	d.mu.Lock()
	ids := make([]string, 0, len(d.ticks))
	for id := range d.ticks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	callbacks := make([]func(time.Duration), len(ids))
	for i, id := range ids {
		callbacks[i] = d.ticks[id]
	}
	d.mu.Unlock()
	for _, fn := range callbacks {
		fn(dt)
	}
}

// Start begins the tick loop. Runs until ctx is cancelled.
//
// Postcondition: all registered callbacks are invoked once per interval with dt == Interval().
func (d *TickDriver) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				d.Step(d.interval)
			}
		}
	}()
}
