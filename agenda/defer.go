package agenda

import (
	"sync"
	"time"
)

// DeferredString separates an authoritative input value from the lagging
// copy that drives expensive recomputation. Set updates the authoritative
// value synchronously and resynchronizes the deferred copy on a trailing
// timer; a newer Set inside the window supersedes the pending one, so the
// deferred side only ever sees the latest value. There is no cancellation
// token and no error path, only "latest write wins".
type DeferredString struct {
	mu       sync.Mutex
	delay    time.Duration
	value    string
	deferred string
	timer    *time.Timer
}

// NewDeferredString creates a deferred value with the given trailing delay.
// A non-positive delay still defers by one timer tick rather than updating
// inline.
func NewDeferredString(delay time.Duration) *DeferredString {
	return &DeferredString{delay: delay}
}

// Set records the authoritative value and schedules the deferred copy to
// catch up after the trailing delay.
func (d *DeferredString) Set(v string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.value = v
	if d.timer != nil {
		d.timer.Stop()
	}
	delay := d.delay
	if delay < 0 {
		delay = 0
	}
	d.timer = time.AfterFunc(delay, d.sync)
}

func (d *DeferredString) sync() {
	d.mu.Lock()
	d.deferred = d.value
	d.timer = nil
	d.mu.Unlock()
}

// Value returns the authoritative value, the one the input itself renders.
func (d *DeferredString) Value() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.value
}

// Deferred returns the value recomputation should consume. Under a burst of
// writes it lags Value by one trailing tick.
func (d *DeferredString) Deferred() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.deferred
}

// Flush resynchronizes immediately, dropping any pending timer.
func (d *DeferredString) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.deferred = d.value
	d.mu.Unlock()
}
