// Package search - Debounced query input
// Delays dispatch of a mutable query string until typing goes idle
package search

import (
	"sync"
	"time"
)

// DefaultDelay is the idle window before the callback fires
const DefaultDelay = 300 * time.Millisecond

// Debouncer holds a mutable query string and fires the configured
// callback exactly once with the latest value after the idle delay.
// Safe for concurrent use.
type Debouncer struct {
	onChange func(string)
	delay    time.Duration

	mu        sync.Mutex
	query     string
	searching bool
	timer     *time.Timer
	gen       uint64
}

// New creates a debouncer. A non-positive delay falls back to DefaultDelay.
func New(delay time.Duration, onChange func(string)) *Debouncer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer{
		onChange: onChange,
		delay:    delay,
	}
}

// Set stores the query and restarts the idle timer. The generation
// counter invalidates timers superseded by later mutations so the
// callback fires once with the final value.
func (d *Debouncer) Set(query string) {
	d.mu.Lock()
	d.query = query
	d.searching = true
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		d.fire(gen)
	})
	d.mu.Unlock()
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	query := d.query
	d.searching = false
	d.timer = nil
	d.mu.Unlock()

	d.onChange(query)
}

// Clear empties the query, cancels any pending timer and fires the
// callback synchronously with the empty string, bypassing the delay.
func (d *Debouncer) Clear() {
	d.mu.Lock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.query = ""
	d.searching = false
	d.mu.Unlock()

	d.onChange("")
}

// Stop cancels any pending dispatch without firing. Used at teardown.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.searching = false
	d.mu.Unlock()
}

// Query returns the latest value, debounced or not
func (d *Debouncer) Query() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.query
}

// IsSearching is true from the moment of mutation until the debounced
// callback fires
func (d *Debouncer) IsSearching() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.searching
}
