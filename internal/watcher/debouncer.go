package watcher

import (
	"sync"
	"time"
)

// debouncer coalesces rapid events for the same path within a window,
// keeping the latest operation (CREATE+DELETE cancels out, anything else
// keeps whatever happened last).
type debouncer struct {
	window  time.Duration
	pending map[string]FileEvent
	mu      sync.Mutex
	output  chan []FileEvent
	timer   *time.Timer
	stopped bool
}

func newDebouncer(window time.Duration) *debouncer {
	return &debouncer{
		window:  window,
		pending: make(map[string]FileEvent),
		output:  make(chan []FileEvent, 10),
	}
}

// Add records one event, coalescing with any pending event on the same path.
func (d *debouncer) Add(event FileEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	if existing, ok := d.pending[event.Path]; ok {
		if existing.Operation == OpCreate && event.Operation == OpDelete {
			delete(d.pending, event.Path)
			d.scheduleFlush()
			return
		}
	}
	d.pending[event.Path] = event
	d.scheduleFlush()
}

func (d *debouncer) scheduleFlush() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

func (d *debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped || len(d.pending) == 0 {
		return
	}

	events := make([]FileEvent, 0, len(d.pending))
	for _, e := range d.pending {
		events = append(events, e)
	}
	d.pending = make(map[string]FileEvent)

	select {
	case d.output <- events:
	default:
	}
}

// Output returns the batched, debounced event stream.
func (d *debouncer) Output() <-chan []FileEvent { return d.output }

// Stop halts the debouncer and closes Output. Safe to call once.
func (d *debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	close(d.output)
}
