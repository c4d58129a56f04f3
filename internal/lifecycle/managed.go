package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Metrics accumulates load statistics for one capability slot. It is
// derived bookkeeping only; lifecycle correctness never depends on it.
type Metrics struct {
	Attempts       int64
	Successes      int64
	CumulativeLoad time.Duration
	LastEvent      time.Time
}

// Managed decorates a Manager with timing, metrics accumulation and event
// emission. Coordination stays in the Manager; this layer only observes.
type Managed[T any] struct {
	capability string
	mgr        *Manager[T]
	pub        Publisher
	clk        clock.Clock

	mu      sync.Mutex
	metrics Metrics
}

// NewManaged wraps mgr for the named capability. pub may be nil, in which
// case events are dropped.
func NewManaged[T any](capability string, mgr *Manager[T], pub Publisher) *Managed[T] {
	if pub == nil {
		pub = noopPublisher{}
	}
	return &Managed[T]{capability: capability, mgr: mgr, pub: pub, clk: clock.New()}
}

// SetClock replaces the wall clock used for timing; tests install
// clock.NewMock() to make durations deterministic.
func (d *Managed[T]) SetClock(c clock.Clock) { d.clk = c }

// Configure forwards to the underlying manager.
func (d *Managed[T]) Configure(cfg any) { d.mgr.Configure(cfg) }

// Load delegates to the manager, emitting load_started before and
// load_completed or load_failed after. The idempotent fast path (the
// requested id is already loaded) emits no events and counts no attempt.
func (d *Managed[T]) Load(ctx context.Context, id string) (T, error) {
	if svc, ok := d.mgr.CurrentService(); ok && d.mgr.CurrentResourceID() == id {
		return svc, nil
	}

	start := d.clk.Now()
	d.mu.Lock()
	d.metrics.Attempts++
	d.metrics.LastEvent = start
	d.mu.Unlock()
	loadAttemptsTotal.WithLabelValues(d.capability).Inc()
	d.publish(Event{Name: EventLoadStarted, Capability: d.capability, ResourceID: id})

	svc, err := d.mgr.Load(ctx, id)
	end := d.clk.Now()
	if err != nil {
		d.mu.Lock()
		d.metrics.LastEvent = end
		d.mu.Unlock()
		d.publish(Event{
			Name:       EventLoadFailed,
			Capability: d.capability,
			ResourceID: id,
			Fields:     map[string]any{"error": err.Error()},
		})
		return svc, err
	}

	dur := end.Sub(start)
	d.mu.Lock()
	d.metrics.Successes++
	d.metrics.CumulativeLoad += dur
	d.metrics.LastEvent = end
	d.mu.Unlock()
	loadSuccessTotal.WithLabelValues(d.capability).Inc()
	loadDuration.WithLabelValues(d.capability).Observe(dur.Seconds())
	loadedGauge.WithLabelValues(d.capability).Set(1)
	d.publish(Event{
		Name:       EventLoadCompleted,
		Capability: d.capability,
		ResourceID: id,
		Fields:     map[string]any{"dur_ms": dur.Milliseconds()},
	})
	return svc, nil
}

// Unload forwards to the manager and emits unloaded only when a resource
// was actually held.
func (d *Managed[T]) Unload() {
	id, ok := d.mgr.Unload()
	if !ok {
		return
	}
	loadedGauge.WithLabelValues(d.capability).Set(0)
	d.mu.Lock()
	d.metrics.LastEvent = d.clk.Now()
	d.mu.Unlock()
	d.publish(Event{Name: EventUnloaded, Capability: d.capability, ResourceID: id})
}

// Reset unloads (emitting unloaded if a resource was held), then cancels
// any in-flight load and clears configuration.
func (d *Managed[T]) Reset() {
	d.Unload()
	d.mgr.Reset()
}

// Require returns the held service or ErrNotLoaded.
func (d *Managed[T]) Require() (T, error) { return d.mgr.Require() }

// Snapshot returns the committed manager state.
func (d *Managed[T]) Snapshot() Snapshot { return d.mgr.Snapshot() }

// CurrentResourceID returns the id of the held service, empty when none.
func (d *Managed[T]) CurrentResourceID() string { return d.mgr.CurrentResourceID() }

// CurrentService returns the held service, if any.
func (d *Managed[T]) CurrentService() (T, bool) { return d.mgr.CurrentService() }

// IsLoaded reports whether a service is currently held.
func (d *Managed[T]) IsLoaded() bool { return d.mgr.IsLoaded() }

// Metrics returns a copy of the accumulated statistics.
func (d *Managed[T]) Metrics() Metrics {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.metrics
}

// AverageLoadTime returns the mean successful load duration in milliseconds,
// 0 when no load has succeeded yet.
func (d *Managed[T]) AverageLoadTime() float64 {
	m := d.Metrics()
	if m.Successes == 0 {
		return 0
	}
	return m.CumulativeLoad.Seconds() * 1000 / float64(m.Successes)
}

// publish shields lifecycle operations from a misbehaving sink.
func (d *Managed[T]) publish(e Event) {
	defer func() { _ = recover() }()
	d.pub.Publish(e)
}
