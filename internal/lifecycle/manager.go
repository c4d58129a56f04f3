package lifecycle

import (
	"context"
	"sync"
)

// Factory constructs the backend service for a resource id. It may be slow
// and should observe ctx cancellation when feasible. cfg is the opaque
// configuration captured when the load started, possibly nil.
type Factory[T any] func(ctx context.Context, resourceID string, cfg any) (T, error)

// Cleanup releases a service. It must not fail; any non-releasable state is
// the service's own responsibility to swallow and log.
type Cleanup[T any] func(ctx context.Context, svc T)

// attempt is one in-flight construction. Callers that observe it pending
// wait on done and read svc/err afterwards; both fields are written exactly
// once, before done is closed.
type attempt[T any] struct {
	id    string
	epoch uint64
	done  chan struct{}
	svc   T
	err   error
}

// Manager is a single-slot coordinator for one heavyweight backend service.
// All state mutation is serialized through mu; the only blocking waits
// happen outside the lock, on an attempt's done channel. See the package
// documentation for the guarantees it provides.
type Manager[T any] struct {
	mu      sync.Mutex
	state   State
	resID   string
	svc     T
	held    bool
	lastErr error
	cfg     any

	// epoch increments whenever a new attempt starts or Reset discards the
	// pending one; an attempt may only commit while its epoch is current.
	epoch    uint64
	inflight *attempt[T]
	cancel   context.CancelFunc

	factory Factory[T]
	cleanup Cleanup[T]
}

// New constructs a Manager around a factory and cleanup pair.
func New[T any](factory Factory[T], cleanup Cleanup[T]) *Manager[T] {
	if cleanup == nil {
		cleanup = func(context.Context, T) {}
	}
	return &Manager[T]{state: StateIdle, factory: factory, cleanup: cleanup}
}

// Configure stores cfg for subsequent loads. It has no effect on an already
// loaded service; the last call wins.
func (m *Manager[T]) Configure(cfg any) {
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
}

// Load returns the service for id, constructing it if necessary.
//
// Fast path: id already loaded, the held service is returned as is.
// Coalescing path: some load is in flight, the caller awaits it; if it
// resolved the same id the caller shares its outcome, otherwise the caller
// re-evaluates from the top. Swap path: a different service is held; it is
// cleaned up only after the new factory call succeeds.
//
// ctx governs only this caller's wait. Construction runs on a detached
// context so that coalesced callers are not abandoned when the initiating
// caller disconnects; Reset cancels it.
func (m *Manager[T]) Load(ctx context.Context, id string) (T, error) {
	var zero T
	if id == "" {
		return zero, loadError{id: "(unspecified)", cause: errEmptyResourceID}
	}
	for {
		m.mu.Lock()
		if m.held && m.resID == id {
			svc := m.svc
			m.mu.Unlock()
			return svc, nil
		}
		if att := m.inflight; att != nil {
			m.mu.Unlock()
			select {
			case <-att.done:
			case <-ctx.Done():
				return zero, ctx.Err()
			}
			if att.id == id {
				return att.svc, att.err
			}
			// A different id resolved; re-evaluate from the top.
			continue
		}

		m.epoch++
		att := &attempt[T]{id: id, epoch: m.epoch, done: make(chan struct{})}
		fctx, cancel := context.WithCancel(context.Background())
		m.inflight = att
		m.cancel = cancel
		m.state = StateLoading
		cfg := m.cfg
		m.mu.Unlock()

		go m.run(fctx, att, cfg)

		select {
		case <-att.done:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
		return att.svc, att.err
	}
}

// run executes one factory call and commits or discards its result.
func (m *Manager[T]) run(ctx context.Context, att *attempt[T], cfg any) {
	svc, err := m.factory(ctx, att.id, cfg)

	m.mu.Lock()
	if m.inflight == att {
		m.inflight = nil
		m.cancel = nil
	}
	if att.epoch != m.epoch {
		// Superseded by Reset while the factory was running. The committed
		// state is newer than this result; discard it.
		m.mu.Unlock()
		if err == nil {
			m.cleanup(context.Background(), svc)
			err = errAttemptDiscarded
		}
		att.err = loadError{id: att.id, cause: err}
		close(att.done)
		return
	}
	if err != nil {
		// The previously held service, if any, survives a failed swap.
		if m.held {
			m.state = StateLoaded
		} else {
			m.state = StateFailed
		}
		m.lastErr = err
		m.mu.Unlock()
		att.err = loadError{id: att.id, cause: err}
		close(att.done)
		return
	}

	// Commit: detach the old service before exposing the new one so no two
	// services are ever reachable at once.
	var old T
	hadOld := m.held
	if hadOld {
		old = m.svc
	}
	m.svc = svc
	m.held = true
	m.resID = att.id
	m.state = StateLoaded
	m.lastErr = nil
	m.mu.Unlock()

	if hadOld {
		m.cleanup(context.Background(), old)
	}
	att.svc = svc
	close(att.done)
}

// Unload releases the held service and returns its id. It never fails and
// is a no-op when nothing is held. An in-flight load is unaffected; use
// Reset to cancel it.
func (m *Manager[T]) Unload() (string, bool) {
	m.mu.Lock()
	if !m.held {
		if m.inflight == nil {
			m.state = StateIdle
			m.lastErr = nil
		}
		m.mu.Unlock()
		return "", false
	}
	var zero T
	svc := m.svc
	id := m.resID
	m.svc = zero
	m.held = false
	m.resID = ""
	if m.inflight == nil {
		m.state = StateIdle
		m.lastErr = nil
	}
	m.mu.Unlock()
	m.cleanup(context.Background(), svc)
	return id, true
}

// Reset cancels any in-flight load (best-effort), releases the held service
// and clears the stored configuration. A factory call that ignores the
// cancellation keeps running, but its result is discarded on arrival; no new
// factory call starts before it returns.
func (m *Manager[T]) Reset() {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	m.epoch++
	m.cfg = nil
	var zero T
	var svc T
	had := m.held
	if had {
		svc = m.svc
		m.svc = zero
		m.held = false
		m.resID = ""
	}
	m.state = StateIdle
	m.lastErr = nil
	m.mu.Unlock()
	if had {
		m.cleanup(context.Background(), svc)
	}
}

// Require returns the held service or ErrNotLoaded. The handle is borrowed
// for one operation only.
func (m *Manager[T]) Require() (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.held {
		var zero T
		return zero, ErrNotLoaded()
	}
	return m.svc, nil
}

// Snapshot returns a read-only view of the committed state.
func (m *Manager[T]) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Snapshot{State: m.state, ResourceID: m.resID}
	if m.inflight != nil {
		s.Target = m.inflight.id
	}
	if m.lastErr != nil {
		s.Err = m.lastErr.Error()
	}
	return s
}

// CurrentResourceID returns the id of the held service, empty when none.
func (m *Manager[T]) CurrentResourceID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resID
}

// CurrentService returns the held service, if any.
func (m *Manager[T]) CurrentService() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.svc, m.held
}

// IsLoaded reports whether a service is currently held.
func (m *Manager[T]) IsLoaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.held
}
