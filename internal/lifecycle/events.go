package lifecycle

import "sync"

// Event names emitted by the Managed decorator.
const (
	EventLoadStarted   = "load_started"
	EventLoadCompleted = "load_completed"
	EventLoadFailed    = "load_failed"
	EventUnloaded      = "unloaded"
)

// Event represents a lifecycle transition.
// Minimal and stable: name + resource id and optional fields via key/values.
type Event struct {
	Name       string
	Capability string
	ResourceID string
	Fields     map[string]any
}

// Publisher receives events from the decorator. Implementations should be
// lightweight and non-blocking; a panicking Publish is swallowed and never
// fails a lifecycle operation.
type Publisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// MemoryPublisher stores events in-memory for tests.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryPublisher() *MemoryPublisher { return &MemoryPublisher{} }

func (p *MemoryPublisher) Publish(e Event) {
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
}

func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// Named returns the stored events with the given name, in emission order.
func (p *MemoryPublisher) Named(name string) []Event {
	var out []Event
	for _, e := range p.Events() {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}
