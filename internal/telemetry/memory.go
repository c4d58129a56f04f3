package telemetry

import "sync"

// Operation is a recorded operation held by the in-memory recorder.
type Operation struct {
	ID     OperationID
	Name   string
	Attrs  map[string]any
	Done   bool
	Failed bool
	Err    error
}

// MemoryRecorder stores operations in-memory for tests.
type MemoryRecorder struct {
	mu  sync.Mutex
	ops []*Operation
}

func NewMemoryRecorder() *MemoryRecorder { return &MemoryRecorder{} }

func (r *MemoryRecorder) StartOperation(name string, attrs map[string]any) OperationID {
	id := newOperationID()
	r.mu.Lock()
	r.ops = append(r.ops, &Operation{ID: id, Name: name, Attrs: attrs})
	r.mu.Unlock()
	return id
}

func (r *MemoryRecorder) CompleteOperation(id OperationID, attrs map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if op := r.find(id); op != nil {
		op.Done = true
		for k, v := range attrs {
			if op.Attrs == nil {
				op.Attrs = make(map[string]any)
			}
			op.Attrs[k] = v
		}
	}
}

func (r *MemoryRecorder) FailOperation(id OperationID, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if op := r.find(id); op != nil {
		op.Done = true
		op.Failed = true
		op.Err = err
	}
}

// find assumes r.mu is held.
func (r *MemoryRecorder) find(id OperationID) *Operation {
	for _, op := range r.ops {
		if op.ID == id {
			return op
		}
	}
	return nil
}

// Operations returns a snapshot of all recorded operations.
func (r *MemoryRecorder) Operations() []Operation {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Operation, 0, len(r.ops))
	for _, op := range r.ops {
		out = append(out, *op)
	}
	return out
}
