package lifecycle

// State represents the lifecycle state of a capability slot.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateLoaded  State = "loaded"
	StateFailed  State = "failed"
)

// Snapshot is a read-only projection of a manager's committed state.
type Snapshot struct {
	State State
	// ResourceID is the id of the currently held service, empty when none.
	ResourceID string
	// Target is the id an in-flight load is constructing, empty when none.
	Target string
	// Err is the last load error observed, empty when none.
	Err string
}
