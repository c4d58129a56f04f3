// Package lifecycle coordinates a single heavyweight backend resource per
// capability slot. It is structured into small files by concern:
//
//   - state.go: State enum and the Snapshot read-only projection.
//   - manager.go: generic Manager, the single-slot coordinator with
//     single-flight coalescing, swap semantics and epoch-guarded commits.
//   - managed.go: Managed decorator adding timing, metrics accumulation and
//     event emission around Manager operations.
//   - events.go: Event type, Publisher interface and in-memory publisher.
//   - errors.go: error types and helpers (IsNotLoaded, IsLoadFailed).
//   - metrics.go: prometheus collectors fed by the decorator.
//
// Guarantees, per Manager instance:
//
//   - at most one factory call executes at any time;
//   - at most one backend service is owned at any time;
//   - a completion from a superseded or reset attempt is discarded and can
//     never overwrite a newer committed state.
//
// The previous resource is cleaned up only after a replacement is
// successfully constructed; a failed swap leaves the old resource loaded
// and usable. Handles returned by Require are borrowed for one operation
// and must not be cached across calls, because a concurrent Unload or swap
// invalidates them.
package lifecycle
