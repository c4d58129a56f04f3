// Package capability provides the per-domain façades over the lifecycle
// coordinator. A façade owns one managed lifecycle slot, resolves model ids
// against the registry, and reports domain operations to the telemetry
// recorder. Domain operations never trigger an implicit load; callers must
// load a model first.
package capability

import (
	"context"
	"errors"

	"aihostd/internal/lifecycle"
	"aihostd/internal/registry"
	"aihostd/internal/telemetry"
	"aihostd/pkg/types"
)

// notReadyError signals a domain call on a slot with no loaded model.
type notReadyError struct{ capability types.Capability }

func (e notReadyError) Error() string {
	return string(e.capability) + " not ready: load a model first"
}

// ErrNotReady constructs a not-ready error for a capability.
func ErrNotReady(c types.Capability) error { return notReadyError{capability: c} }

// IsNotReady reports whether err indicates an unloaded capability (409 mapping).
func IsNotReady(err error) bool {
	var e notReadyError
	return errors.As(err, &e)
}

// modelNotFoundError signals a model id absent from the registry.
type modelNotFoundError struct{ id string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.id }

// ErrModelNotFound constructs a model-not-found error.
func ErrModelNotFound(id string) error { return modelNotFoundError{id: id} }

// IsModelNotFound reports whether err indicates a missing model id (404 mapping).
func IsModelNotFound(err error) bool {
	var e modelNotFoundError
	return errors.As(err, &e)
}

// base carries the behavior shared by all façades: lifecycle forwarding,
// registry resolution and status reporting.
type base[S any] struct {
	capability types.Capability
	lc         *lifecycle.Managed[S]
	reg        *registry.Registry
	rec        telemetry.Recorder
}

func newBase[S any](c types.Capability, reg *registry.Registry, rec telemetry.Recorder,
	factory lifecycle.Factory[S], cleanup lifecycle.Cleanup[S], pub lifecycle.Publisher) base[S] {
	if rec == nil {
		rec = telemetry.NewNoop()
	}
	mgr := lifecycle.New(factory, cleanup)
	return base[S]{
		capability: c,
		lc:         lifecycle.NewManaged(string(c), mgr, pub),
		reg:        reg,
		rec:        rec,
	}
}

// Configure stores capability configuration for subsequent loads.
func (b *base[S]) Configure(cfg any) { b.lc.Configure(cfg) }

// Load resolves modelID in the registry and loads it into the slot.
func (b *base[S]) Load(ctx context.Context, modelID string) error {
	mdl, ok := b.reg.Find(modelID)
	if !ok || mdl.Capability != b.capability {
		return ErrModelNotFound(modelID)
	}
	_, err := b.lc.Load(ctx, mdl.ID)
	return err
}

// Unload releases the loaded model; no-op when idle.
func (b *base[S]) Unload() { b.lc.Unload() }

// Reset unloads, cancels any in-flight load and clears configuration.
func (b *base[S]) Reset() { b.lc.Reset() }

// require borrows the loaded service for one operation.
func (b *base[S]) require() (S, error) {
	svc, err := b.lc.Require()
	if err != nil {
		var zero S
		return zero, notReadyError{capability: b.capability}
	}
	return svc, nil
}

// Models lists the registry entries this capability can load.
func (b *base[S]) Models() []types.Model { return b.reg.ListByCapability(b.capability) }

// Status reports the slot's lifecycle state and load statistics.
func (b *base[S]) Status() types.CapabilityStatus {
	snap := b.lc.Snapshot()
	m := b.lc.Metrics()
	return types.CapabilityStatus{
		Capability: b.capability,
		State:      string(snap.State),
		ResourceID: snap.ResourceID,
		Attempts:   m.Attempts,
		Successes:  m.Successes,
		AvgLoadMs:  b.lc.AverageLoadTime(),
		LastError:  snap.Err,
	}
}
