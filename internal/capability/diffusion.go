package capability

import (
	"context"

	"aihostd/internal/backend"
	"aihostd/internal/lifecycle"
	"aihostd/internal/registry"
	"aihostd/internal/telemetry"
	"aihostd/pkg/types"
)

// Diffusion hosts the image generation capability slot.
type Diffusion struct {
	base[backend.ImageDiffusion]
}

// NewDiffusion wires the diffusion capability. A nil factory uses the
// built-in backend resolved through reg.
func NewDiffusion(reg *registry.Registry, rec telemetry.Recorder, pub lifecycle.Publisher,
	factory lifecycle.Factory[backend.ImageDiffusion]) *Diffusion {
	if factory == nil {
		factory = DiffusionFactory(reg)
	}
	cleanup := func(ctx context.Context, svc backend.ImageDiffusion) { svc.Close() }
	return &Diffusion{base: newBase(types.CapabilityDiffusion, reg, rec, factory, cleanup, pub)}
}

// DiffusionFactory builds diffusion services from registry entries.
func DiffusionFactory(reg *registry.Registry) lifecycle.Factory[backend.ImageDiffusion] {
	return func(ctx context.Context, id string, cfg any) (backend.ImageDiffusion, error) {
		mdl, ok := reg.Find(id)
		if !ok {
			return nil, ErrModelNotFound(id)
		}
		return backend.NewStubDiffusion(mdl)
	}
}

// GenerateImage renders an image against the loaded model.
func (c *Diffusion) GenerateImage(ctx context.Context, req types.ImageRequest) (types.Image, error) {
	svc, err := c.require()
	if err != nil {
		return types.Image{}, err
	}
	op := c.rec.StartOperation("diffusion.generate_image", map[string]any{
		"model": c.lc.CurrentResourceID(),
		"size":  map[string]int{"w": req.Width, "h": req.Height},
	})
	img, err := svc.GenerateImage(ctx, req)
	if err != nil {
		c.rec.FailOperation(op, err)
		return types.Image{}, err
	}
	c.rec.CompleteOperation(op, nil)
	return img, nil
}
