package capability

import (
	"context"
	"encoding/json"
	"io"

	"aihostd/internal/backend"
	"aihostd/internal/lifecycle"
	"aihostd/internal/registry"
	"aihostd/internal/telemetry"
	"aihostd/pkg/types"
)

// LLM hosts the text generation capability slot.
type LLM struct {
	base[backend.TextService]
}

// NewLLM wires the text capability. A nil factory uses the built-in text
// backend resolved through reg.
func NewLLM(reg *registry.Registry, rec telemetry.Recorder, pub lifecycle.Publisher,
	factory lifecycle.Factory[backend.TextService]) *LLM {
	if factory == nil {
		factory = TextFactory(reg)
	}
	cleanup := func(ctx context.Context, svc backend.TextService) { svc.Close() }
	return &LLM{base: newBase(types.CapabilityLLM, reg, rec, factory, cleanup, pub)}
}

// TextFactory builds text services from registry entries. The registry is an
// explicit dependency so tests can substitute fakes.
func TextFactory(reg *registry.Registry) lifecycle.Factory[backend.TextService] {
	return func(ctx context.Context, id string, cfg any) (backend.TextService, error) {
		mdl, ok := reg.Find(id)
		if !ok {
			return nil, ErrModelNotFound(id)
		}
		return backend.NewText(mdl, backend.TextConfigFrom(cfg))
	}
}

// tokenChunk is one NDJSON stream element.
type tokenChunk struct {
	Token string `json:"token,omitempty"`
	Done  bool   `json:"done,omitempty"`
	// Tokens is the total count, set on the final chunk only.
	Tokens int `json:"tokens,omitempty"`
}

// Generate runs a completion against the loaded model. When req.Stream is
// set and w is non-nil, tokens are written to w as NDJSON lines with flush
// after each; the final result is returned either way.
func (c *LLM) Generate(ctx context.Context, req types.GenerateRequest, w io.Writer, flush func()) (types.GenerateResult, error) {
	svc, err := c.require()
	if err != nil {
		return types.GenerateResult{}, err
	}
	op := c.rec.StartOperation("llm.generate", map[string]any{"model": c.lc.CurrentResourceID()})

	var onToken func(string) error
	var enc *json.Encoder
	if w != nil && req.Stream {
		enc = json.NewEncoder(w)
		onToken = func(tok string) error {
			if err := enc.Encode(tokenChunk{Token: tok}); err != nil {
				return err
			}
			if flush != nil {
				flush()
			}
			return ctx.Err()
		}
	}

	res, err := svc.Generate(ctx, req, onToken)
	if err != nil {
		c.rec.FailOperation(op, err)
		return types.GenerateResult{}, err
	}
	if enc != nil {
		if err := enc.Encode(tokenChunk{Done: true, Tokens: res.Tokens}); err != nil {
			c.rec.FailOperation(op, err)
			return types.GenerateResult{}, err
		}
		if flush != nil {
			flush()
		}
	}
	c.rec.CompleteOperation(op, map[string]any{"tokens": res.Tokens})
	return res, nil
}
