package capability

import (
	"context"

	"aihostd/internal/backend"
	"aihostd/internal/lifecycle"
	"aihostd/internal/registry"
	"aihostd/internal/telemetry"
	"aihostd/pkg/types"
)

// STT hosts the speech-to-text capability slot.
type STT struct {
	base[backend.SpeechToText]
}

// NewSTT wires the speech-to-text capability. A nil factory uses the
// built-in backend resolved through reg.
func NewSTT(reg *registry.Registry, rec telemetry.Recorder, pub lifecycle.Publisher,
	factory lifecycle.Factory[backend.SpeechToText]) *STT {
	if factory == nil {
		factory = SpeechToTextFactory(reg)
	}
	cleanup := func(ctx context.Context, svc backend.SpeechToText) { svc.Close() }
	return &STT{base: newBase(types.CapabilitySTT, reg, rec, factory, cleanup, pub)}
}

// SpeechToTextFactory builds STT services from registry entries.
func SpeechToTextFactory(reg *registry.Registry) lifecycle.Factory[backend.SpeechToText] {
	return func(ctx context.Context, id string, cfg any) (backend.SpeechToText, error) {
		mdl, ok := reg.Find(id)
		if !ok {
			return nil, ErrModelNotFound(id)
		}
		return backend.NewStubSpeechToText(mdl)
	}
}

// Transcribe recognizes speech in audio against the loaded model.
func (c *STT) Transcribe(ctx context.Context, audio []byte, req types.TranscribeRequest) (types.Transcription, error) {
	svc, err := c.require()
	if err != nil {
		return types.Transcription{}, err
	}
	op := c.rec.StartOperation("stt.transcribe", map[string]any{
		"model": c.lc.CurrentResourceID(),
		"bytes": len(audio),
	})
	tr, err := svc.Transcribe(ctx, audio, req)
	if err != nil {
		c.rec.FailOperation(op, err)
		return types.Transcription{}, err
	}
	c.rec.CompleteOperation(op, map[string]any{"chars": len(tr.Text)})
	return tr, nil
}
