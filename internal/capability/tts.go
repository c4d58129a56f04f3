package capability

import (
	"context"

	"aihostd/internal/backend"
	"aihostd/internal/lifecycle"
	"aihostd/internal/registry"
	"aihostd/internal/telemetry"
	"aihostd/pkg/types"
)

// TTS hosts the text-to-speech capability slot.
type TTS struct {
	base[backend.TextToSpeech]
}

// NewTTS wires the text-to-speech capability. A nil factory uses the
// built-in backend resolved through reg.
func NewTTS(reg *registry.Registry, rec telemetry.Recorder, pub lifecycle.Publisher,
	factory lifecycle.Factory[backend.TextToSpeech]) *TTS {
	if factory == nil {
		factory = TextToSpeechFactory(reg)
	}
	cleanup := func(ctx context.Context, svc backend.TextToSpeech) { svc.Close() }
	return &TTS{base: newBase(types.CapabilityTTS, reg, rec, factory, cleanup, pub)}
}

// TextToSpeechFactory builds TTS services from registry entries.
func TextToSpeechFactory(reg *registry.Registry) lifecycle.Factory[backend.TextToSpeech] {
	return func(ctx context.Context, id string, cfg any) (backend.TextToSpeech, error) {
		mdl, ok := reg.Find(id)
		if !ok {
			return nil, ErrModelNotFound(id)
		}
		return backend.NewStubTextToSpeech(mdl)
	}
}

// Synthesize renders speech for text against the loaded model.
func (c *TTS) Synthesize(ctx context.Context, req types.SynthesizeRequest) (types.Audio, error) {
	svc, err := c.require()
	if err != nil {
		return types.Audio{}, err
	}
	op := c.rec.StartOperation("tts.synthesize", map[string]any{
		"model": c.lc.CurrentResourceID(),
		"chars": len(req.Text),
	})
	audio, err := svc.Synthesize(ctx, req)
	if err != nil {
		c.rec.FailOperation(op, err)
		return types.Audio{}, err
	}
	c.rec.CompleteOperation(op, map[string]any{"sample_rate": audio.SampleRate})
	return audio, nil
}
