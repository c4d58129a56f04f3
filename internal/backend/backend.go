// Package backend defines the per-capability service interfaces constructed
// and owned by the lifecycle coordinator, plus the built-in implementations.
//
// Default builds are CGO-free and use deterministic stub services. Build
// with `-tags=llama` for the in-process go-llama.cpp text backend. Native
// STT/TTS/diffusion runtimes stay behind these interfaces and are provided
// by platform-specific integrations.
package backend

import (
	"context"

	"aihostd/pkg/types"
)

// TextService generates text completions for the loaded model.
type TextService interface {
	// Generate produces a completion for req. onToken, when non-nil, is
	// invoked per token; returning an error from it stops generation.
	Generate(ctx context.Context, req types.GenerateRequest, onToken func(string) error) (types.GenerateResult, error)
	// Close releases the model. It must not fail.
	Close()
}

// SpeechToText transcribes audio with the loaded model.
type SpeechToText interface {
	Transcribe(ctx context.Context, audio []byte, req types.TranscribeRequest) (types.Transcription, error)
	Close()
}

// TextToSpeech synthesizes audio with the loaded model.
type TextToSpeech interface {
	Synthesize(ctx context.Context, req types.SynthesizeRequest) (types.Audio, error)
	Close()
}

// ImageDiffusion generates images with the loaded model.
type ImageDiffusion interface {
	GenerateImage(ctx context.Context, req types.ImageRequest) (types.Image, error)
	Close()
}

// TextConfig tunes the text backend. Zero values use package defaults.
type TextConfig struct {
	CtxSize int
	Threads int
}

const (
	defaultCtxSize = 2048
	defaultThreads = 4
)

func (c TextConfig) withDefaults() TextConfig {
	if c.CtxSize <= 0 {
		c.CtxSize = defaultCtxSize
	}
	if c.Threads <= 0 {
		c.Threads = defaultThreads
	}
	return c
}

// TextConfigFrom extracts a TextConfig from an opaque lifecycle config.
func TextConfigFrom(cfg any) TextConfig {
	if tc, ok := cfg.(TextConfig); ok {
		return tc.withDefaults()
	}
	return TextConfig{}.withDefaults()
}

// LlamaBuilt reports whether the binary includes the in-process llama
// backend (built with -tags=llama).
func LlamaBuilt() bool { return llamaBuilt }
