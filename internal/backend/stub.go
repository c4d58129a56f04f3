package backend

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"aihostd/pkg/types"
)

// The stub services are deterministic stand-ins used by CGO-free builds and
// tests. They validate the model file like a real backend would, then
// produce canned output tagged with the model id.

func statModel(model types.Model) error {
	if strings.TrimSpace(model.Path) == "" {
		return fmt.Errorf("model %s: path is empty", model.ID)
	}
	if _, err := os.Stat(model.Path); err != nil {
		return fmt.Errorf("model %s: %w", model.ID, err)
	}
	return nil
}

type stubText struct {
	model types.Model
}

// NewStubText returns a TextService that echoes the prompt token by token.
func NewStubText(model types.Model) (TextService, error) {
	if err := statModel(model); err != nil {
		return nil, err
	}
	return &stubText{model: model}, nil
}

func (s *stubText) Generate(ctx context.Context, req types.GenerateRequest, onToken func(string) error) (types.GenerateResult, error) {
	words := strings.Fields(req.Prompt)
	limit := len(words)
	if req.MaxTokens > 0 && req.MaxTokens < limit {
		limit = req.MaxTokens
	}
	var b strings.Builder
	for i := 0; i < limit; i++ {
		select {
		case <-ctx.Done():
			return types.GenerateResult{}, ctx.Err()
		default:
		}
		tok := words[i]
		if i > 0 {
			tok = " " + tok
		}
		if onToken != nil {
			if err := onToken(tok); err != nil {
				break
			}
		}
		b.WriteString(tok)
	}
	return types.GenerateResult{Text: b.String(), Tokens: limit, Model: s.model.ID}, nil
}

func (s *stubText) Close() {}

type stubSTT struct {
	model types.Model
}

// NewStubSpeechToText returns a SpeechToText reporting audio length only.
func NewStubSpeechToText(model types.Model) (SpeechToText, error) {
	if err := statModel(model); err != nil {
		return nil, err
	}
	return &stubSTT{model: model}, nil
}

func (s *stubSTT) Transcribe(ctx context.Context, audio []byte, req types.TranscribeRequest) (types.Transcription, error) {
	if err := ctx.Err(); err != nil {
		return types.Transcription{}, err
	}
	lang := req.Language
	if lang == "" {
		lang = "en"
	}
	return types.Transcription{
		Text:       fmt.Sprintf("transcribed %d bytes", len(audio)),
		Language:   lang,
		Confidence: 0.9,
		Model:      s.model.ID,
	}, nil
}

func (s *stubSTT) Close() {}

type stubTTS struct {
	model types.Model
}

// NewStubTextToSpeech returns a TextToSpeech that encodes the input text as
// the audio payload.
func NewStubTextToSpeech(model types.Model) (TextToSpeech, error) {
	if err := statModel(model); err != nil {
		return nil, err
	}
	return &stubTTS{model: model}, nil
}

func (s *stubTTS) Synthesize(ctx context.Context, req types.SynthesizeRequest) (types.Audio, error) {
	if err := ctx.Err(); err != nil {
		return types.Audio{}, err
	}
	return types.Audio{
		Data:       base64.StdEncoding.EncodeToString([]byte(req.Text)),
		SampleRate: 22050,
		Model:      s.model.ID,
	}, nil
}

func (s *stubTTS) Close() {}

type stubDiffusion struct {
	model types.Model
}

// NewStubDiffusion returns an ImageDiffusion producing a deterministic
// payload derived from the prompt.
func NewStubDiffusion(model types.Model) (ImageDiffusion, error) {
	if err := statModel(model); err != nil {
		return nil, err
	}
	return &stubDiffusion{model: model}, nil
}

func (s *stubDiffusion) GenerateImage(ctx context.Context, req types.ImageRequest) (types.Image, error) {
	if err := ctx.Err(); err != nil {
		return types.Image{}, err
	}
	w, h := req.Width, req.Height
	if w <= 0 {
		w = 512
	}
	if h <= 0 {
		h = 512
	}
	payload := fmt.Sprintf("%s|%dx%d|seed=%d", req.Prompt, w, h, req.Seed)
	return types.Image{
		Data:   base64.StdEncoding.EncodeToString([]byte(payload)),
		Width:  w,
		Height: h,
		Model:  s.model.ID,
	}, nil
}

func (s *stubDiffusion) Close() {}
