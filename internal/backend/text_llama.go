//go:build llama

package backend

import (
	"context"
	"strings"

	llama "github.com/go-skynet/go-llama.cpp"

	"aihostd/pkg/types"
)

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = true

// llamaText owns one loaded llama.cpp model.
type llamaText struct {
	model   *llama.LLama
	modelID string
	threads int
}

// NewText loads the model in-process via go-llama.cpp.
func NewText(model types.Model, cfg TextConfig) (TextService, error) {
	if err := statModel(model); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	m, err := llama.New(model.Path, llama.SetContext(cfg.CtxSize))
	if err != nil {
		return nil, err
	}
	return &llamaText{model: m, modelID: model.ID, threads: cfg.Threads}, nil
}

func (s *llamaText) Generate(ctx context.Context, req types.GenerateRequest, onToken func(string) error) (types.GenerateResult, error) {
	tokens := 0
	s.model.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		tokens++
		if onToken != nil {
			if err := onToken(tok); err != nil {
				return false
			}
		}
		return true
	})
	text, err := s.model.Predict(req.Prompt, predictOptions(req, s.threads)...)
	if err != nil {
		if ctx.Err() != nil {
			return types.GenerateResult{}, ctx.Err()
		}
		return types.GenerateResult{}, err
	}
	return types.GenerateResult{Text: strings.TrimLeft(text, " "), Tokens: tokens, Model: s.modelID}, nil
}

func (s *llamaText) Close() {
	if s.model != nil {
		s.model.Free()
		s.model = nil
	}
}

func zn(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func zf(v, def float32) float32 {
	if v > 0 {
		return v
	}
	return def
}

// predictOptions converts request parameters into go-llama.cpp options.
func predictOptions(req types.GenerateRequest, threads int) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetTokens(zn(req.MaxTokens, 128)),
		llama.SetThreads(zn(threads, 1)),
		llama.SetTopP(zf(float32(req.TopP), llama.DefaultOptions.TopP)),
		llama.SetTopK(zn(req.TopK, llama.DefaultOptions.TopK)),
		llama.SetTemperature(zf(float32(req.Temperature), llama.DefaultOptions.Temperature)),
	}
	if req.Seed != 0 {
		po = append(po, llama.SetSeed(int(req.Seed)))
	}
	if len(req.Stop) > 0 {
		po = append(po, llama.SetStopWords(req.Stop...))
	}
	return po
}
