package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"aihostd/internal/capability"
	"aihostd/pkg/types"
)

type mockSlot struct {
	models  []types.Model
	status  types.CapabilityStatus
	loadErr error
	loaded  []string
	unloads int
}

func (m *mockSlot) Load(ctx context.Context, id string) error {
	if m.loadErr != nil {
		return m.loadErr
	}
	m.loaded = append(m.loaded, id)
	return nil
}
func (m *mockSlot) Unload()                        { m.unloads++ }
func (m *mockSlot) Models() []types.Model          { return append([]types.Model(nil), m.models...) }
func (m *mockSlot) Status() types.CapabilityStatus { return m.status }

type mockLLM struct {
	mockSlot
	genErr error
	result types.GenerateResult
}

func (m *mockLLM) Generate(ctx context.Context, req types.GenerateRequest, w io.Writer, flush func()) (types.GenerateResult, error) {
	if m.genErr != nil {
		return types.GenerateResult{}, m.genErr
	}
	if w != nil && req.Stream {
		enc := json.NewEncoder(w)
		_ = enc.Encode(map[string]any{"token": "hi"})
		if flush != nil {
			flush()
		}
		_ = enc.Encode(map[string]any{"done": true})
		if flush != nil {
			flush()
		}
	}
	return m.result, nil
}

type mockSTT struct {
	mockSlot
	err   error
	gotIn []byte
}

func (m *mockSTT) Transcribe(ctx context.Context, audio []byte, req types.TranscribeRequest) (types.Transcription, error) {
	if m.err != nil {
		return types.Transcription{}, m.err
	}
	m.gotIn = audio
	return types.Transcription{Text: "hello", Language: req.Language}, nil
}

type mockTTS struct {
	mockSlot
	err error
}

func (m *mockTTS) Synthesize(ctx context.Context, req types.SynthesizeRequest) (types.Audio, error) {
	if m.err != nil {
		return types.Audio{}, m.err
	}
	return types.Audio{Data: base64.StdEncoding.EncodeToString([]byte(req.Text)), SampleRate: 22050}, nil
}

type mockDiffusion struct {
	mockSlot
	err error
}

func (m *mockDiffusion) GenerateImage(ctx context.Context, req types.ImageRequest) (types.Image, error) {
	if m.err != nil {
		return types.Image{}, m.err
	}
	return types.Image{Data: "cGlj", Width: req.Width, Height: req.Height}, nil
}

type mockHTTPError struct {
	msg  string
	code int
}

func (e mockHTTPError) Error() string   { return e.msg }
func (e mockHTTPError) StatusCode() int { return e.code }

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(w, req)
	return w
}

func TestModelsAggregatesAcrossCapabilities(t *testing.T) {
	llm := &mockLLM{mockSlot: mockSlot{models: []types.Model{{ID: "m1"}}}}
	stt := &mockSTT{mockSlot: mockSlot{models: []types.Model{{ID: "w1"}}}}
	r := NewMux(Services{LLM: llm, STT: stt})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/models", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.ModelsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(body.Models) != 2 {
		t.Fatalf("models len=%d", len(body.Models))
	}
}

func TestStatusListsCapabilities(t *testing.T) {
	llm := &mockLLM{mockSlot: mockSlot{status: types.CapabilityStatus{Capability: types.CapabilityLLM, State: "loaded", ResourceID: "m1"}}}
	r := NewMux(Services{LLM: llm})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(body.Capabilities) != 1 || body.Capabilities[0].ResourceID != "m1" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestHealthz(t *testing.T) {
	r := NewMux(Services{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestReadyzRequiresALoadedSlot(t *testing.T) {
	llm := &mockLLM{mockSlot: mockSlot{status: types.CapabilityStatus{State: "idle"}}}
	r := NewMux(Services{LLM: llm})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "loading") {
		t.Fatalf("body=%q", w.Body.String())
	}

	llm.status.State = "loaded"
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestLoadRoutesToCapability(t *testing.T) {
	llm := &mockLLM{}
	r := NewMux(Services{LLM: llm})
	w := postJSON(t, r, "/v1/llm/load", `{"model":"m1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if len(llm.loaded) != 1 || llm.loaded[0] != "m1" {
		t.Fatalf("loaded=%v", llm.loaded)
	}
}

func TestLoadUnknownModelMaps404(t *testing.T) {
	llm := &mockLLM{mockSlot: mockSlot{loadErr: capability.ErrModelNotFound("nope")}}
	r := NewMux(Services{LLM: llm})
	w := postJSON(t, r, "/v1/llm/load", `{"model":"nope"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestLoadModelRequired(t *testing.T) {
	r := NewMux(Services{LLM: &mockLLM{}})
	w := postJSON(t, r, "/v1/llm/load", `{"model":"  "}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestUnloadReturnsNoContent(t *testing.T) {
	tts := &mockTTS{}
	r := NewMux(Services{TTS: tts})
	w := postJSON(t, r, "/v1/tts/unload", ``)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status=%d", w.Code)
	}
	if tts.unloads != 1 {
		t.Fatalf("unloads=%d", tts.unloads)
	}
}

func TestGenerateStreamsNDJSON(t *testing.T) {
	r := NewMux(Services{LLM: &mockLLM{}})
	w := postJSON(t, r, "/v1/llm/generate", `{"prompt":"hi","stream":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/x-ndjson") {
		t.Fatalf("content-type=%s", ct)
	}
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 ndjson lines, got %d", len(lines))
	}
}

func TestGenerateBuffered(t *testing.T) {
	llm := &mockLLM{result: types.GenerateResult{Text: "hello", Tokens: 1, Model: "m1"}}
	r := NewMux(Services{LLM: llm})
	w := postJSON(t, r, "/v1/llm/generate", `{"prompt":"hi"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var res types.GenerateResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("json: %v", err)
	}
	if res.Text != "hello" || res.Model != "m1" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestGenerateNotReadyMaps409(t *testing.T) {
	llm := &mockLLM{genErr: capability.ErrNotReady(types.CapabilityLLM)}
	r := NewMux(Services{LLM: llm})
	w := postJSON(t, r, "/v1/llm/generate", `{"prompt":"hi"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestGenerateHTTPErrorPassthrough(t *testing.T) {
	llm := &mockLLM{genErr: mockHTTPError{msg: "too busy", code: http.StatusTooManyRequests}}
	r := NewMux(Services{LLM: llm})
	w := postJSON(t, r, "/v1/llm/generate", `{"prompt":"hi"}`)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestGenerateGenericErrorMaps500(t *testing.T) {
	llm := &mockLLM{genErr: io.EOF}
	r := NewMux(Services{LLM: llm})
	w := postJSON(t, r, "/v1/llm/generate", `{"prompt":"hi"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestGeneratePromptRequired(t *testing.T) {
	r := NewMux(Services{LLM: &mockLLM{}})
	w := postJSON(t, r, "/v1/llm/generate", `{"prompt":"   "}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestGenerateBadJSON(t *testing.T) {
	r := NewMux(Services{LLM: &mockLLM{}})
	w := postJSON(t, r, "/v1/llm/generate", "not-json")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestGenerateUnsupportedMediaType(t *testing.T) {
	r := NewMux(Services{LLM: &mockLLM{}})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/llm/generate", bytes.NewBufferString(`{"prompt":"hi"}`))
	req.Header.Set("Content-Type", "text/plain")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestBodyTooLargeReturns400(t *testing.T) {
	old := maxBodyBytes
	SetMaxBodyBytes(1 << 10)
	defer SetMaxBodyBytes(old)

	r := NewMux(Services{LLM: &mockLLM{}})
	big := make([]byte, (1<<10)+10)
	for i := range big {
		big[i] = 'a'
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/llm/generate", bytes.NewReader(big))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for too-large body, got %d", w.Code)
	}
}

func TestTranscribeDecodesBase64(t *testing.T) {
	stt := &mockSTT{}
	r := NewMux(Services{STT: stt})
	audio := base64.StdEncoding.EncodeToString([]byte{1, 2, 3})
	w := postJSON(t, r, "/v1/stt/transcribe", `{"audio":"`+audio+`","language":"en"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if len(stt.gotIn) != 3 {
		t.Fatalf("decoded audio len=%d", len(stt.gotIn))
	}
	var tr types.Transcription
	if err := json.Unmarshal(w.Body.Bytes(), &tr); err != nil {
		t.Fatalf("json: %v", err)
	}
	if tr.Text != "hello" || tr.Language != "en" {
		t.Fatalf("unexpected transcription: %+v", tr)
	}
}

func TestTranscribeRejectsBadBase64(t *testing.T) {
	r := NewMux(Services{STT: &mockSTT{}})
	w := postJSON(t, r, "/v1/stt/transcribe", `{"audio":"%%%not-base64%%%"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestTranscribeAudioRequired(t *testing.T) {
	r := NewMux(Services{STT: &mockSTT{}})
	w := postJSON(t, r, "/v1/stt/transcribe", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestSynthesize(t *testing.T) {
	r := NewMux(Services{TTS: &mockTTS{}})
	w := postJSON(t, r, "/v1/tts/synthesize", `{"text":"hello"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var audio types.Audio
	if err := json.Unmarshal(w.Body.Bytes(), &audio); err != nil {
		t.Fatalf("json: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(audio.Data)
	if err != nil || string(raw) != "hello" {
		t.Fatalf("unexpected audio: %+v err=%v", audio, err)
	}
}

func TestSynthesizeTextRequired(t *testing.T) {
	r := NewMux(Services{TTS: &mockTTS{}})
	w := postJSON(t, r, "/v1/tts/synthesize", `{"text":" "}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestDiffusionImages(t *testing.T) {
	r := NewMux(Services{Diffusion: &mockDiffusion{}})
	w := postJSON(t, r, "/v1/diffusion/images", `{"prompt":"a lighthouse","width":64,"height":32}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var img types.Image
	if err := json.Unmarshal(w.Body.Bytes(), &img); err != nil {
		t.Fatalf("json: %v", err)
	}
	if img.Width != 64 || img.Height != 32 {
		t.Fatalf("unexpected image: %+v", img)
	}
}

func TestNilServiceRouteAbsent(t *testing.T) {
	r := NewMux(Services{LLM: &mockLLM{}})
	w := postJSON(t, r, "/v1/tts/synthesize", `{"text":"hello"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
}
