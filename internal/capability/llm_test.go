package capability

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"aihostd/internal/backend"
	"aihostd/internal/lifecycle"
	"aihostd/internal/registry"
	"aihostd/internal/telemetry"
	"aihostd/pkg/types"
)

func testRegistry(t *testing.T, caps map[string]types.Capability) *registry.Registry {
	t.Helper()
	dir := t.TempDir()
	var models []types.Model
	for name, c := range caps {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte("weights"), 0o644); err != nil {
			t.Fatalf("write model file: %v", err)
		}
		models = append(models, types.Model{ID: name, Name: name, Path: p, Capability: c})
	}
	return registry.New(models)
}

func TestLLMGenerateRequiresLoad(t *testing.T) {
	reg := testRegistry(t, map[string]types.Capability{"m.gguf": types.CapabilityLLM})
	llm := NewLLM(reg, nil, nil, nil)

	_, err := llm.Generate(context.Background(), types.GenerateRequest{Prompt: "hi"}, nil, nil)
	if !IsNotReady(err) {
		t.Fatalf("expected not-ready error, got %v", err)
	}
}

func TestLLMLoadUnknownModel(t *testing.T) {
	reg := testRegistry(t, map[string]types.Capability{"m.gguf": types.CapabilityLLM})
	llm := NewLLM(reg, nil, nil, nil)

	if err := llm.Load(context.Background(), "ghost.gguf"); !IsModelNotFound(err) {
		t.Fatalf("expected model-not-found, got %v", err)
	}
}

func TestLLMLoadRejectsWrongCapability(t *testing.T) {
	reg := testRegistry(t, map[string]types.Capability{"w.bin": types.CapabilitySTT})
	llm := NewLLM(reg, nil, nil, nil)

	if err := llm.Load(context.Background(), "w.bin"); !IsModelNotFound(err) {
		t.Fatalf("expected model-not-found for wrong capability, got %v", err)
	}
}

func TestLLMGenerateBuffered(t *testing.T) {
	reg := testRegistry(t, map[string]types.Capability{"m.gguf": types.CapabilityLLM})
	rec := telemetry.NewMemoryRecorder()
	llm := NewLLM(reg, rec, nil, nil)
	ctx := context.Background()

	if err := llm.Load(ctx, "m.gguf"); err != nil {
		t.Fatalf("load: %v", err)
	}
	res, err := llm.Generate(ctx, types.GenerateRequest{Prompt: "one two three"}, nil, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Text != "one two three" || res.Model != "m.gguf" {
		t.Fatalf("unexpected result: %+v", res)
	}

	ops := rec.Operations()
	if len(ops) != 1 || ops[0].Name != "llm.generate" || !ops[0].Done || ops[0].Failed {
		t.Fatalf("unexpected operations: %+v", ops)
	}
}

func TestLLMGenerateStreamsNDJSON(t *testing.T) {
	reg := testRegistry(t, map[string]types.Capability{"m.gguf": types.CapabilityLLM})
	llm := NewLLM(reg, nil, nil, nil)
	ctx := context.Background()
	if err := llm.Load(ctx, "m.gguf"); err != nil {
		t.Fatalf("load: %v", err)
	}

	var buf bytes.Buffer
	flushes := 0
	res, err := llm.Generate(ctx, types.GenerateRequest{Prompt: "a b", Stream: true}, &buf, func() { flushes++ })
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	// two token chunks plus the final done chunk
	if len(lines) != 3 {
		t.Fatalf("expected 3 NDJSON lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[2], `"done":true`) {
		t.Fatalf("expected done marker, got %q", lines[2])
	}
	if flushes != 3 {
		t.Fatalf("expected flush per line, got %d", flushes)
	}
	if res.Tokens != 2 {
		t.Fatalf("unexpected token count: %d", res.Tokens)
	}
}

func TestLLMSwapUpdatesStatus(t *testing.T) {
	reg := testRegistry(t, map[string]types.Capability{
		"a.gguf": types.CapabilityLLM,
		"b.gguf": types.CapabilityLLM,
	})
	pub := lifecycle.NewMemoryPublisher()
	llm := NewLLM(reg, nil, pub, nil)
	ctx := context.Background()

	if err := llm.Load(ctx, "a.gguf"); err != nil {
		t.Fatalf("load a: %v", err)
	}
	if err := llm.Load(ctx, "b.gguf"); err != nil {
		t.Fatalf("load b: %v", err)
	}
	st := llm.Status()
	if st.ResourceID != "b.gguf" || st.State != string(lifecycle.StateLoaded) {
		t.Fatalf("unexpected status: %+v", st)
	}
	if st.Attempts != 2 || st.Successes != 2 {
		t.Fatalf("unexpected load counters: %+v", st)
	}
	if n := len(pub.Named(lifecycle.EventLoadCompleted)); n != 2 {
		t.Fatalf("expected 2 completion events, got %d", n)
	}
}

func TestLLMFailedOperationRecorded(t *testing.T) {
	reg := testRegistry(t, map[string]types.Capability{"m.gguf": types.CapabilityLLM})
	rec := telemetry.NewMemoryRecorder()
	boom := errors.New("inference blew up")
	factory := func(ctx context.Context, id string, cfg any) (backend.TextService, error) {
		return failingText{err: boom}, nil
	}
	llm := NewLLM(reg, rec, nil, factory)
	ctx := context.Background()
	if err := llm.Load(ctx, "m.gguf"); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := llm.Generate(ctx, types.GenerateRequest{Prompt: "x"}, nil, nil); !errors.Is(err, boom) {
		t.Fatalf("expected backend error, got %v", err)
	}
	ops := rec.Operations()
	if len(ops) != 1 || !ops[0].Failed || !errors.Is(ops[0].Err, boom) {
		t.Fatalf("expected failed operation, got %+v", ops)
	}
}

type failingText struct{ err error }

func (f failingText) Generate(context.Context, types.GenerateRequest, func(string) error) (types.GenerateResult, error) {
	return types.GenerateResult{}, f.err
}
func (failingText) Close() {}

func TestLLMUnloadThenGenerateFails(t *testing.T) {
	reg := testRegistry(t, map[string]types.Capability{"m.gguf": types.CapabilityLLM})
	llm := NewLLM(reg, nil, nil, nil)
	ctx := context.Background()
	if err := llm.Load(ctx, "m.gguf"); err != nil {
		t.Fatalf("load: %v", err)
	}
	llm.Unload()
	if _, err := llm.Generate(ctx, types.GenerateRequest{Prompt: "x"}, nil, nil); !IsNotReady(err) {
		t.Fatalf("expected not-ready after unload, got %v", err)
	}
}
