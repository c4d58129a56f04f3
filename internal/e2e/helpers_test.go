package e2e

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"aihostd/internal/capability"
	"aihostd/internal/httpapi"
	"aihostd/internal/registry"
	"aihostd/pkg/types"
)

// createModelsDir creates a temporary directory populated with one-byte model
// files and returns its path.
func createModelsDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		p := filepath.Join(dir, n)
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("write temp model %s: %v", p, err)
		}
	}
	return dir
}

// newServer wires the full stack in-process: registry scan, capability slots
// with stub backends, HTTP mux. One dir per capability; empty means absent.
func newServer(t *testing.T, dirs map[types.Capability]string) *httptest.Server {
	t.Helper()
	reg, err := registry.LoadDirs(dirs)
	if err != nil {
		t.Fatalf("load dirs: %v", err)
	}
	mux := httpapi.NewMux(httpapi.Services{
		LLM:       capability.NewLLM(reg, nil, nil, nil),
		STT:       capability.NewSTT(reg, nil, nil, nil),
		TTS:       capability.NewTTS(reg, nil, nil, nil),
		Diffusion: capability.NewDiffusion(reg, nil, nil, nil),
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}
