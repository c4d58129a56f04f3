package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"aihostd/pkg/types"
)

// modelExtensions lists the file extensions recognized as loadable models.
var modelExtensions = map[string]bool{
	".gguf":        true,
	".bin":         true,
	".onnx":        true,
	".safetensors": true,
}

// familyHints maps filename substrings to a model family tag.
var familyHints = []struct{ substr, family string }{
	{"whisper", "whisper"},
	{"llama", "llama"},
	{"mistral", "mistral"},
	{"phi", "phi"},
	{"piper", "piper"},
	{"sd-", "sd"},
}

// Registry is an immutable index of discoverable models.
type Registry struct {
	models []types.Model
	byID   map[string]types.Model
}

// New builds a registry from a fixed model list; tests use it directly.
func New(models []types.Model) *Registry {
	r := &Registry{byID: make(map[string]types.Model, len(models))}
	for _, m := range models {
		if _, dup := r.byID[m.ID]; dup {
			continue
		}
		r.byID[m.ID] = m
		r.models = append(r.models, m)
	}
	return r
}

// LoadDirs scans one directory per capability and builds a registry from
// filenames. ID is the full filename (including extension); Path is the
// absolute file path. Empty or missing directories are skipped so a host can
// serve a subset of capabilities.
func LoadDirs(dirs map[types.Capability]string) (*Registry, error) {
	var models []types.Model
	// Stable capability order keeps listings deterministic.
	for _, c := range types.Capabilities() {
		dir := dirs[c]
		if dir == "" {
			continue
		}
		scanned, err := scanDir(dir, c)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("%s models: %w", c, err)
		}
		models = append(models, scanned...)
	}
	return New(models), nil
}

func scanDir(dir string, c types.Capability) ([]types.Model, error) {
	base, err := expandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, err
	}
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !modelExtensions[strings.ToLower(filepath.Ext(name))] {
			continue
		}
		models = append(models, types.Model{
			ID:         name,
			Name:       name,
			Path:       filepath.Join(abs, name),
			Capability: c,
			Family:     guessFamily(name),
		})
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}

func guessFamily(name string) string {
	lower := strings.ToLower(name)
	for _, h := range familyHints {
		if strings.Contains(lower, h.substr) {
			return h.family
		}
	}
	return ""
}

// Find looks up a model by id.
func (r *Registry) Find(id string) (types.Model, bool) {
	m, ok := r.byID[id]
	return m, ok
}

// List returns a copy of all models.
func (r *Registry) List() []types.Model {
	out := make([]types.Model, len(r.models))
	copy(out, r.models)
	return out
}

// ListByCapability returns the models serving one capability.
func (r *Registry) ListByCapability(c types.Capability) []types.Model {
	var out []types.Model
	for _, m := range r.models {
		if m.Capability == c {
			out = append(out, m)
		}
	}
	return out
}

// expandHome expands a leading '~' to the user's home directory.
func expandHome(path string) (string, error) {
	if path == "" {
		return path, nil
	}
	if path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	// handle cases like ~/models/llm
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}
