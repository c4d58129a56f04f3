//go:build !llama

package backend

import "aihostd/pkg/types"

// This file keeps default builds and CI CGO-free. The real adapter lives in
// text_llama.go (tagged 'llama').

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = false

// NewText returns the deterministic stub service when llama support is not
// compiled in.
func NewText(model types.Model, cfg TextConfig) (TextService, error) {
	_ = cfg.withDefaults()
	return NewStubText(model)
}
