package types

// Capability identifies one hosted AI capability slot.
type Capability string

const (
	CapabilityLLM       Capability = "llm"
	CapabilitySTT       Capability = "stt"
	CapabilityTTS       Capability = "tts"
	CapabilityDiffusion Capability = "diffusion"
)

// Capabilities lists all capability slots in a stable order.
func Capabilities() []Capability {
	return []Capability{CapabilityLLM, CapabilitySTT, CapabilityTTS, CapabilityDiffusion}
}

// Model represents a discoverable or loadable model on disk.
type Model struct {
	// Stable identifier for the model (filename by convention).
	// example: tinyllama-q4.gguf
	ID string `json:"id" example:"tinyllama-q4.gguf"`
	// Human-friendly name.
	// example: TinyLlama (Q4)
	Name string `json:"name" example:"TinyLlama (Q4)"`
	// Absolute path to the model file on disk.
	// example: /home/user/models/llm/TinyLlama.Q4_K_M.gguf
	Path string `json:"path" example:"/home/user/models/llm/TinyLlama.Q4_K_M.gguf"`
	// Capability this model serves.
	// example: llm
	Capability Capability `json:"capability" example:"llm"`
	// Optional quantization level or variant string.
	// example: Q4_K_M
	Quant string `json:"quant,omitempty" example:"Q4_K_M"`
	// Optional family (e.g., llama, whisper, piper, sd).
	// example: llama
	Family string `json:"family,omitempty" example:"llama"`
}
