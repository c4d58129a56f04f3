package types

// GenerateRequest is the payload for POST /v1/llm/generate.
type GenerateRequest struct {
	// Required prompt text to generate a completion for.
	// example: Write a haiku about the ocean.
	Prompt string `json:"prompt" example:"Write a haiku about the ocean."`
	// If true, stream results as NDJSON tokens.
	// example: true
	Stream bool `json:"stream,omitempty" example:"true"`
	// Maximum number of new tokens to generate.
	// example: 128
	MaxTokens int `json:"max_tokens,omitempty" example:"128"`
	// Sampling temperature (higher = more random).
	// example: 0.7
	Temperature float64 `json:"temperature,omitempty" example:"0.7"`
	// Nucleus sampling probability.
	// example: 0.9
	TopP float64 `json:"top_p,omitempty" example:"0.9"`
	// Top-K sampling: limit candidates to top K tokens.
	// example: 40
	TopK int `json:"top_k,omitempty" example:"40"`
	// Optional stop sequences. Generation stops when any sequence is matched.
	Stop []string `json:"stop,omitempty"`
	// Random seed for reproducibility; 0 or omitted lets the server choose.
	// example: 42
	Seed int64 `json:"seed,omitempty" example:"42"`
}

// GenerateResult is the buffered (non-streaming) generation outcome.
type GenerateResult struct {
	// Generated completion text.
	Text string `json:"text"`
	// Number of tokens produced.
	// example: 42
	Tokens int `json:"tokens" example:"42"`
	// Model id that served the request.
	// example: tinyllama-q4.gguf
	Model string `json:"model" example:"tinyllama-q4.gguf"`
}

// TranscribeRequest is the payload for POST /v1/stt/transcribe.
type TranscribeRequest struct {
	// Base64-encoded PCM16 mono audio.
	Audio string `json:"audio"`
	// Sample rate of the audio in Hz.
	// example: 16000
	SampleRate int `json:"sample_rate,omitempty" example:"16000"`
	// BCP-47 language hint; empty lets the model detect.
	// example: en
	Language string `json:"language,omitempty" example:"en"`
}

// Transcription is the result of a speech-to-text operation.
type Transcription struct {
	// Recognized text.
	Text string `json:"text"`
	// Detected or requested language.
	// example: en
	Language string `json:"language,omitempty" example:"en"`
	// Mean recognition confidence in [0,1].
	// example: 0.93
	Confidence float64 `json:"confidence,omitempty" example:"0.93"`
	// Model id that served the request.
	Model string `json:"model"`
}

// SynthesizeRequest is the payload for POST /v1/tts/synthesize.
type SynthesizeRequest struct {
	// Text to synthesize.
	// example: Hello from the edge.
	Text string `json:"text" example:"Hello from the edge."`
	// Optional voice identifier understood by the loaded model.
	// example: en-amy
	Voice string `json:"voice,omitempty" example:"en-amy"`
	// Playback rate multiplier; 0 means default (1.0).
	// example: 1.0
	Rate float64 `json:"rate,omitempty" example:"1.0"`
}

// Audio is synthesized speech returned by TTS.
type Audio struct {
	// Base64-encoded PCM16 mono audio.
	Data string `json:"data"`
	// Sample rate of the audio in Hz.
	// example: 22050
	SampleRate int `json:"sample_rate" example:"22050"`
	// Model id that served the request.
	Model string `json:"model"`
}

// ImageRequest is the payload for POST /v1/diffusion/images.
type ImageRequest struct {
	// Text prompt describing the image.
	// example: a lighthouse at dusk, oil painting
	Prompt string `json:"prompt" example:"a lighthouse at dusk, oil painting"`
	// Negative prompt; concepts to avoid.
	NegativePrompt string `json:"negative_prompt,omitempty"`
	// Output width in pixels.
	// example: 512
	Width int `json:"width,omitempty" example:"512"`
	// Output height in pixels.
	// example: 512
	Height int `json:"height,omitempty" example:"512"`
	// Number of denoising steps.
	// example: 20
	Steps int `json:"steps,omitempty" example:"20"`
	// Random seed; 0 or omitted lets the server choose.
	Seed int64 `json:"seed,omitempty"`
}

// Image is a generated image.
type Image struct {
	// Base64-encoded PNG data.
	Data string `json:"data"`
	// Width in pixels.
	Width int `json:"width"`
	// Height in pixels.
	Height int `json:"height"`
	// Model id that served the request.
	Model string `json:"model"`
}

// LoadRequest asks a capability to load a model.
type LoadRequest struct {
	// Model id from the registry.
	// example: tinyllama-q4.gguf
	Model string `json:"model" example:"tinyllama-q4.gguf"`
}

// ModelsResponse wraps the list of models returned by GET /models.
type ModelsResponse struct {
	// List of available models across all capabilities.
	Models []Model `json:"models"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// CapabilityStatus summarizes one capability slot for GET /status.
type CapabilityStatus struct {
	// Capability name.
	// example: llm
	Capability Capability `json:"capability" example:"llm"`
	// Lifecycle state: idle, loading, loaded or failed.
	// example: loaded
	State string `json:"state" example:"loaded"`
	// Id of the currently loaded model, if any.
	ResourceID string `json:"resource_id,omitempty"`
	// Total load attempts since process start.
	Attempts int64 `json:"load_attempts"`
	// Successful loads since process start.
	Successes int64 `json:"load_successes"`
	// Mean successful load duration in milliseconds.
	AvgLoadMs float64 `json:"avg_load_ms"`
	// Last load error observed, if any.
	LastError string `json:"last_error,omitempty"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Per-capability lifecycle status.
	Capabilities []CapabilityStatus `json:"capabilities"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	ServerTimeUnix int64 `json:"server_time_unix"`
}
