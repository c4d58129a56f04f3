package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// CapabilityConfig holds per-capability settings.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type CapabilityConfig struct {
	ModelsDir    string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	DefaultModel string `json:"default_model" yaml:"default_model" toml:"default_model"`
}

// CORSConfig controls cross-origin access to the HTTP API.
type CORSConfig struct {
	Enabled        bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins" toml:"allowed_origins"`
	AllowedMethods []string `json:"allowed_methods" yaml:"allowed_methods" toml:"allowed_methods"`
	AllowedHeaders []string `json:"allowed_headers" yaml:"allowed_headers" toml:"allowed_headers"`
}

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr         string `json:"addr" yaml:"addr" toml:"addr"`
	LogLevel     string `json:"log_level" yaml:"log_level" toml:"log_level"`
	MaxBodyBytes int64  `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`

	// Text backend tuning.
	CtxSize int `json:"ctx_size" yaml:"ctx_size" toml:"ctx_size"`
	Threads int `json:"threads" yaml:"threads" toml:"threads"`

	CORS CORSConfig `json:"cors" yaml:"cors" toml:"cors"`

	LLM       CapabilityConfig `json:"llm" yaml:"llm" toml:"llm"`
	STT       CapabilityConfig `json:"stt" yaml:"stt" toml:"stt"`
	TTS       CapabilityConfig `json:"tts" yaml:"tts" toml:"tts"`
	Diffusion CapabilityConfig `json:"diffusion" yaml:"diffusion" toml:"diffusion"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil { return cfg, err }
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil { return cfg, err }
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil { return cfg, err }
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
