package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"aihostd/internal/backend"
	"aihostd/internal/capability"
	"aihostd/internal/config"
	"aihostd/internal/httpapi"
	"aihostd/internal/lifecycle"
	"aihostd/internal/registry"
	"aihostd/internal/telemetry"
	"aihostd/pkg/types"
)

// options collects serve flags; config file values fill the gaps.
type options struct {
	addr       string
	configPath string
	logLevel   string

	llmDir       string
	sttDir       string
	ttsDir       string
	diffusionDir string

	defaultLLM       string
	defaultSTT       string
	defaultTTS       string
	defaultDiffusion string

	ctxSize int
	threads int
}

// logPublisher forwards lifecycle events to the structured logger.
type logPublisher struct {
	log zerolog.Logger
}

func (p logPublisher) Publish(ev lifecycle.Event) {
	z := p.log.Info().Str("event", ev.Name).Str("capability", ev.Capability)
	if ev.ResourceID != "" {
		z = z.Str("model", ev.ResourceID)
	}
	for k, v := range ev.Fields {
		z = z.Interface(k, v)
	}
	z.Msg("lifecycle")
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Str("service", "aihostd").Logger()
}

// merge applies config file values underneath any flags the user set.
func merge(opts *options, cfg config.Config, changed func(string) bool) {
	if !changed("addr") && cfg.Addr != "" {
		opts.addr = cfg.Addr
	}
	if !changed("log-level") && cfg.LogLevel != "" {
		opts.logLevel = cfg.LogLevel
	}
	if !changed("llm-dir") && cfg.LLM.ModelsDir != "" {
		opts.llmDir = cfg.LLM.ModelsDir
	}
	if !changed("stt-dir") && cfg.STT.ModelsDir != "" {
		opts.sttDir = cfg.STT.ModelsDir
	}
	if !changed("tts-dir") && cfg.TTS.ModelsDir != "" {
		opts.ttsDir = cfg.TTS.ModelsDir
	}
	if !changed("diffusion-dir") && cfg.Diffusion.ModelsDir != "" {
		opts.diffusionDir = cfg.Diffusion.ModelsDir
	}
	if !changed("default-llm") && cfg.LLM.DefaultModel != "" {
		opts.defaultLLM = cfg.LLM.DefaultModel
	}
	if !changed("default-stt") && cfg.STT.DefaultModel != "" {
		opts.defaultSTT = cfg.STT.DefaultModel
	}
	if !changed("default-tts") && cfg.TTS.DefaultModel != "" {
		opts.defaultTTS = cfg.TTS.DefaultModel
	}
	if !changed("default-diffusion") && cfg.Diffusion.DefaultModel != "" {
		opts.defaultDiffusion = cfg.Diffusion.DefaultModel
	}
	if !changed("ctx-size") && cfg.CtxSize != 0 {
		opts.ctxSize = cfg.CtxSize
	}
	if !changed("threads") && cfg.Threads != 0 {
		opts.threads = cfg.Threads
	}
}

func buildRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "aihostd",
		Short:         "On-device AI capability host: LLM, STT, TTS and diffusion over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	defaultAddr := ":8080"
	if v := os.Getenv("AIHOSTD_ADDR"); v != "" {
		defaultAddr = v
	}
	f := root.PersistentFlags()
	f.StringVar(&opts.addr, "addr", defaultAddr, "HTTP listen address, e.g. :8080")
	f.StringVar(&opts.configPath, "config", "", "Config file (.yaml, .json or .toml)")
	f.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug|info|warn|error")
	f.StringVar(&opts.llmDir, "llm-dir", "~/models/llm", "Directory to scan for text models")
	f.StringVar(&opts.sttDir, "stt-dir", "", "Directory to scan for speech-to-text models")
	f.StringVar(&opts.ttsDir, "tts-dir", "", "Directory to scan for text-to-speech models")
	f.StringVar(&opts.diffusionDir, "diffusion-dir", "", "Directory to scan for diffusion models")
	f.StringVar(&opts.defaultLLM, "default-llm", "", "Text model to load at startup")
	f.StringVar(&opts.defaultSTT, "default-stt", "", "Speech-to-text model to load at startup")
	f.StringVar(&opts.defaultTTS, "default-tts", "", "Text-to-speech model to load at startup")
	f.StringVar(&opts.defaultDiffusion, "default-diffusion", "", "Diffusion model to load at startup")
	f.IntVar(&opts.ctxSize, "ctx-size", 0, "Text model context size (0=default)")
	f.IntVar(&opts.threads, "threads", 0, "Text backend threads (0=default)")

	models := &cobra.Command{
		Use:   "models",
		Short: "List discoverable models and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadRegistry(cmd, opts)
			if err != nil {
				return err
			}
			for _, m := range reg.List() {
				cmd.Printf("%-12s %s\n", m.Capability, m.ID)
			}
			return nil
		},
	}
	root.AddCommand(models)

	return root
}

// flagChanged reports whether the user set a flag, local or inherited.
func flagChanged(cmd *cobra.Command, name string) bool {
	if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
		return true
	}
	if f := cmd.InheritedFlags().Lookup(name); f != nil && f.Changed {
		return true
	}
	return false
}

func loadRegistry(cmd *cobra.Command, opts *options) (*registry.Registry, error) {
	if opts.configPath != "" {
		cfg, err := config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		merge(opts, cfg, func(name string) bool { return flagChanged(cmd, name) })
	}
	return registry.LoadDirs(map[types.Capability]string{
		types.CapabilityLLM:       opts.llmDir,
		types.CapabilitySTT:       opts.sttDir,
		types.CapabilityTTS:       opts.ttsDir,
		types.CapabilityDiffusion: opts.diffusionDir,
	})
}

func runServe(cmd *cobra.Command, opts *options) error {
	var fileCfg config.Config
	if opts.configPath != "" {
		cfg, err := config.Load(opts.configPath)
		if err != nil {
			return err
		}
		fileCfg = cfg
		merge(opts, cfg, func(name string) bool { return flagChanged(cmd, name) })
	}

	logger := newLogger(opts.logLevel)
	httpapi.SetLogger(logger)
	if fileCfg.MaxBodyBytes > 0 {
		httpapi.SetMaxBodyBytes(fileCfg.MaxBodyBytes)
	}
	if fileCfg.CORS.Enabled {
		httpapi.SetCORSOptions(true, fileCfg.CORS.AllowedOrigins, fileCfg.CORS.AllowedMethods, fileCfg.CORS.AllowedHeaders)
	}

	reg, err := registry.LoadDirs(map[types.Capability]string{
		types.CapabilityLLM:       opts.llmDir,
		types.CapabilitySTT:       opts.sttDir,
		types.CapabilityTTS:       opts.ttsDir,
		types.CapabilityDiffusion: opts.diffusionDir,
	})
	if err != nil {
		return err
	}
	logger.Info().Int("models", len(reg.List())).Bool("llama", backend.LlamaBuilt()).Msg("registry loaded")

	rec := telemetry.NewLogRecorder(logger)
	pub := logPublisher{log: logger}

	llm := capability.NewLLM(reg, rec, pub, nil)
	llm.Configure(backend.TextConfig{CtxSize: opts.ctxSize, Threads: opts.threads})
	stt := capability.NewSTT(reg, rec, pub, nil)
	tts := capability.NewTTS(reg, rec, pub, nil)
	diffusion := capability.NewDiffusion(reg, rec, pub, nil)

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)

	mux := httpapi.NewMux(httpapi.Services{
		LLM:       llm,
		STT:       stt,
		TTS:       tts,
		Diffusion: diffusion,
	})
	srv := &http.Server{Addr: opts.addr, Handler: mux}

	// Warm default models in the background; failures are logged, not fatal.
	warm := []struct {
		id   string
		slot interface {
			Load(ctx context.Context, modelID string) error
		}
	}{
		{opts.defaultLLM, llm},
		{opts.defaultSTT, stt},
		{opts.defaultTTS, tts},
		{opts.defaultDiffusion, diffusion},
	}
	for _, w := range warm {
		if w.id == "" {
			continue
		}
		go func(id string, slot interface {
			Load(ctx context.Context, modelID string) error
		}) {
			if err := slot.Load(baseCtx, id); err != nil {
				logger.Warn().Err(err).Str("model", id).Msg("startup load failed")
			}
		}(w.id, w.slot)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", opts.addr).Msg("aihostd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-stop:
	}
	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("graceful shutdown error")
	}
	for _, c := range []interface{ Reset() }{llm, stt, tts, diffusion} {
		c.Reset()
	}
	logger.Info().Msg("aihostd stopped")
	return nil
}

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		logger := newLogger("info")
		logger.Fatal().Err(err).Msg("aihostd failed")
	}
}
