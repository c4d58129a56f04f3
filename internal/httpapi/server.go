package httpapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"aihostd/internal/lifecycle"
	"aihostd/pkg/types"
)

// LLMService is the text generation surface required by the HTTP layer.
type LLMService interface {
	Load(ctx context.Context, modelID string) error
	Unload()
	Models() []types.Model
	Status() types.CapabilityStatus
	Generate(ctx context.Context, req types.GenerateRequest, w io.Writer, flush func()) (types.GenerateResult, error)
}

// STTService is the speech-to-text surface required by the HTTP layer.
type STTService interface {
	Load(ctx context.Context, modelID string) error
	Unload()
	Models() []types.Model
	Status() types.CapabilityStatus
	Transcribe(ctx context.Context, audio []byte, req types.TranscribeRequest) (types.Transcription, error)
}

// TTSService is the text-to-speech surface required by the HTTP layer.
type TTSService interface {
	Load(ctx context.Context, modelID string) error
	Unload()
	Models() []types.Model
	Status() types.CapabilityStatus
	Synthesize(ctx context.Context, req types.SynthesizeRequest) (types.Audio, error)
}

// DiffusionService is the image generation surface required by the HTTP layer.
type DiffusionService interface {
	Load(ctx context.Context, modelID string) error
	Unload()
	Models() []types.Model
	Status() types.CapabilityStatus
	GenerateImage(ctx context.Context, req types.ImageRequest) (types.Image, error)
}

// capabilitySlot is the lifecycle surface shared by every capability service.
type capabilitySlot interface {
	Load(ctx context.Context, modelID string) error
	Unload()
	Models() []types.Model
	Status() types.CapabilityStatus
}

// Services bundles the capability services the mux routes to. Nil entries are
// allowed; their routes respond 404.
type Services struct {
	LLM       LLMService
	STT       STTService
	TTS       TTSService
	Diffusion DiffusionService
}

func (s Services) slots() map[string]capabilitySlot {
	out := make(map[string]capabilitySlot, 4)
	if s.LLM != nil {
		out["llm"] = s.LLM
	}
	if s.STT != nil {
		out["stt"] = s.STT
	}
	if s.TTS != nil {
		out["tts"] = s.TTS
	}
	if s.Diffusion != nil {
		out["diffusion"] = s.Diffusion
	}
	return out
}

// joinContexts returns a context that is canceled when either a or b is done.
// The returned cancel func must be called to release the goroutine when handler ends.
func joinContexts(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-a.Done():
			cancel()
		case <-b.Done():
			cancel()
		}
	}()
	return ctx, cancel
}

// serverBaseCtx is a process-level context that can be canceled on shutdown.
// Defaults to Background if not set.
var serverBaseCtx = context.Background()

// SetBaseContext sets the process-level base context used by handlers.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		serverBaseCtx = context.Background()
		return
	}
	serverBaseCtx = ctx
}

var startedAt = time.Now()

// decodeJSON validates the content type, limits the body and decodes into v.
// It writes the error response itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// MaxBytesReader failures land here too; keep the message generic.
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
	}
}

func logRequestEnd(r *http.Request, status int, start time.Time, err error) {
	if requestLogLevel(r) < LevelInfo || zlog == nil {
		return
	}
	z := zlog.Info().Str("path", r.URL.Path).Int("status", status).Dur("dur", time.Since(start))
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		z = z.Str("request_id", rid)
	}
	if err != nil {
		z = z.Err(err)
	}
	z.Msg("request end")
}

func NewMux(svc Services) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}
	r.Use(MetricsMiddleware)

	slots := svc.slots()

	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		var models []types.Model
		for _, name := range []string{"llm", "stt", "tts", "diffusion"} {
			if slot, ok := slots[name]; ok {
				models = append(models, slot.Models()...)
			}
		}
		writeJSON(w, types.ModelsResponse{Models: models})
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		resp := types.StatusResponse{
			UptimeSeconds:  int64(time.Since(startedAt).Seconds()),
			ServerTimeUnix: time.Now().Unix(),
		}
		for _, name := range []string{"llm", "stt", "tts", "diffusion"} {
			if slot, ok := slots[name]; ok {
				resp.Capabilities = append(resp.Capabilities, slot.Status())
			}
		}
		writeJSON(w, resp)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		for _, slot := range slots {
			if slot.Status().State == string(lifecycle.StateLoaded) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ready"))
				return
			}
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	// Per-capability lifecycle routes.
	for name, slot := range slots {
		slot := slot
		r.Post("/v1/"+name+"/load", func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			var req types.LoadRequest
			if !decodeJSON(w, r, &req) {
				return
			}
			if strings.TrimSpace(req.Model) == "" {
				writeJSONError(w, http.StatusBadRequest, "model is required")
				return
			}
			ctx, cancel := joinContexts(serverBaseCtx, r.Context())
			defer cancel()
			if err := slot.Load(ctx, req.Model); err != nil {
				if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
					return
				}
				status := statusForError(err)
				writeJSONError(w, status, err.Error())
				logRequestEnd(r, status, start, err)
				return
			}
			writeJSON(w, slot.Status())
			logRequestEnd(r, http.StatusOK, start, nil)
		})
		r.Post("/v1/"+name+"/unload", func(w http.ResponseWriter, r *http.Request) {
			slot.Unload()
			w.WriteHeader(http.StatusNoContent)
		})
	}

	if svc.LLM != nil {
		r.Post("/v1/llm/generate", func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			var req types.GenerateRequest
			if !decodeJSON(w, r, &req) {
				return
			}
			if strings.TrimSpace(req.Prompt) == "" {
				writeJSONError(w, http.StatusBadRequest, "prompt is required")
				return
			}
			ctx, cancel := joinContexts(serverBaseCtx, r.Context())
			defer cancel()
			if req.Stream {
				w.Header().Set("Content-Type", "application/x-ndjson")
				var flush func()
				if f, ok := w.(http.Flusher); ok {
					flush = f.Flush
				}
				if _, err := svc.LLM.Generate(ctx, req, w, flush); err != nil {
					// Headers may be out already; a JSON error is best effort.
					if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
						return
					}
					status := statusForError(err)
					writeJSONError(w, status, err.Error())
					logRequestEnd(r, status, start, err)
					return
				}
				logRequestEnd(r, http.StatusOK, start, nil)
				return
			}
			res, err := svc.LLM.Generate(ctx, req, nil, nil)
			if err != nil {
				if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
					return
				}
				status := statusForError(err)
				writeJSONError(w, status, err.Error())
				logRequestEnd(r, status, start, err)
				return
			}
			writeJSON(w, res)
			logRequestEnd(r, http.StatusOK, start, nil)
		})
	}

	if svc.STT != nil {
		r.Post("/v1/stt/transcribe", func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			var req types.TranscribeRequest
			if !decodeJSON(w, r, &req) {
				return
			}
			if req.Audio == "" {
				writeJSONError(w, http.StatusBadRequest, "audio is required")
				return
			}
			audio, err := base64.StdEncoding.DecodeString(req.Audio)
			if err != nil {
				writeJSONError(w, http.StatusBadRequest, "audio must be base64")
				return
			}
			ctx, cancel := joinContexts(serverBaseCtx, r.Context())
			defer cancel()
			tr, err := svc.STT.Transcribe(ctx, audio, req)
			if err != nil {
				status := statusForError(err)
				writeJSONError(w, status, err.Error())
				logRequestEnd(r, status, start, err)
				return
			}
			writeJSON(w, tr)
			logRequestEnd(r, http.StatusOK, start, nil)
		})
	}

	if svc.TTS != nil {
		r.Post("/v1/tts/synthesize", func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			var req types.SynthesizeRequest
			if !decodeJSON(w, r, &req) {
				return
			}
			if strings.TrimSpace(req.Text) == "" {
				writeJSONError(w, http.StatusBadRequest, "text is required")
				return
			}
			ctx, cancel := joinContexts(serverBaseCtx, r.Context())
			defer cancel()
			audio, err := svc.TTS.Synthesize(ctx, req)
			if err != nil {
				status := statusForError(err)
				writeJSONError(w, status, err.Error())
				logRequestEnd(r, status, start, err)
				return
			}
			writeJSON(w, audio)
			logRequestEnd(r, http.StatusOK, start, nil)
		})
	}

	if svc.Diffusion != nil {
		r.Post("/v1/diffusion/images", func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			var req types.ImageRequest
			if !decodeJSON(w, r, &req) {
				return
			}
			if strings.TrimSpace(req.Prompt) == "" {
				writeJSONError(w, http.StatusBadRequest, "prompt is required")
				return
			}
			ctx, cancel := joinContexts(serverBaseCtx, r.Context())
			defer cancel()
			img, err := svc.Diffusion.GenerateImage(ctx, req)
			if err != nil {
				status := statusForError(err)
				writeJSONError(w, status, err.Error())
				logRequestEnd(r, status, start, err)
				return
			}
			writeJSON(w, img)
			logRequestEnd(r, http.StatusOK, start, nil)
		})
	}

	MountSwagger(r)

	return r
}
