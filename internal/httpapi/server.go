package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"llmapi/internal/chat"
	"llmapi/pkg/types"
)

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(MetricsMiddleware)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints; text/event-stream is not in chi's
	// default type list so SSE is passed through untouched.
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsOpts.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsOpts.Origins,
			AllowedMethods: corsOpts.Methods,
			AllowedHeaders: corsOpts.Headers,
			MaxAge:         300,
		}))
	}

	routes := func(r chi.Router) {
		r.Route("/v1/chat", func(r chi.Router) {
			r.Use(inflightMiddleware)
			r.Post("/", handleChat(svc))
			r.Post("/stream", handleStream(svc))
			r.Post("/benchmark", handleBenchmark(svc))
		})

		r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, svc.Status())
		})

		health := func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		}
		r.Get("/health", health)
		r.Get("/healthz", health)

		r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
			if svc.Ready() {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ready"))
				return
			}
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("loading"))
		})

		// Prometheus metrics endpoint
		r.Get("/metrics", promhttp.Handler().ServeHTTP)

		MountSwagger(r)
	}
	if rootPath != "" {
		r.Route(rootPath, routes)
	} else {
		routes(r)
	}
	return r
}

// decodeQuery validates the request envelope and converts the body into chat
// messages. It writes the error response itself and reports false on failure.
func decodeQuery(w http.ResponseWriter, r *http.Request) ([]chat.Message, bool) {
	// Content-Type check
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return nil, false
	}
	// Limit body size (configurable, default 1MiB)
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req types.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// Oversized bodies also land here; still 400 to avoid size leak details
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return nil, false
	}
	return toMessages(req), true
}

func toMessages(req types.QueryRequest) []chat.Message {
	if len(req.Messages) == 0 && strings.TrimSpace(req.Query) != "" {
		return []chat.Message{{Role: chat.RoleUser, Content: req.Query}}
	}
	out := make([]chat.Message, len(req.Messages))
	for i, m := range req.Messages {
		out[i] = chat.Message{Role: chat.Role(strings.ToLower(strings.TrimSpace(m.Role))), Content: m.Content}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// isRejected reports the token-budget outcome, which is answered, not failed.
func isRejected(err error) bool { return errors.Is(err, chat.ErrRejected) }
