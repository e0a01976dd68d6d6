/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request, echoed in the request log
  2. RealIP:     Client address from X-Forwarded-For / X-Real-IP
  3. Logger:     Structured request logging (zap)
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for the report viewer

  Upload endpoints are additionally rate limited per client (ratelimit.go).

ROUTE GROUPS:
  /health               Liveness and database check
  /metrics              Prometheus metrics
  /api/policy/*         Policy editor (active policy, versions, defaults)
  /api/uploads/*        Sales files, reports, adjustments, CSV export
  /api/samples/*        Built-in sample datasets
  /                     Endpoint index

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cli/serve.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RouterOptions carries the server settings the router needs.
type RouterOptions struct {
	AllowedOrigins []string

	// UploadsPerMinute limits file and sample uploads per client; 0 disables.
	UploadsPerMinute int
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	uploads := newUploadLimiter(opts.UploadsPerMinute)

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:     origins,
		AllowedMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:     []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:     []string{"Content-Disposition"},
		AllowCredentials:   false,
		MaxAge:             300,
		OptionsPassthrough: false,
	}))

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Policy editor
		r.Route("/policy", func(r chi.Router) {
			r.Get("/", h.GetPolicy)
			r.Put("/", h.UpdatePolicy)
			r.Delete("/", h.ResetPolicy)
			r.Get("/default", h.GetDefaultPolicy)
		})

		// Uploads and their reports
		r.Route("/uploads", func(r chi.Router) {
			r.Get("/", h.ListUploads)
			r.With(uploads.Middleware).Post("/", h.CreateUpload)
			r.Get("/{id}/report", h.GetReport)
			r.Put("/{id}/adjustments", h.SaveAdjustments)
			r.Get("/{id}/export.csv", h.ExportCSV)
		})

		// Sample datasets
		r.Route("/samples", func(r chi.Router) {
			r.Get("/", h.ListSamples)
			r.With(uploads.Middleware).Post("/load", h.LoadSample)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Commission Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Commission Engine API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/policy">/api/policy</a> - Active commission policy</li>
<li><a href="/api/policy/default">/api/policy/default</a> - Default policy</li>
<li><a href="/api/uploads">/api/uploads</a> - Uploaded sales files</li>
<li><a href="/api/samples">/api/samples</a> - Sample datasets</li>
<li><a href="/metrics">/metrics</a> - Prometheus metrics</li>
</ul>
</body>
</html>`))
	})

	return r
}

// requestLogger logs one line per request once the response is written.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				logger.Info("request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
