package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/user/photo-gallery/internal/delivery/http/handler"
	"github.com/user/photo-gallery/internal/delivery/http/middleware"
)

// Options configures routes that depend on deployment.
type Options struct {
	// PreviewDir, when set, is served read-only under /preview/.
	PreviewDir string
	// GenerateTimeout bounds a single generation request.
	GenerateTimeout time.Duration
}

func New(h *handler.Handler, opts Options, logger *zap.Logger) http.Handler {
	if opts.GenerateTimeout <= 0 {
		opts.GenerateTimeout = 10 * time.Minute
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HandleHealthCheck)
		r.With(chimw.Timeout(opts.GenerateTimeout)).Post("/galleries", h.HandleGenerate)
		r.Get("/runs", h.HandleListRuns)
		r.Get("/runs/{id}", h.HandleGetRun)
	})

	if opts.PreviewDir != "" {
		fs := http.StripPrefix("/preview/", http.FileServer(http.Dir(opts.PreviewDir)))
		r.Get("/preview", http.RedirectHandler("/preview/", http.StatusMovedPermanently).ServeHTTP)
		r.Get("/preview/*", fs.ServeHTTP)
	}

	return r
}
