package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"filmgen/internal/http/handlers"
	"filmgen/internal/infra"
	"filmgen/internal/metrics"
	"filmgen/internal/middleware"
)

// Deps carries everything the router mounts besides the handlers.
type Deps struct {
	Logger          *infra.Logger
	Metrics         *metrics.Collector
	AllowedOrigins  []string
	RateLimitPerMin int
	// Static serves persisted media under /static when set.
	Static http.Handler
}

func NewRouter(app *handlers.App, deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(deps.Logger),
		cors.Handler(cors.Options{
			AllowedOrigins: deps.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", middleware.RequestIDHeader},
			ExposedHeaders: []string{middleware.RequestIDHeader, "Retry-After"},
			MaxAge:         300,
		}),
		middleware.Telemetry,
		middleware.Metrics(deps.Metrics),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/readyz", app.Ready)
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}
	if deps.Static != nil {
		r.Method(http.MethodGet, "/static/*", http.StripPrefix("/static/", deps.Static))
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(deps.RateLimitPerMin, time.Minute))
		r.Post("/v1/generate/image", app.GenerateImage)
		r.Post("/v1/generate/video", app.GenerateVideo)
		r.Post("/v1/analyze", app.Analyze)
		r.Post("/v1/breakdown", app.Breakdown)
	})

	return r
}
