package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type Authenticator interface {
	Middleware(next http.Handler) http.Handler
}

type Deps struct {
	Log            zerolog.Logger
	Auth           Authenticator
	Carts          CartService
	Reviews        ReviewService
	Products       ProductService
	RequestTimeout time.Duration
	ServiceName    string

	// Tracer and Propagator override the otel globals; nil means global.
	Tracer     trace.TracerProvider
	Propagator propagation.TextMapPropagator
}

func NewRouter(d Deps) http.Handler {
	cartHandler := NewCartHandler(d.Carts, d.RequestTimeout)
	reviewHandler := NewReviewHandler(d.Reviews, d.RequestTimeout)
	productHandler := NewProductHandler(d.Products, d.RequestTimeout)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger(d.Log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if d.ServiceName != "" {
		var opts []otelhttp.Option
		if d.Tracer != nil {
			opts = append(opts, otelhttp.WithTracerProvider(d.Tracer))
		}
		if d.Propagator != nil {
			opts = append(opts, otelhttp.WithPropagators(d.Propagator))
		}
		r.Use(Tracing(d.ServiceName, opts...))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(d.Auth.Middleware)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.Latest)
			r.Get("/search", productHandler.Search)
			r.Get("/categories", productHandler.Categories)
			r.Get("/featured", productHandler.Featured)
			r.Route("/{product}", func(r chi.Router) {
				r.Get("/", productHandler.GetBySlug)
				r.Get("/reviews", reviewHandler.List)
				r.Get("/reviews/mine", reviewHandler.Mine)
				r.Post("/reviews", reviewHandler.Upsert)
			})
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.Get)
			r.Delete("/", cartHandler.Clear)
			r.Post("/items", cartHandler.AddItem)
			r.Delete("/items/{product_id}", cartHandler.RemoveItem)
		})
	})

	return r
}
