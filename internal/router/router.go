package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/parisxmas/lodgeforms/internal/auth"
	"github.com/parisxmas/lodgeforms/internal/handler"
	"github.com/parisxmas/lodgeforms/internal/metrics"
	mw "github.com/parisxmas/lodgeforms/internal/middleware"
	"github.com/parisxmas/lodgeforms/internal/repository"
	"github.com/parisxmas/lodgeforms/internal/service"
)

type Deps struct {
	Submissions *handler.SubmissionHandler
	Collections *handler.CollectionHandler
	Static      *handler.StaticHandler
	Auth        *handler.AuthHandler
	Health      *handler.HealthHandler
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
	// JWTSecret protects the collection endpoints when non-empty.
	JWTSecret string
}

func New(d Deps) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.CleanPath)
	r.Use(mw.Logger(d.Logger))
	r.Use(mw.Metrics(d.Metrics))
	r.Use(mw.Recovery(d.Logger))

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.NotFound)

	// Submissions
	r.Post(service.BookingPath, d.Submissions.Submit)
	r.Post(service.ContactPath, d.Submissions.Submit)

	// Collections
	r.Group(func(r chi.Router) {
		if d.JWTSecret != "" {
			r.Use(auth.Middleware(d.JWTSecret))
		}
		r.Get("/"+repository.BookingsCollection+".json", d.Collections.Serve(repository.BookingsCollection))
		r.Get("/"+repository.ContactsCollection+".json", d.Collections.Serve(repository.ContactsCollection))
	})

	// Admin
	r.Post("/admin/login", d.Auth.Login)
	r.Get("/admin", d.Static.File("admin.html"))

	// Ops
	r.Get("/healthz", d.Health.Healthz)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	// Static passthrough
	r.Get("/*", d.Static.Serve)

	return r
}
