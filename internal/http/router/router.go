package router

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"feedgate/internal/http/handler"
	"feedgate/internal/http/middleware"
	"feedgate/internal/http/response"
)

type Dependencies struct {
	AuthHandler      *handler.AuthHandler
	FeedHandler      *handler.FeedHandler
	Pages            *handler.PagesHandler
	EventBus         *handler.EventBusHandler
	Mediator         *middleware.Mediator
	ReadyCheck       func(ctx context.Context) error
	CORSOrigins      []string
	AuthRateLimitRPM int
	APIRateLimitRPM  int
	AssetDir         string
	LoginPage        string
	EnableOTelHTTP   bool
}

// NewRouter assembles the route table. Gates are attached per route
// group: register/login are public, the feeds API requires a bearer
// token, private pages require a session, and logout takes either.
func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.BodyLimit(1 << 20))

	authLimiter := middleware.NewRateLimiter(dep.AuthRateLimitRPM, time.Minute).Middleware()
	apiLimiter := middleware.NewRateLimiter(dep.APIRateLimitRPM, time.Minute).Middleware()

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.ReadyCheck != nil {
			if err := dep.ReadyCheck(r.Context()); err != nil {
				response.Error(w, r, http.StatusServiceUnavailable, "UNAVAILABLE", "a backing store is unavailable, retry later", nil)
				return
			}
		}
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
	})

	r.Route("/api", func(r chi.Router) {
		if len(dep.CORSOrigins) > 0 {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins:   dep.CORSOrigins,
				AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
				AllowedHeaders:   []string{"Authorization", "Content-Type"},
				AllowCredentials: true,
			}))
		}
		r.Use(apiLimiter)
		r.Use(middleware.RequireJSONContent)

		r.With(authLimiter).Post("/register", dep.AuthHandler.Register)
		r.With(authLimiter).Post("/login", dep.AuthHandler.Login)
		r.With(dep.Mediator.RequireIdentity()).Post("/logout", dep.AuthHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(dep.Mediator.RequireToken())
			r.Post("/feeds", dep.FeedHandler.Create)
			r.Get("/feeds", dep.FeedHandler.List)
			r.Get("/feeds/{feedID}", dep.FeedHandler.Retrieve)
			r.Put("/feeds/{feedID}", dep.FeedHandler.Update)
			r.Delete("/feeds/{feedID}", dep.FeedHandler.Delete)
			r.Get("/feeds/{feedID}/entries", dep.FeedHandler.Entries)
		})
	})

	r.With(dep.Mediator.RequireSession(dep.LoginPage)).Get("/private/*", dep.Pages.ServePrivate)
	r.With(dep.Mediator.RequireIdentity()).Get("/eventbus", dep.EventBus.Subscribe)

	if dep.AssetDir != "" {
		fileServer(r, "/assets", http.Dir(dep.AssetDir))
	}
	r.Get("/*", dep.Pages.ServePublic)

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}

func fileServer(r chi.Router, path string, root http.FileSystem) {
	fs := http.StripPrefix(path, http.FileServer(root))
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	r.Get(path+"*", func(w http.ResponseWriter, req *http.Request) {
		fs.ServeHTTP(w, req)
	})
}
