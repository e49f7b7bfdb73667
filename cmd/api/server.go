package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/PaulBabatuyi/dog-adoption-api/internal/adoption"
	"github.com/PaulBabatuyi/dog-adoption-api/internal/apperr"
	"github.com/PaulBabatuyi/dog-adoption-api/internal/auth"
	"github.com/PaulBabatuyi/dog-adoption-api/internal/identity"
	"github.com/PaulBabatuyi/dog-adoption-api/internal/logger"
	"github.com/PaulBabatuyi/dog-adoption-api/internal/middleware"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the HTTP handlers and the services behind them.
type Server struct {
	users *identity.Service
	dogs  *adoption.Engine
	guard *auth.Guard
	store pinger
	log   *zap.Logger
	opts  routerOptions
}

// routerOptions carries the transport settings of the router.
type routerOptions struct {
	AppEnv string
	// Production hides internal error detail from responses.
	Production bool
	// TrustProxy takes the client address from X-Forwarded-For and
	// X-Real-IP. Only enable it behind a proxy that overwrites them, since
	// the rate limiters key on that address.
	TrustProxy bool

	AllowedOrigins []string
	BodyLimit      int64
	// APILimiter applies to every /api route, AuthLimiter additionally to
	// register and login. Either may be nil.
	APILimiter  *middleware.LimiterStore
	AuthLimiter *middleware.LimiterStore
	Stats       middleware.StatsRecorder
}

// newServer returns a ready-to-use Server wired with services and guard.
func newServer(users *identity.Service, dogs *adoption.Engine, guard *auth.Guard, store pinger, log *zap.Logger, opts routerOptions) *Server {
	return &Server{
		users: users,
		dogs:  dogs,
		guard: guard,
		store: store,
		log:   log,
		opts:  opts,
	}
}

// routes builds the HTTP handler.
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	if s.opts.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(logger.Middleware(s.log))
	r.Use(chimw.Recoverer)
	r.Use(securityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if s.opts.BodyLimit > 0 {
		r.Use(chimw.RequestSize(s.opts.BodyLimit))
	}

	r.NotFound(s.handleNotFound)
	r.MethodNotAllowed(s.handleMethodNotAllowed)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.rateLimit(s.opts.APILimiter, "api:"))

		r.Route("/auth", func(r chi.Router) {
			r.Use(s.rateLimit(s.opts.AuthLimiter, "auth:"))
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
		})

		r.Route("/dogs", func(r chi.Router) {
			r.Get("/", s.handleListDogs)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)
				r.Post("/", s.handleCreateDog)
				r.Get("/registered", s.handleListRegistered)
				r.Get("/adopted", s.handleListAdopted)
				r.Put("/{id}/adopt", s.handleAdoptDog)
				r.Delete("/{id}", s.handleRemoveDog)
			})

			r.Get("/{id}", s.handleGetDog)
		})
	})

	return r
}

func (s *Server) rateLimit(store *middleware.LimiterStore, prefix string) func(http.Handler) http.Handler {
	if store == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.RateLimit(middleware.Options{
		Store:  store,
		Stats:  s.opts.Stats,
		Prefix: prefix,
		Reject: func(w http.ResponseWriter, r *http.Request, _ time.Duration) {
			s.fail(w, r, apperr.New(apperr.KindRateLimited, apperr.CodeRateLimited,
				"Too many requests from this IP, please try again later."))
		},
		OnStatsError: func(err error) {
			s.log.Warn("record rate limit stats", zap.Error(err))
		},
	})
}
