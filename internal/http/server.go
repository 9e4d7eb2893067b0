package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/Clark-Hu/cinerate/internal/auth"
	"github.com/Clark-Hu/cinerate/internal/config"
	"github.com/Clark-Hu/cinerate/internal/metrics"
	"github.com/Clark-Hu/cinerate/internal/repository"
	"github.com/Clark-Hu/cinerate/internal/service"
	"github.com/Clark-Hu/cinerate/internal/store"
)

// Server wires HTTP routing, middleware, and handlers.
type Server struct {
	cfg         config.Config
	store       *store.Store
	repo        *repository.Repository
	evaluations *service.EvaluationService
	accounts    *service.AccountService
	tokens      *auth.TokenIssuer
	validate    *validator.Validate
	limiter     *rateLimiter
	logger      *logrus.Logger
	router      chi.Router
	httpSrv     *http.Server
}

// New constructs the HTTP server with base middleware and routes.
func New(cfg config.Config, st *store.Store, repo *repository.Repository, tokens *auth.TokenIssuer, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(instrument)

	s := &Server{
		cfg:         cfg,
		store:       st,
		repo:        repo,
		evaluations: service.NewEvaluationService(repo.Evaluations, repo.Movies),
		accounts:    service.NewAccountService(repo.Users, auth.NewPasswordHasher(cfg.BcryptCost), tokens),
		tokens:      tokens,
		validate:    newValidator(),
		limiter:     newRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger),
		logger:      logger,
		router:      r,
	}
	s.registerRoutes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Handle("/metrics", metrics.Handler())

	s.router.Route("/auth", func(r chi.Router) {
		r.With(s.limiter.Handler).Post("/register", s.handleRegister)
		r.With(s.limiter.Handler).Post("/login", s.handleLogin)
		r.With(s.requireAuth).Post("/logout", s.handleLogout)
	})

	s.router.Route("/users", func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/", s.handleListUsers)
		r.Route("/{userId}", func(r chi.Router) {
			r.Get("/", s.handleGetUser)
			r.With(s.limiter.Handler).Put("/", s.handleUpdateUser)
			r.With(s.limiter.Handler).Delete("/", s.handleDeleteUser)
		})
	})

	s.router.Route("/movies", func(r chi.Router) {
		r.Get("/", s.handleListMovies)
		r.Get("/top/rated", s.handleTopRated)
		r.Get("/evaluations/{evaluationId}", s.handleGetEvaluation)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Use(s.limiter.Handler)
			r.Post("/", s.handleCreateMovie)
			r.Post("/evaluate", s.handleEvaluate)
			r.Post("/evaluate-many", s.handleEvaluateMany)
			r.Delete("/evaluations/{evaluationId}", s.handleDeleteEvaluation)
		})
		r.With(s.requireAuth).Get("/user/evaluations", s.handleListUserEvaluations)

		r.Route("/{movieId}", func(r chi.Router) {
			r.Get("/", s.handleGetMovie)
			r.Get("/evaluations", s.handleListMovieEvaluations)
			r.Get("/statistics", s.handleMovieStatistics)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)
				r.Get("/evaluation", s.handleGetOwnEvaluation)
				r.With(s.limiter.Handler).Delete("/evaluation", s.handleDeleteOwnEvaluation)
				r.With(s.limiter.Handler).Put("/", s.handleUpdateMovie)
				r.With(s.limiter.Handler).Delete("/", s.handleDeleteMovie)
			})
		})
	})
}

// Start boots the HTTP server and blocks until ctx is cancelled or the
// listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeoutSecs) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", s.httpSrv.Addr).Info("http: listening")
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			s.logger.WithError(err).Warn("http: shutdown")
		}
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if s.store == nil {
		s.respondError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "store not configured")
		return
	}
	if err := s.store.HealthCheck(ctx); err != nil {
		s.logger.WithError(err).Warn("health check failed")
		s.respondError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "database unreachable")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
