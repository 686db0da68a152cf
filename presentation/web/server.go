package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"feedback_automation/domain/interfaces"
	"feedback_automation/infrastructure/config"
	"feedback_automation/infrastructure/security"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Server is the HTTP front end of the feedback automation.
type Server struct {
	cfg      config.ServerConfig
	runner   interfaces.FeedbackRunner
	auth     interfaces.Authenticator
	sessions *security.SessionManager
	logger   *logrus.Logger
	limiter  *loginLimiter
	router   chi.Router
}

func NewServer(cfg config.ServerConfig, runner interfaces.FeedbackRunner, auth interfaces.Authenticator, sessions *security.SessionManager, logger *logrus.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		runner:   runner,
		auth:     auth,
		sessions: sessions,
		logger:   logger,
		limiter:  newLoginLimiter(cfg.LoginRate, cfg.LoginBurst),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.securityHeaders)
	r.Use(s.cors)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/login", s.handleLoginPage)
	r.Post("/login", s.handleLogin)
	r.Handle("/static/*", staticHandler())
	if s.cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/", s.handleDashboard)
		r.Get("/logout", s.handleLogout)
		r.Post("/run-automation", s.handleRunAutomation)
	})
	return r
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Addr() string {
	return s.cfg.Addr
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
		MaxHeaderBytes:    1 << 20,
	}

	serverErr := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", s.cfg.Addr).Info("serving feedback automation")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		timeout := s.cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		s.logger.Info("shutting down HTTP server")
		return httpServer.Shutdown(shutdownCtx)
	case err := <-serverErr:
		return err
	}
}
