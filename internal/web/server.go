package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/reliefops/reliefhub/internal/auth"
	"github.com/reliefops/reliefhub/internal/config"
	"github.com/reliefops/reliefhub/internal/database"
	"github.com/reliefops/reliefhub/internal/web/handlers"
	"github.com/reliefops/reliefhub/internal/web/middleware"
)

// requestTimeout bounds every handler
const requestTimeout = 60 * time.Second

var (
	staffRoles = []database.Role{database.RoleAdmin, database.RoleStaff}
	adminRoles = []database.Role{database.RoleAdmin}
)

// Server represents the web server
type Server struct {
	addr        string
	router      *chi.Mux
	sessions    *scs.SessionManager
	authService *auth.Service
	handlers    *handlers.Handlers
}

// NewServer creates a new web server. notifier receives relief alerts and may be nil.
func NewServer(db *database.DB, authService *auth.Service, sessions *scs.SessionManager, notifier handlers.Notifier, addr string) *Server {
	s := &Server{
		addr:        addr,
		router:      chi.NewRouter(),
		sessions:    sessions,
		authService: authService,
		handlers:    handlers.New(db, authService, notifier),
	}
	s.setupRoutes()
	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	r := s.router
	h := s.handlers

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(requestTimeout))
	r.Use(s.sessions.LoadAndSave)

	r.Get("/health", h.Health)

	// Public routes (no auth required)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/register", h.Register)
		r.Post("/logout", h.Logout)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RequireLogin(s.authService))

		r.Get("/me", h.Me)
		r.Post("/me/password", h.ChangePassword)

		r.Route("/disasters", func(r chi.Router) {
			r.Get("/", h.DisastersList)
			r.Get("/{id}", h.DisasterGet)
			r.Get("/{id}/statistics", h.DisasterStatistics)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(s.authService, staffRoles...))
				r.Post("/", h.DisasterCreate)
				r.Patch("/{id}", h.DisasterUpdate)
				r.Delete("/{id}", h.DisasterDelete)
			})
		})

		r.Route("/camps", func(r chi.Router) {
			r.Get("/", h.CampsList)
			r.Get("/statistics", h.CampStatistics)
			r.Get("/{id}", h.CampGet)
			r.Get("/{id}/resources", h.CampResources)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(s.authService, staffRoles...))
				r.Post("/", h.CampCreate)
				r.Patch("/{id}", h.CampUpdate)
				r.Delete("/{id}", h.CampDelete)
			})
		})

		r.Route("/donations", func(r chi.Router) {
			r.Post("/", h.DonationCreate)
			r.Get("/mine", h.DonationsMine)
			r.Get("/statistics", h.DonationStatistics)
			r.Get("/{id}", h.DonationGet)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(s.authService, staffRoles...))
				r.Get("/", h.DonationsList)
				r.Patch("/{id}", h.DonationUpdate)
				r.Put("/{id}/status", h.DonationUpdateStatus)
			})
			r.With(middleware.RequireRole(s.authService, adminRoles...)).Delete("/{id}", h.DonationDelete)
		})

		r.With(middleware.RequireRole(s.authService, staffRoles...)).Get("/dashboard", h.Dashboard)

		r.Route("/users", func(r chi.Router) {
			r.Use(middleware.RequireRole(s.authService, adminRoles...))
			r.Get("/", h.UsersList)
			r.Get("/statistics", h.UserStatistics)
			r.Get("/{id}", h.UserGet)
			r.Patch("/{id}", h.UserUpdate)
			r.Delete("/{id}", h.UserDelete)
		})
	})
}

// Start starts the web server and blocks until ctx is cancelled or the listener fails
func (s *Server) Start(ctx context.Context) error {
	timeouts := config.GetTimeouts()
	server := &http.Server{
		Addr:        s.addr,
		Handler:     s.router,
		ReadTimeout: timeouts.ServerRead,
		// WriteTimeout stays above the per-request timeout so handlers can answer 503 first
		WriteTimeout: requestTimeout + 5*time.Second,
		IdleTimeout:  timeouts.ServerIdle,
	}

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.addr).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}
