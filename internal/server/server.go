// Package server sets up the HTTP server, wires the dependency graph, and
// defines the routes.
//
// This is the composition root: main.go hands it a Config and everything
// else — database, services, handlers, middleware — is assembled here in
// one place.
//
// Dependency chain:
//
//	sqlite.DB → repositories → services → handlers → routes
//
// Each layer only receives what it needs: services get repository
// interfaces (not the concrete sqlite.DB), handlers get services.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/creationgoals/server/internal/auth"
	"github.com/creationgoals/server/internal/config"
	"github.com/creationgoals/server/internal/handler"
	"github.com/creationgoals/server/internal/middleware"
	sqliteRepo "github.com/creationgoals/server/internal/repository/sqlite"
	"github.com/creationgoals/server/internal/service"
)

// sessionPurgeInterval is how often expired sessions are swept from the
// store.
const sessionPurgeInterval = time.Hour

// Server holds the router and the resources it owns. The database
// connection is closed during graceful shutdown.
type Server struct {
	router   *chi.Mux
	config   *config.Config
	logger   *slog.Logger
	db       *sqliteRepo.DB
	sessions *service.SessionService
}

// New creates a Server: opens the database, builds the service and
// handler graph, and registers all routes.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes wires the dependency graph and maps routes to handlers.
//
// Route structure:
//
//	POST /auth/login                 → local email/password login
//	POST /auth/register              → local registration
//	POST /auth/logout                → destroy session
//	GET  /auth/{provider}            → redirect to OAuth provider
//	GET  /auth/{provider}/callback   → complete OAuth login
//	GET  /api/me                     → current user           (auth)
//	GET  /api/goals                  → list Public goals      (auth)
//	GET  /api/goals/search/{query}   → search Public goals    (auth)
//	POST /api/goals                  → create goal            (auth)
//	POST /api/goals/batch            → create several goals   (auth)
//	GET  /api/goals/{id}             → get goal               (optional auth)
//	GET  /api/goals/user/{userId}    → list a user's goals    (optional auth)
//	PUT  /api/goals/{id}             → update goal            (auth, owner)
//	DEL  /api/goals/{id}             → delete goal            (auth, owner)
//	GET  /api/users                  → list users             (auth)
//	GET  /api/users/{id}             → get user               (auth)
//	PUT  /api/users/{id}             → update profile         (auth, owner)
//	DEL  /api/users/{id}             → delete account         (auth, owner)
func (s *Server) setupRoutes() error {
	// Global middleware, in order: request id → real ip → panic recovery
	// → request logging.
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// Bearer tokens are optional: without JWT_SECRET the API is
	// session-cookie only.
	var tokens *auth.TokenService
	if s.config.JWTSecret != "" {
		var err error
		tokens, err = auth.NewTokenService(s.config.JWTSecret)
		if err != nil {
			return fmt.Errorf("creating token service: %w", err)
		}
	} else {
		s.logger.Warn("JWT_SECRET not set — bearer token auth is disabled")
	}

	var providers []auth.Provider
	if s.config.Google.Enabled() {
		providers = append(providers, auth.NewGoogleProvider(
			s.config.Google.ClientID,
			s.config.Google.ClientSecret,
			s.config.Google.CallbackURL,
		))
	}
	if s.config.GitHub.Enabled() {
		providers = append(providers, auth.NewGitHubProvider(
			s.config.GitHub.ClientID,
			s.config.GitHub.ClientSecret,
			s.config.GitHub.CallbackURL,
		))
	}
	if len(providers) == 0 {
		s.logger.Warn("no OAuth providers configured — only local login is available")
	}

	sessionTTL := time.Duration(s.config.SessionTTLHours) * time.Hour
	passwords := auth.NewPasswordService()

	authSvc := service.NewAuthService(s.db, passwords, s.logger)
	s.sessions = service.NewSessionService(s.db, s.db, tokens, sessionTTL, s.logger)
	goalSvc := service.NewGoalService(s.db, s.logger)
	userSvc := service.NewUserService(s.db, s.logger)

	authHandler := handler.NewAuthHandler(providers, authSvc, s.sessions, sessionTTL, s.logger)
	goalHandler := handler.NewGoalHandler(goalSvc, s.logger)
	userHandler := handler.NewUserHandler(userSvc, s.logger)

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/logout", authHandler.HandleLogout)
		for _, name := range authHandler.Providers() {
			r.Get("/"+name, authHandler.HandleOAuthLogin(name))
			r.Get("/"+name+"/callback", authHandler.HandleOAuthCallback(name))
		}
	})

	s.router.Route("/api", func(r chi.Router) {
		// Readable by anyone; owners additionally see their Private goals.
		r.Group(func(r chi.Router) {
			r.Use(auth.OptionalAuth(s.sessions))
			r.Get("/goals/{id}", goalHandler.HandleGetByID)
			r.Get("/goals/user/{userId}", goalHandler.HandleListByUser)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(s.sessions))
			r.Get("/me", authHandler.HandleMe)

			r.Get("/goals", goalHandler.HandleListPublic)
			r.Get("/goals/search/{query}", goalHandler.HandleSearchPublic)
			r.Post("/goals", goalHandler.HandleCreate)
			r.Post("/goals/batch", goalHandler.HandleCreateBatch)
			r.Put("/goals/{id}", goalHandler.HandleUpdate)
			r.Delete("/goals/{id}", goalHandler.HandleDelete)

			r.Get("/users", userHandler.HandleList)
			r.Get("/users/{id}", userHandler.HandleGetByID)
			r.Put("/users/{id}", userHandler.HandleUpdate)
			r.Delete("/users/{id}", userHandler.HandleDelete)
		})
	})

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, give in-flight requests 30
// seconds, close the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	// Sweep expired sessions in the background until shutdown.
	purgeCtx, stopPurge := context.WithCancel(context.Background())
	defer stopPurge()
	go s.purgeSessions(purgeCtx)

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// purgeSessions periodically removes expired sessions until ctx is done.
func (s *Server) purgeSessions(ctx context.Context) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.sessions.PurgeExpired(ctx); err != nil {
				s.logger.Error("session purge failed", slog.String("error", err.Error()))
			}
		}
	}
}
