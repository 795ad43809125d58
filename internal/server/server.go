package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sarf14/onboarding-tool-sub001/config"
	"github.com/sarf14/onboarding-tool-sub001/internal/curriculum"
	"github.com/sarf14/onboarding-tool-sub001/internal/db"
	"github.com/sarf14/onboarding-tool-sub001/internal/handlers"
	"github.com/sarf14/onboarding-tool-sub001/internal/mq"
	"github.com/sarf14/onboarding-tool-sub001/internal/services"
	"github.com/sarf14/onboarding-tool-sub001/internal/storage"
	"github.com/sarf14/onboarding-tool-sub001/internal/store"
)

// App is the set of services exposed over HTTP.
type App struct {
	Sessions *services.SessionIssuer
	Users    *services.UserService
	Progress *services.ProgressTracker
	Content  *services.ContentService
	Logger   *slog.Logger
}

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	bus        *mq.MQ
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	program, err := curriculum.Load(cfg.Program.CurriculumFile, cfg.Program.Days)
	if err != nil {
		return nil, err
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	objects, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	var contentStore services.ContentStore
	if objects != nil {
		contentStore = objects
	} else {
		logger.Info("content storage disabled")
	}

	bus, err := mq.Open(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	var events services.EventPublisher
	if bus != nil {
		events = bus
	} else {
		logger.Info("progress events disabled")
	}

	userRepo := store.NewUserRepository(dbConn)
	progressRepo := store.NewProgressRepository(dbConn)
	revocations := store.NewRevocationRepository(dbConn)

	sessions, err := services.NewSessionIssuer(userRepo, revocations, cfg.Auth.JWTSecret,
		services.WithTokenTTL(cfg.Auth.TokenTTL),
	)
	if err != nil {
		_ = dbConn.Close()
		if bus != nil {
			_ = bus.Close()
		}
		return nil, err
	}

	router := NewRouter(App{
		Sessions: sessions,
		Users:    services.NewUserService(userRepo),
		Progress: services.NewProgressTracker(userRepo, progressRepo, program, events, cfg.MQ.ProgressChannel, logger),
		Content:  services.NewContentService(contentStore, program.Len()),
		Logger:   logger,
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		bus:        bus,
	}, nil
}

// NewRouter builds the HTTP routes for app.
func NewRouter(app App) *chi.Mux {
	logger := app.Logger
	if logger == nil {
		logger = slog.Default()
	}
	authMiddleware := handlers.RequireAuth(app.Sessions, logger)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, app.Sessions, app.Users, logger)
	})
	router.Route("/progress", func(r chi.Router) {
		handlers.ProgressRouter(r, app.Progress, logger, authMiddleware)
	})
	router.Route("/mentor", func(r chi.Router) {
		handlers.MentorRouter(r, app.Progress, logger, authMiddleware)
	})
	router.Route("/content", func(r chi.Router) {
		handlers.ContentRouter(r, app.Content, logger, authMiddleware)
	})
	router.Route("/users", func(r chi.Router) {
		handlers.UserRouter(r, app.Users, logger, authMiddleware)
	})
	router.Route("/admin", func(r chi.Router) {
		handlers.AdminRouter(r, app.Users, logger, authMiddleware)
	})
	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests, then releases the database and broker.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.bus != nil {
		_ = s.bus.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}
