// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects stores, services,
// handlers, middleware, and routes, and decides:
//   - Which URL patterns map to which handler functions
//   - Which routes need a logged-in user
//   - How the server starts and stops gracefully
//
// WHY SEPARATE FROM main.go?
// Keeping server setup in its own package makes it testable: server_test.go
// builds the full stack on a temp database and drives it over real HTTP
// without running main.
//
// DEPENDENCY INJECTION FLOW:
//
//	main.go: config.Load() → server.New(cfg, logger)
//	server.New creates:
//	  sqlite.DB (users, questions, answers, vocabulary, sessions)
//	  optional Redis client → redis.SessionStore (replaces SQLite sessions)
//	  AuthService, ContentService, SearchService
//	  AuthHandler, ForumHandler, APIHandler
//
// This is the "composition root" pattern: all dependencies are wired in one
// place instead of being scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	goredis "github.com/redis/go-redis/v9"

	"github.com/sakif/qa-forum/internal/auth"
	"github.com/sakif/qa-forum/internal/config"
	"github.com/sakif/qa-forum/internal/handler"
	"github.com/sakif/qa-forum/internal/middleware"
	"github.com/sakif/qa-forum/internal/repository"
	redisRepo "github.com/sakif/qa-forum/internal/repository/redis"
	sqliteRepo "github.com/sakif/qa-forum/internal/repository/sqlite"
	"github.com/sakif/qa-forum/internal/service"
	"github.com/sakif/qa-forum/web"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection and, when configured, the Redis
// client. Close releases both; Start calls it during graceful shutdown.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	redis  *goredis.Client // nil when sessions live in SQLite
}

// New opens the stores, seeds the category/tag vocabulary, and builds the
// router.
//
// IMPORT ALIASES:
// repository/sqlite and repository/redis are imported as sqliteRepo and
// redisRepo so they don't collide with the driver packages of the same name.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	// === CREATE DATABASE ===
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

	// === CHOOSE SESSION STORE ===
	// SQLite holds sessions by default. With REDIS_ADDR set they move to
	// Redis, where each key expires with its session.
	var sessions repository.SessionRepository = db
	if cfg.RedisAddr != "" {
		client, err := connectRedis(cfg)
		if err != nil {
			db.Close()
			return nil, err
		}
		s.redis = client
		sessions = redisRepo.NewSessionStore(client, redisRepo.DefaultPrefix)
		logger.Info("using redis session store", slog.String("addr", cfg.RedisAddr))
	}

	if err := s.setupRoutes(sessions); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// connectRedis creates a client and checks the server answers before the
// HTTP server starts taking logins.
func connectRedis(cfg *config.Config) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.RedisAddr, err)
	}
	return client, nil
}

// setupRoutes wires services to handlers and handlers to routes.
//
// ROUTE STRUCTURE:
//
//	GET       /                     → question list (HTML)
//	GET,POST  /register             → registration form
//	GET,POST  /login                → login form, sets the session cookie
//	POST      /logout               → revokes the session, clears the cookie
//	GET       /question/{id}        → question with answers
//	GET       /search?q=            → title search
//	GET       /dashboard/{userId}   → [auth] user + all questions
//	GET,POST  /question/new         → [auth] ask a question
//	GET,POST  /answer/new           → [auth] answer a question
//	GET       /static/*             → embedded stylesheet
//	GET       /healthz              → store ping (JSON)
//	GET       /api/questions        → question list (JSON)
//	GET       /api/questions/{id}   → question detail (JSON)
//	GET       /api/search?q=        → title search (JSON)
//	GET       /api/me               → [auth, 401 JSON] current user
//
// MIDDLEWARE ORDER MATTERS:
// Middleware executes in the order it's added:
//  1. RequestID: assigns a unique ID to each request (for tracing)
//  2. RealIP: extracts the real client IP from proxy headers
//  3. Recoverer: catches panics and returns 500 instead of crashing
//  4. Logger: logs each request with timing info
//
// Auth middleware is applied per group with r.Group, so public and
// protected routes share one router.
func (s *Server) setupRoutes(sessions repository.SessionRepository) error {
	// === Services ===
	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	authService := service.NewAuthService(s.db, sessions, tokens, auth.NewPasswordService(), s.config.SessionTTL, s.logger)
	contentService := service.NewContentService(s.db, s.db, s.db, s.db, s.logger)
	searchService := service.NewSearchService(s.db, s.logger)

	s.seedVocabulary(contentService)

	// === Handlers ===
	renderer, err := handler.NewTemplateRenderer(web.Templates())
	if err != nil {
		return fmt.Errorf("parsing templates: %w", err)
	}

	authHandler := handler.NewAuthHandler(authService, renderer, s.config.CookieSecure, s.logger)
	forumHandler := handler.NewForumHandler(contentService, searchService, renderer, s.logger)

	pingers := []handler.Pinger{s.db}
	if s.redis != nil {
		pingers = append(pingers, redisPinger{s.redis})
	}
	apiHandler := handler.NewAPIHandler(contentService, searchService, authService, s.logger, pingers...)

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	s.router.NotFound(forumHandler.NotFound)

	// === Static Files ===
	// http.StripPrefix removes "/static/" before the lookup, so
	// GET /static/style.css → web/static/style.css inside the binary.
	fileServer := http.FileServer(http.FS(web.Static()))
	s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	s.router.Get("/healthz", apiHandler.HandleHealth)

	// === Public Pages ===
	// OptionalAuth only marks the visitor as logged in for the layout.
	s.router.Group(func(r chi.Router) {
		r.Use(auth.OptionalAuth(authService))

		r.Get("/", forumHandler.HandleIndex)
		r.Get("/register", authHandler.ShowRegister)
		r.Post("/register", authHandler.HandleRegister)
		r.Get("/login", authHandler.ShowLogin)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
		r.Get("/question/{id}", forumHandler.HandleQuestion)
		r.Get("/search", forumHandler.HandleSearch)
	})

	// === Protected Pages ===
	// Anonymous visitors are redirected to /login with 303.
	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(authService))

		r.Get("/dashboard/{userId}", forumHandler.HandleDashboard)
		r.Get("/question/new", forumHandler.ShowNewQuestion)
		r.Post("/question/new", forumHandler.HandleNewQuestion)
		r.Get("/answer/new", forumHandler.ShowNewAnswer)
		r.Post("/answer/new", forumHandler.HandleNewAnswer)
	})

	// === JSON API ===
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/questions", apiHandler.HandleListQuestions)
		r.Get("/questions/{id}", apiHandler.HandleGetQuestion)
		r.Get("/search", apiHandler.HandleSearch)
		r.With(auth.RequireAuthAPI(authService)).Get("/me", apiHandler.HandleMe)
	})

	return nil
}

// seedVocabulary inserts the configured (or built-in) categories and tags.
// A failure is logged and the server starts anyway: the forum still works,
// questions just can't be labelled until the vocabulary exists.
func (s *Server) seedVocabulary(content *service.ContentService) {
	categories := s.config.SeedCategories
	if len(categories) == 0 {
		categories = service.DefaultCategories
	}
	tags := s.config.SeedTags
	if len(tags) == 0 {
		tags = service.DefaultTags
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := content.SeedVocabulary(ctx, categories, tags); err != nil {
		s.logger.Warn("seeding vocabulary failed", slog.String("error", err.Error()))
	}
}

// Handler returns the fully wired router. Tests serve it with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database and the Redis client.
func (s *Server) Close() error {
	var errs []error
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing redis: %w", err))
		}
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing database: %w", err))
	}
	return errors.Join(errs...)
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish (30s timeout)
//  3. Close the database (flushes the WAL, releases the file lock) and Redis
//
// The deferred Close runs on every return path, including startup failures.
func (s *Server) Start() error {
	defer func() {
		if err := s.Close(); err != nil {
			s.logger.Error("closing resources", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to receive OS signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	// Channel to receive server errors
	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	// Block until we receive a signal or server error
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
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

// redisPinger adapts the Redis client to handler.Pinger.
type redisPinger struct {
	client *goredis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
