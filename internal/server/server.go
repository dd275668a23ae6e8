// Package server is the page-routed HTTP surface of the dashboard.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/kapu/youtube-dashboard-go/internal/adapter"
	"github.com/kapu/youtube-dashboard-go/internal/dashboard"
	"github.com/kapu/youtube-dashboard-go/internal/stats"
	"github.com/kapu/youtube-dashboard-go/internal/store"
	"go.uber.org/zap"
)

// YouTubeAPI is the OAuth slice of the backend.
type YouTubeAPI interface {
	GetYouTubeAuthURL(ctx context.Context) (string, error)
	HandleYouTubeCallback(ctx context.Context, code, state string) (map[string]any, error)
}

type Deps struct {
	Auth           *store.AuthStore
	Filter         *store.FilterStore
	Loader         *stats.Loader
	Controller     *dashboard.Controller
	YouTube        YouTubeAPI
	Hub            *Hub
	AllowedOrigins []string

	// StorageProbe reports whether the persistence backend is reachable.
	// Nil for in-memory storage.
	StorageProbe func(ctx context.Context) bool
	Logger       *zap.Logger
}

// Server serves one dashboard session: the stores it renders model a single
// signed-in browser.
type Server struct {
	auth           *store.AuthStore
	filter         *store.FilterStore
	loader         *stats.Loader
	controller     *dashboard.Controller
	youtube        YouTubeAPI
	hub            *Hub
	formatter      *adapter.DashboardFormatter
	forms          *adapter.FilterFormAdapter
	allowedOrigins []string
	storageProbe   func(ctx context.Context) bool
	logger         *zap.Logger
}

func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	hub := deps.Hub
	if hub == nil {
		hub = NewHub(deps.AllowedOrigins, logger)
	}
	return &Server{
		auth:           deps.Auth,
		filter:         deps.Filter,
		loader:         deps.Loader,
		controller:     deps.Controller,
		youtube:        deps.YouTube,
		hub:            hub,
		formatter:      adapter.NewDashboardFormatter(),
		forms:          adapter.NewFilterFormAdapter(),
		allowedOrigins: deps.AllowedOrigins,
		storageProbe:   deps.StorageProbe,
		logger:         logger,
	}
}

// Hub returns the live-update hub so it can be wired as the controller's notifier.
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	if len(s.allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.allowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
	})
	r.Get("/healthz", s.healthz)
	r.Get("/login", s.loginPage)
	r.Post("/login", s.login)
	r.Post("/signup", s.signup)
	r.Post("/logout", s.logout)

	r.Group(func(r chi.Router) {
		r.Use(s.requireSession)

		r.Get("/dashboard", s.dashboardPage)
		r.Post("/dashboard/filters", s.applyFilters)
		r.Post("/dashboard/reload", s.reloadStats)
		r.Get("/settings", s.settingsPage)
		r.Get("/videos", s.videosPage)
		r.Get("/youtube/connect", s.youtubeConnect)
		r.Get("/youtube/dashboard", s.youtubeReturn)
		r.Handle("/ws", s.hub)
	})

	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown failed", zap.Error(err))
		return err
	}
	s.logger.Info("HTTP server stopped")
	return nil
}
