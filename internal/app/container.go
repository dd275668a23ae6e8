package app

import (
	"context"
	"fmt"

	"github.com/kapu/youtube-dashboard-go/internal/api"
	"github.com/kapu/youtube-dashboard-go/internal/config"
	"github.com/kapu/youtube-dashboard-go/internal/dashboard"
	"github.com/kapu/youtube-dashboard-go/internal/domain"
	"github.com/kapu/youtube-dashboard-go/internal/server"
	"github.com/kapu/youtube-dashboard-go/internal/stats"
	"github.com/kapu/youtube-dashboard-go/internal/storage"
	"github.com/kapu/youtube-dashboard-go/internal/store"
	"github.com/kapu/youtube-dashboard-go/internal/util"
	"go.uber.org/zap"
)

// Container bundles the assembled dashboard session and its HTTP surface.
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	Auth       *store.AuthStore
	Filter     *store.FilterStore
	Loader     *stats.Loader
	Controller *dashboard.Controller
	Server     *server.Server

	closers []func()
}

// Close releases everything Build opened, in reverse order.
func (c *Container) Close() {
	if c == nil {
		return
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// Build assembles storage, the API client, the stores and the server, and
// restores any persisted session and filter state.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (container *Container, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var closers []func()
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		}
	}()

	backing, closeStorage, probe, err := buildStorage(cfg, logger)
	if err != nil {
		return nil, err
	}
	if closeStorage != nil {
		closers = append(closers, closeStorage)
	}

	opts := []api.Option{
		api.WithTokenSource(api.StorageTokenSource(backing)),
		api.WithTimeout(cfg.API.Timeout),
	}
	if cfg.API.RateLimit > 0 {
		opts = append(opts, api.WithRateLimit(cfg.API.RateLimit))
	}
	client := api.NewClient(cfg.API.BaseURL, logger, opts...)

	auth := store.NewAuthStore(client, backing, logger)
	filter := store.NewFilterStore(client, backing, util.SystemClock, logger)
	if mode, ok := domain.ParseStatMode(cfg.Dashboard.DefaultStatMode); ok {
		filter.SetDefaultStatMode(mode)
	}
	auth.Restore(ctx)
	filter.Restore(ctx)

	loader := stats.NewLoader(client, logger, stats.WithGenerationSource(filter.Generation))
	controller := dashboard.NewController(auth, filter, loader, logger)
	closers = append(closers, controller.Close)

	hub := server.NewHub(cfg.Server.AllowedOrigins, logger)
	controller.SetNotifier(hub)
	closers = append(closers, hub.Close)

	srv := server.New(server.Deps{
		Auth:           auth,
		Filter:         filter,
		Loader:         loader,
		Controller:     controller,
		YouTube:        client,
		Hub:            hub,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		StorageProbe:   probe,
		Logger:         logger,
	})

	logger.Info("Dashboard assembled",
		zap.String("storage", cfg.Storage.Backend),
		zap.String("api", cfg.API.BaseURL),
		zap.Bool("authenticated", auth.IsAuthenticated()),
	)

	return &Container{
		Config:     cfg,
		Logger:     logger,
		Auth:       auth,
		Filter:     filter,
		Loader:     loader,
		Controller: controller,
		Server:     srv,
		closers:    closers,
	}, nil
}

func buildStorage(cfg *config.Config, logger *zap.Logger) (storage.Storage, func(), func(context.Context) bool, error) {
	switch cfg.Storage.Backend {
	case "redis":
		rs, err := storage.NewRedisStorage(storage.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		}, logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create redis storage: %w", err)
		}
		return rs, func() { _ = rs.Close() }, rs.IsConnected, nil
	case "postgres":
		ps, err := storage.NewPostgresStorage(storage.PostgresConfig{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			Database: cfg.Postgres.Database,
		}, logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create postgres storage: %w", err)
		}
		return ps, func() { _ = ps.Close() }, ps.IsConnected, nil
	default:
		return storage.NewMemoryStorage(), nil, nil, nil
	}
}
