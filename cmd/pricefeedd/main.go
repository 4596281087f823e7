package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/vjranagit/pricefeed/internal/config"
	"github.com/vjranagit/pricefeed/pkg/api"
	"github.com/vjranagit/pricefeed/pkg/feed"
	"github.com/vjranagit/pricefeed/pkg/identity"
	"github.com/vjranagit/pricefeed/pkg/ingest"
	"github.com/vjranagit/pricefeed/pkg/scheduler"
	"github.com/vjranagit/pricefeed/pkg/storage"
)

const version = "0.3.0"

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("pricefeed starting", zap.String("version", version))

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	node, err := identity.Load(cfg.Identity.Dir)
	if err != nil {
		logger.Fatal("failed to load node identity", zap.Error(err))
	}
	logger.Info("node identity loaded", zap.String("node_id", node.NodeID()))

	store, err := storage.NewStore(&storage.Config{Path: cfg.Storage.Path})
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}

	cache, err := buildCache(cfg, logger)
	if err != nil {
		store.Close()
		logger.Fatal("failed to initialize cache", zap.Error(err))
	}
	cached := storage.NewCachedStore(store, cache)
	defer cached.Close()

	client := feed.NewHTTPClient(cfg.Feed.BaseURL, cfg.Feed.Timeout)
	pipeline := ingest.New(client, cached, ingest.Config{
		TopInstruments: cfg.Ingest.TopInstruments,
		Pacing:         cfg.Ingest.Pacing,
	}, logger.Named("ingest"))

	sched := scheduler.New(pipeline.Run, cfg.Ingest.Interval, logger.Named("scheduler"))
	sched.Start()

	ln, err := node.Listen(cfg.Server.ListenAddr)
	if err != nil {
		logger.Fatal("failed to listen", zap.String("addr", cfg.Server.ListenAddr), zap.Error(err))
	}

	server := api.NewServer(cfg.Server.ListenAddr, cached, sched, logger.Named("api"))
	go func() {
		logger.Info("api server listening", zap.String("addr", ln.Addr().String()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")
	sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	logger.Info("stopped")
}

// buildCache constructs the configured latest-record cache backend.
func buildCache(cfg *config.Config, logger *zap.Logger) (storage.LatestCache, error) {
	switch cfg.Cache.Backend {
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return storage.NewRedisCache(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword,
			cfg.Cache.RedisDB, cfg.Cache.TTL, logger.Named("cache"))
	default:
		return storage.NewLRUCache(cfg.Cache.Capacity, cfg.Cache.TTL), nil
	}
}
