package cmd

import (
	"context"
	"fmt"
	"io"

	"facility-finder/clients"
	"facility-finder/config"
	"facility-finder/models"
	"facility-finder/services"
	"facility-finder/storage"
	"facility-finder/utils"
)

// app holds the wired components shared by the subcommands.
type app struct {
	cfg    *config.Config
	logger *utils.Logger

	store     storage.FacilityStore
	kv        storage.KV
	completer services.Completer

	queue     *services.WritebackQueue
	enricher  *services.EnrichmentCache
	search    *services.SearchService
	refresher *services.Refresher

	closers []io.Closer
}

// openStore loads the config and connects to the facility store only.
func openStore(ctx context.Context) (*app, error) {
	cfg := config.Load()
	logger := utils.NewLoggerWithLevel(cfg.LogLevel)

	if cfg.MongoURI == "" {
		return nil, models.MissingConfig("MONGO_URI")
	}
	store, err := storage.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDB, cfg.MongoCollection)
	if err != nil {
		return nil, err
	}
	logger.Info("[app] connected to %s/%s", cfg.MongoDB, cfg.MongoCollection)
	return &app{cfg: cfg, logger: logger, store: store}, nil
}

// openPipeline wires the full search pipeline.
func openPipeline(ctx context.Context) (*app, error) {
	a, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := a.cfg.Validate(); err != nil {
		a.close(ctx)
		return nil, err
	}

	if a.kv, err = openKV(ctx, a.cfg, a.logger); err != nil {
		a.close(ctx)
		return nil, err
	}
	a.closers = append(a.closers, a.kv)

	if a.completer, err = openCompleter(ctx, a.cfg, a.logger); err != nil {
		a.close(ctx)
		return nil, err
	}
	if c, ok := a.completer.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	places := clients.NewGooglePlacesClient(a.cfg, a.logger)
	geo, err := services.NewGeoResolver(places, a.cfg.GeocodeCacheSize, a.logger)
	if err != nil {
		a.close(ctx)
		return nil, err
	}

	a.queue = services.NewWritebackQueue(a.store, a.cfg.WritebackWorkers, a.cfg.WritebackBuffer, a.logger)
	a.enricher = services.NewEnrichmentCache(places, a.queue, a.cfg.EnrichmentTTL, a.logger)

	a.search = services.NewSearchService(services.SearchDeps{
		Store:          a.store,
		Places:         places,
		Geo:            geo,
		Enricher:       a.enricher,
		Summarizer:     services.NewSummarizer(a.completer, a.logger),
		Results:        services.NewResultCache(a.kv, a.cfg.ResultCacheTTL, a.logger),
		MaxConcurrency: a.cfg.MaxConcurrency,
		Logger:         a.logger,
	})

	a.refresher = services.NewRefresher(a.store, a.enricher,
		a.cfg.MaxConcurrency, a.cfg.RateLimitMs, a.cfg.RefreshBatchSize, a.cfg.EnrichmentTTL, a.logger)
	if p, ok := a.kv.(services.Purger); ok {
		a.refresher.WithPurger(p)
	}
	return a, nil
}

func openKV(ctx context.Context, cfg *config.Config, logger *utils.Logger) (storage.KV, error) {
	switch cfg.ResultCacheBackend {
	case "redis":
		kv, err := storage.NewRedisKV(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		logger.Info("[app] result cache: redis at %s", cfg.RedisAddr)
		return kv, nil
	case "postgres":
		kv, err := storage.NewPostgresKV(cfg.DSN())
		if err != nil {
			return nil, err
		}
		logger.Info("[app] result cache: postgres %s", cfg.PostgresDB)
		return kv, nil
	case "memory":
		logger.Warn("[app] result cache: in-memory, entries are lost on exit")
		return storage.NewMemoryKV(), nil
	default:
		return nil, fmt.Errorf("app: unknown result cache backend %q", cfg.ResultCacheBackend)
	}
}

func openCompleter(ctx context.Context, cfg *config.Config, logger *utils.Logger) (services.Completer, error) {
	switch cfg.SummaryProvider {
	case "gemini":
		logger.Info("[app] summaries: gemini %s", cfg.GeminiModel)
		return clients.NewGeminiClient(ctx, cfg)
	default:
		logger.Info("[app] summaries: openai %s", cfg.OpenAIModel)
		return clients.NewOpenAIClient(cfg, logger), nil
	}
}

// close drains pending write-backs before releasing connections.
func (a *app) close(ctx context.Context) {
	if a.refresher != nil {
		a.refresher.Stop()
	}
	if a.queue != nil {
		a.queue.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("[app] close: %v", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(ctx); err != nil {
			a.logger.Warn("[app] close store: %v", err)
		}
	}
	a.logger.Sync()
}
