package main

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pytanis-go/pretalx-core/internal/admin"
	"github.com/pytanis-go/pretalx-core/internal/pretalx/client"
	"github.com/pytanis-go/pretalx-core/internal/pretalx/expand"
	"github.com/pytanis-go/pretalx-core/internal/pretalx/fetch"
	"github.com/pytanis-go/pretalx-core/pkg/cache"
	"github.com/pytanis-go/pretalx-core/pkg/config"
	"github.com/pytanis-go/pretalx-core/pkg/events"
	"github.com/pytanis-go/pretalx-core/pkg/jobs"
	"github.com/pytanis-go/pretalx-core/pkg/logger"
	"github.com/pytanis-go/pretalx-core/pkg/metrics"
	"github.com/pytanis-go/pretalx-core/pkg/middleware/auth"
	"github.com/pytanis-go/pretalx-core/pkg/middleware/cors"
	"github.com/pytanis-go/pretalx-core/pkg/middleware/requestid"
	"github.com/pytanis-go/pretalx-core/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	registry := prometheus.NewRegistry()
	rec := metrics.NewRecorder(registry)

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, continuing without distributed cache/rate-limit", "error", err)
	}

	var expansionStore expand.Store
	if cfg.Cache.MaxEntries > 0 {
		bounded, err := expand.NewBoundedStore(cfg.Cache.MaxEntries)
		if err != nil {
			log.Fatalf("failed to build bounded expansion cache: %v", err)
		}
		expansionStore = bounded
	} else {
		expansionStore = expand.NewMapStore()
	}
	expansionCache := expand.New(expansionStore, rec)
	expansionCache.SetPrepopulation(cfg.Cache.Prepopulate)

	var limiter fetch.Limiter
	if cfg.RateLimit.Distributed && redisClient != nil {
		limiter = fetch.NewRedisTokenBucket(redisClient, "pytanis:ratelimit", cfg.RateLimit.Calls, cfg.RateLimit.Seconds, cfg.RateLimit.Burst)
	} else {
		limiter = fetch.NewTokenBucket(cfg.RateLimit.Calls, cfg.RateLimit.Seconds, cfg.RateLimit.Burst)
	}

	fetcher := fetch.New(fetch.Config{
		BaseURL:       cfg.Pretalx.BaseURL,
		Token:         cfg.Pretalx.APIToken,
		VersionHeader: cfg.Pretalx.VersionHeader,
		APIVersion:    cfg.Pretalx.APIVersion,
	}, limiter, logr, rec)

	pretalxClient := client.New(fetcher, expansionCache, logr, rec, true)

	var storageProvider storage.Provider
	if cfg.Storage != nil {
		localProvider, err := storage.NewLocalProvider(cfg.Storage.LocalPath)
		if err != nil {
			log.Fatalf("failed to init storage: %v", err)
		}
		storageProvider = localProvider
	}

	var signer *storage.SignedURLSigner
	if cfg.Admin.ArtifactSecret != "" {
		signer = storage.NewSignedURLSigner(cfg.Admin.ArtifactSecret, cfg.Admin.ArtifactTTL)
	}

	publisher, err := events.NewPublisher(cfg.Events, logr)
	if err != nil {
		logr.Sugar().Warnw("events publisher unavailable, run progress will not be broadcast", "error", err)
	}
	defer publisher.Close() //nolint:errcheck

	handler := &admin.Handler{
		Client:    pretalxClient,
		Store:     admin.NewStore(),
		Storage:   storageProvider,
		Signer:    signer,
		Publisher: publisher,
		Metrics:   rec,
		Solver:    cfg.Solver,
		Logger:    logr,
	}

	queue := jobs.NewQueue("admin-runs", handler.Dispatch, jobs.QueueConfig{
		Workers: 4,
		Logger:  logr,
	})
	handler.Queue = queue
	queue.Start(context.Background())
	defer queue.Stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestid.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(cors.New(nil))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/readyz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ready"}) })
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	runs := r.Group("/", auth.Bearer(cfg.Admin.BearerToken))
	handler.Routes(runs)

	addr := cfg.Admin.ListenAddr
	logr.Sugar().Infow("admin server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("admin server failed", "error", err)
	}
}
