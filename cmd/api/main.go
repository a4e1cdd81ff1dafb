// Executável principal da API: carrega a configuração, inicializa dependências e sobe o servidor HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/marcelojr/pageant-scoring/internal/app/catalog"
	"github.com/marcelojr/pageant-scoring/internal/app/changes"
	"github.com/marcelojr/pageant-scoring/internal/app/httpapi"
	"github.com/marcelojr/pageant-scoring/internal/app/phases"
	"github.com/marcelojr/pageant-scoring/internal/app/progression"
	"github.com/marcelojr/pageant-scoring/internal/app/scoring"
	"github.com/marcelojr/pageant-scoring/internal/domain"
	"github.com/marcelojr/pageant-scoring/internal/platform/clock"
	"github.com/marcelojr/pageant-scoring/internal/platform/config"
	"github.com/marcelojr/pageant-scoring/internal/platform/health"
	"github.com/marcelojr/pageant-scoring/internal/platform/ids"
	"github.com/marcelojr/pageant-scoring/internal/platform/logger"
	"github.com/marcelojr/pageant-scoring/internal/platform/migrations"
	"github.com/marcelojr/pageant-scoring/internal/platform/ratelimit"
	postgresstorage "github.com/marcelojr/pageant-scoring/internal/platform/storage/postgres"
	redisstorage "github.com/marcelojr/pageant-scoring/internal/platform/storage/redis"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("configuracao invalida", "err", err)
	}
	logger.SetLevel(cfg.LogLevel)

	db, err := postgresstorage.Open(ctx, cfg.PostgresDSN())
	if err != nil {
		logger.Fatal("falha ao conectar no postgres", "err", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("falha ao resgatar sql.DB", "err", err)
	}
	defer sqlDB.Close()

	if cfg.AutoMigrate {
		if err := migrations.Run(db); err != nil {
			logger.Fatal("falha na migracao automatica", "err", err)
		}
	}

	// Redis é opcional: sem ele não há cache, fila de notificações nem limite de notas.
	var (
		redisClient *redis.Client
		cache       domain.ResultsCache
		notifier    domain.Notifier
		guard       domain.SubmissionGuard
	)
	if cfg.RedisEnabled {
		redisClient, err = redisstorage.NewClient(ctx, redisstorage.ClientOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Name:     "pageant-api",
		})
		if err != nil {
			logger.Fatal("falha ao conectar no redis", "err", err)
		}
		defer redisClient.Close()

		cache = redisstorage.NewResultsCache(redisClient, cfg.ResultsCachePrefix, time.Duration(cfg.ResultsCacheTTLSecs)*time.Second)
		notifier = redisstorage.NewNotifier(redisClient, cfg.NotificationQueueKey, logger.With("componente", "notifier"))
		if cfg.RateLimitEnabled {
			window := time.Duration(cfg.RateLimitWindowSeconds) * time.Second
			guard = ratelimit.NewRedisRateLimiter(redisClient, cfg.RateLimitMaxActions, window, cfg.RateLimitKeyPrefix, clock.NewSystemClock())
		}
	}

	store := postgresstorage.NewStore(db, postgresstorage.WithSnapshotIsolation())
	clockSystem := clock.NewSystemClock()
	idGen := ids.NewGenerator()
	propagator := changes.NewPropagator(cache, notifier, clockSystem, logger.With("componente", "changes"))

	api := httpapi.New(httpapi.Services{
		Scoring:     scoring.NewService(store, cache, guard, propagator, clockSystem, idGen),
		Phases:      phases.NewService(store, propagator),
		Progression: progression.NewService(store, propagator),
		Catalog:     catalog.NewService(store, propagator, clockSystem, idGen),
	}, cfg.JudgeHeader, logger.With("componente", "httpapi"))

	mux := http.NewServeMux()
	api.Register(mux)
	checker := health.NewChecker(health.Database(sqlDB), health.Redis(redisClient))
	mux.HandleFunc("GET /readyz", checker.ReadyHandler())
	mux.Handle("GET /metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("erro ao encerrar servidor", "err", err)
		}
	}()

	logger.Info("api ouvindo", "addr", cfg.HTTPAddress, "redis", cfg.RedisEnabled)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("erro no servidor", "err", err)
	}
	logger.Info("api finalizada")
}
