// Worker assíncrono que consome notificações da fila e reaquece o cache de rankings.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/marcelojr/pageant-scoring/internal/app/scoring"
	"github.com/marcelojr/pageant-scoring/internal/app/worker"
	"github.com/marcelojr/pageant-scoring/internal/domain"
	"github.com/marcelojr/pageant-scoring/internal/platform/clock"
	"github.com/marcelojr/pageant-scoring/internal/platform/config"
	"github.com/marcelojr/pageant-scoring/internal/platform/health"
	"github.com/marcelojr/pageant-scoring/internal/platform/logger"
	"github.com/marcelojr/pageant-scoring/internal/platform/migrations"
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

	// Sem Redis não existe fila; o worker não tem o que fazer.
	if !cfg.RedisEnabled {
		logger.Fatal("worker exige REDIS_ENABLED")
	}

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

	redisClient, err := redisstorage.NewClient(ctx, redisstorage.ClientOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Name:     "pageant-worker",
	})
	if err != nil {
		logger.Fatal("falha ao conectar no redis", "err", err)
	}
	defer redisClient.Close()

	store := postgresstorage.NewStore(db, postgresstorage.WithSnapshotIsolation())
	cache := redisstorage.NewResultsCache(redisClient, cfg.ResultsCachePrefix, time.Duration(cfg.ResultsCacheTTLSecs)*time.Second)
	notifier := redisstorage.NewNotifier(redisClient, cfg.NotificationQueueKey, logger.With("componente", "notifier"))

	// O worker só lê e aquece; não submete notas nem publica notificações.
	scoringSvc := scoring.NewService(store, cache, nil, nil, clock.NewSystemClock(), nil)
	processor := worker.NewNotificationProcessor(scoringSvc, logger.With("componente", "worker"))
	checker := health.NewChecker(health.Database(sqlDB), health.Redis(redisClient))

	g, gctx := errgroup.WithContext(ctx)

	if cfg.WorkerMetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", promhttp.Handler())
		mux.HandleFunc("GET /readyz", checker.ReadyHandler())
		mux.HandleFunc("GET /healthz", health.LiveHandler())
		srv := &http.Server{Addr: cfg.WorkerMetricsAddress, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			logger.Info("worker metrics ouvindo", "addr", cfg.WorkerMetricsAddress)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		logger.Info("worker iniciado, aguardando notificacoes")
		err := notifier.Consume(gctx, func(ctx context.Context, n domain.Notification) error {
			// Uma notificação com falha não para a fila; o TTL do cache cobre o atraso.
			if err := processor.Process(ctx, n); err != nil {
				logger.Error("erro ao processar notificacao", "tipo", n.Kind, "evento", n.EventID, "err", err)
			}
			return nil
		})
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("worker finalizado com erro", "err", err)
	}
	logger.Info("worker finalizado")
}
