package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ishpreet160/CertFlow/internal/config"
	"github.com/ishpreet160/CertFlow/internal/infra"
	"github.com/ishpreet160/CertFlow/internal/router"
	"github.com/ishpreet160/CertFlow/internal/storage"
	"github.com/ishpreet160/CertFlow/internal/worker"
)

// @title           Project Experience Portal API
// @version         1.0
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: dev pretty, prod JSON
	if cfg.Env != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	if cfg.DBAutoMigrate {
		if err := infra.MigrateUp(db); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
	}

	var rdb *redis.Client
	if cfg.RedisEnabled() {
		rdb, err = infra.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rdb.Close()
	} else {
		log.Warn().Msg("REDIS_URL not set: dead letters are logged and orphaned blobs are tracked in memory")
	}

	store, err := storage.NewFromConfig(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise blob storage")
	}

	var orphanSet worker.OrphanSet = worker.NewMemoryOrphanSet()
	if rdb != nil {
		orphanSet = worker.NewRedisOrphanSet(rdb)
	}
	sweeper := worker.NewOrphanSweeper(orphanSet, store)
	if err := sweeper.Start(ctx, cfg.OrphanSweepSchedule); err != nil {
		log.Fatal().Err(err).Msg("failed to start orphan sweeper")
	}

	// Notification e-mails go through the bounded in-process pool.
	pool := worker.NewPool(cfg.WorkerPoolSize, cfg.NotificationQueueSize, worker.NewDeadLetter(rdb))
	mailer := infra.NewMailer(cfg)
	if !mailer.Configured() {
		log.Warn().Msg("SMTP_HOST not set: notification e-mails will fail and be dead-lettered")
	}
	pool.Handle(worker.JobEmail, worker.NewEmailWorker(mailer, infra.NewCircuitBreaker(infra.DefaultCBConfig())).Process)
	pool.Start(ctx)

	r := router.New(cfg, router.Deps{
		DB:      db,
		Redis:   rdb,
		Store:   store,
		Orphans: sweeper,
		Queue:   pool,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Str("storage", cfg.StorageBackend).Msgf("certificate portal listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	cancel()
	pool.Stop()
	log.Info().Msg("server exited")
}
