package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tea-tech/simple-inventory/internal/config"
	"github.com/tea-tech/simple-inventory/internal/infra"
	"github.com/tea-tech/simple-inventory/internal/router"
	"github.com/tea-tech/simple-inventory/internal/service"
	"github.com/tea-tech/simple-inventory/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Structured logger — dev: pretty, prod: JSON
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := infra.NewDatabase(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedisClient(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// One composition root: the router builds the service graph, and the
	// worker pool and startup seeding reuse it.
	r, svcs := router.New(cfg, db, rdb)

	// Seed built-in entity types and settings before serving traffic.
	if err := svcs.Registry.EnsureDefaults(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to seed entity types")
	}
	if err := svcs.Settings.EnsureDefaults(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to seed settings")
	}

	mailer := infra.NewMailer(cfg)
	pool := worker.NewPool(rdb, cfg.WorkerPoolSize)
	pool.Register(service.QueueLookup, worker.NewLookupWorker(svcs.Entities, svcs.Lookup).Handle)
	pool.Register(service.QueueEmail, worker.NewEmailWorker(svcs.Exports, mailer).Handle)
	pool.Start(ctx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("inventory backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}
