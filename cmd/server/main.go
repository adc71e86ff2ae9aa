package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aurumpos/internal/config"
	"aurumpos/internal/infra"
	"aurumpos/internal/repository"
	"aurumpos/internal/router"
	"aurumpos/internal/service"
	"aurumpos/internal/worker"

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

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Background machinery — wired here (composition root) so the pool and
	// cron have full access to all infrastructure dependencies.
	productRepo := repository.NewProductRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	reservationRepo := repository.NewReservationRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)

	guard := service.NewIdempotencyGuard(idempotencyRepo)
	ledgerSvc := service.NewLedgerService(ledgerRepo, productRepo, reservationRepo, guard, rdb)
	reservationSvc := service.NewReservationService(reservationRepo, productRepo, ledgerSvc, cfg.ReservationTTLMinutes)

	dispatcher := worker.NewDispatcher(rdb)
	worker.StartWorkerPool(ctx, rdb, worker.Deps{Ledger: ledgerSvc}, cfg.WorkerPoolSize)
	worker.StartMaintenanceCron(ctx, worker.MaintenanceConfig{
		Reservations:    reservationSvc,
		IdempotencyRepo: idempotencyRepo,
		ProductRepo:     productRepo,
		LedgerRepo:      ledgerRepo,
		Dispatcher:      dispatcher,
		TickInterval:    time.Duration(cfg.MaintenanceIntervalSeconds) * time.Second,
		RetentionPeriod: time.Duration(cfg.IdempotencyRetentionHours) * time.Hour,
	})

	r := router.New(cfg, db, rdb)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("AurumPOS inventory engine listening on :%d", cfg.Port)
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
