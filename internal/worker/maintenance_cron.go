package worker

// maintenance_cron.go
// Background goroutine for the periodic housekeeping the request path defers:
// sweeping expired reservations, pruning old idempotency records, and
// enqueuing async reconciliation for products whose cached stock drifted.

import (
	"context"
	"time"

	"aurumpos/internal/repository"
	"aurumpos/internal/service"

	"github.com/rs/zerolog/log"
)

// MaintenanceConfig holds all dependencies for the maintenance goroutine.
type MaintenanceConfig struct {
	Reservations     service.ReservationService
	IdempotencyRepo  repository.IdempotencyRepository
	ProductRepo      repository.ProductRepository
	LedgerRepo       repository.LedgerRepository
	Dispatcher       *Dispatcher
	TickInterval     time.Duration
	RetentionPeriod  time.Duration // how long replayable idempotency records live
}

// StartMaintenanceCron launches a background goroutine that ticks on the
// configured interval. It respects the context for graceful shutdown.
func StartMaintenanceCron(ctx context.Context, cfg MaintenanceConfig) {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(cfg.TickInterval)
		defer ticker.Stop()

		log.Info().Dur("interval", cfg.TickInterval).Msg("maintenance_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("maintenance_cron: shutting down")
				return
			case <-ticker.C:
				runMaintenance(ctx, cfg)
			}
		}
	}()
}

func runMaintenance(ctx context.Context, cfg MaintenanceConfig) {
	if _, err := cfg.Reservations.SweepExpired(ctx); err != nil {
		log.Error().Err(err).Msg("maintenance_cron: reservation sweep failed")
	}

	if cfg.RetentionPeriod > 0 {
		cutoff := time.Now().Add(-cfg.RetentionPeriod)
		n, err := cfg.IdempotencyRepo.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			log.Error().Err(err).Msg("maintenance_cron: idempotency prune failed")
		} else if n > 0 {
			log.Info().Int64("count", n).Msg("maintenance_cron: idempotency records pruned")
		}
	}

	scanDrift(ctx, cfg)
}

// scanDrift compares every active product's cached stock against the ledger
// and enqueues an async reconcile for each mismatch. The worker performs the
// actual correction so a large drifted catalog never stalls the cron tick.
func scanDrift(ctx context.Context, cfg MaintenanceConfig) {
	products, err := cfg.ProductRepo.ListActive(ctx)
	if err != nil {
		log.Error().Err(err).Msg("maintenance_cron: product scan failed")
		return
	}
	enqueued := 0
	for i := range products {
		p := &products[i]
		balance, err := cfg.LedgerRepo.Balance(ctx, p.ID, nil)
		if err != nil {
			log.Error().Err(err).Str("product_id", p.ID.String()).Msg("maintenance_cron: balance read failed")
			continue
		}
		if balance == p.StockCached {
			continue
		}
		if err := cfg.Dispatcher.EnqueueReconcile(ctx, p.ID); err != nil {
			log.Error().Err(err).Str("product_id", p.ID.String()).Msg("maintenance_cron: enqueue failed")
			continue
		}
		enqueued++
	}
	if enqueued > 0 {
		log.Info().Int("count", enqueued).Msg("maintenance_cron: reconcile jobs enqueued")
	}
}
