package worker

import (
	"context"
	"encoding/json"
	"time"

	"aurumpos/internal/service"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueReconcile = "jobs:reconcile"

	maxAttempts = 3
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// ReconcilePayload names the product whose cached stock should be recomputed.
type ReconcilePayload struct {
	ProductID string `json:"product_id"`
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueReconcile pushes a cache reconciliation job for one product.
func (d *Dispatcher) EnqueueReconcile(ctx context.Context, productID uuid.UUID) error {
	return d.enqueue(ctx, QueueReconcile, "reconcile", ReconcilePayload{ProductID: productID.String()})
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	job := Job{Type: jobType, Payload: data}
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// Deps are the services the workers call into.
type Deps struct {
	Ledger service.LedgerService
}

// StartWorkerPool launches numWorkers goroutines consuming the job queues.
// Each goroutine blocks on BRPOP — zero CPU when idle.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, deps Deps, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, deps, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func runWorker(ctx context.Context, rdb *redis.Client, deps Deps, id int) {
	queues := []string{QueueReconcile}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop — waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				continue // timeout or context cancelled
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, rdb, deps, result[0], result[1])
		}
	}
}

func processJob(ctx context.Context, rdb *redis.Client, deps Deps, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return
	}

	var err error
	switch job.Type {
	case "reconcile":
		err = handleReconcile(ctx, deps, job.Payload)
	default:
		log.Warn().Str("type", job.Type).Str("queue", queue).Msg("unknown job type dropped")
		return
	}

	if err == nil {
		return
	}

	job.Attempts++
	if job.Attempts >= maxAttempts {
		SendToDLQ(ctx, rdb, queue, job.Type, job.Payload, err.Error(), job.Attempts)
		return
	}
	// Requeue at the head so the next attempt happens after the backlog.
	if encoded, mErr := json.Marshal(job); mErr == nil {
		if pushErr := rdb.LPush(ctx, queue, encoded).Err(); pushErr != nil {
			log.Error().Err(pushErr).Str("queue", queue).Msg("requeue failed, job lost")
		}
	}
	log.Warn().Str("type", job.Type).Int("attempts", job.Attempts).Err(err).Msg("job failed, requeued")
}

func handleReconcile(ctx context.Context, deps Deps, payload json.RawMessage) error {
	var p ReconcilePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return err
	}
	productID, err := uuid.Parse(p.ProductID)
	if err != nil {
		return err
	}
	finding, err := deps.Ledger.ReconcileProduct(ctx, productID)
	if err != nil {
		return err
	}
	if finding.Drift != 0 {
		log.Info().
			Str("product_id", p.ProductID).
			Int("drift", finding.Drift).
			Msg("async reconcile corrected drift")
	}
	return nil
}
