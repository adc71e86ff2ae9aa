package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"aurumpos/internal/model"
	"aurumpos/internal/repository"

	"gorm.io/gorm"
)

// GuardedFunc runs the guarded effect inside the transaction and returns the
// result to snapshot. It must perform every side effect through tx so that
// the effect and the idempotency record commit or roll back together.
type GuardedFunc func(tx *gorm.DB) (interface{}, error)

// IdempotencyGuard deduplicates retried mutating calls by client-supplied
// key. A second call with the same (key, operationType) and identical payload
// returns the stored snapshot without re-executing; a different payload under
// the same key is a KeyConflictError.
type IdempotencyGuard interface {
	// Do unmarshals the operation result (fresh or replayed) into out.
	// replayed is true when a prior record answered the call.
	Do(ctx context.Context, key, operationType string, req interface{}, out interface{}, fn GuardedFunc) (replayed bool, err error)
}

type idempotencyGuard struct {
	repo repository.IdempotencyRepository
}

func NewIdempotencyGuard(repo repository.IdempotencyRepository) IdempotencyGuard {
	return &idempotencyGuard{repo: repo}
}

// HashRequest produces the request fingerprint stored alongside the key so
// key reuse with a changed payload is detectable.
func HashRequest(req interface{}) string {
	data, err := json.Marshal(req)
	if err != nil {
		// Requests are plain DTOs; marshal failure means a programming error.
		return "unhashable"
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (g *idempotencyGuard) Do(ctx context.Context, key, operationType string, req interface{}, out interface{}, fn GuardedFunc) (bool, error) {
	hash := HashRequest(req)

	// Fast path: a prior successful execution answers the call.
	if rec, err := g.repo.Find(ctx, key, operationType); err == nil {
		return true, g.replay(rec, hash, key, operationType, out)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	var snapshot json.RawMessage
	txErr := runTx(ctx, g.repo.DB(), func(tx *gorm.DB) error {
		result, err := fn(tx)
		if err != nil {
			return err
		}
		data, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("snapshot result: %w", err)
		}
		snapshot = data
		// Same transaction as the guarded effect: a crash between the effect
		// and the record cannot happen.
		return g.repo.CreateTx(tx, &model.IdempotencyRecord{
			Key:            key,
			OperationType:  operationType,
			RequestHash:    hash,
			ResultSnapshot: data,
		})
	})

	if txErr != nil {
		// A concurrent retry of the same key may have won the insert race.
		// The unique constraint rolled us back without applying our effect;
		// replay the winner's snapshot.
		if errors.Is(txErr, gorm.ErrDuplicatedKey) {
			rec, err := g.repo.Find(ctx, key, operationType)
			if err != nil {
				return false, txErr
			}
			return true, g.replay(rec, hash, key, operationType, out)
		}
		return false, txErr
	}

	return false, json.Unmarshal(snapshot, out)
}

func (g *idempotencyGuard) replay(rec *model.IdempotencyRecord, hash, key, operationType string, out interface{}) error {
	if rec.RequestHash != hash {
		return &KeyConflictError{Key: key, OperationType: operationType}
	}
	return json.Unmarshal(rec.ResultSnapshot, out)
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}
