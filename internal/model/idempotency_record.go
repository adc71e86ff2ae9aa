package model

import (
	"encoding/json"
	"time"
)

// IdempotencyRecord stores the outcome of a guarded mutating operation.
// The composite primary key (key, operation_type) is the storage-level unique
// constraint that serializes concurrent retries of the same key: of two racing
// transactions, exactly one insert wins and the loser replays the snapshot.
// Records are written in the same transaction as the effect they guard and are
// read-only afterward. Pruning after the retention window is housekeeping,
// never a correctness dependency.
type IdempotencyRecord struct {
	Key            string          `gorm:"primaryKey;size:128"`
	OperationType  string          `gorm:"primaryKey;size:64"`
	RequestHash    string          `gorm:"size:64;not null"`
	ResultSnapshot json.RawMessage `gorm:"type:jsonb;not null"`
	CreatedAt      time.Time
}

func (IdempotencyRecord) TableName() string { return "idempotency_records" }
