package infra

import (
	"fmt"

	"aurumpos/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate to
// create / update all tables, then applies idempotent SQL patches that GORM
// cannot express (sequences, partial indexes).
//
// TranslateError is required: the idempotency guard relies on
// gorm.ErrDuplicatedKey to detect a concurrent insert of the same key.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}

	return db, nil
}

// RunMigrations creates or updates all tables and applies the SQL patches.
// Also used by integration tests against a throwaway container.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Product{},
		&model.Branch{},
		&model.StockLedgerEntry{},
		&model.IdempotencyRecord{},
		&model.StockReservation{},
		&model.StockReservationItem{},
		&model.StockTransfer{},
		&model.CycleCount{},
		&model.CycleCountItem{},
		&model.Sale{},
		&model.SaleItem{},
		&model.SalePayment{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL that AutoMigrate cannot express.
// Safe to re-run on an already-patched schema.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// gen_random_uuid() needs pgcrypto on Postgres < 13.
		{"pgcrypto extension",
			`CREATE EXTENSION IF NOT EXISTS pgcrypto`},
		// Ticket numbers come from a sequence so they are gapless-enough and
		// never reused, even across rolled-back checkouts.
		{"sale ticket sequence",
			`CREATE SEQUENCE IF NOT EXISTS sale_ticket_seq START 1`},
		// The expiry sweep and availability queries only ever look at active
		// reservations; a partial index keeps them cheap as history grows.
		{"active reservations partial index", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_reservations_active') THEN
    CREATE INDEX idx_reservations_active
        ON stock_reservations (expires_at)
        WHERE status = 'active';
  END IF;
END $$`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
