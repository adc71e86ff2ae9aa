package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aurumpos/internal/dto"
	"aurumpos/internal/model"
	"aurumpos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ReservationService manages time-boxed soft holds taken during checkout.
// A reservation is a promise, not a movement: it never writes to the ledger,
// it only reduces computed availability until consumed, released or expired.
type ReservationService interface {
	Reserve(ctx context.Context, actorID uuid.UUID, req dto.ReserveStockRequest) (*dto.ReservationResponse, error)
	Release(ctx context.Context, reservationID uuid.UUID) (*dto.ReservationResponse, error)
	// ConsumeTx marks the reservation consumed inside the checkout
	// transaction. A reservation that is no longer active is left untouched:
	// the checkout re-validated live availability anyway.
	ConsumeTx(tx *gorm.DB, reservationID uuid.UUID) error
	// SweepExpired flips stale active rows to expired, for reporting. Lazy
	// expiry at read time is what correctness relies on; this is cosmetic.
	SweepExpired(ctx context.Context) (int64, error)
}

type reservationService struct {
	repo        repository.ReservationRepository
	productRepo repository.ProductRepository
	ledger      LedgerService
	defaultTTL  time.Duration
}

func NewReservationService(
	repo repository.ReservationRepository,
	productRepo repository.ProductRepository,
	ledger LedgerService,
	defaultTTLMinutes int,
) ReservationService {
	if defaultTTLMinutes <= 0 {
		defaultTTLMinutes = 30
	}
	return &reservationService{
		repo:        repo,
		productRepo: productRepo,
		ledger:      ledger,
		defaultTTL:  time.Duration(defaultTTLMinutes) * time.Minute,
	}
}

// ── Reserve ──────────────────────────────────────────────────────────────────
// All-or-nothing: if any item fails the availability check the whole call
// fails and nothing is persisted. Idempotent on the caller-supplied id.

func (s *reservationService) Reserve(ctx context.Context, actorID uuid.UUID, req dto.ReserveStockRequest) (*dto.ReservationResponse, error) {
	reservationID, err := uuid.Parse(req.ReservationID)
	if err != nil {
		return nil, &InvalidInputError{Reason: "reservation_id is not a uuid"}
	}

	items, err := parseItems(req.Items)
	if err != nil {
		return nil, err
	}

	// Replay path: same id + identical items returns the existing
	// reservation instead of double-reserving.
	if existing, err := s.repo.FindByID(ctx, reservationID); err == nil {
		if !sameItems(existing.Items, items) {
			return nil, &KeyConflictError{Key: req.ReservationID, OperationType: "stock.reserve"}
		}
		return reservationToResponse(existing), nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	ttl := s.defaultTTL
	if req.ExpirationMinutes > 0 {
		ttl = time.Duration(req.ExpirationMinutes) * time.Minute
	}

	reservation := &model.StockReservation{
		ID:          reservationID,
		Status:      model.ReservationActive,
		RequestedBy: actorID,
		ExpiresAt:   time.Now().Add(ttl),
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		for _, item := range items {
			// Availability check and reservation insert share the tx so
			// concurrent reservations serialize on the product row lock.
			if _, err := s.productRepo.LockByIDTx(tx, item.ProductID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("product %s: %w", item.ProductID, ErrNotFound)
				}
				return err
			}
			available, err := s.ledger.AvailableTx(tx, item.ProductID, nil)
			if err != nil {
				return err
			}
			if available < item.Quantity {
				return &InsufficientStockError{
					ProductID: item.ProductID,
					Requested: item.Quantity,
					Available: available,
				}
			}
			reservation.Items = append(reservation.Items, model.StockReservationItem{
				ReservationID: reservationID,
				ProductID:     item.ProductID,
				Quantity:      item.Quantity,
			})
		}
		return s.repo.CreateTx(tx, reservation)
	})
	if txErr != nil {
		return nil, txErr
	}

	log.Info().
		Str("reservation_id", reservationID.String()).
		Int("items", len(reservation.Items)).
		Time("expires_at", reservation.ExpiresAt).
		Msg("stock reserved")
	return reservationToResponse(reservation), nil
}

// ── Release ──────────────────────────────────────────────────────────────────

func (s *reservationService) Release(ctx context.Context, reservationID uuid.UUID) (*dto.ReservationResponse, error) {
	reservation, err := s.repo.FindByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("reservation %s: %w", reservationID, ErrNotFound)
		}
		return nil, err
	}
	if reservation.Status != model.ReservationActive {
		return nil, &InvalidStateError{Entity: "reservation", Action: "release", Status: reservation.Status}
	}

	now := time.Now()
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		return s.repo.UpdateStatusTx(tx, reservationID, model.ReservationReleased, now)
	})
	if txErr != nil {
		return nil, txErr
	}
	reservation.Status = model.ReservationReleased
	reservation.ReleasedAt = &now
	return reservationToResponse(reservation), nil
}

func (s *reservationService) ConsumeTx(tx *gorm.DB, reservationID uuid.UUID) error {
	return s.repo.UpdateStatusTx(tx, reservationID, model.ReservationConsumed, time.Now())
}

func (s *reservationService) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.MarkExpired(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Info().Int64("count", n).Msg("expired reservations swept")
	}
	return n, nil
}

// ── Helpers ──────────────────────────────────────────────────────────────────

type reservedItem struct {
	ProductID uuid.UUID
	Quantity  int
}

func parseItems(items []dto.StockItemRequest) ([]reservedItem, error) {
	parsed := make([]reservedItem, 0, len(items))
	seen := make(map[uuid.UUID]bool, len(items))
	for _, item := range items {
		id, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, &InvalidInputError{Reason: "product_id is not a uuid"}
		}
		if seen[id] {
			return nil, &InvalidInputError{Reason: fmt.Sprintf("product %s listed twice", id)}
		}
		seen[id] = true
		parsed = append(parsed, reservedItem{ProductID: id, Quantity: item.Quantity})
	}
	return parsed, nil
}

func sameItems(existing []model.StockReservationItem, requested []reservedItem) bool {
	if len(existing) != len(requested) {
		return false
	}
	byProduct := make(map[uuid.UUID]int, len(existing))
	for _, item := range existing {
		byProduct[item.ProductID] = item.Quantity
	}
	for _, item := range requested {
		if byProduct[item.ProductID] != item.Quantity {
			return false
		}
	}
	return true
}

func reservationToResponse(r *model.StockReservation) *dto.ReservationResponse {
	items := make([]dto.ReservationItemResponse, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, dto.ReservationItemResponse{
			ProductID: item.ProductID.String(),
			Quantity:  item.Quantity,
		})
	}
	return &dto.ReservationResponse{
		ID:        r.ID.String(),
		Status:    r.Status,
		Items:     items,
		ExpiresAt: r.ExpiresAt.Format(time.RFC3339),
		CreatedAt: r.CreatedAt.Format(time.RFC3339),
	}
}
