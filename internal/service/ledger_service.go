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
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// LedgerService owns the append-only stock ledger and everything derived
// from it: balances, availability, history, manual updates, low-stock alerts
// and cache reconciliation.
type LedgerService interface {
	// AppendTx writes one entry inside the caller's transaction and refreshes
	// the product's cached stock to the post-append balance. The refresh is
	// best effort; the summation stays authoritative.
	AppendTx(tx *gorm.DB, e *model.StockLedgerEntry) (int, error)

	Balance(ctx context.Context, productID uuid.UUID, branchID *uuid.UUID) (int, error)

	// Available computes promised-available stock: ledger balance minus
	// active unexpired reservations. excludeReservation removes one
	// reservation's hold from the computation (a checkout consuming its own
	// reservation must not be blocked by it).
	Available(ctx context.Context, productID uuid.UUID, excludeReservation *uuid.UUID) (int, error)
	AvailableTx(tx *gorm.DB, productID uuid.UUID, excludeReservation *uuid.UUID) (int, error)

	History(ctx context.Context, filter dto.LedgerFilter) (*dto.LedgerListResponse, error)

	UpdateStock(ctx context.Context, actorID uuid.UUID, req dto.UpdateStockRequest) (*dto.StockUpdateResponse, error)
	BulkUpdateStock(ctx context.Context, actorID uuid.UUID, req dto.BulkUpdateStockRequest) (*dto.BulkUpdateStockResponse, error)

	Alerts(ctx context.Context) ([]dto.StockAlertResponse, error)

	ReconcileProduct(ctx context.Context, productID uuid.UUID) (*dto.ReconcileFinding, error)
	ReconcileAll(ctx context.Context) (*dto.ReconcileResponse, error)
}

type ledgerService struct {
	ledgerRepo      repository.LedgerRepository
	productRepo     repository.ProductRepository
	reservationRepo repository.ReservationRepository
	guard           IdempotencyGuard
	rdb             *redis.Client
}

func NewLedgerService(
	ledgerRepo repository.LedgerRepository,
	productRepo repository.ProductRepository,
	reservationRepo repository.ReservationRepository,
	guard IdempotencyGuard,
	rdb *redis.Client,
) LedgerService {
	return &ledgerService{
		ledgerRepo:      ledgerRepo,
		productRepo:     productRepo,
		reservationRepo: reservationRepo,
		guard:           guard,
		rdb:             rdb,
	}
}

// BalanceCacheKey is the Redis key for the read-side balance cache of a
// product. The cache serves GET endpoints only — availability decisions
// always recompute from the ledger.
func BalanceCacheKey(productID uuid.UUID) string {
	return "balance:" + productID.String()
}

// ── Append ───────────────────────────────────────────────────────────────────

func (s *ledgerService) AppendTx(tx *gorm.DB, e *model.StockLedgerEntry) (int, error) {
	if !model.ValidEntryType(e.Type) {
		return 0, &InvalidInputError{Reason: fmt.Sprintf("unknown ledger entry type %q", e.Type)}
	}
	if !model.SignValid(e.Type, e.Quantity) {
		return 0, &InvalidInputError{Reason: fmt.Sprintf("quantity %d has wrong sign for type %q", e.Quantity, e.Type)}
	}

	if err := s.ledgerRepo.CreateTx(tx, e); err != nil {
		return 0, err
	}

	// Opportunistic refresh of the denormalized field, in the same tx.
	// Org-wide balance: the cached field is branch-agnostic.
	balance, err := s.ledgerRepo.BalanceTx(tx, e.ProductID, nil)
	if err != nil {
		return 0, err
	}
	if err := s.productRepo.SetStockCachedTx(tx, e.ProductID, balance); err != nil {
		return 0, err
	}

	s.invalidateBalanceCache(e.ProductID)
	return balance, nil
}

func (s *ledgerService) invalidateBalanceCache(productID uuid.UUID) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(context.Background(), BalanceCacheKey(productID)).Err(); err != nil {
		log.Warn().Err(err).Str("product_id", productID.String()).Msg("balance cache invalidation failed")
	}
}

// ── Balance / availability ───────────────────────────────────────────────────

func (s *ledgerService) Balance(ctx context.Context, productID uuid.UUID, branchID *uuid.UUID) (int, error) {
	return s.ledgerRepo.Balance(ctx, productID, branchID)
}

func (s *ledgerService) Available(ctx context.Context, productID uuid.UUID, excludeReservation *uuid.UUID) (int, error) {
	balance, err := s.ledgerRepo.Balance(ctx, productID, nil)
	if err != nil {
		return 0, err
	}
	reserved, err := s.reservationRepo.ActiveReservedQty(ctx, productID, time.Now(), excludeReservation)
	if err != nil {
		return 0, err
	}
	return balance - reserved, nil
}

func (s *ledgerService) AvailableTx(tx *gorm.DB, productID uuid.UUID, excludeReservation *uuid.UUID) (int, error) {
	balance, err := s.ledgerRepo.BalanceTx(tx, productID, nil)
	if err != nil {
		return 0, err
	}
	reserved, err := s.reservationRepo.ActiveReservedQtyTx(tx, productID, time.Now(), excludeReservation)
	if err != nil {
		return 0, err
	}
	return balance - reserved, nil
}

// ── History ──────────────────────────────────────────────────────────────────

func (s *ledgerService) History(ctx context.Context, filter dto.LedgerFilter) (*dto.LedgerListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	entries, total, err := s.ledgerRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.LedgerEntryResponse, 0, len(entries))
	for i := range entries {
		data = append(data, entryToResponse(&entries[i]))
	}
	return &dto.LedgerListResponse{
		Data:  data,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

func entryToResponse(e *model.StockLedgerEntry) dto.LedgerEntryResponse {
	var branchID *string
	if e.BranchID != nil {
		s := e.BranchID.String()
		branchID = &s
	}
	return dto.LedgerEntryResponse{
		ID:        e.ID.String(),
		ProductID: e.ProductID.String(),
		BranchID:  branchID,
		Type:      e.Type,
		Quantity:  e.Quantity,
		Reason:    e.Reason,
		Reference: e.Reference,
		CreatedBy: e.CreatedBy.String(),
		CreatedAt: e.CreatedAt.Format(time.RFC3339),
	}
}

// ── Manual updates ───────────────────────────────────────────────────────────
// Back-office corrections. in/out requests carry a positive quantity and the
// type determines the stored sign; adjustment carries its own sign.

func (s *ledgerService) UpdateStock(ctx context.Context, actorID uuid.UUID, req dto.UpdateStockRequest) (*dto.StockUpdateResponse, error) {
	var resp dto.StockUpdateResponse
	_, err := s.guard.Do(ctx, req.IdempotencyKey, "stock.update", req, &resp, func(tx *gorm.DB) (interface{}, error) {
		return s.applyUpdateTx(tx, actorID, req)
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *ledgerService) BulkUpdateStock(ctx context.Context, actorID uuid.UUID, req dto.BulkUpdateStockRequest) (*dto.BulkUpdateStockResponse, error) {
	var resp dto.BulkUpdateStockResponse
	_, err := s.guard.Do(ctx, req.IdempotencyKey, "stock.bulk_update", req, &resp, func(tx *gorm.DB) (interface{}, error) {
		out := &dto.BulkUpdateStockResponse{Entries: make([]dto.StockUpdateResponse, 0, len(req.Items))}
		for _, item := range req.Items {
			one, err := s.applyUpdateTx(tx, actorID, dto.UpdateStockRequest{
				ProductID:      item.ProductID,
				Type:           req.Type,
				Quantity:       item.Quantity,
				Reason:         req.Reason,
				IdempotencyKey: req.IdempotencyKey,
			})
			if err != nil {
				return nil, err // whole batch rolls back
			}
			out.Entries = append(out.Entries, *one)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *ledgerService) applyUpdateTx(tx *gorm.DB, actorID uuid.UUID, req dto.UpdateStockRequest) (*dto.StockUpdateResponse, error) {
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return nil, &InvalidInputError{Reason: "product_id is not a uuid"}
	}

	var branchID *uuid.UUID
	if req.BranchID != nil {
		id, err := uuid.Parse(*req.BranchID)
		if err != nil {
			return nil, &InvalidInputError{Reason: "branch_id is not a uuid"}
		}
		branchID = &id
	}

	// Lock the product row: serializes with concurrent checkouts.
	if _, err := s.productRepo.LockByIDTx(tx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product %s: %w", req.ProductID, ErrNotFound)
		}
		return nil, err
	}

	qty := req.Quantity
	switch req.Type {
	case model.EntryIn:
		if qty <= 0 {
			return nil, &InvalidInputError{Reason: "quantity must be positive for type in"}
		}
	case model.EntryOut:
		if qty <= 0 {
			return nil, &InvalidInputError{Reason: "quantity must be positive for type out"}
		}
		qty = -qty
	case model.EntryAdjustment:
		if qty == 0 {
			return nil, &InvalidInputError{Reason: "adjustment quantity must be nonzero"}
		}
	default:
		return nil, &InvalidInputError{Reason: fmt.Sprintf("type %q not allowed for manual updates", req.Type)}
	}

	key := req.IdempotencyKey
	entry := &model.StockLedgerEntry{
		ProductID:      productID,
		BranchID:       branchID,
		Type:           req.Type,
		Quantity:       qty,
		Reason:         req.Reason,
		Reference:      req.Reference,
		IdempotencyKey: &key,
		CreatedBy:      actorID,
	}
	balance, err := s.AppendTx(tx, entry)
	if err != nil {
		return nil, err
	}

	return &dto.StockUpdateResponse{
		EntryID:   entry.ID.String(),
		ProductID: req.ProductID,
		BranchID:  req.BranchID,
		Type:      req.Type,
		Quantity:  qty,
		Balance:   balance,
		CreatedAt: entry.CreatedAt.Format(time.RFC3339),
	}, nil
}

// ── Alerts ───────────────────────────────────────────────────────────────────

func (s *ledgerService) Alerts(ctx context.Context) ([]dto.StockAlertResponse, error) {
	products, err := s.productRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	alerts := make([]dto.StockAlertResponse, 0)
	for i := range products {
		p := &products[i]
		balance, err := s.ledgerRepo.Balance(ctx, p.ID, nil)
		if err != nil {
			return nil, err
		}
		if balance <= p.StockMin {
			alerts = append(alerts, dto.StockAlertResponse{
				ProductID: p.ID.String(),
				SKU:       p.SKU,
				Name:      p.Name,
				Balance:   balance,
				StockMin:  p.StockMin,
			})
		}
	}
	return alerts, nil
}

// ── Reconciliation ───────────────────────────────────────────────────────────
// Drift between the cached field and the ledger is a finding, not an error.

func (s *ledgerService) ReconcileProduct(ctx context.Context, productID uuid.UUID) (*dto.ReconcileFinding, error) {
	p, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product %s: %w", productID, ErrNotFound)
		}
		return nil, err
	}
	return s.reconcileOne(ctx, p)
}

func (s *ledgerService) ReconcileAll(ctx context.Context) (*dto.ReconcileResponse, error) {
	products, err := s.productRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	resp := &dto.ReconcileResponse{Findings: make([]dto.ReconcileFinding, 0)}
	for i := range products {
		finding, err := s.reconcileOne(ctx, &products[i])
		if err != nil {
			return nil, err
		}
		resp.Checked++
		if finding.Drift != 0 {
			resp.Drifted++
			resp.Findings = append(resp.Findings, *finding)
		}
	}
	return resp, nil
}

func (s *ledgerService) reconcileOne(ctx context.Context, p *model.Product) (*dto.ReconcileFinding, error) {
	balance, err := s.ledgerRepo.Balance(ctx, p.ID, nil)
	if err != nil {
		return nil, err
	}
	finding := &dto.ReconcileFinding{
		ProductID: p.ID.String(),
		Cached:    p.StockCached,
		Ledger:    balance,
		Drift:     p.StockCached - balance,
	}
	if finding.Drift != 0 {
		if err := s.productRepo.SetStockCached(ctx, p.ID, balance); err != nil {
			return nil, err
		}
		finding.Corrected = true
		s.invalidateBalanceCache(p.ID)
		log.Warn().
			Str("product_id", p.ID.String()).
			Int("cached", finding.Cached).
			Int("ledger", balance).
			Msg("stock cache drift corrected")
	}
	return finding, nil
}
