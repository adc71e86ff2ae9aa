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
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CycleCountService runs physical stock audits: create, preload a snapshot of
// expected quantities, count, complete, and apply the resulting adjustments
// to the ledger at most once.
type CycleCountService interface {
	Create(ctx context.Context, actorID uuid.UUID, req dto.CreateCycleCountRequest) (*dto.CycleCountResponse, error)
	Preload(ctx context.Context, countID uuid.UUID) (*dto.CycleCountResponse, error)
	Start(ctx context.Context, countID uuid.UUID) (*dto.CycleCountResponse, error)
	SetItemCount(ctx context.Context, actorID uuid.UUID, countID, itemID uuid.UUID, req dto.SetItemCountRequest) (*dto.CycleCountItemResponse, error)
	Complete(ctx context.Context, countID uuid.UUID) (*dto.CycleCountResponse, error)
	Cancel(ctx context.Context, countID uuid.UUID) (*dto.CycleCountResponse, error)
	Apply(ctx context.Context, actorID uuid.UUID, countID uuid.UUID) (*dto.ApplyAdjustmentsResponse, error)
	Get(ctx context.Context, countID uuid.UUID) (*dto.CycleCountResponse, error)
}

type cycleCountService struct {
	repo        repository.CycleCountRepository
	productRepo repository.ProductRepository
	ledgerRepo  repository.LedgerRepository
	ledger      LedgerService
	guard       IdempotencyGuard
}

func NewCycleCountService(
	repo repository.CycleCountRepository,
	productRepo repository.ProductRepository,
	ledgerRepo repository.LedgerRepository,
	ledger LedgerService,
	guard IdempotencyGuard,
) CycleCountService {
	return &cycleCountService{
		repo:        repo,
		productRepo: productRepo,
		ledgerRepo:  ledgerRepo,
		ledger:      ledger,
		guard:       guard,
	}
}

// ── Create / preload ─────────────────────────────────────────────────────────

func (s *cycleCountService) Create(ctx context.Context, actorID uuid.UUID, req dto.CreateCycleCountRequest) (*dto.CycleCountResponse, error) {
	var branchID *uuid.UUID
	if req.BranchID != nil {
		id, err := uuid.Parse(*req.BranchID)
		if err != nil {
			return nil, &InvalidInputError{Reason: "branch_id is not a uuid"}
		}
		branchID = &id
	}
	if req.TolerancePct.IsNegative() || req.TolerancePct.GreaterThan(decimal.NewFromInt(100)) {
		return nil, &InvalidInputError{Reason: "tolerance_pct must be between 0 and 100"}
	}

	count := &model.CycleCount{
		BranchID:     branchID,
		Type:         req.Type,
		TolerancePct: req.TolerancePct,
		Note:         req.Note,
		CreatedBy:    actorID,
		Status:       model.CycleCountPending,
	}
	if err := s.repo.Create(ctx, count); err != nil {
		return nil, err
	}
	return countToResponse(count), nil
}

// Preload snapshots the expected quantity of every active product from the
// ledger. It runs once: expected figures stay frozen even if stock moves
// while the count is underway — that movement shows up as variance, which is
// what the audit is for.
func (s *cycleCountService) Preload(ctx context.Context, countID uuid.UUID) (*dto.CycleCountResponse, error) {
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		count, err := s.lockCount(tx, countID)
		if err != nil {
			return err
		}
		if count.Status != model.CycleCountPending {
			return &InvalidStateError{Entity: "cycle count", Action: "preload", Status: count.Status}
		}
		if count.PreloadedAt != nil {
			return &InvalidStateError{Entity: "cycle count", Action: "preload", Status: "already preloaded"}
		}

		products, err := s.productRepo.ListActive(ctx)
		if err != nil {
			return err
		}
		items := make([]model.CycleCountItem, 0, len(products))
		for i := range products {
			expected, err := s.ledgerRepo.BalanceTx(tx, products[i].ID, count.BranchID)
			if err != nil {
				return err
			}
			items = append(items, model.CycleCountItem{
				CycleCountID: countID,
				ProductID:    products[i].ID,
				ExpectedQty:  expected,
			})
		}
		if len(items) > 0 {
			if err := s.repo.CreateItemsTx(tx, items); err != nil {
				return err
			}
		}

		now := time.Now()
		count.PreloadedAt = &now
		return s.repo.SaveTx(tx, count)
	})
	if txErr != nil {
		return nil, txErr
	}
	return s.Get(ctx, countID)
}

// ── Counting ─────────────────────────────────────────────────────────────────

func (s *cycleCountService) Start(ctx context.Context, countID uuid.UUID) (*dto.CycleCountResponse, error) {
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		count, err := s.lockCount(tx, countID)
		if err != nil {
			return err
		}
		if count.Status != model.CycleCountPending {
			return &InvalidStateError{Entity: "cycle count", Action: "start", Status: count.Status}
		}
		if count.PreloadedAt == nil {
			return &InvalidStateError{Entity: "cycle count", Action: "start", Status: "not preloaded"}
		}
		now := time.Now()
		count.Status = model.CycleCountInProgress
		count.StartedAt = &now
		return s.repo.SaveTx(tx, count)
	})
	if txErr != nil {
		return nil, txErr
	}
	return s.Get(ctx, countID)
}

func (s *cycleCountService) SetItemCount(ctx context.Context, actorID uuid.UUID, countID, itemID uuid.UUID, req dto.SetItemCountRequest) (*dto.CycleCountItemResponse, error) {
	count, err := s.findCount(ctx, countID)
	if err != nil {
		return nil, err
	}
	if count.Status != model.CycleCountInProgress {
		return nil, &InvalidStateError{Entity: "cycle count", Action: "set item count", Status: count.Status}
	}

	item, err := s.repo.FindItem(ctx, countID, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("cycle count item %s: %w", itemID, ErrNotFound)
		}
		return nil, err
	}

	// Recounting before complete is fine; the last count wins.
	item.CountedQty = req.CountedQty
	item.CountedBy = &actorID
	item.Reason = req.Reason
	item.VarianceQty = *req.CountedQty - item.ExpectedQty
	if err := s.repo.SaveItem(ctx, item); err != nil {
		return nil, err
	}
	return itemToResponse(item), nil
}

func (s *cycleCountService) Complete(ctx context.Context, countID uuid.UUID) (*dto.CycleCountResponse, error) {
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		count, err := s.lockCount(tx, countID)
		if err != nil {
			return err
		}
		if count.Status != model.CycleCountInProgress {
			return &InvalidStateError{Entity: "cycle count", Action: "complete", Status: count.Status}
		}
		uncounted, err := s.repo.UncountedItems(ctx, countID)
		if err != nil {
			return err
		}
		if uncounted > 0 {
			return &ValidationFailedError{Reason: fmt.Sprintf("%d items still uncounted", uncounted)}
		}
		now := time.Now()
		count.Status = model.CycleCountCompleted
		count.CompletedAt = &now
		return s.repo.SaveTx(tx, count)
	})
	if txErr != nil {
		return nil, txErr
	}
	return s.Get(ctx, countID)
}

func (s *cycleCountService) Cancel(ctx context.Context, countID uuid.UUID) (*dto.CycleCountResponse, error) {
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		count, err := s.lockCount(tx, countID)
		if err != nil {
			return err
		}
		if count.Status != model.CycleCountPending && count.Status != model.CycleCountInProgress {
			return &InvalidStateError{Entity: "cycle count", Action: "cancel", Status: count.Status}
		}
		now := time.Now()
		count.Status = model.CycleCountCanceled
		count.CanceledAt = &now
		return s.repo.SaveTx(tx, count)
	})
	if txErr != nil {
		return nil, txErr
	}
	return s.Get(ctx, countID)
}

// ── Apply ────────────────────────────────────────────────────────────────────

// Apply writes one adjustment entry per item whose variance is nonzero and
// outside the count's tolerance. Guarded on the count id, and belt-and-braces
// by AppliedAt: the adjustments hit the ledger at most once per count.
func (s *cycleCountService) Apply(ctx context.Context, actorID uuid.UUID, countID uuid.UUID) (*dto.ApplyAdjustmentsResponse, error) {
	var resp dto.ApplyAdjustmentsResponse
	_, err := s.guard.Do(ctx, countID.String()+":apply", "cycle_count.apply", countID, &resp, func(tx *gorm.DB) (interface{}, error) {
		count, err := s.lockCount(tx, countID)
		if err != nil {
			return nil, err
		}
		if count.Status != model.CycleCountCompleted {
			return nil, &InvalidStateError{Entity: "cycle count", Action: "apply", Status: count.Status}
		}
		if count.AppliedAt != nil {
			return nil, &InvalidStateError{Entity: "cycle count", Action: "apply", Status: "already applied"}
		}

		items, err := s.repo.ItemsTx(tx, countID)
		if err != nil {
			return nil, err
		}
		out := &dto.ApplyAdjustmentsResponse{
			CycleCountID: countID.String(),
			Results:      make([]dto.AdjustmentResult, 0, len(items)),
		}
		ref := countID.String()
		for i := range items {
			item := &items[i]
			result := dto.AdjustmentResult{
				ProductID: item.ProductID.String(),
				Variance:  item.VarianceQty,
			}
			if item.VarianceQty != 0 && !withinTolerance(item.ExpectedQty, item.VarianceQty, count.TolerancePct) {
				reason := "cycle count variance"
				if item.Reason != nil {
					reason = *item.Reason
				}
				entry := &model.StockLedgerEntry{
					ProductID: item.ProductID,
					BranchID:  count.BranchID,
					Type:      model.EntryAdjustment,
					Quantity:  item.VarianceQty,
					Reason:    reason,
					Reference: &ref,
					CreatedBy: actorID,
				}
				if _, err := s.ledger.AppendTx(tx, entry); err != nil {
					return nil, err
				}
				result.Applied = true
				out.Applied++
			} else {
				out.Skipped++
			}
			out.Results = append(out.Results, result)
		}

		now := time.Now()
		count.AppliedAt = &now
		if err := s.repo.SaveTx(tx, count); err != nil {
			return nil, err
		}
		log.Info().
			Str("cycle_count_id", ref).
			Int("applied", out.Applied).
			Int("skipped", out.Skipped).
			Msg("cycle count adjustments applied")
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// withinTolerance reports whether a variance is small enough to skip, as a
// percentage of the expected quantity. A zero expected quantity never
// tolerates variance: any discrepancy on an empty shelf is worth recording.
func withinTolerance(expected, variance int, tolerancePct decimal.Decimal) bool {
	if !tolerancePct.IsPositive() || expected <= 0 {
		return false
	}
	pct := decimal.NewFromInt(int64(abs(variance))).
		Div(decimal.NewFromInt(int64(expected))).
		Mul(decimal.NewFromInt(100))
	return pct.LessThanOrEqual(tolerancePct)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// ── Lookup / mapping ─────────────────────────────────────────────────────────

func (s *cycleCountService) Get(ctx context.Context, countID uuid.UUID) (*dto.CycleCountResponse, error) {
	count, err := s.findCount(ctx, countID)
	if err != nil {
		return nil, err
	}
	return countToResponse(count), nil
}

func (s *cycleCountService) findCount(ctx context.Context, countID uuid.UUID) (*model.CycleCount, error) {
	count, err := s.repo.FindByID(ctx, countID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("cycle count %s: %w", countID, ErrNotFound)
		}
		return nil, err
	}
	return count, nil
}

func (s *cycleCountService) lockCount(tx *gorm.DB, countID uuid.UUID) (*model.CycleCount, error) {
	count, err := s.repo.LockByIDTx(tx, countID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("cycle count %s: %w", countID, ErrNotFound)
		}
		return nil, err
	}
	return count, nil
}

func countToResponse(c *model.CycleCount) *dto.CycleCountResponse {
	var branchID *string
	if c.BranchID != nil {
		s := c.BranchID.String()
		branchID = &s
	}
	items := make([]dto.CycleCountItemResponse, 0, len(c.Items))
	for i := range c.Items {
		items = append(items, *itemToResponse(&c.Items[i]))
	}
	return &dto.CycleCountResponse{
		ID:           c.ID.String(),
		BranchID:     branchID,
		Type:         c.Type,
		TolerancePct: c.TolerancePct,
		Note:         c.Note,
		Status:       c.Status,
		Items:        items,
		PreloadedAt:  formatTimePtr(c.PreloadedAt),
		StartedAt:    formatTimePtr(c.StartedAt),
		CompletedAt:  formatTimePtr(c.CompletedAt),
		AppliedAt:    formatTimePtr(c.AppliedAt),
		CreatedAt:    c.CreatedAt.Format(time.RFC3339),
	}
}

func itemToResponse(item *model.CycleCountItem) *dto.CycleCountItemResponse {
	resp := &dto.CycleCountItemResponse{
		ItemID:      item.ID.String(),
		ProductID:   item.ProductID.String(),
		ExpectedQty: item.ExpectedQty,
		CountedQty:  item.CountedQty,
		VarianceQty: item.VarianceQty,
		Reason:      item.Reason,
	}
	if item.Product != nil {
		resp.SKU = item.Product.SKU
		resp.Name = item.Product.Name
	}
	return resp
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
