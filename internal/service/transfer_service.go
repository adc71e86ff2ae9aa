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

// TransferService drives the branch transfer state machine. Stock leaves the
// source ledger at ship and enters the destination ledger at receive; the
// request itself moves nothing.
type TransferService interface {
	Request(ctx context.Context, actorID uuid.UUID, req dto.RequestTransferRequest) (*dto.TransferResponse, error)
	Ship(ctx context.Context, actorID uuid.UUID, transferID uuid.UUID) (*dto.TransferResponse, error)
	Receive(ctx context.Context, actorID uuid.UUID, transferID uuid.UUID) (*dto.TransferResponse, error)
	Cancel(ctx context.Context, actorID uuid.UUID, transferID uuid.UUID) (*dto.TransferResponse, error)
	Get(ctx context.Context, transferID uuid.UUID) (*dto.TransferResponse, error)
}

type transferService struct {
	repo        repository.TransferRepository
	productRepo repository.ProductRepository
	branchRepo  repository.BranchRepository
	ledgerRepo  repository.LedgerRepository
	ledger      LedgerService
	guard       IdempotencyGuard
}

func NewTransferService(
	repo repository.TransferRepository,
	productRepo repository.ProductRepository,
	branchRepo repository.BranchRepository,
	ledgerRepo repository.LedgerRepository,
	ledger LedgerService,
	guard IdempotencyGuard,
) TransferService {
	return &transferService{
		repo:        repo,
		productRepo: productRepo,
		branchRepo:  branchRepo,
		ledgerRepo:  ledgerRepo,
		ledger:      ledger,
		guard:       guard,
	}
}

// ── Request ──────────────────────────────────────────────────────────────────

func (s *transferService) Request(ctx context.Context, actorID uuid.UUID, req dto.RequestTransferRequest) (*dto.TransferResponse, error) {
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return nil, &InvalidInputError{Reason: "product_id is not a uuid"}
	}
	fromID, err := uuid.Parse(req.FromBranchID)
	if err != nil {
		return nil, &InvalidInputError{Reason: "from_branch_id is not a uuid"}
	}
	toID, err := uuid.Parse(req.ToBranchID)
	if err != nil {
		return nil, &InvalidInputError{Reason: "to_branch_id is not a uuid"}
	}
	if fromID == toID {
		return nil, &InvalidInputError{Reason: "source and destination branch must differ"}
	}

	for _, branchID := range []uuid.UUID{fromID, toID} {
		ok, err := s.branchRepo.Exists(ctx, branchID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("branch %s: %w", branchID, ErrNotFound)
		}
	}
	if _, err := s.productRepo.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product %s: %w", productID, ErrNotFound)
		}
		return nil, err
	}

	var resp dto.TransferResponse
	_, err = s.guard.Do(ctx, req.IdempotencyKey, "transfer.request", req, &resp, func(tx *gorm.DB) (interface{}, error) {
		// Soft check at request time. The authoritative check happens at
		// ship, when stock actually leaves the source branch.
		balance, err := s.ledgerRepo.BalanceTx(tx, productID, &fromID)
		if err != nil {
			return nil, err
		}
		if balance < req.Quantity {
			return nil, &InsufficientStockError{
				ProductID: productID,
				Requested: req.Quantity,
				Available: balance,
			}
		}

		transfer := &model.StockTransfer{
			ProductID:      productID,
			Quantity:       req.Quantity,
			FromBranchID:   fromID,
			ToBranchID:     toID,
			Reference:      req.Reference,
			IdempotencyKey: req.IdempotencyKey,
			RequestedBy:    actorID,
			Status:         model.TransferRequested,
			RequestedAt:    time.Now(),
		}
		if err := s.repo.CreateTx(tx, transfer); err != nil {
			return nil, err
		}
		return transferToResponse(transfer), nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ── Transitions ──────────────────────────────────────────────────────────────
// Each transition is guarded with a key derived from the transfer id, so the
// transfer itself is the idempotency scope: a retried ship replays instead of
// double-moving stock.

func (s *transferService) Ship(ctx context.Context, actorID uuid.UUID, transferID uuid.UUID) (*dto.TransferResponse, error) {
	var resp dto.TransferResponse
	_, err := s.guard.Do(ctx, transferID.String()+":ship", "transfer.ship", transferID, &resp, func(tx *gorm.DB) (interface{}, error) {
		transfer, err := s.lockTransfer(tx, transferID)
		if err != nil {
			return nil, err
		}
		if transfer.Status != model.TransferRequested {
			return nil, &InvalidStateError{Entity: "transfer", Action: "ship", Status: transfer.Status}
		}

		// Re-check at the moment stock leaves: the soft check at request
		// time may be stale.
		balance, err := s.ledgerRepo.BalanceTx(tx, transfer.ProductID, &transfer.FromBranchID)
		if err != nil {
			return nil, err
		}
		if balance < transfer.Quantity {
			return nil, &InsufficientStockError{
				ProductID: transfer.ProductID,
				Requested: transfer.Quantity,
				Available: balance,
			}
		}

		ref := transfer.ID.String()
		entry := &model.StockLedgerEntry{
			ProductID: transfer.ProductID,
			BranchID:  &transfer.FromBranchID,
			Type:      model.EntryTransferOut,
			Quantity:  -transfer.Quantity,
			Reason:    "branch transfer",
			Reference: &ref,
			CreatedBy: actorID,
		}
		if _, err := s.ledger.AppendTx(tx, entry); err != nil {
			return nil, err
		}

		now := time.Now()
		transfer.Status = model.TransferShipped
		transfer.ShippedAt = &now
		transfer.ShippedBy = &actorID
		if err := s.repo.SaveTx(tx, transfer); err != nil {
			return nil, err
		}
		log.Info().Str("transfer_id", ref).Msg("transfer shipped")
		return transferToResponse(transfer), nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *transferService) Receive(ctx context.Context, actorID uuid.UUID, transferID uuid.UUID) (*dto.TransferResponse, error) {
	var resp dto.TransferResponse
	_, err := s.guard.Do(ctx, transferID.String()+":receive", "transfer.receive", transferID, &resp, func(tx *gorm.DB) (interface{}, error) {
		transfer, err := s.lockTransfer(tx, transferID)
		if err != nil {
			return nil, err
		}
		if transfer.Status != model.TransferShipped {
			return nil, &InvalidStateError{Entity: "transfer", Action: "receive", Status: transfer.Status}
		}

		ref := transfer.ID.String()
		entry := &model.StockLedgerEntry{
			ProductID: transfer.ProductID,
			BranchID:  &transfer.ToBranchID,
			Type:      model.EntryTransferIn,
			Quantity:  transfer.Quantity,
			Reason:    "branch transfer",
			Reference: &ref,
			CreatedBy: actorID,
		}
		if _, err := s.ledger.AppendTx(tx, entry); err != nil {
			return nil, err
		}

		now := time.Now()
		transfer.Status = model.TransferReceived
		transfer.ReceivedAt = &now
		transfer.ReceivedBy = &actorID
		if err := s.repo.SaveTx(tx, transfer); err != nil {
			return nil, err
		}
		log.Info().Str("transfer_id", ref).Msg("transfer received")
		return transferToResponse(transfer), nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Cancel is legal from requested only. Once shipped the stock is in transit
// and the transfer must be received at the destination (and moved back with a
// reverse transfer if needed).
func (s *transferService) Cancel(ctx context.Context, actorID uuid.UUID, transferID uuid.UUID) (*dto.TransferResponse, error) {
	var resp dto.TransferResponse
	_, err := s.guard.Do(ctx, transferID.String()+":cancel", "transfer.cancel", transferID, &resp, func(tx *gorm.DB) (interface{}, error) {
		transfer, err := s.lockTransfer(tx, transferID)
		if err != nil {
			return nil, err
		}
		if transfer.Status != model.TransferRequested {
			return nil, &InvalidStateError{Entity: "transfer", Action: "cancel", Status: transfer.Status}
		}

		now := time.Now()
		transfer.Status = model.TransferCanceled
		transfer.CanceledAt = &now
		if err := s.repo.SaveTx(tx, transfer); err != nil {
			return nil, err
		}
		return transferToResponse(transfer), nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *transferService) Get(ctx context.Context, transferID uuid.UUID) (*dto.TransferResponse, error) {
	transfer, err := s.repo.FindByID(ctx, transferID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("transfer %s: %w", transferID, ErrNotFound)
		}
		return nil, err
	}
	return transferToResponse(transfer), nil
}

func (s *transferService) lockTransfer(tx *gorm.DB, id uuid.UUID) (*model.StockTransfer, error) {
	transfer, err := s.repo.LockByIDTx(tx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("transfer %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return transfer, nil
}

func transferToResponse(t *model.StockTransfer) *dto.TransferResponse {
	resp := &dto.TransferResponse{
		ID:           t.ID.String(),
		ProductID:    t.ProductID.String(),
		Quantity:     t.Quantity,
		FromBranchID: t.FromBranchID.String(),
		ToBranchID:   t.ToBranchID.String(),
		Reference:    t.Reference,
		Status:       t.Status,
		RequestedAt:  t.RequestedAt.Format(time.RFC3339),
	}
	if t.ShippedAt != nil {
		s := t.ShippedAt.Format(time.RFC3339)
		resp.ShippedAt = &s
	}
	if t.ReceivedAt != nil {
		s := t.ReceivedAt.Format(time.RFC3339)
		resp.ReceivedAt = &s
	}
	if t.CanceledAt != nil {
		s := t.CanceledAt.Format(time.RFC3339)
		resp.CanceledAt = &s
	}
	return resp
}
