package service_test

import (
	"context"
	"testing"

	"aurumpos/internal/dto"
	"aurumpos/internal/model"
	"aurumpos/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) requestTransfer(t *testing.T, productID uuid.UUID, qty int, from, to uuid.UUID) *dto.TransferResponse {
	t.Helper()
	resp, err := f.transfers.Request(context.Background(), f.actor, dto.RequestTransferRequest{
		ProductID:      productID.String(),
		Quantity:       qty,
		FromBranchID:   from.String(),
		ToBranchID:     to.String(),
		IdempotencyKey: "tr-" + uuid.NewString(),
	})
	require.NoError(t, err)
	return resp
}

func TestTransferLifecycleMovesStockBetweenBranches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addProduct("100.00", 0, 0)
	from := f.branchRepo.add()
	to := f.branchRepo.add()
	f.addBranchStock(p.ID, from, 10)

	resp := f.requestTransfer(t, p.ID, 4, from, to)
	assert.Equal(t, model.TransferRequested, resp.Status)

	// Request alone moves nothing.
	fromBalance, _ := f.ledger.Balance(ctx, p.ID, &from)
	assert.Equal(t, 10, fromBalance)

	transferID := uuid.MustParse(resp.ID)
	shipped, err := f.transfers.Ship(ctx, f.actor, transferID)
	require.NoError(t, err)
	assert.Equal(t, model.TransferShipped, shipped.Status)

	// In transit: gone from the source, not yet at the destination.
	fromBalance, _ = f.ledger.Balance(ctx, p.ID, &from)
	toBalance, _ := f.ledger.Balance(ctx, p.ID, &to)
	assert.Equal(t, 6, fromBalance)
	assert.Equal(t, 0, toBalance)

	received, err := f.transfers.Receive(ctx, f.actor, transferID)
	require.NoError(t, err)
	assert.Equal(t, model.TransferReceived, received.Status)

	fromBalance, _ = f.ledger.Balance(ctx, p.ID, &from)
	toBalance, _ = f.ledger.Balance(ctx, p.ID, &to)
	assert.Equal(t, 6, fromBalance)
	assert.Equal(t, 4, toBalance)

	// The org-wide balance never changed throughout.
	total, _ := f.ledger.Balance(ctx, p.ID, nil)
	assert.Equal(t, 10, total)
}

func TestTransferRequestRequiresSourceStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addProduct("100.00", 0, 0)
	from := f.branchRepo.add()
	to := f.branchRepo.add()
	f.addBranchStock(p.ID, from, 3)

	_, err := f.transfers.Request(ctx, f.actor, dto.RequestTransferRequest{
		ProductID:      p.ID.String(),
		Quantity:       5,
		FromBranchID:   from.String(),
		ToBranchID:     to.String(),
		IdempotencyKey: "tr-insufficient-1",
	})
	var insufficient *service.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 3, insufficient.Available)
}

func TestTransferRequestReplaysOnRetry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addProduct("100.00", 0, 0)
	from := f.branchRepo.add()
	to := f.branchRepo.add()
	f.addBranchStock(p.ID, from, 10)

	req := dto.RequestTransferRequest{
		ProductID:      p.ID.String(),
		Quantity:       4,
		FromBranchID:   from.String(),
		ToBranchID:     to.String(),
		IdempotencyKey: "tr-retry-0001",
	}
	first, err := f.transfers.Request(ctx, f.actor, req)
	require.NoError(t, err)
	second, err := f.transfers.Request(ctx, f.actor, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, f.transferRepo.all(), 1)
}

func TestTransferRejectsSameBranch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addProduct("100.00", 0, 0)
	branch := f.branchRepo.add()

	_, err := f.transfers.Request(ctx, f.actor, dto.RequestTransferRequest{
		ProductID:      p.ID.String(),
		Quantity:       1,
		FromBranchID:   branch.String(),
		ToBranchID:     branch.String(),
		IdempotencyKey: "tr-samebranch-01",
	})
	var invalid *service.InvalidInputError
	require.ErrorAs(t, err, &invalid)
}

func TestTransferRequestRejectsUnknownBranch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addProduct("100.00", 0, 0)
	from := f.branchRepo.add()

	_, err := f.transfers.Request(ctx, f.actor, dto.RequestTransferRequest{
		ProductID:      p.ID.String(),
		Quantity:       1,
		FromBranchID:   from.String(),
		ToBranchID:     uuid.NewString(),
		IdempotencyKey: "tr-nobranch-01",
	})
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestTransferShipIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addProduct("100.00", 0, 0)
	from := f.branchRepo.add()
	to := f.branchRepo.add()
	f.addBranchStock(p.ID, from, 10)

	resp := f.requestTransfer(t, p.ID, 4, from, to)
	transferID := uuid.MustParse(resp.ID)

	_, err := f.transfers.Ship(ctx, f.actor, transferID)
	require.NoError(t, err)
	// A retried ship replays: same state, no second transfer_out.
	again, err := f.transfers.Ship(ctx, f.actor, transferID)
	require.NoError(t, err)
	assert.Equal(t, model.TransferShipped, again.Status)

	fromBalance, _ := f.ledger.Balance(ctx, p.ID, &from)
	assert.Equal(t, 6, fromBalance)
	assert.Len(t, f.ledgerRepo.entriesOf(p.ID, model.EntryTransferOut), 1)
}

func TestTransferInvalidTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addProduct("100.00", 0, 0)
	from := f.branchRepo.add()
	to := f.branchRepo.add()
	f.addBranchStock(p.ID, from, 10)

	resp := f.requestTransfer(t, p.ID, 4, from, to)
	transferID := uuid.MustParse(resp.ID)

	// Receive before ship.
	_, err := f.transfers.Receive(ctx, f.actor, transferID)
	var invalidState *service.InvalidStateError
	require.ErrorAs(t, err, &invalidState)

	_, err = f.transfers.Ship(ctx, f.actor, transferID)
	require.NoError(t, err)

	// Cancel after ship.
	_, err = f.transfers.Cancel(ctx, f.actor, transferID)
	require.ErrorAs(t, err, &invalidState)
}

func TestTransferCancelFromRequested(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addProduct("100.00", 0, 0)
	from := f.branchRepo.add()
	to := f.branchRepo.add()
	f.addBranchStock(p.ID, from, 10)

	resp := f.requestTransfer(t, p.ID, 4, from, to)
	transferID := uuid.MustParse(resp.ID)

	canceled, err := f.transfers.Cancel(ctx, f.actor, transferID)
	require.NoError(t, err)
	assert.Equal(t, model.TransferCanceled, canceled.Status)

	// Canceled before ship: no stock ever moved.
	fromBalance, _ := f.ledger.Balance(ctx, p.ID, &from)
	assert.Equal(t, 10, fromBalance)

	// Ship after cancel is illegal.
	_, err = f.transfers.Ship(ctx, f.actor, transferID)
	var invalidState *service.InvalidStateError
	require.ErrorAs(t, err, &invalidState)
}

func TestTransferShipRechecksSourceBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addProduct("100.00", 0, 0)
	from := f.branchRepo.add()
	to := f.branchRepo.add()
	f.addBranchStock(p.ID, from, 10)

	resp := f.requestTransfer(t, p.ID, 8, from, to)
	transferID := uuid.MustParse(resp.ID)

	// Stock left the source between request and ship.
	_, err := f.ledger.AppendTx(nil, &model.StockLedgerEntry{
		ProductID: p.ID, BranchID: &from, Type: model.EntryOut, Quantity: -5,
		Reason: "sale", CreatedBy: f.actor,
	})
	require.NoError(t, err)

	_, err = f.transfers.Ship(ctx, f.actor, transferID)
	var insufficient *service.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 5, insufficient.Available)
}
