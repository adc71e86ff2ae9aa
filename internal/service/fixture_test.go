package service_test

import (
	"testing"

	"aurumpos/internal/model"
	"aurumpos/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// fixture wires the full service graph over in-memory stubs.
type fixture struct {
	products     *stubProductRepo
	ledgerRepo   *stubLedgerRepo
	idemRepo     *stubIdempotencyRepo
	resRepo      *stubReservationRepo
	transferRepo *stubTransferRepo
	countRepo    *stubCycleCountRepo
	saleRepo     *stubSaleRepo
	branchRepo   *stubBranchRepo

	guard        service.IdempotencyGuard
	ledger       service.LedgerService
	reservations service.ReservationService
	checkout     service.CheckoutService
	transfers    service.TransferService
	counts       service.CycleCountService

	actor uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		products:     newStubProductRepo(),
		ledgerRepo:   newStubLedgerRepo(),
		idemRepo:     newStubIdempotencyRepo(),
		resRepo:      newStubReservationRepo(),
		transferRepo: newStubTransferRepo(),
		countRepo:    newStubCycleCountRepo(),
		saleRepo:     newStubSaleRepo(),
		branchRepo:   newStubBranchRepo(),
		actor:        uuid.New(),
	}
	f.guard = service.NewIdempotencyGuard(f.idemRepo)
	f.ledger = service.NewLedgerService(f.ledgerRepo, f.products, f.resRepo, f.guard, nil)
	f.reservations = service.NewReservationService(f.resRepo, f.products, f.ledger, 30)
	f.checkout = service.NewCheckoutService(f.products, f.saleRepo, f.resRepo, f.ledger, f.reservations, f.guard)
	f.transfers = service.NewTransferService(f.transferRepo, f.products, f.branchRepo, f.ledgerRepo, f.ledger, f.guard)
	f.counts = service.NewCycleCountService(f.countRepo, f.products, f.ledgerRepo, f.ledger, f.guard)
	return f
}

func newUUIDString() string { return uuid.NewString() }

// addProduct seeds a product with opening stock at no particular branch.
func (f *fixture) addProduct(price string, opening, stockMin int) *model.Product {
	p := f.products.add(&model.Product{
		SKU:       "SKU-" + uuid.NewString()[:8],
		Name:      "Test Jewel",
		UnitPrice: decimal.RequireFromString(price),
		StockMin:  stockMin,
		Active:    true,
	})
	if opening != 0 {
		_ = f.ledgerRepo.CreateTx(nil, &model.StockLedgerEntry{
			ProductID: p.ID,
			Type:      model.EntryIn,
			Quantity:  opening,
			Reason:    "opening stock",
			CreatedBy: f.actor,
		})
		p.StockCached = opening
	}
	return p
}

// addBranchStock seeds opening stock scoped to a branch.
func (f *fixture) addBranchStock(productID, branchID uuid.UUID, qty int) {
	_ = f.ledgerRepo.CreateTx(nil, &model.StockLedgerEntry{
		ProductID: productID,
		BranchID:  &branchID,
		Type:      model.EntryIn,
		Quantity:  qty,
		Reason:    "opening stock",
		CreatedBy: f.actor,
	})
}
