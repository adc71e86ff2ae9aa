package service_test

import (
	"context"
	"testing"

	"aurumpos/internal/dto"
	"aurumpos/internal/model"
	"aurumpos/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func cashPayment(total string) []dto.CheckoutPaymentRequest {
	return []dto.CheckoutPaymentRequest{{Method: "cash", Amount: money(total)}}
}

func TestProcessCheckoutHappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addProduct("150.00", 10, 0)

	resp, replayed, err := f.checkout.ProcessCheckout(ctx, f.actor, dto.CheckoutRequest{
		Items:          []dto.CheckoutItemRequest{{ProductID: p.ID.String(), Quantity: 2}},
		Payments:       cashPayment("300.00"),
		Total:          money("300.00"),
		IdempotencyKey: "chk-happy-00001",
	})
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, 1, resp.TicketNumber)
	assert.True(t, resp.Total.Equal(money("300.00")))

	// One negative "out" entry per line, referencing the sale.
	entries := f.ledgerRepo.entriesOf(p.ID, model.EntryOut)
	require.Len(t, entries, 1)
	assert.Equal(t, -2, entries[0].Quantity)
	require.NotNil(t, entries[0].Reference)
	assert.Equal(t, resp.SaleID, *entries[0].Reference)

	balance, err := f.ledger.Balance(ctx, p.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 8, balance)
}

func TestProcessCheckoutReplaysOnRetry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addProduct("150.00", 10, 0)

	req := dto.CheckoutRequest{
		Items:          []dto.CheckoutItemRequest{{ProductID: p.ID.String(), Quantity: 2}},
		Payments:       cashPayment("300.00"),
		Total:          money("300.00"),
		IdempotencyKey: "chk-retry-00001",
	}
	first, _, err := f.checkout.ProcessCheckout(ctx, f.actor, req)
	require.NoError(t, err)

	second, replayed, err := f.checkout.ProcessCheckout(ctx, f.actor, req)
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first.SaleID, second.SaleID)
	assert.Equal(t, first.TicketNumber, second.TicketNumber)

	// Stock moved once, not twice.
	balance, err := f.ledger.Balance(ctx, p.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 8, balance)
}

func TestProcessCheckoutRejectsTotalMismatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addProduct("150.00", 10, 0)

	_, _, err := f.checkout.ProcessCheckout(ctx, f.actor, dto.CheckoutRequest{
		Items:          []dto.CheckoutItemRequest{{ProductID: p.ID.String(), Quantity: 2}},
		Payments:       cashPayment("250.00"),
		Total:          money("250.00"), // server computes 300.00
		IdempotencyKey: "chk-mismatch-01",
	})
	var validation *service.ValidationFailedError
	require.ErrorAs(t, err, &validation)

	// Nothing persisted.
	balance, _ := f.ledger.Balance(ctx, p.ID, nil)
	assert.Equal(t, 10, balance)
}

func TestProcessCheckoutRejectsPaymentShortfall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addProduct("150.00", 10, 0)

	_, _, err := f.checkout.ProcessCheckout(ctx, f.actor, dto.CheckoutRequest{
		Items:          []dto.CheckoutItemRequest{{ProductID: p.ID.String(), Quantity: 2}},
		Payments:       cashPayment("299.00"),
		Total:          money("300.00"),
		IdempotencyKey: "chk-shortpay-01",
	})
	var validation *service.ValidationFailedError
	require.ErrorAs(t, err, &validation)
}

func TestProcessCheckoutToleratesOneCentRounding(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addProduct("33.33", 10, 0)

	// Three units at a 33.3333% discount: line rounding can land a cent off.
	_, _, err := f.checkout.ProcessCheckout(ctx, f.actor, dto.CheckoutRequest{
		Items: []dto.CheckoutItemRequest{{
			ProductID:   p.ID.String(),
			Quantity:    3,
			DiscountPct: money("33.3333"),
		}},
		Payments:       cashPayment("66.66"),
		Total:          money("66.66"),
		IdempotencyKey: "chk-rounding-01",
	})
	require.NoError(t, err)
}

func TestProcessCheckoutBlockedByOthersReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addProduct("100.00", 10, 0)

	// Another clerk holds 4; only 6 are promisable.
	_, err := f.reservations.Reserve(ctx, uuid.New(), dto.ReserveStockRequest{
		ReservationID: newUUIDString(),
		Items:         []dto.StockItemRequest{{ProductID: p.ID.String(), Quantity: 4}},
	})
	require.NoError(t, err)

	_, _, err = f.checkout.ProcessCheckout(ctx, f.actor, dto.CheckoutRequest{
		Items:          []dto.CheckoutItemRequest{{ProductID: p.ID.String(), Quantity: 7}},
		Payments:       cashPayment("700.00"),
		Total:          money("700.00"),
		IdempotencyKey: "chk-blocked-001",
	})
	var insufficient *service.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 6, insufficient.Available)

	// Six is fine.
	_, _, err = f.checkout.ProcessCheckout(ctx, f.actor, dto.CheckoutRequest{
		Items:          []dto.CheckoutItemRequest{{ProductID: p.ID.String(), Quantity: 6}},
		Payments:       cashPayment("600.00"),
		Total:          money("600.00"),
		IdempotencyKey: "chk-blocked-002",
	})
	require.NoError(t, err)
}

func TestProcessCheckoutConsumesOwnReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addProduct("100.00", 10, 0)
	reservationID := newUUIDString()

	_, err := f.reservations.Reserve(ctx, f.actor, dto.ReserveStockRequest{
		ReservationID: reservationID,
		Items:         []dto.StockItemRequest{{ProductID: p.ID.String(), Quantity: 10}},
	})
	require.NoError(t, err)

	// The checkout's own hold does not block it: all 10 go through.
	resp, _, err := f.checkout.ProcessCheckout(ctx, f.actor, dto.CheckoutRequest{
		Items:          []dto.CheckoutItemRequest{{ProductID: p.ID.String(), Quantity: 10}},
		Payments:       cashPayment("1000.00"),
		Total:          money("1000.00"),
		ReservationID:  &reservationID,
		IdempotencyKey: "chk-ownres-0001",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.SaleID)

	res := f.resRepo.reservations[uuid.MustParse(reservationID)]
	assert.Equal(t, model.ReservationConsumed, res.Status)
}

func TestProcessCheckoutMissingReservationIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addProduct("100.00", 10, 0)
	ghost := newUUIDString()

	_, _, err := f.checkout.ProcessCheckout(ctx, f.actor, dto.CheckoutRequest{
		Items:          []dto.CheckoutItemRequest{{ProductID: p.ID.String(), Quantity: 1}},
		Payments:       cashPayment("100.00"),
		Total:          money("100.00"),
		ReservationID:  &ghost,
		IdempotencyKey: "chk-ghostres-01",
	})
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestProcessCheckoutAppliesDiscounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addProduct("200.00", 10, 0)

	// 2 × 200 = 400 gross, 10% off = 360.
	resp, _, err := f.checkout.ProcessCheckout(ctx, f.actor, dto.CheckoutRequest{
		Items: []dto.CheckoutItemRequest{{
			ProductID:   p.ID.String(),
			Quantity:    2,
			DiscountPct: money("10"),
		}},
		Payments:       cashPayment("360.00"),
		Total:          money("360.00"),
		IdempotencyKey: "chk-discount-01",
	})
	require.NoError(t, err)
	assert.True(t, resp.DiscountTotal.Equal(money("40.00")), "got %s", resp.DiscountTotal)
	assert.True(t, resp.Total.Equal(money("360.00")), "got %s", resp.Total)
}

func TestProcessCheckoutRejectsBothDiscountForms(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addProduct("200.00", 10, 0)

	_, _, err := f.checkout.ProcessCheckout(ctx, f.actor, dto.CheckoutRequest{
		Items: []dto.CheckoutItemRequest{{
			ProductID:      p.ID.String(),
			Quantity:       1,
			DiscountPct:    money("10"),
			DiscountAmount: money("5"),
		}},
		Payments:       cashPayment("175.00"),
		Total:          money("175.00"),
		IdempotencyKey: "chk-bothdisc-01",
	})
	var invalid *service.InvalidInputError
	require.ErrorAs(t, err, &invalid)
}

func TestValidateStockReportsWithoutReserving(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addProduct("100.00", 5, 0)

	resp, err := f.checkout.ValidateStock(ctx, dto.ValidateStockRequest{
		Items: []dto.StockItemRequest{
			{ProductID: p.ID.String(), Quantity: 3},
			{ProductID: p.ID.String(), Quantity: 9},
		},
	})
	require.NoError(t, err)
	assert.False(t, resp.AllAvailable)
	assert.True(t, resp.Items[0].InStock)
	assert.False(t, resp.Items[1].InStock)
	assert.Equal(t, 5, resp.Items[1].Available)

	// Purely a report: nothing held.
	available, _ := f.ledger.Available(ctx, p.ID, nil)
	assert.Equal(t, 5, available)
}
