package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"aurumpos/internal/dto"
	"aurumpos/internal/model"
	"aurumpos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// centTolerance absorbs client-side rounding when comparing money figures.
var centTolerance = decimal.NewFromFloat(0.01)

// CheckoutService orchestrates the sale: validation, availability, ticket
// numbering, sale persistence and the "out" ledger entries, all in one
// transaction guarded by the caller's idempotency key.
type CheckoutService interface {
	ValidateStock(ctx context.Context, req dto.ValidateStockRequest) (*dto.ValidateStockResponse, error)
	ProcessCheckout(ctx context.Context, actorID uuid.UUID, req dto.CheckoutRequest) (*dto.CheckoutResponse, bool, error)
	GetSale(ctx context.Context, id uuid.UUID) (*dto.CheckoutResponse, error)
}

type checkoutService struct {
	productRepo     repository.ProductRepository
	saleRepo        repository.SaleRepository
	reservationRepo repository.ReservationRepository
	ledger          LedgerService
	reservations    ReservationService
	guard           IdempotencyGuard
}

func NewCheckoutService(
	productRepo repository.ProductRepository,
	saleRepo repository.SaleRepository,
	reservationRepo repository.ReservationRepository,
	ledger LedgerService,
	reservations ReservationService,
	guard IdempotencyGuard,
) CheckoutService {
	return &checkoutService{
		productRepo:     productRepo,
		saleRepo:        saleRepo,
		reservationRepo: reservationRepo,
		ledger:          ledger,
		reservations:    reservations,
		guard:           guard,
	}
}

// ── Validate ─────────────────────────────────────────────────────────────────
// Read-only preflight. Reports every item; a shortfall is data, not an error.

func (s *checkoutService) ValidateStock(ctx context.Context, req dto.ValidateStockRequest) (*dto.ValidateStockResponse, error) {
	resp := &dto.ValidateStockResponse{
		Items:        make([]dto.StockAvailability, 0, len(req.Items)),
		AllAvailable: true,
	}
	for _, item := range req.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, &InvalidInputError{Reason: "product_id is not a uuid"}
		}
		available, err := s.ledger.Available(ctx, productID, nil)
		if err != nil {
			return nil, err
		}
		inStock := available >= item.Quantity
		if !inStock {
			resp.AllAvailable = false
		}
		resp.Items = append(resp.Items, dto.StockAvailability{
			ProductID: item.ProductID,
			Requested: item.Quantity,
			Available: available,
			InStock:   inStock,
		})
	}
	return resp, nil
}

// ── Checkout ─────────────────────────────────────────────────────────────────

// ProcessCheckout returns the sale response and whether it was replayed from
// a previously completed call with the same idempotency key.
func (s *checkoutService) ProcessCheckout(ctx context.Context, actorID uuid.UUID, req dto.CheckoutRequest) (*dto.CheckoutResponse, bool, error) {
	if err := validatePayments(req); err != nil {
		return nil, false, err
	}

	var branchID *uuid.UUID
	if req.BranchID != nil {
		id, err := uuid.Parse(*req.BranchID)
		if err != nil {
			return nil, false, &InvalidInputError{Reason: "branch_id is not a uuid"}
		}
		branchID = &id
	}
	var reservationID *uuid.UUID
	if req.ReservationID != nil {
		id, err := uuid.Parse(*req.ReservationID)
		if err != nil {
			return nil, false, &InvalidInputError{Reason: "reservation_id is not a uuid"}
		}
		reservationID = &id
	}

	lines, err := parseCheckoutLines(req.Items)
	if err != nil {
		return nil, false, err
	}

	var resp dto.CheckoutResponse
	replayed, err := s.guard.Do(ctx, req.IdempotencyKey, "checkout.process", req, &resp, func(tx *gorm.DB) (interface{}, error) {
		return s.checkoutTx(ctx, tx, actorID, branchID, reservationID, lines, req)
	})
	if err != nil {
		return nil, false, err
	}
	if !replayed {
		log.Info().
			Str("sale_id", resp.SaleID).
			Int("ticket", resp.TicketNumber).
			Str("total", resp.Total.String()).
			Msg("checkout completed")
	}
	return &resp, replayed, nil
}

type checkoutLine struct {
	ProductID      uuid.UUID
	Quantity       int
	DiscountAmount decimal.Decimal
	DiscountPct    decimal.Decimal
}

func parseCheckoutLines(items []dto.CheckoutItemRequest) ([]checkoutLine, error) {
	lines := make([]checkoutLine, 0, len(items))
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
		if item.DiscountAmount.IsNegative() || item.DiscountPct.IsNegative() {
			return nil, &InvalidInputError{Reason: "discounts cannot be negative"}
		}
		if item.DiscountAmount.IsPositive() && item.DiscountPct.IsPositive() {
			return nil, &InvalidInputError{Reason: "discount_amount and discount_pct are mutually exclusive"}
		}
		if item.DiscountPct.GreaterThan(decimal.NewFromInt(100)) {
			return nil, &InvalidInputError{Reason: "discount_pct cannot exceed 100"}
		}
		lines = append(lines, checkoutLine{
			ProductID:      id,
			Quantity:       item.Quantity,
			DiscountAmount: item.DiscountAmount,
			DiscountPct:    item.DiscountPct,
		})
	}
	// Deterministic lock order across concurrent checkouts.
	sort.Slice(lines, func(i, j int) bool {
		return lines[i].ProductID.String() < lines[j].ProductID.String()
	})
	return lines, nil
}

func validatePayments(req dto.CheckoutRequest) error {
	paid := decimal.Zero
	for _, p := range req.Payments {
		if !p.Amount.IsPositive() {
			return &InvalidInputError{Reason: "payment amount must be positive"}
		}
		paid = paid.Add(p.Amount)
	}
	if paid.Sub(req.Total).Abs().GreaterThan(centTolerance) {
		return &ValidationFailedError{
			Reason: fmt.Sprintf("payments sum %s does not match total %s", paid, req.Total),
		}
	}
	return nil
}

func (s *checkoutService) checkoutTx(
	ctx context.Context,
	tx *gorm.DB,
	actorID uuid.UUID,
	branchID, reservationID *uuid.UUID,
	lines []checkoutLine,
	req dto.CheckoutRequest,
) (*dto.CheckoutResponse, error) {
	// The referenced reservation must exist before we start excluding its
	// hold from availability.
	var ownReservation *model.StockReservation
	if reservationID != nil {
		r, err := s.reservationRepo.FindByID(ctx, *reservationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("reservation %s: %w", reservationID, ErrNotFound)
			}
			return nil, err
		}
		ownReservation = r
	}

	sale := &model.Sale{
		UserID:         actorID,
		BranchID:       branchID,
		ReservationID:  reservationID,
		IdempotencyKey: req.IdempotencyKey,
		Status:         "completed",
		Subtotal:       decimal.Zero,
		DiscountTotal:  decimal.Zero,
		Total:          decimal.Zero,
	}

	respItems := make([]dto.CheckoutItemResponse, 0, len(lines))
	for _, line := range lines {
		product, err := s.productRepo.LockByIDTx(tx, line.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("product %s: %w", line.ProductID, ErrNotFound)
			}
			return nil, err
		}
		if !product.Active {
			return nil, &InvalidInputError{Reason: fmt.Sprintf("product %s is inactive", line.ProductID)}
		}

		// Live availability, with the checkout's own reservation excluded
		// so consuming it is never self-blocking.
		available, err := s.ledger.AvailableTx(tx, line.ProductID, reservationID)
		if err != nil {
			return nil, err
		}
		if available < line.Quantity {
			return nil, &InsufficientStockError{
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Available: available,
			}
		}

		gross := product.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		discount := line.DiscountAmount
		if line.DiscountPct.IsPositive() {
			discount = gross.Mul(line.DiscountPct).Div(decimal.NewFromInt(100)).Round(2)
		}
		if discount.GreaterThan(gross) {
			return nil, &InvalidInputError{Reason: fmt.Sprintf("discount exceeds line total for product %s", line.ProductID)}
		}
		lineTotal := gross.Sub(discount)

		sale.Subtotal = sale.Subtotal.Add(gross)
		sale.DiscountTotal = sale.DiscountTotal.Add(discount)
		sale.Items = append(sale.Items, model.SaleItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: product.UnitPrice,
			Discount:  discount,
			Subtotal:  lineTotal,
		})
		respItems = append(respItems, dto.CheckoutItemResponse{
			ProductID: line.ProductID.String(),
			Name:      product.Name,
			Quantity:  line.Quantity,
			UnitPrice: product.UnitPrice,
			Discount:  discount,
			Subtotal:  lineTotal,
		})
	}
	sale.Total = sale.Subtotal.Sub(sale.DiscountTotal)

	// The client total binds the ticket the customer saw; it must agree with
	// the server recomputation from catalog prices.
	if sale.Total.Sub(req.Total).Abs().GreaterThan(centTolerance) {
		return nil, &ValidationFailedError{
			Reason: fmt.Sprintf("computed total %s does not match submitted total %s", sale.Total, req.Total),
		}
	}

	ticket, err := s.saleRepo.NextTicketNumberTx(ctx, tx)
	if err != nil {
		return nil, err
	}
	sale.TicketNumber = ticket

	for _, p := range req.Payments {
		sale.Payments = append(sale.Payments, model.SalePayment{Method: p.Method, Amount: p.Amount})
	}

	if err := s.saleRepo.CreateTx(tx, sale); err != nil {
		return nil, err
	}

	saleRef := sale.ID.String()
	key := req.IdempotencyKey
	for _, item := range sale.Items {
		entry := &model.StockLedgerEntry{
			ProductID:      item.ProductID,
			BranchID:       branchID,
			Type:           model.EntryOut,
			Quantity:       -item.Quantity,
			Reason:         "sale",
			Reference:      &saleRef,
			IdempotencyKey: &key,
			CreatedBy:      actorID,
		}
		if _, err := s.ledger.AppendTx(tx, entry); err != nil {
			return nil, err
		}
	}

	// Consume the reservation only if it is still active; an expired or
	// released one contributed nothing to the availability check above.
	if ownReservation != nil && ownReservation.Status == model.ReservationActive && ownReservation.ActiveAt(time.Now()) {
		if err := s.reservations.ConsumeTx(tx, ownReservation.ID); err != nil {
			return nil, err
		}
	}

	return &dto.CheckoutResponse{
		SaleID:        sale.ID.String(),
		TicketNumber:  sale.TicketNumber,
		Items:         respItems,
		Subtotal:      sale.Subtotal,
		DiscountTotal: sale.DiscountTotal,
		Total:         sale.Total,
		Status:        sale.Status,
		CreatedAt:     sale.CreatedAt.Format(time.RFC3339),
	}, nil
}

// ── Lookup ───────────────────────────────────────────────────────────────────

func (s *checkoutService) GetSale(ctx context.Context, id uuid.UUID) (*dto.CheckoutResponse, error) {
	sale, err := s.saleRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("sale %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	items := make([]dto.CheckoutItemResponse, 0, len(sale.Items))
	for _, item := range sale.Items {
		name := ""
		if item.Product != nil {
			name = item.Product.Name
		}
		items = append(items, dto.CheckoutItemResponse{
			ProductID: item.ProductID.String(),
			Name:      name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Discount:  item.Discount,
			Subtotal:  item.Subtotal,
		})
	}
	return &dto.CheckoutResponse{
		SaleID:        sale.ID.String(),
		TicketNumber:  sale.TicketNumber,
		Items:         items,
		Subtotal:      sale.Subtotal,
		DiscountTotal: sale.DiscountTotal,
		Total:         sale.Total,
		Status:        sale.Status,
		CreatedAt:     sale.CreatedAt.Format(time.RFC3339),
	}, nil
}
