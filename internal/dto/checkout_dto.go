package dto

import "github.com/shopspring/decimal"

// CheckoutItemRequest carries one line of the sale. DiscountAmount and
// DiscountPct are mutually exclusive; the server recomputes every line from
// catalog prices and rejects totals that disagree beyond one cent.
type CheckoutItemRequest struct {
	ProductID      string          `json:"product_id"      validate:"required,uuid"`
	Quantity       int             `json:"quantity"        validate:"required,min=1"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	DiscountPct    decimal.Decimal `json:"discount_pct"`
}

type CheckoutPaymentRequest struct {
	Method string          `json:"method" validate:"required,oneof=cash debit credit transfer"`
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

type CheckoutRequest struct {
	Items          []CheckoutItemRequest    `json:"items"           validate:"required,min=1,dive"`
	Payments       []CheckoutPaymentRequest `json:"payments"        validate:"required,min=1,dive"`
	Total          decimal.Decimal          `json:"total"           validate:"required"` // client-computed, server-verified
	BranchID       *string                  `json:"branch_id"       validate:"omitempty,uuid"`
	ReservationID  *string                  `json:"reservation_id"  validate:"omitempty,uuid"`
	IdempotencyKey string                   `json:"idempotency_key" validate:"required,min=8,max=128"`
}

type CheckoutItemResponse struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Discount  decimal.Decimal `json:"discount"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type CheckoutResponse struct {
	SaleID        string                 `json:"sale_id"`
	TicketNumber  int                    `json:"ticket_number"`
	Items         []CheckoutItemResponse `json:"items"`
	Subtotal      decimal.Decimal        `json:"subtotal"`
	DiscountTotal decimal.Decimal        `json:"discount_total"`
	Total         decimal.Decimal        `json:"total"`
	Status        string                 `json:"status"`
	CreatedAt     string                 `json:"created_at"`
}
