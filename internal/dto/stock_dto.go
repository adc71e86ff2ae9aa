package dto

// ─── Shared ─────────────────────────────────────────────────────────────────

// StockItemRequest is a (product, quantity) pair used by validation and
// reservation requests.
type StockItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity"   validate:"required,min=1"`
}

// ─── Validate availability ──────────────────────────────────────────────────

type ValidateStockRequest struct {
	Items []StockItemRequest `json:"items" validate:"required,min=1,dive"`
}

// StockAvailability is the per-item availability report. Available is the
// ledger balance minus active reservations — never the cached stock field.
type StockAvailability struct {
	ProductID string `json:"product_id"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
	InStock   bool   `json:"in_stock"`
}

type ValidateStockResponse struct {
	Items        []StockAvailability `json:"items"`
	AllAvailable bool                `json:"all_available"`
}

// ─── Manual stock updates ───────────────────────────────────────────────────

// UpdateStockRequest records a manual stock movement. Quantity is always
// positive for in/out (the type determines the sign) and signed for
// adjustment.
type UpdateStockRequest struct {
	ProductID      string  `json:"product_id"      validate:"required,uuid"`
	BranchID       *string `json:"branch_id"       validate:"omitempty,uuid"`
	Type           string  `json:"type"            validate:"required,oneof=in out adjustment"`
	Quantity       int     `json:"quantity"        validate:"required"`
	Reason         string  `json:"reason"          validate:"required,min=3"`
	Reference      *string `json:"reference"`
	IdempotencyKey string  `json:"idempotency_key" validate:"required,min=8,max=128"`
}

type BulkUpdateStockItem struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity"   validate:"required"`
}

type BulkUpdateStockRequest struct {
	Items          []BulkUpdateStockItem `json:"items"           validate:"required,min=1,dive"`
	Type           string                `json:"type"            validate:"required,oneof=in out adjustment"`
	Reason         string                `json:"reason"          validate:"required,min=3"`
	IdempotencyKey string                `json:"idempotency_key" validate:"required,min=8,max=128"`
}

type StockUpdateResponse struct {
	EntryID   string  `json:"entry_id"`
	ProductID string  `json:"product_id"`
	BranchID  *string `json:"branch_id,omitempty"`
	Type      string  `json:"type"`
	Quantity  int     `json:"quantity"` // signed, as ledgered
	Balance   int     `json:"balance"`  // ledger balance after the append
	CreatedAt string  `json:"created_at"`
}

type BulkUpdateStockResponse struct {
	Entries []StockUpdateResponse `json:"entries"`
}

// ─── Balance / history / alerts ─────────────────────────────────────────────

type BalanceResponse struct {
	ProductID string  `json:"product_id"`
	BranchID  *string `json:"branch_id,omitempty"`
	Balance   int     `json:"balance"`
}

// LedgerFilter is bound from the query string of GET /v1/stock/ledger.
type LedgerFilter struct {
	ProductID string `form:"product_id" validate:"omitempty,uuid"`
	BranchID  string `form:"branch_id"  validate:"omitempty,uuid"`
	Type      string `form:"type"       validate:"omitempty,oneof=in out adjustment transfer_out transfer_in reservation_release"`
	Page      int    `form:"page,default=1"   validate:"min=1"`
	Limit     int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type LedgerEntryResponse struct {
	ID        string  `json:"id"`
	ProductID string  `json:"product_id"`
	BranchID  *string `json:"branch_id,omitempty"`
	Type      string  `json:"type"`
	Quantity  int     `json:"quantity"`
	Reason    string  `json:"reason"`
	Reference *string `json:"reference,omitempty"`
	CreatedBy string  `json:"created_by"`
	CreatedAt string  `json:"created_at"`
}

type LedgerListResponse struct {
	Data  []LedgerEntryResponse `json:"data"`
	Total int64                 `json:"total"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
}

type StockAlertResponse struct {
	ProductID string `json:"product_id"`
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Balance   int    `json:"balance"`
	StockMin  int    `json:"stock_min"`
}

// ─── Reconciliation ─────────────────────────────────────────────────────────

// ReconcileFinding reports drift between the cached stock field and the
// ledger balance. Drift is a finding, not an error: the operation always
// succeeds and returns the corrected value.
type ReconcileFinding struct {
	ProductID string `json:"product_id"`
	Cached    int    `json:"cached"`
	Ledger    int    `json:"ledger"`
	Drift     int    `json:"drift"` // cached - ledger
	Corrected bool   `json:"corrected"`
}

type ReconcileResponse struct {
	Checked  int                `json:"checked"`
	Drifted  int                `json:"drifted"`
	Findings []ReconcileFinding `json:"findings"`
}
