package dto

import "github.com/shopspring/decimal"

type CreateCycleCountRequest struct {
	BranchID     *string         `json:"branch_id"     validate:"omitempty,uuid"` // nil = whole org
	Type         string          `json:"type"          validate:"required,oneof=cyclic general"`
	TolerancePct decimal.Decimal `json:"tolerance_pct"`
	Note         *string         `json:"note"`
}

// SetItemCountRequest records the physically counted quantity for one item.
// CountedQty is a pointer so that an explicit zero count is distinguishable
// from an absent field.
type SetItemCountRequest struct {
	CountedQty *int    `json:"counted_qty" validate:"required,min=0"`
	Reason     *string `json:"reason"`
}

type CycleCountItemResponse struct {
	ItemID      string  `json:"item_id"`
	ProductID   string  `json:"product_id"`
	SKU         string  `json:"sku,omitempty"`
	Name        string  `json:"name,omitempty"`
	ExpectedQty int     `json:"expected_qty"`
	CountedQty  *int    `json:"counted_qty,omitempty"`
	VarianceQty int     `json:"variance_qty"`
	Reason      *string `json:"reason,omitempty"`
}

type CycleCountResponse struct {
	ID           string                   `json:"id"`
	BranchID     *string                  `json:"branch_id,omitempty"`
	Type         string                   `json:"type"`
	TolerancePct decimal.Decimal          `json:"tolerance_pct"`
	Note         *string                  `json:"note,omitempty"`
	Status       string                   `json:"status"`
	Items        []CycleCountItemResponse `json:"items"`
	PreloadedAt  *string                  `json:"preloaded_at,omitempty"`
	StartedAt    *string                  `json:"started_at,omitempty"`
	CompletedAt  *string                  `json:"completed_at,omitempty"`
	AppliedAt    *string                  `json:"applied_at,omitempty"`
	CreatedAt    string                   `json:"created_at"`
}

// AdjustmentResult reports the apply decision for one counted item.
type AdjustmentResult struct {
	ProductID string `json:"product_id"`
	Variance  int    `json:"variance"`
	Applied   bool   `json:"applied"` // false = zero variance or within tolerance
}

type ApplyAdjustmentsResponse struct {
	CycleCountID string             `json:"cycle_count_id"`
	Applied      int                `json:"applied"`
	Skipped      int                `json:"skipped"`
	Results      []AdjustmentResult `json:"results"`
}
