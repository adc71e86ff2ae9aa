package dto

type RequestTransferRequest struct {
	ProductID      string  `json:"product_id"      validate:"required,uuid"`
	Quantity       int     `json:"quantity"        validate:"required,min=1"`
	FromBranchID   string  `json:"from_branch_id"  validate:"required,uuid"`
	ToBranchID     string  `json:"to_branch_id"    validate:"required,uuid"`
	Reference      *string `json:"reference"`
	IdempotencyKey string  `json:"idempotency_key" validate:"required,min=8,max=128"`
}

type TransferResponse struct {
	ID           string  `json:"id"`
	ProductID    string  `json:"product_id"`
	Quantity     int     `json:"quantity"`
	FromBranchID string  `json:"from_branch_id"`
	ToBranchID   string  `json:"to_branch_id"`
	Reference    *string `json:"reference,omitempty"`
	Status       string  `json:"status"`
	RequestedAt  string  `json:"requested_at"`
	ShippedAt    *string `json:"shipped_at,omitempty"`
	ReceivedAt   *string `json:"received_at,omitempty"`
	CanceledAt   *string `json:"canceled_at,omitempty"`
}
