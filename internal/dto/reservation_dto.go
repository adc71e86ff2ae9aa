package dto

// ReserveStockRequest creates a time-boxed soft hold. The caller supplies the
// reservation id, which makes creation idempotent: repeating the call with
// the same id and identical items returns the existing reservation.
type ReserveStockRequest struct {
	ReservationID     string             `json:"reservation_id"     validate:"required,uuid"`
	Items             []StockItemRequest `json:"items"              validate:"required,min=1,dive"`
	ExpirationMinutes int                `json:"expiration_minutes" validate:"omitempty,min=1,max=1440"`
}

type ReservationItemResponse struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type ReservationResponse struct {
	ID        string                    `json:"id"`
	Status    string                    `json:"status"`
	Items     []ReservationItemResponse `json:"items"`
	ExpiresAt string                    `json:"expires_at"`
	CreatedAt string                    `json:"created_at"`
}
