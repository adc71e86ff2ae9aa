package handler

import (
	"net/http"

	"aurumpos/internal/apierror"
	"aurumpos/internal/dto"
	"aurumpos/internal/middleware"
	"aurumpos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CheckoutHandler struct{ svc service.CheckoutService }

func NewCheckoutHandler(svc service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{svc: svc}
}

// ValidateStock godoc
// @Summary      Pre-checkout availability check
// @Description  Reports availability for every item without reserving anything. A shortfall is data, not an error.
// @Tags         checkout
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.ValidateStockRequest true "Items to check"
// @Success      200 {object} dto.ValidateStockResponse
// @Failure      400 {object} apierror.APIError
// @Router       /v1/stock/validate [post]
func (h *CheckoutHandler) ValidateStock(c *gin.Context) {
	var req dto.ValidateStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.ValidateStock(c.Request.Context(), req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ProcessCheckout godoc
// @Summary      Process a sale
// @Description  One transaction: validates totals, checks availability, numbers the ticket, persists the sale and appends the stock movements. Replaying the idempotency key returns the original sale with 200 instead of 201.
// @Tags         checkout
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CheckoutRequest true "Sale"
// @Success      201 {object} dto.CheckoutResponse
// @Failure      409 {object} apierror.APIError
// @Failure      422 {object} apierror.APIError
// @Router       /v1/checkout [post]
func (h *CheckoutHandler) ProcessCheckout(c *gin.Context) {
	var req dto.CheckoutRequest
	if !bindAndValidate(c, &req) {
		return
	}
	actorID, _ := uuid.Parse(middleware.GetClaims(c).UserID)

	resp, replayed, err := h.svc.ProcessCheckout(c.Request.Context(), actorID, req)
	if err != nil {
		respondErr(c, err)
		return
	}
	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	c.JSON(status, resp)
}

// GetSale godoc
// @Summary      Fetch a sale
// @Tags         checkout
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Sale UUID"
// @Success      200 {object} dto.CheckoutResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/sales/{id} [get]
func (h *CheckoutHandler) GetSale(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid sale id"))
		return
	}
	resp, err := h.svc.GetSale(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
