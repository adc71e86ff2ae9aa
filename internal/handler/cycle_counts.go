package handler

import (
	"context"
	"net/http"

	"aurumpos/internal/apierror"
	"aurumpos/internal/dto"
	"aurumpos/internal/middleware"
	"aurumpos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CycleCountsHandler struct{ svc service.CycleCountService }

func NewCycleCountsHandler(svc service.CycleCountService) *CycleCountsHandler {
	return &CycleCountsHandler{svc: svc}
}

// CreateCycleCount godoc
// @Summary      Create a cycle count
// @Tags         cycle-counts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CreateCycleCountRequest true "Count parameters"
// @Success      201 {object} dto.CycleCountResponse
// @Failure      400 {object} apierror.APIError
// @Router       /v1/cycle-counts [post]
func (h *CycleCountsHandler) CreateCycleCount(c *gin.Context) {
	var req dto.CreateCycleCountRequest
	if !bindAndValidate(c, &req) {
		return
	}
	actorID, _ := uuid.Parse(middleware.GetClaims(c).UserID)

	resp, err := h.svc.Create(c.Request.Context(), actorID, req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// PreloadCycleCount godoc
// @Summary      Preload expected quantities
// @Description  Snapshots the ledger balance of every active product as the expected quantity. Runs once per count.
// @Tags         cycle-counts
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Cycle count UUID"
// @Success      200 {object} dto.CycleCountResponse
// @Failure      409 {object} apierror.APIError
// @Router       /v1/cycle-counts/{id}/preload [post]
func (h *CycleCountsHandler) PreloadCycleCount(c *gin.Context) {
	h.transition(c, h.svc.Preload)
}

// StartCycleCount godoc
// @Summary      Start counting
// @Tags         cycle-counts
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Cycle count UUID"
// @Success      200 {object} dto.CycleCountResponse
// @Failure      409 {object} apierror.APIError
// @Router       /v1/cycle-counts/{id}/start [post]
func (h *CycleCountsHandler) StartCycleCount(c *gin.Context) {
	h.transition(c, h.svc.Start)
}

// SetItemCount godoc
// @Summary      Record a physical count
// @Description  Recounting before completion is allowed; the last count wins.
// @Tags         cycle-counts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string true "Cycle count UUID"
// @Param        item_id path string true "Item UUID"
// @Param        body    body dto.SetItemCountRequest true "Counted quantity"
// @Success      200 {object} dto.CycleCountItemResponse
// @Failure      409 {object} apierror.APIError
// @Router       /v1/cycle-counts/{id}/items/{item_id} [put]
func (h *CycleCountsHandler) SetItemCount(c *gin.Context) {
	countID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid cycle count id"))
		return
	}
	itemID, err := uuid.Parse(c.Param("item_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid item id"))
		return
	}
	var req dto.SetItemCountRequest
	if !bindAndValidate(c, &req) {
		return
	}
	actorID, _ := uuid.Parse(middleware.GetClaims(c).UserID)

	resp, err := h.svc.SetItemCount(c.Request.Context(), actorID, countID, itemID, req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CompleteCycleCount godoc
// @Summary      Complete a count
// @Description  Requires every item to be counted. Freezes the count for review; no ledger movement yet.
// @Tags         cycle-counts
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Cycle count UUID"
// @Success      200 {object} dto.CycleCountResponse
// @Failure      409 {object} apierror.APIError
// @Router       /v1/cycle-counts/{id}/complete [post]
func (h *CycleCountsHandler) CompleteCycleCount(c *gin.Context) {
	h.transition(c, h.svc.Complete)
}

// CancelCycleCount godoc
// @Summary      Cancel a count
// @Tags         cycle-counts
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Cycle count UUID"
// @Success      200 {object} dto.CycleCountResponse
// @Failure      409 {object} apierror.APIError
// @Router       /v1/cycle-counts/{id}/cancel [post]
func (h *CycleCountsHandler) CancelCycleCount(c *gin.Context) {
	h.transition(c, h.svc.Cancel)
}

// ApplyAdjustments godoc
// @Summary      Apply count adjustments to the ledger
// @Description  Writes one adjustment entry per out-of-tolerance variance. At most once per count; retries replay the stored result.
// @Tags         cycle-counts
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Cycle count UUID"
// @Success      200 {object} dto.ApplyAdjustmentsResponse
// @Failure      409 {object} apierror.APIError
// @Router       /v1/cycle-counts/{id}/apply [post]
func (h *CycleCountsHandler) ApplyAdjustments(c *gin.Context) {
	countID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid cycle count id"))
		return
	}
	actorID, _ := uuid.Parse(middleware.GetClaims(c).UserID)

	resp, err := h.svc.Apply(c.Request.Context(), actorID, countID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetCycleCount godoc
// @Summary      Fetch a cycle count with its items
// @Tags         cycle-counts
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Cycle count UUID"
// @Success      200 {object} dto.CycleCountResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/cycle-counts/{id} [get]
func (h *CycleCountsHandler) GetCycleCount(c *gin.Context) {
	h.transition(c, h.svc.Get)
}

func (h *CycleCountsHandler) transition(
	c *gin.Context,
	fn func(ctx context.Context, countID uuid.UUID) (*dto.CycleCountResponse, error),
) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid cycle count id"))
		return
	}
	resp, err := fn(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
