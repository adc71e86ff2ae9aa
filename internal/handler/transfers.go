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

type TransfersHandler struct{ svc service.TransferService }

func NewTransfersHandler(svc service.TransferService) *TransfersHandler {
	return &TransfersHandler{svc: svc}
}

// RequestTransfer godoc
// @Summary      Request a branch transfer
// @Description  Creates the transfer in requested state. No stock moves until ship.
// @Tags         transfers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.RequestTransferRequest true "Transfer"
// @Success      201 {object} dto.TransferResponse
// @Failure      409 {object} apierror.APIError
// @Router       /v1/transfers [post]
func (h *TransfersHandler) RequestTransfer(c *gin.Context) {
	var req dto.RequestTransferRequest
	if !bindAndValidate(c, &req) {
		return
	}
	actorID, _ := uuid.Parse(middleware.GetClaims(c).UserID)

	resp, err := h.svc.Request(c.Request.Context(), actorID, req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ShipTransfer godoc
// @Summary      Ship a transfer
// @Description  Moves requested → shipped and writes the transfer_out entry at the source branch.
// @Tags         transfers
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Transfer UUID"
// @Success      200 {object} dto.TransferResponse
// @Failure      409 {object} apierror.APIError
// @Router       /v1/transfers/{id}/ship [post]
func (h *TransfersHandler) ShipTransfer(c *gin.Context) {
	h.transition(c, h.svc.Ship)
}

// ReceiveTransfer godoc
// @Summary      Receive a transfer
// @Description  Moves shipped → received and writes the transfer_in entry at the destination branch.
// @Tags         transfers
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Transfer UUID"
// @Success      200 {object} dto.TransferResponse
// @Failure      409 {object} apierror.APIError
// @Router       /v1/transfers/{id}/receive [post]
func (h *TransfersHandler) ReceiveTransfer(c *gin.Context) {
	h.transition(c, h.svc.Receive)
}

// CancelTransfer godoc
// @Summary      Cancel a transfer
// @Description  Legal from requested only; shipped stock must be received and transferred back.
// @Tags         transfers
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Transfer UUID"
// @Success      200 {object} dto.TransferResponse
// @Failure      409 {object} apierror.APIError
// @Router       /v1/transfers/{id}/cancel [post]
func (h *TransfersHandler) CancelTransfer(c *gin.Context) {
	h.transition(c, h.svc.Cancel)
}

// GetTransfer godoc
// @Summary      Fetch a transfer
// @Tags         transfers
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Transfer UUID"
// @Success      200 {object} dto.TransferResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/transfers/{id} [get]
func (h *TransfersHandler) GetTransfer(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid transfer id"))
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *TransfersHandler) transition(
	c *gin.Context,
	fn func(ctx context.Context, actorID uuid.UUID, transferID uuid.UUID) (*dto.TransferResponse, error),
) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid transfer id"))
		return
	}
	actorID, _ := uuid.Parse(middleware.GetClaims(c).UserID)

	resp, err := fn(c.Request.Context(), actorID, id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
