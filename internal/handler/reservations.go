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

type ReservationsHandler struct{ svc service.ReservationService }

func NewReservationsHandler(svc service.ReservationService) *ReservationsHandler {
	return &ReservationsHandler{svc: svc}
}

// Reserve godoc
// @Summary      Reserve stock
// @Description  Places a time-boxed hold on the requested items, all-or-nothing. Repeating the call with the same reservation id and identical items returns the existing reservation.
// @Tags         reservations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.ReserveStockRequest true "Reservation"
// @Success      201 {object} dto.ReservationResponse
// @Failure      409 {object} apierror.APIError
// @Router       /v1/reservations [post]
func (h *ReservationsHandler) Reserve(c *gin.Context) {
	var req dto.ReserveStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	actorID, _ := uuid.Parse(middleware.GetClaims(c).UserID)

	resp, err := h.svc.Reserve(c.Request.Context(), actorID, req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Release godoc
// @Summary      Release a reservation
// @Description  Returns the held quantity to availability. Only active reservations can be released.
// @Tags         reservations
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Reservation UUID"
// @Success      200 {object} dto.ReservationResponse
// @Failure      409 {object} apierror.APIError
// @Router       /v1/reservations/{id} [delete]
func (h *ReservationsHandler) Release(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid reservation id"))
		return
	}
	resp, err := h.svc.Release(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
