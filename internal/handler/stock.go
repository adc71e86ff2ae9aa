package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"aurumpos/internal/apierror"
	"aurumpos/internal/dto"
	"aurumpos/internal/middleware"
	"aurumpos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// StockHandler exposes the ledger: balances, history, manual updates, alerts
// and reconciliation.
type StockHandler struct {
	svc      service.LedgerService
	rdb      *redis.Client
	cacheTTL time.Duration
}

func NewStockHandler(svc service.LedgerService, rdb *redis.Client, cacheTTLSeconds int) *StockHandler {
	if cacheTTLSeconds <= 0 {
		cacheTTLSeconds = 60
	}
	return &StockHandler{svc: svc, rdb: rdb, cacheTTL: time.Duration(cacheTTLSeconds) * time.Second}
}

// GetBalance godoc
// @Summary      Ledger balance for a product
// @Description  Sums the ledger, optionally scoped to one branch. Org-wide reads go through a short-lived Redis cache; writes invalidate it.
// @Tags         stock
// @Produce      json
// @Security     BearerAuth
// @Param        product_id path  string true  "Product UUID"
// @Param        branch_id  query string false "Branch UUID (default: whole org)"
// @Success      200 {object} dto.BalanceResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/stock/{product_id}/balance [get]
func (h *StockHandler) GetBalance(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid product id"))
		return
	}
	ctx := c.Request.Context()

	var branchID *uuid.UUID
	if q := c.Query("branch_id"); q != "" {
		id, err := uuid.Parse(q)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("invalid branch id"))
			return
		}
		branchID = &id
	}

	// Branch-scoped reads skip the cache: only the org-wide figure is cached.
	if branchID == nil && h.rdb != nil {
		if cached, err := h.rdb.Get(ctx, service.BalanceCacheKey(productID)).Bytes(); err == nil {
			var resp dto.BalanceResponse
			if jsonErr := json.Unmarshal(cached, &resp); jsonErr == nil {
				c.JSON(http.StatusOK, resp)
				return
			}
		}
	}

	balance, err := h.svc.Balance(ctx, productID, branchID)
	if err != nil {
		respondErr(c, err)
		return
	}

	resp := dto.BalanceResponse{ProductID: productID.String(), Balance: balance}
	if branchID != nil {
		s := branchID.String()
		resp.BranchID = &s
	}

	if branchID == nil && h.rdb != nil {
		// Populate cache — best effort, ignore errors
		if b, jsonErr := json.Marshal(resp); jsonErr == nil {
			_ = h.rdb.Set(context.Background(), service.BalanceCacheKey(productID), b, h.cacheTTL).Err()
		}
	}
	c.JSON(http.StatusOK, resp)
}

// GetLedger godoc
// @Summary      Ledger history
// @Description  Paginated, filtered list of ledger entries, newest first.
// @Tags         stock
// @Produce      json
// @Security     BearerAuth
// @Param        product_id query string false "Product UUID"
// @Param        branch_id  query string false "Branch UUID"
// @Param        type       query string false "Entry type"
// @Param        page       query int    false "Page (default 1)"
// @Param        limit      query int    false "Entries per page (default 50, max 200)"
// @Success      200 {object} dto.LedgerListResponse
// @Failure      400 {object} apierror.APIError
// @Router       /v1/stock/ledger [get]
func (h *StockHandler) GetLedger(c *gin.Context) {
	var filter dto.LedgerFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	if err := validate.Struct(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	resp, err := h.svc.History(c.Request.Context(), filter)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateStock godoc
// @Summary      Manual stock movement
// @Description  Appends one in/out/adjustment entry. Idempotent on idempotency_key; a replayed key returns the original result.
// @Tags         stock
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.UpdateStockRequest true "Movement"
// @Success      201 {object} dto.StockUpdateResponse
// @Failure      409 {object} apierror.APIError
// @Router       /v1/stock/update [post]
func (h *StockHandler) UpdateStock(c *gin.Context) {
	var req dto.UpdateStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	actorID, _ := uuid.Parse(middleware.GetClaims(c).UserID)

	resp, err := h.svc.UpdateStock(c.Request.Context(), actorID, req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// BulkUpdateStock godoc
// @Summary      Bulk stock movement
// @Description  Appends one entry per item, all-or-nothing, under a single idempotency key.
// @Tags         stock
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.BulkUpdateStockRequest true "Batch movement"
// @Success      201 {object} dto.BulkUpdateStockResponse
// @Failure      409 {object} apierror.APIError
// @Router       /v1/stock/bulk-update [post]
func (h *StockHandler) BulkUpdateStock(c *gin.Context) {
	var req dto.BulkUpdateStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	actorID, _ := uuid.Parse(middleware.GetClaims(c).UserID)

	resp, err := h.svc.BulkUpdateStock(c.Request.Context(), actorID, req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// GetAlerts godoc
// @Summary      Low stock alerts
// @Description  Active products whose ledger balance is at or below their minimum.
// @Tags         stock
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} dto.StockAlertResponse
// @Router       /v1/stock/alerts [get]
func (h *StockHandler) GetAlerts(c *gin.Context) {
	resp, err := h.svc.Alerts(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ReconcileProduct godoc
// @Summary      Reconcile one product's cached stock
// @Description  Recomputes the ledger balance and corrects the cached field if it drifted.
// @Tags         stock
// @Produce      json
// @Security     BearerAuth
// @Param        product_id path string true "Product UUID"
// @Success      200 {object} dto.ReconcileFinding
// @Failure      404 {object} apierror.APIError
// @Router       /v1/stock/{product_id}/reconcile [post]
func (h *StockHandler) ReconcileProduct(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid product id"))
		return
	}
	resp, err := h.svc.ReconcileProduct(c.Request.Context(), productID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ReconcileAll godoc
// @Summary      Reconcile every active product
// @Tags         stock
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} dto.ReconcileResponse
// @Router       /v1/stock/reconcile [post]
func (h *StockHandler) ReconcileAll(c *gin.Context) {
	resp, err := h.svc.ReconcileAll(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
