package router

import (
	"time"

	"aurumpos/internal/config"
	"aurumpos/internal/handler"
	"aurumpos/internal/middleware"
	"aurumpos/internal/repository"
	"aurumpos/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	productRepo := repository.NewProductRepository(db)
	branchRepo := repository.NewBranchRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)
	reservationRepo := repository.NewReservationRepository(db)
	transferRepo := repository.NewTransferRepository(db)
	cycleCountRepo := repository.NewCycleCountRepository(db)
	saleRepo := repository.NewSaleRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	guard := service.NewIdempotencyGuard(idempotencyRepo)
	ledgerSvc := service.NewLedgerService(ledgerRepo, productRepo, reservationRepo, guard, rdb)
	reservationSvc := service.NewReservationService(reservationRepo, productRepo, ledgerSvc, cfg.ReservationTTLMinutes)
	checkoutSvc := service.NewCheckoutService(productRepo, saleRepo, reservationRepo, ledgerSvc, reservationSvc, guard)
	transferSvc := service.NewTransferService(transferRepo, productRepo, branchRepo, ledgerRepo, ledgerSvc, guard)
	cycleCountSvc := service.NewCycleCountService(cycleCountRepo, productRepo, ledgerRepo, ledgerSvc, guard)

	// ── Handlers ─────────────────────────────────────────────────────────────
	stockH := handler.NewStockHandler(ledgerSvc, rdb, cfg.BalanceCacheTTLSeconds)
	reservationsH := handler.NewReservationsHandler(reservationSvc)
	checkoutH := handler.NewCheckoutHandler(checkoutSvc)
	transfersH := handler.NewTransfersHandler(transferSvc)
	cycleCountsH := handler.NewCycleCountsHandler(cycleCountSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		// Roles: clerk, supervisor, admin — declared per-endpoint
		clerkUp := middleware.RequireRole("clerk", "supervisor", "admin")
		supervisorUp := middleware.RequireRole("supervisor", "admin")
		adminOnly := middleware.RequireRole("admin")

		stock := v1.Group("/stock")
		{
			stock.GET("/:product_id/balance", clerkUp, stockH.GetBalance)
			stock.GET("/alerts", supervisorUp, stockH.GetAlerts)
			stock.GET("/ledger", supervisorUp, stockH.GetLedger)
			stock.POST("/validate", clerkUp, checkoutH.ValidateStock)
			stock.POST("/update", supervisorUp, stockH.UpdateStock)
			stock.POST("/bulk-update", supervisorUp, stockH.BulkUpdateStock)
			stock.POST("/reconcile", adminOnly, stockH.ReconcileAll)
			stock.POST("/:product_id/reconcile", adminOnly, stockH.ReconcileProduct)
		}

		v1.POST("/reservations", clerkUp, reservationsH.Reserve)
		v1.DELETE("/reservations/:id", clerkUp, reservationsH.Release)

		v1.POST("/checkout", clerkUp, checkoutH.ProcessCheckout)
		v1.GET("/sales/:id", clerkUp, checkoutH.GetSale)

		transfers := v1.Group("/transfers", supervisorUp)
		{
			transfers.POST("", transfersH.RequestTransfer)
			transfers.POST("/:id/ship", transfersH.ShipTransfer)
			transfers.POST("/:id/receive", transfersH.ReceiveTransfer)
			transfers.POST("/:id/cancel", transfersH.CancelTransfer)
			transfers.GET("/:id", transfersH.GetTransfer)
		}

		counts := v1.Group("/cycle-counts")
		{
			counts.POST("", supervisorUp, cycleCountsH.CreateCycleCount)
			counts.POST("/:id/preload", supervisorUp, cycleCountsH.PreloadCycleCount)
			counts.POST("/:id/start", supervisorUp, cycleCountsH.StartCycleCount)
			counts.PUT("/:id/items/:item_id", supervisorUp, cycleCountsH.SetItemCount)
			counts.POST("/:id/complete", supervisorUp, cycleCountsH.CompleteCycleCount)
			counts.POST("/:id/apply", adminOnly, cycleCountsH.ApplyAdjustments)
			counts.POST("/:id/cancel", supervisorUp, cycleCountsH.CancelCycleCount)
			counts.GET("/:id", supervisorUp, cycleCountsH.GetCycleCount)
		}
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
