package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/propertybooks/accounting_backend/appctx"
	"github.com/propertybooks/accounting_backend/config"
	"github.com/propertybooks/accounting_backend/controllers"
)

const defaultPort = "8080"

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// tenantMiddleware resolves the tenant from the x-tenant-id header. Every
// route after it requires a tenant; the models refuse to run without one.
func tenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantId := strings.TrimSpace(c.GetHeader("x-tenant-id"))
		if tenantId == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "x-tenant-id header is required"})
			return
		}
		ctx := appctx.Set(c.Request.Context(), appctx.ContextKeyTenantId, tenantId)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func correlationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		ctx := appctx.Set(c.Request.Context(), appctx.ContextKeyCorrelationId, cid)
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set("x-correlation-id", cid)
		c.Next()
	}
}

func registerRoutes(r *gin.Engine) {
	api := r.Group("/", tenantMiddleware())

	ledger := api.Group("/ledger")
	ledger.POST("/headers", controllers.OpenLedgerHeaderHandler())
	ledger.GET("/headers/:id", controllers.GetLedgerHeaderHandler())
	ledger.POST("/headers/:id/lines", controllers.AddLedgerLineHandler())
	ledger.DELETE("/headers/:id/lines/:lineId", controllers.RemoveLedgerLineHandler())
	ledger.POST("/headers/:id/post", controllers.PostLedgerHeaderHandler())
	ledger.POST("/headers/:id/void", controllers.VoidLedgerHeaderHandler())

	invoices := api.Group("/invoices")
	invoices.POST("", controllers.CreateInvoiceHandler())
	invoices.GET("/:id", controllers.GetInvoiceHandler())
	invoices.POST("/:id/lines", controllers.AddInvoiceLineHandler())
	invoices.DELETE("/:id/lines/:lineId", controllers.RemoveInvoiceLineHandler())
	invoices.POST("/:id/approve", controllers.ApproveInvoiceHandler())
	invoices.PUT("/:id/notes", controllers.UpdateInvoiceNotesHandler())

	bills := api.Group("/bills")
	bills.POST("", controllers.CreateBillHandler())
	bills.GET("/:id", controllers.GetBillHandler())
	bills.POST("/:id/lines", controllers.AddBillLineHandler())
	bills.DELETE("/:id/lines/:lineId", controllers.RemoveBillLineHandler())
	bills.POST("/:id/approve", controllers.ApproveBillHandler())
	bills.PUT("/:id/notes", controllers.UpdateBillNotesHandler())

	payments := api.Group("/payments")
	payments.POST("/customer", controllers.CreateCustomerPaymentHandler())
	payments.GET("/customer/:id", controllers.GetCustomerPaymentHandler())
	payments.POST("/vendor", controllers.CreateVendorPaymentHandler())
	payments.GET("/vendor/:id", controllers.GetVendorPaymentHandler())

	settlements := api.Group("/settlements")
	settlements.POST("", controllers.ApplyPaymentHandler())
	settlements.POST("/batch", controllers.ApplyAcrossMultipleHandler())
	settlements.POST("/:id/unapply", controllers.UnapplySettlementHandler())
	settlements.GET("/target/:kind/:id", controllers.ListAppliesForTargetHandler())

	taxes := api.Group("/taxes")
	taxes.POST("", controllers.CreateTaxHandler())
	taxes.PUT("/:id", controllers.UpdateTaxHandler())
	taxes.POST("/:id/deactivate", controllers.DeactivateTaxHandler())
	taxes.POST("/groups", controllers.CreateTaxGroupHandler())
	taxes.GET("/groups/:id/resolve", controllers.ResolveTaxesHandler())

	accounts := api.Group("/accounts")
	accounts.POST("", controllers.CreateAccountHandler())
	accounts.GET("/:id", controllers.GetAccountHandler())
	accounts.POST("/segments/positions", controllers.CreateSegmentPositionHandler())
	accounts.POST("/segments/values", controllers.CreateSegmentValueHandler())
	accounts.POST("/resolve", controllers.ResolveAccountSegmentsHandler())

	periods := api.Group("/periods")
	periods.POST("", controllers.CreateFiscalPeriodHandler())
	periods.PUT("/:id/flag", controllers.SetFiscalPeriodFlagHandler())

	api.POST("/customers", controllers.CreateCustomerHandler())
	api.POST("/vendors", controllers.CreateVendorHandler())
	api.POST("/properties", controllers.CreatePropertyHandler())
	api.POST("/products", controllers.CreateProductHandler())
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(correlationMiddleware())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	// Startup probes pass immediately; app endpoints return 503 until the
	// database connection is established.
	r.Use(func(c *gin.Context) {
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	corsConfig := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("x-tenant-id", "x-correlation-id", "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	registerRoutes(r)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()
	logger.WithField("port", port).Info("http server listening")

	go config.ConnectDatabaseWithRetry()

	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("http server failed")
		}
	case <-sigCtx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}
