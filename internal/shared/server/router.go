package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"invoice-backend/internal/extraction"
	"invoice-backend/internal/invoices"
	"invoice-backend/internal/services/health"
	"invoice-backend/internal/shared/config"
	"invoice-backend/internal/shared/metrics"
	"invoice-backend/internal/shared/server/middleware"
	"invoice-backend/internal/shared/server/respond"
)

const extractRateScope = "EXTRACT"

// RouterDeps carries the handlers the router mounts.
type RouterDeps struct {
	Config            config.Config
	InvoiceHandler    *invoices.Handler
	ExtractionHandler *extraction.Handler
	Health            *health.Service
	RateLimiter       *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService()
	}

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		report := healthSvc.Status(c.Request.Context())
		status := http.StatusOK
		if !report.OK {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, report)
	})

	pdf := api.Group("/pdf")
	if deps.InvoiceHandler != nil {
		deps.InvoiceHandler.RegisterRoutes(pdf)
	}
	if deps.ExtractionHandler != nil {
		limit := middleware.RateLimit(extractRateScope, middleware.PerMinute(deps.Config.ExtractRatePerMinute), deps.RateLimiter)
		deps.ExtractionHandler.RegisterRoutes(pdf, limit)
	}

	r.NoRoute(func(c *gin.Context) {
		respond.Error(c, http.StatusNotFound, "NOT_FOUND", "route not found", nil)
	})

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
