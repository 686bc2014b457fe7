package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
)

const serviceName = "storefront-service"

// BuildVersion is overridden at build time with -ldflags.
var BuildVersion = "dev"

var startTime = time.Now()

// Health handles GET /health
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
	})
}

// Ready handles GET /ready
func (h *Handlers) Ready(c *gin.Context) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := h.db.PingContext(ctx); err != nil {
			h.logger.Warn("Readiness check failed", logging.Fields{"error": err.Error()})
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "not ready",
				"service":  serviceName,
				"database": "unreachable",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ready",
		"service": serviceName,
	})
}

// Live handles GET /live
func (h *Handlers) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

// Metrics handles GET /metrics (Prometheus format)
func (h *Handlers) Metrics(c *gin.Context) {
	h.metrics.ServeHTTP(c.Writer, c.Request)
}

// Version handles GET /version
func (h *Handlers) Version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version":        BuildVersion,
		"service":        serviceName,
		"go_version":     runtime.Version(),
		"started_at":     startTime.Format(time.RFC3339),
		"uptime_seconds": int64(time.Since(startTime).Seconds()),
	})
}

// Debug handles GET /debug
func (h *Handlers) Debug(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"features": gin.H{
			"enable_product_caching":      h.config.Features.EnableProductCaching,
			"enable_order_events":         h.config.Features.EnableOrderEvents,
			"enable_fulfillment_consumer": h.config.Features.EnableFulfillmentConsumer,
			"enable_notifications":        h.config.Features.EnableNotifications,
			"enable_order_feed":           h.config.Features.EnableOrderFeed,
		},
		"config": gin.H{
			"server_port":      h.config.Server.Port,
			"database_host":    h.config.Database.Host,
			"redis_host":       h.config.Redis.Host,
			"kafka_brokers":    h.config.Kafka.Brokers,
			"notification_url": h.config.NotificationService.BaseURL,
			"rate_limit_rps":   h.config.Server.RateLimitRPS,
			"rate_limit_burst": h.config.Server.RateLimitBurst,
		},
	})
}
