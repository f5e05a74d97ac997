package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dealdesk/internal/app"
	"dealdesk/internal/handlers"
)

func registerHealthRoutes(r *gin.Engine, cfg *app.Config) {
	if cfg.Monitoring.Health.Enabled {
		r.GET("/health", handlers.Health())
	} else {
		r.GET("/health", disabledHealthHandler)
	}

	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}
}

func disabledHealthHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"success": false,
		"status":  "disabled",
	})
}
