package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ondc-data/geo-enricher/internal/config"
	"github.com/ondc-data/geo-enricher/internal/handler"
	"github.com/ondc-data/geo-enricher/internal/middleware"
)

// SetupRouter wires the HTTP surface: health and metrics probes, public
// read-only run endpoints, and an authenticated admin group that can start
// runs.
func SetupRouter(cfg *config.Config, runHandler *handler.RunHandler, registry *prometheus.Registry, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(logger))

	// CORS
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "geo-enricher API is running",
		})
	})

	if registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimit(120, time.Minute))
	{
		runs := api.Group("/runs")
		{
			runs.GET("", runHandler.ListTasks)
			runs.GET("/:id", runHandler.GetTask)
		}
	}

	admin := r.Group("/api/admin")
	admin.Use(middleware.Auth(cfg.Server.JWTSecret))
	{
		admin.POST("/runs", runHandler.CreateTask)
	}

	return r
}
