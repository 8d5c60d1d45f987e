package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/IndrawanLalu/gardu-alerting-service/internal/config"
	"github.com/IndrawanLalu/gardu-alerting-service/internal/engine"
	"github.com/IndrawanLalu/gardu-alerting-service/internal/logging"
)

func NewRouter(svc *engine.Service, logger *logging.Logger, cfg config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := NewHandler(svc, logger)
	api := r.Group(cfg.API.BasePath)
	{
		// Evaluation
		api.POST("/evaluate", h.Evaluate)

		// Alerts
		api.GET("/alerts", h.ListAlerts)
		api.PATCH("/alerts/:id/read", h.MarkRead)
		api.POST("/alerts/read-batch", h.MarkReadBatch)
		api.POST("/alerts/read-all", h.MarkAllRead)

		// Thresholds
		api.GET("/thresholds", h.GetThresholds)
		api.PATCH("/thresholds", h.UpdateThresholds)

		// Hazards
		api.POST("/hazards/classify", h.ClassifyHazard)
		api.POST("/hazards/needing-action", h.ListNeedingAction)
		api.POST("/hazards/notify", h.NotifyIfUrgent)

		// Live alert feed
		api.GET("/ws/alerts", h.AlertFeed)
	}
	return r
}
