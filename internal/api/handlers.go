package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/IndrawanLalu/gardu-alerting-service/internal/dispatch"
	"github.com/IndrawanLalu/gardu-alerting-service/internal/engine"
	"github.com/IndrawanLalu/gardu-alerting-service/internal/logging"
	"github.com/IndrawanLalu/gardu-alerting-service/internal/models"
)

type Handler struct {
	svc      *engine.Service
	logger   *logging.Logger
	upgrader websocket.Upgrader
}

func NewHandler(svc *engine.Service, logger *logging.Logger) *Handler {
	return &Handler{
		svc:    svc,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The portal fronts this service behind its own origin checks.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Evaluate runs one evaluation cycle over the posted measurement batch and
// returns the alerts persisted this cycle.
func (h *Handler) Evaluate(c *gin.Context) {
	var req struct {
		Measurements []models.MeasurementRecord `json:"measurements" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Invalid evaluate request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	alerts, err := h.svc.Evaluate(c.Request.Context(), req.Measurements)
	if err != nil {
		h.logger.Errorf("Evaluation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Evaluation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts, "count": len(alerts)})
}

func (h *Handler) ListAlerts(c *gin.Context) {
	limit := 50
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 {
		limit = l
	}
	unreadOnly := c.Query("unread") == "true"

	alerts, err := h.svc.ListAlerts(c.Request.Context(), limit, unreadOnly)
	if err != nil {
		h.logger.Errorf("Failed to list alerts: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list alerts"})
		return
	}
	c.JSON(http.StatusOK, alerts)
}

func (h *Handler) MarkRead(c *gin.Context) {
	id := c.Param("id")
	var req struct {
		IsRead *bool `json:"is_read"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	isRead := true
	if req.IsRead != nil {
		isRead = *req.IsRead
	}

	if err := h.svc.MarkRead(c.Request.Context(), id, isRead); err != nil {
		h.logger.Errorf("Failed to mark alert %s: %v", id, err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "is_read": isRead})
}

func (h *Handler) MarkReadBatch(c *gin.Context) {
	var req struct {
		IDs []string `json:"ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.svc.MarkReadBatch(c.Request.Context(), req.IDs); err != nil {
		h.logger.Errorf("Failed to mark alerts read: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark alerts read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": len(req.IDs)})
}

func (h *Handler) MarkAllRead(c *gin.Context) {
	n, err := h.svc.MarkAllRead(c.Request.Context())
	if err != nil {
		h.logger.Errorf("Failed to mark all read: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark alerts read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": n})
}

func (h *Handler) GetThresholds(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Thresholds())
}

func (h *Handler) UpdateThresholds(c *gin.Context) {
	var update models.ThresholdUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		h.logger.Errorf("Invalid threshold update: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	cfg, err := h.svc.UpdateThresholds(c.Request.Context(), update)
	if err != nil {
		h.logger.Errorf("Failed to update thresholds: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update thresholds"})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *Handler) ClassifyHazard(c *gin.Context) {
	var entity models.HazardEntity
	if err := c.ShouldBindJSON(&entity); err != nil {
		h.logger.Errorf("Invalid hazard entity: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	c.JSON(http.StatusOK, h.svc.ClassifyHazard(entity))
}

func (h *Handler) ListNeedingAction(c *gin.Context) {
	var req struct {
		Entities []models.HazardEntity `json:"entities" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	c.JSON(http.StatusOK, h.svc.ListNeedingAction(req.Entities))
}

func (h *Handler) NotifyIfUrgent(c *gin.Context) {
	var entity models.HazardEntity
	if err := c.ShouldBindJSON(&entity); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	dispatched, err := h.svc.NotifyIfUrgent(c.Request.Context(), entity)
	if err != nil {
		var de *dispatch.DispatchError
		if errors.As(err, &de) {
			// The hazard is critical but the channel is down; surface both.
			c.JSON(http.StatusBadGateway, gin.H{"dispatched": false, "urgent": true, "error": de.Error()})
			return
		}
		h.logger.Errorf("Notify failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Notify failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"dispatched": dispatched})
}

// AlertFeed upgrades the connection and streams newly persisted alerts until
// the client goes away.
func (h *Handler) AlertFeed(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("websocket upgrade failed: %v", err)
		return
	}

	hub := h.svc.Hub()
	if !hub.AddConnection(conn) {
		_ = conn.Close()
		return
	}

	// Drain client frames so pings are answered; the feed is write-only.
	go func() {
		defer func() {
			hub.RemoveConnection(conn)
			_ = conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
