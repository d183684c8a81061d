package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pixelarena/queue-backend/internal/services"
)

// SessionEventHandler receives session events posted by the center-management
// system. A successful computer login removes the user's waiting entry; the
// periodic sweep covers any event this endpoint misses.
type SessionEventHandler struct {
	monitor      *services.QueueMonitorService
	webhookToken string
	logger       *logrus.Logger
}

// NewSessionEventHandler creates a new SessionEventHandler
func NewSessionEventHandler(monitor *services.QueueMonitorService, webhookToken string, logger *logrus.Logger) *SessionEventHandler {
	return &SessionEventHandler{
		monitor:      monitor,
		webhookToken: webhookToken,
		logger:       logger,
	}
}

// SessionLogin handles a login-success event for a gizmo user
// POST /api/v1/events/session-login
func (h *SessionEventHandler) SessionLogin(c *gin.Context) {
	if h.webhookToken == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Session events are not configured"})
		return
	}

	token := c.GetHeader("X-Webhook-Token")
	if subtle.ConstantTimeCompare([]byte(token), []byte(h.webhookToken)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid webhook token"})
		return
	}

	var req struct {
		GizmoUserID int64 `json:"gizmo_user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	removed, err := h.monitor.RemoveUserFromQueueByGizmoID(req.GizmoUserID, "session_login")
	if err != nil {
		h.logger.WithError(err).WithField("gizmo_id", req.GizmoUserID).Error("Session event removal failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process session event"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"removed": removed})
}
