package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pixelarena/queue-backend/internal/database"
	"github.com/pixelarena/queue-backend/internal/middleware"
	"github.com/pixelarena/queue-backend/internal/models"
	"github.com/pixelarena/queue-backend/internal/services"
)

// QueueHandler handles the player-facing queue API endpoints
type QueueHandler struct {
	queueService *services.QueueService
	userRepo     *database.UserRepository
	subRepo      *database.PushSubscriptionRepository
	logger       *logrus.Logger
}

// NewQueueHandler creates a new QueueHandler
func NewQueueHandler(
	queueService *services.QueueService,
	userRepo *database.UserRepository,
	subRepo *database.PushSubscriptionRepository,
	logger *logrus.Logger,
) *QueueHandler {
	return &QueueHandler{
		queueService: queueService,
		userRepo:     userRepo,
		subRepo:      subRepo,
		logger:       logger,
	}
}

// JoinQueue adds the authenticated user to the waiting queue
// POST /api/v1/queue/join
func (h *QueueHandler) JoinQueue(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	var req models.JoinQueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	notifyPush := true
	if req.NotifyPush != nil {
		notifyPush = *req.NotifyPush
	}

	// Phone comes from the account, not the request body
	phone := ""
	if user, err := h.userRepo.GetUserByID(userCtx.UserID); err != nil {
		h.logger.WithError(err).WithField("user_id", userCtx.UserID).Warn("Failed to load user profile for join")
	} else if user != nil && user.Phone.Valid {
		phone = user.Phone.String
	}

	resp, err := h.queueService.Join(userCtx.UserID, userCtx.UserName, phone, req.ComputerType, notifyPush)
	if err != nil {
		var already *services.AlreadyInQueueError
		switch {
		case errors.As(err, &already):
			c.JSON(http.StatusConflict, gin.H{
				"error":    "You are already in the queue",
				"position": already.Position,
			})
		case errors.Is(err, services.ErrJoiningDisabled):
			c.JSON(http.StatusForbidden, gin.H{"error": "Online joining is currently disabled"})
		case errors.Is(err, services.ErrQueueFull):
			c.JSON(http.StatusConflict, gin.H{"error": "The queue is full"})
		default:
			h.logger.WithError(err).Error("Failed to join queue")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to join queue"})
		}
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// LeaveQueue removes the authenticated user's waiting entry
// POST /api/v1/queue/leave
func (h *QueueHandler) LeaveQueue(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	if err := h.queueService.Leave(userCtx.UserID); err != nil {
		if errors.Is(err, services.ErrNotInQueue) {
			c.JSON(http.StatusNotFound, gin.H{"error": "You are not in the queue"})
			return
		}
		h.logger.WithError(err).Error("Failed to leave queue")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to leave queue"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Removed from queue"})
}

// GetQueueStatus returns the aggregate queue state plus, for the
// authenticated caller, their own position and zone eligibility
// GET /api/v1/queue/status
func (h *QueueHandler) GetQueueStatus(c *gin.Context) {
	status, entries := h.queueService.Status()

	resp := gin.H{
		"status":  status,
		"entries": entries,
	}

	if userCtx, ok := middleware.GetUserContext(c); ok {
		for _, entry := range entries {
			if entry.UserID.Valid && entry.UserID.UUID == userCtx.UserID {
				resp["your_position"] = entry.Position
				resp["is_next_top"] = services.IsNextForZone(entries, userCtx.UserID, models.ComputerTypeTop)
				resp["is_next_bottom"] = services.IsNextForZone(entries, userCtx.UserID, models.ComputerTypeBottom)
				break
			}
		}
	}

	c.JSON(http.StatusOK, resp)
}

// RegisterPushSubscription stores a web-push endpoint for the caller
// POST /api/v1/queue/push-subscription
func (h *QueueHandler) RegisterPushSubscription(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	var req struct {
		Endpoint string `json:"endpoint" binding:"required"`
		P256dh   string `json:"p256dh" binding:"required"`
		Auth     string `json:"auth" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub := &models.PushSubscription{
		UserID:   userCtx.UserID,
		Endpoint: req.Endpoint,
		P256dh:   req.P256dh,
		Auth:     req.Auth,
	}
	if err := h.subRepo.Upsert(sub); err != nil {
		h.logger.WithError(err).Error("Failed to store push subscription")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store push subscription"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Push subscription registered"})
}

// RemovePushSubscription deletes a web-push endpoint for the caller
// DELETE /api/v1/queue/push-subscription
func (h *QueueHandler) RemovePushSubscription(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	var req struct {
		Endpoint string `json:"endpoint" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.subRepo.DeleteByEndpoint(userCtx.UserID, req.Endpoint); err != nil {
		h.logger.WithError(err).Error("Failed to delete push subscription")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete push subscription"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Push subscription removed"})
}
