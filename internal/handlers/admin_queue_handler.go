package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pixelarena/queue-backend/internal/database"
	"github.com/pixelarena/queue-backend/internal/middleware"
	"github.com/pixelarena/queue-backend/internal/models"
	"github.com/pixelarena/queue-backend/internal/services"
)

// AdminQueueHandler handles the staff console queue endpoints
type AdminQueueHandler struct {
	queueService *services.QueueService
	notifier     *services.NotificationService
	settingsRepo *database.QueueSettingsRepository
	auditService *services.AuditService
	cronService  *services.CronService
	logger       *logrus.Logger
}

// NewAdminQueueHandler creates a new AdminQueueHandler
func NewAdminQueueHandler(
	queueService *services.QueueService,
	notifier *services.NotificationService,
	settingsRepo *database.QueueSettingsRepository,
	auditService *services.AuditService,
	cronService *services.CronService,
	logger *logrus.Logger,
) *AdminQueueHandler {
	return &AdminQueueHandler{
		queueService: queueService,
		notifier:     notifier,
		settingsRepo: settingsRepo,
		auditService: auditService,
		cronService:  cronService,
		logger:       logger,
	}
}

// ListQueue returns the full ordered queue for the staff console
// GET /api/v1/admin/queue
func (h *AdminQueueHandler) ListQueue(c *gin.Context) {
	status, entries := h.queueService.Status()
	c.JSON(http.StatusOK, gin.H{
		"status":  status,
		"entries": entries,
	})
}

// AddWalkIn adds a physical walk-in customer to the queue
// POST /api/v1/admin/queue/walk-in
func (h *AdminQueueHandler) AddWalkIn(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	var req models.AddWalkInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := h.queueService.AddWalkIn(req)
	if err != nil {
		if errors.Is(err, services.ErrQueueFull) {
			c.JSON(http.StatusConflict, gin.H{"error": "The queue is full"})
			return
		}
		h.logger.WithError(err).Error("Failed to add walk-in entry")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add walk-in entry"})
		return
	}

	h.auditService.LogWalkInAdded(entry.ID, entry.UserName, entry.Position, userCtx.UserID, c.ClientIP(), c.Request.UserAgent())

	c.JSON(http.StatusCreated, entry)
}

// ReorderEntry moves a queue entry one slot up or down
// POST /api/v1/admin/queue/:entryId/reorder
func (h *AdminQueueHandler) ReorderEntry(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	entryID, err := uuid.Parse(c.Param("entryId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid entry ID"})
		return
	}

	var req models.ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.queueService.Reorder(entryID, req.Direction); err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidDirection):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Direction must be 'up' or 'down'"})
		case errors.Is(err, services.ErrEntryNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Queue entry not found"})
		case errors.Is(err, services.ErrOutOfBounds):
			c.JSON(http.StatusConflict, gin.H{"error": "Entry is already at the queue boundary"})
		case errors.Is(err, services.ErrSwapTargetNotFound):
			c.JSON(http.StatusConflict, gin.H{"error": "No entry holds the adjacent position"})
		default:
			h.logger.WithError(err).Error("Failed to reorder queue entry")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reorder queue entry"})
		}
		return
	}

	h.auditService.LogQueueReorder(entryID, req.Direction, userCtx.UserID, c.ClientIP(), c.Request.UserAgent())

	c.JSON(http.StatusOK, gin.H{"message": "Queue entry moved"})
}

// NotifyPerson manually notifies a queued person from the staff console
// POST /api/v1/admin/queue/:entryId/notify
func (h *AdminQueueHandler) NotifyPerson(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	entryID, err := uuid.Parse(c.Param("entryId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid entry ID"})
		return
	}

	var req models.NotifyPersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	methods, err := h.notifier.NotifyPerson(entryID, req.Message, userCtx.UserID, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		if errors.Is(err, services.ErrEntryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Queue entry not found"})
			return
		}
		h.logger.WithError(err).Error("Failed to notify queue entry")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to notify queue entry"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"methods": methods})
}

// GetSettings returns the queue settings row
// GET /api/v1/admin/queue/settings
func (h *AdminQueueHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.queueService.CurrentSettings())
}

// UpdateSettings applies a partial update to the queue settings
// PUT /api/v1/admin/queue/settings
func (h *AdminQueueHandler) UpdateSettings(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	var req models.UpdateQueueSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.MaxQueueSize != nil && *req.MaxQueueSize < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "max_queue_size must be at least 1"})
		return
	}

	settings, err := h.settingsRepo.Update(req)
	if err != nil {
		h.logger.WithError(err).Error("Failed to update queue settings")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update queue settings"})
		return
	}

	changes := map[string]interface{}{}
	if req.IsActive != nil {
		changes["is_active"] = *req.IsActive
	}
	if req.AllowOnlineJoin != nil {
		changes["allow_online_joining"] = *req.AllowOnlineJoin
	}
	if req.MaxQueueSize != nil {
		changes["max_queue_size"] = *req.MaxQueueSize
	}
	if req.AutomaticMode != nil {
		changes["automatic_mode"] = *req.AutomaticMode
	}
	h.auditService.LogQueueSettingsUpdate(userCtx.UserID, c.ClientIP(), c.Request.UserAgent(), changes)

	c.JSON(http.StatusOK, settings)
}

// RunSweep triggers one auto-removal pass immediately
// POST /api/v1/admin/queue/sweep
func (h *AdminQueueHandler) RunSweep(c *gin.Context) {
	h.cronService.RunSweepNow()
	c.JSON(http.StatusOK, gin.H{"message": "Sweep completed"})
}

// GetJobStatus reports the background job schedule
// GET /api/v1/admin/queue/jobs
func (h *AdminQueueHandler) GetJobStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.cronService.JobStatus())
}

// GetAuditLog returns recent admin activity
// GET /api/v1/admin/audit
func (h *AdminQueueHandler) GetAuditLog(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
			return
		}
		limit = parsed
	}

	events, err := h.auditService.RecentEvents(limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to read audit log")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read audit log"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}
