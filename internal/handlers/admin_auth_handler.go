package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pixelarena/queue-backend/internal/models"
	"github.com/pixelarena/queue-backend/internal/services"
)

// AdminAuthHandler handles staff console login
type AdminAuthHandler struct {
	authService *services.AdminAuthService
	logger      *logrus.Logger
}

// NewAdminAuthHandler creates a new AdminAuthHandler
func NewAdminAuthHandler(authService *services.AdminAuthService, logger *logrus.Logger) *AdminAuthHandler {
	return &AdminAuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Login authenticates a staff or admin account
// POST /api/v1/admin/login
func (h *AdminAuthHandler) Login(c *gin.Context) {
	var req models.StaffLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), req.UserName, req.Password)
	if err != nil {
		// Failed logins are visible in the request log; the response stays generic
		h.logger.WithField("username", req.UserName).WithField("ip", c.ClientIP()).Warn("Staff login failed")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	c.JSON(http.StatusOK, resp)
}
