package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pixelarena/queue-backend/internal/config"
	"github.com/pixelarena/queue-backend/internal/database"
	"github.com/pixelarena/queue-backend/internal/handlers"
	"github.com/pixelarena/queue-backend/internal/middleware"
	"github.com/pixelarena/queue-backend/internal/services"
	"github.com/pixelarena/queue-backend/pkg/gizmo"
	"github.com/pixelarena/queue-backend/pkg/jwt"
	"github.com/pixelarena/queue-backend/pkg/webpush"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting Pixel Arena Queue Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize repositories
	// The queue entry repository needs the raw sqlx handle for transactions
	entryRepo := database.NewQueueEntryRepository(db.DB)
	settingsRepo := database.NewQueueSettingsRepository(db)
	userRepo := database.NewUserRepository(db)
	subRepo := database.NewPushSubscriptionRepository(db)

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)

	var pushSender webpush.Sender
	if cfg.Push.Enabled && cfg.Push.GatewayURL != "" {
		pushSender = webpush.NewClient(webpush.Config{
			GatewayURL:      cfg.Push.GatewayURL,
			VAPIDPublicKey:  cfg.Push.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.Push.VAPIDPrivateKey,
			Subject:         cfg.Push.Subject,
			Timeout:         cfg.Push.Timeout,
		})
		logger.Info("Web-push delivery enabled")
	} else {
		pushSender = webpush.NoopSender{}
		logger.Info("Web-push delivery disabled")
	}

	gizmoClient := gizmo.NewClient(gizmo.Config{
		BaseURL:  cfg.Gizmo.BaseURL,
		Username: cfg.Gizmo.Username,
		Password: cfg.Gizmo.Password,
		Timeout:  cfg.Gizmo.Timeout,
	})

	auditService := services.NewAuditService(db, logger)
	notificationService := services.NewNotificationService(entryRepo, subRepo, pushSender, auditService, logger)
	queueService := services.NewQueueService(
		entryRepo,
		settingsRepo,
		notificationService,
		logger,
		cfg.Queue.MinutesPerPosition,
		cfg.Queue.PositionRetries,
		cfg.Queue.RetryBackoff,
	)
	monitorService := services.NewQueueMonitorService(entryRepo, userRepo, gizmoClient, notificationService, logger)
	adminAuthService := services.NewAdminAuthService(userRepo, jwtService, cfg.JWT.AccessTokenExpiry)

	// Initialize and start cron service
	cronService := services.NewCronService(monitorService, logger, cfg.Queue.SweepInterval)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}

	logger.Info("Services initialized")

	// Initialize handlers
	queueHandler := handlers.NewQueueHandler(queueService, userRepo, subRepo, logger)
	adminQueueHandler := handlers.NewAdminQueueHandler(queueService, notificationService, settingsRepo, auditService, cronService, logger)
	adminAuthHandler := handlers.NewAdminAuthHandler(adminAuthService, logger)
	sessionEventHandler := handlers.NewSessionEventHandler(monitorService, cfg.Gizmo.WebhookToken, logger)

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Queue routes
		queue := v1.Group("/queue")
		{
			// Status is public; signed-in callers get their own position too
			queue.GET("/status", middleware.OptionalAuthMiddleware(jwtService), queueHandler.GetQueueStatus)

			protected := queue.Group("")
			protected.Use(middleware.AuthMiddleware(jwtService))
			{
				protected.POST("/join", queueHandler.JoinQueue)
				protected.POST("/leave", queueHandler.LeaveQueue)
				protected.POST("/push-subscription", queueHandler.RegisterPushSubscription)
				protected.DELETE("/push-subscription", queueHandler.RemovePushSubscription)
			}
		}

		// Session events posted by the center-management system
		events := v1.Group("/events")
		{
			events.POST("/session-login", sessionEventHandler.SessionLogin)
		}

		// Staff console routes
		admin := v1.Group("/admin")
		{
			admin.POST("/login", adminAuthHandler.Login)

			staff := admin.Group("")
			staff.Use(middleware.AuthMiddleware(jwtService))
			staff.Use(middleware.RequireRole("staff", "admin"))
			{
				staff.GET("/queue", adminQueueHandler.ListQueue)
				staff.POST("/queue/walk-in", adminQueueHandler.AddWalkIn)
				staff.POST("/queue/:entryId/reorder", adminQueueHandler.ReorderEntry)
				staff.POST("/queue/:entryId/notify", adminQueueHandler.NotifyPerson)
				staff.GET("/queue/settings", adminQueueHandler.GetSettings)
				staff.POST("/queue/sweep", adminQueueHandler.RunSweep)
				staff.GET("/queue/jobs", adminQueueHandler.GetJobStatus)
			}

			// Settings changes and the audit trail are admin-only
			adminOnly := admin.Group("")
			adminOnly.Use(middleware.AuthMiddleware(jwtService))
			adminOnly.Use(middleware.RequireRole("admin"))
			{
				adminOnly.PUT("/queue/settings", adminQueueHandler.UpdateSettings)
				adminOnly.GET("/audit", adminQueueHandler.GetAuditLog)
			}
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	cronService.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}

		if userCtx, ok := middleware.GetUserContext(c); ok {
			fields["user_id"] = userCtx.UserID
		}

		entry := logger.WithFields(fields)

		status := c.Writer.Status()
		switch {
		case len(c.Errors) > 0:
			entry.WithField("errors", c.Errors.String()).Error("Request failed with errors")
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed successfully")
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
