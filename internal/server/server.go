// Package server contains HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"paperflow/internal/cache"
	"paperflow/internal/config"
	"paperflow/internal/database"
	"paperflow/internal/featureflags"
	"paperflow/internal/middleware"
	"paperflow/internal/models"
	"paperflow/internal/notifications"
	"paperflow/internal/repository"
	"paperflow/internal/service"
	"paperflow/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	flags          *featureflags.Manager
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	userRepo       repository.UserRepository
	docRepo        repository.DocumentRepository
	artifacts      storage.ArtifactStore
	notifier       *notifications.Notifier
	userService    *service.UserService
	directory      *service.DirectoryService
	workflow       *service.WorkflowService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when the caller establishes DB/Redis itself.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	userRepo := repository.NewUserRepository(db)
	docRepo := repository.NewDocumentRepository(db)
	artifacts := storage.NewArtifactStore(db)

	prom := middleware.InitMetrics("paperflow-api")

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: prom,
		flags:          featureflags.NewManager(cfg.FeatureFlags),
		userRepo:       userRepo,
		docRepo:        docRepo,
		artifacts:      artifacts,
	}

	// notifications is a kill-switch flag: on unless explicitly disabled
	if redisClient != nil && server.flags.EnabledOrDefault("notifications", 0, true) {
		server.notifier = notifications.NewNotifier(redisClient)
	}

	userService, err := service.NewUserService(userRepo, cfg.StudentEmailPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid student email pattern: %w", err)
	}
	server.userService = userService
	server.directory = service.NewDirectoryService(userRepo)
	server.workflow = service.NewWorkflowService(
		docRepo, userRepo, server.directory,
		service.NewSigningService(), artifacts, server.notifier,
	)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	// OpenTelemetry spans per request
	app.Use(middleware.TracingMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS middleware should run before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they should be handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)
	api.Get("/", s.HealthCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Paperflow Backend Metrics Dashboard",
	}))

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/admin-login", middleware.RateLimit(
		s.redis, 5, 10*time.Minute, "admin_login"), s.AdminLogin)
	auth.Post("/logout", s.AuthRequired(), s.Logout)
	// Aliases kept for clients that address profile routes under /auth
	auth.Get("/me", s.AuthRequired(), s.GetMyProfile)
	auth.Put("/profile", s.AuthRequired(), s.UpdateMyProfile)
	auth.Post("/set-role", s.AuthRequired(), s.AdminRequired(), s.SetUserRole)

	// Protected routes
	protected := api.Group("", s.AuthRequired())

	// User routes
	users := protected.Group("/user")
	users.Get("/me", s.GetMyProfile)
	users.Put("/profile", s.UpdateMyProfile)
	users.Put("/signature", s.UpdateSignature)
	users.Post("/signature", s.UpdateSignature)
	users.Get("/flags", s.GetMyFlags)

	// Student routes
	student := protected.Group("/student", s.RoleRequired(models.RoleStudent))
	student.Post("/upload", middleware.RateLimit(
		s.redis, 30, 1*time.Minute, "upload"), s.UploadDocument)
	student.Get("/documents", s.GetMyDocuments)
	student.Get("/mentors", s.GetMentors)
	student.Post("/forward/:documentId", s.ForwardToMentor)
	student.Get("/document/:documentId/download", s.DownloadMyDocument)
	student.Delete("/document/:documentId", s.DeleteMyDocument)

	// Stage desks: one route group per approval stage, prefixed by the
	// stage's slug (/api/mentor, /api/hod, ..., /api/exam-cell).
	groups := make(map[models.Stage]fiber.Router, len(models.Stages))
	for _, stage := range models.Stages {
		g := protected.Group("/"+string(stage), s.RoleRequired(stage.Role()))
		g.Get("/pending-documents", s.StagePending(stage))
		g.Get("/all-documents", s.StageAll(stage))
		g.Post("/approve/:documentId", s.StageApprove(stage))
		g.Post("/reject/:documentId", s.StageReject(stage))
		g.Get("/document/:documentId/download", s.StageDownload(stage))
		groups[stage] = g
	}

	// Forward edges out of each desk
	groups[models.StageMentor].Post("/forward-to-hod/:documentId",
		s.StageForward(models.StageMentor, models.StageHod))
	groups[models.StageHod].Post("/forward-to-dean/:documentId",
		s.StageForward(models.StageHod, models.StageDean))
	groups[models.StageDean].Post("/forward-to-dean/:documentId",
		s.StageForward(models.StageDean, models.StageDean))
	groups[models.StageDean].Post("/forward-to-dean-academics/:documentId",
		s.StageForward(models.StageDean, models.StageDeanAcademics))
	groups[models.StageDean].Post("/forward-to-industry-relations/:documentId",
		s.StageForward(models.StageDean, models.StageIndustryRelations))
	groups[models.StageDean].Post("/forward-to-rnd/:documentId",
		s.StageForward(models.StageDean, models.StageRnd))
	groups[models.StageDean].Post("/forward-to-coe/:documentId",
		s.StageForward(models.StageDean, models.StageCoe))
	groups[models.StageDeanAcademics].Post("/forward-to-registrar/:documentId",
		s.StageForward(models.StageDeanAcademics, models.StageRegistrar))
	groups[models.StageDeanAcademics].Post("/forward-to-exam-cell/:documentId",
		s.StageForward(models.StageDeanAcademics, models.StageExamCell))
	groups[models.StageCoe].Post("/forward-to-exam-cell/:documentId",
		s.StageForward(models.StageCoe, models.StageExamCell))
	groups[models.StageIndustryRelations].Post("/forward-to-dean/:documentId",
		s.StageForward(models.StageIndustryRelations, models.StageDean))
	groups[models.StageIndustryRelations].Post("/forward-to-dean-academics/:documentId",
		s.StageForward(models.StageIndustryRelations, models.StageDeanAcademics))
	groups[models.StageIndustryRelations].Post("/forward-to-rnd/:documentId",
		s.StageForward(models.StageIndustryRelations, models.StageRnd))
	groups[models.StageIndustryRelations].Post("/forward-to-hod/:documentId",
		s.StageForward(models.StageIndustryRelations, models.StageHod))

	// Admin routes
	admin := protected.Group("/admin", s.AdminRequired())
	admin.Get("/statistics", s.GetStatistics)
	admin.Get("/users", s.GetAllUsers)
	admin.Post("/users/:userId/role", s.SetUserRole)
	admin.Post("/migrate-roles", s.MigrateLegacyRoles)
}

// HealthCheck is a legacy/simple alias for ReadinessCheck
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	return s.ReadinessCheck(c)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		// Redis degrades caching and notifications but not core routing
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"message": "Paperflow",
		"version": "1.0.0",
		"status":  overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// RoleRequired returns middleware that rejects users lacking the role with 403.
// Must be placed after AuthRequired so that userID is available in locals.
func (s *Server) RoleRequired(role models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(uint)

		user, err := s.userRepo.GetByID(c.Context(), userID)
		if err != nil {
			return respondServiceError(c, err)
		}
		if !user.HasRole(role) && !user.HasRole(models.RoleAdmin) {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError(fmt.Sprintf("%s access required", role)))
		}

		c.Locals("user", user)
		return c.Next()
	}
}

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after AuthRequired so that userID is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(uint)

		user, err := s.userRepo.GetByID(c.Context(), userID)
		if err != nil {
			return respondServiceError(c, err)
		}
		if !user.HasRole(models.RoleAdmin) {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}

		return c.Next()
	}
}

// AuthRequired returns the authentication middleware
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		tokenString := ""
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}

		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		// Parse and validate token
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
			// Validate signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
			}
			return []byte(s.config.JWTSecret), nil
		})

		if err != nil || !token.Valid {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		// Extract claims
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid token claims"))
		}

		// Validate issuer and audience
		if issuer, issuerOk := claims["iss"].(string); !issuerOk || issuer != "paperflow-api" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid token issuer"))
		}
		if audience, audienceOk := claims["aud"].(string); !audienceOk || audience != "paperflow-client" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid token audience"))
		}

		// Extract user ID from subject claim
		sub, ok := claims["sub"].(string)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid subject claim"))
		}

		userID, err := strconv.ParseUint(sub, 10, 32)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid user ID in token"))
		}

		// Check JTI for revocation
		if jti, exists := claims["jti"].(string); exists && jti != "" {
			if s.redis != nil {
				isBlacklisted, err := s.redis.Exists(c.Context(), "blacklist:"+jti).Result()
				if err == nil && isBlacklisted > 0 {
					return models.RespondWithError(c, fiber.StatusUnauthorized,
						models.NewUnauthorizedError("Token has been revoked"))
				}
			}
		}

		// Store user ID in context
		c.Locals("userID", uint(userID))
		// Sync to UserContext for logging and downstream services
		ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, uint(userID))
		c.SetUserContext(ctx)

		return c.Next()
	}
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	if s.notifier != nil {
		err := s.notifier.StartPatternSubscriber(ctx, func(channel, _ string) {
			middleware.Logger.Debug("notification delivered", slog.String("channel", channel))
		})
		if err != nil {
			log.Printf("notification subscriber failed to start: %v", err)
		}
	}

	app := fiber.New(fiber.Config{
		AppName:   "Paperflow API",
		BodyLimit: s.config.MaxUploadSizeMB * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
