// Package server contains the HTTP handlers for the marketplace API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	_ "gigboard/docs" // swagger docs
	"gigboard/internal/auth"
	"gigboard/internal/cache"
	"gigboard/internal/config"
	"gigboard/internal/database"
	"gigboard/internal/mailer"
	"gigboard/internal/middleware"
	"gigboard/internal/repository"
	"gigboard/internal/service"
	"gigboard/internal/tasks"
	"gigboard/internal/validation"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const taskTimeout = 30 * time.Second

// Deps are the long-lived collaborators a Server is built from.
type Deps struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Runner tasks.Runner
	Mailer mailer.Mailer
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	dispatcher     *tasks.Dispatcher
	gate           *auth.Gate

	userRepo        repository.UserRepository
	serviceRepo     repository.ServiceRepository
	applicationRepo repository.ApplicationRepository

	authService        *service.AuthService
	userService        *service.UserService
	catalogService     *service.CatalogService
	applicationService *service.ApplicationService
}

// NewServer connects to the database and Redis and starts the background
// task dispatcher. Everything it opens is released by Shutdown.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	redisClient := cache.NewClient(cfg.RedisURL)

	dispatcher := tasks.NewDispatcher(cfg.TaskWorkers, cfg.TaskQueueSize, taskTimeout)
	dispatcher.Start()

	server := NewServerWithDeps(cfg, Deps{
		DB:     db,
		Redis:  redisClient,
		Runner: dispatcher,
		Mailer: mailer.New(cfg),
	})
	server.dispatcher = dispatcher
	return server, nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer owns the connections.
func NewServerWithDeps(cfg *config.Config, deps Deps) *Server {
	runner := deps.Runner
	if runner == nil {
		runner = tasks.Inline{}
	}
	mail := deps.Mailer
	if mail == nil {
		mail = &mailer.LogMailer{}
	}

	v := validation.New()
	links := mailer.Links{FrontendURL: cfg.FrontendURL}

	userRepo := repository.NewUserRepository(deps.DB, deps.Redis)
	serviceRepo := repository.NewServiceRepository(deps.DB)
	applicationRepo := repository.NewApplicationRepository(deps.DB)

	gate := auth.NewGate(auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL), userRepo, deps.Redis, auth.DefaultPolicy)

	return &Server{
		config:          cfg,
		db:              deps.DB,
		redis:           deps.Redis,
		promMiddleware:  middleware.InitMetrics("gigboard-api"),
		gate:            gate,
		userRepo:        userRepo,
		serviceRepo:     serviceRepo,
		applicationRepo: applicationRepo,

		authService:        service.NewAuthService(userRepo, gate, v, runner, mail, links),
		userService:        service.NewUserService(userRepo, v),
		catalogService:     service.NewCatalogService(serviceRepo, applicationRepo, deps.Redis, runner, v, cfg.ViewSessionTTL),
		applicationService: service.NewApplicationService(applicationRepo, serviceRepo, v, runner, mail, links),
	}
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	// Tracing runs before ContextMiddleware so the trace ID reaches the logger.
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
				"code":  "RATE_LIMITED",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Gigboard API Metrics Dashboard",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	authGroup := api.Group("/auth")
	authGroup.Post("/register", middleware.RateLimit(s.redis, 5, 10*time.Minute, "register"), s.Register)
	authGroup.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	authGroup.Post("/forgot-password", middleware.RateLimit(s.redis, 3, 10*time.Minute, "forgot_password"), s.ForgotPassword)
	authGroup.Post("/reset-password", middleware.RateLimit(s.redis, 5, 10*time.Minute, "reset_password"), s.ResetPassword)
	authGroup.Get("/verify-email/:token", s.VerifyEmail)
	authGroup.Put("/change-password", s.Require(auth.ActionPasswordChange), s.ChangePassword)
	authGroup.Post("/logout", s.Require(auth.ActionLogout), s.Logout)

	users := api.Group("/users")
	users.Get("/profile", s.Require(auth.ActionProfileRead), s.GetProfile)
	users.Put("/profile", s.Require(auth.ActionProfileUpdate), s.UpdateProfile)

	admin := api.Group("/admin", s.Require(auth.ActionUsersAdminister))
	admin.Get("/users", s.ListUsers)
	admin.Put("/users/:id/active", s.SetUserActive)

	services := api.Group("/services")
	services.Get("/", middleware.RateLimit(s.redis, 60, time.Minute, "service_search"), s.ListServices)
	services.Post("/", s.Require(auth.ActionServiceCreate), s.CreateService)
	// Specific routes before the generic /:id routes.
	services.Get("/expert/:expertId", s.ListExpertServices)
	services.Post("/:id/apply", s.Require(auth.ActionApply),
		middleware.RateLimit(s.redis, 20, time.Hour, "apply"), s.ApplyToService)
	services.Get("/:id/applications", s.Require(auth.ActionServiceApplicants), s.ListServiceApplications)
	services.Get("/:id", s.GetService)
	services.Put("/:id", s.Require(auth.ActionServiceUpdate), s.UpdateService)
	services.Delete("/:id", s.Require(auth.ActionServiceDelete), s.DeleteService)

	applications := api.Group("/applications")
	applications.Get("/my-applications", s.Require(auth.ActionApplicationsMine), s.ListMyApplications)
	applications.Put("/:id/status", s.Require(auth.ActionApplicationRespond), s.RespondToApplication)
	applications.Put("/:id/withdraw", s.Require(auth.ActionApplicationWithdraw), s.WithdrawApplication)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports whether the database and Redis are reachable.
// Redis is optional: a server started without it is degraded, not down.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis == nil {
		redisStatus = "unavailable"
	} else if err := s.redis.Ping(ctx).Err(); err != nil {
		redisStatus = "unhealthy"
	}

	status := fiber.StatusOK
	overall := "healthy"
	switch {
	case dbStatus != "healthy" || redisStatus == "unhealthy":
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	case redisStatus != "healthy":
		overall = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// App builds the Fiber application with middleware and routes installed.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Gigboard API",
		ErrorHandler: s.errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start starts the server
func (s *Server) Start() error {
	s.app = s.App()
	middleware.Logger.Info("server starting", slog.String("port", s.config.Port), slog.String("env", s.config.Env))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown stops accepting requests, drains background tasks and closes
// the connections the server owns.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if s.dispatcher != nil {
		if err := s.dispatcher.Stop(ctx); err != nil {
			middleware.Logger.Warn("background tasks did not drain", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
