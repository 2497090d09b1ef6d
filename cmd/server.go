package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/veridian-labs/veridian/pkg/config"
	"github.com/veridian-labs/veridian/pkg/errx"
	"github.com/veridian-labs/veridian/pkg/logx"
	"github.com/veridian-labs/veridian/pkg/ratelimit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logx.Fatalf("Failed to load configuration: %v", err)
	}

	logx.Info("Starting Veridian identity service...")

	container := NewContainer(cfg)
	defer container.Cleanup()

	app := fiber.New(fiber.Config{
		AppName:               "Veridian",
		DisableStartupMessage: true,
		ErrorHandler:          globalErrorHandler,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
	})

	// Global middleware.
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowMethods: "GET, POST, PUT, DELETE, PATCH, HEAD, OPTIONS",
	}))

	// Generic per-IP policy ahead of every route.
	app.Use(container.Limiter.ByIP(ratelimit.PolicyFromConfig("generic", cfg.RateLimit.Generic)))

	app.Get("/health", healthCheckHandler(container))

	// Protected chain: authentication, role-derived limiter, role gate.
	protected := []fiber.Handler{
		container.AuthMiddleware.Authenticate(),
		container.Limiter.ByRole(container.RoleQuotas),
		container.AuthMiddleware.RequireRoles(),
	}

	container.AuthHandlers.RegisterRoutes(app, protected, container.RouteLimiters)
	logx.Info("Auth routes registered")

	app.Use(notFoundHandler)

	startServer(app, cfg.Server.Port)
}

func healthCheckHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		health := fiber.Map{
			"status":  "healthy",
			"service": "veridian",
		}

		if err := container.DB.Ping(); err != nil {
			health["db"] = "unhealthy"
			health["status"] = "degraded"
		} else {
			health["db"] = "healthy"
		}

		status := fiber.StatusOK
		if health["status"] == "degraded" {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(health)
	}
}

func notFoundHandler(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error":  "Route not found",
		"code":   "NOT_FOUND",
		"path":   c.Path(),
		"method": c.Method(),
	})
}

// globalErrorHandler is the single terminal handler: it maps errx errors
// onto the HTTP taxonomy and logs everything else as an unexpected 500,
// never detailing internals to the client.
func globalErrorHandler(c *fiber.Ctx, err error) error {
	if e, ok := err.(*fiber.Error); ok {
		return c.Status(e.Code).JSON(fiber.Map{
			"error":      e.Message,
			"code":       "HTTP_ERROR",
			"request_id": c.GetRespHeader("X-Request-ID"),
		})
	}

	var e *errx.Error
	if errx.As(err, &e) {
		if e.Type == errx.TypeInternal || e.Type == errx.TypeExternal {
			logx.WithFields(logx.Fields{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": c.GetRespHeader("X-Request-ID"),
			}).Errorf("Request error: %v", err)
		}

		response := fiber.Map{
			"error":      e.Message,
			"code":       e.Code,
			"type":       string(e.Type),
			"request_id": c.GetRespHeader("X-Request-ID"),
		}
		if len(e.Details) > 0 {
			response["details"] = e.Details
		}
		return c.Status(e.HTTPStatus).JSON(response)
	}

	logx.WithFields(logx.Fields{
		"path":       c.Path(),
		"method":     c.Method(),
		"request_id": c.GetRespHeader("X-Request-ID"),
	}).Errorf("Unhandled error: %v", err)

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "An unexpected error occurred",
		"code":  "INTERNAL_ERROR",
		"type":  string(errx.TypeInternal),
	})
}

func startServer(app *fiber.App, port string) {
	go func() {
		logx.Infof("Server listening on port %s", port)
		if err := app.Listen(":" + port); err != nil {
			logx.Fatalf("Server error: %v", err)
		}
	}()

	gracefulShutdown(app)
}

func gracefulShutdown(app *fiber.App) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	logx.Infof("Received signal: %v, shutting down gracefully...", sig)

	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		logx.Errorf("Server forced to shutdown: %v", err)
	}

	logx.Info("Server exited")
}
