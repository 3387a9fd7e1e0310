package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/academy-reconcile-api/internal/config"
	"github.com/noah-isme/academy-reconcile-api/internal/handler"
	"github.com/noah-isme/academy-reconcile-api/internal/middleware"
	"github.com/noah-isme/academy-reconcile-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ReconciliationHandler *handler.ReconciliationHandler
	RemediationHandler    *handler.RemediationHandler
	AttendanceHandler     *handler.AttendanceHandler
	ActivityHandler       *handler.ActivityHandler
	HealthProbes          []handler.HealthProbe
	JWTMiddleware         fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes...))

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	console := api.Group("", jwtMiddleware, middleware.RequireRole(middleware.RoleAdmin, middleware.RoleOperator))

	if deps.ReconciliationHandler != nil {
		deps.ReconciliationHandler.Register(console.Group("/reconciliation"))
	}

	if deps.RemediationHandler != nil {
		limiter := middleware.RateLimit("remediation", cfg.RemediationRateMax, cfg.RemediationRateTTL)
		deps.RemediationHandler.Register(console.Group("/remediation"), limiter)
	}

	if deps.AttendanceHandler != nil {
		deps.AttendanceHandler.Register(console)
	}

	// Audit trail is restricted to admins.
	if deps.ActivityHandler != nil {
		deps.ActivityHandler.Register(console.Group("/activity", middleware.RequireRole(middleware.RoleAdmin)))
	}
}
