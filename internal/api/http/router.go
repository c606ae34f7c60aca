package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hoyn-app/profile-qr/internal/api/http/handlers"
	"github.com/hoyn-app/profile-qr/internal/auth"
	"github.com/hoyn-app/profile-qr/internal/service"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	QR             *handlers.QRHandler
	Scan           *handlers.ScanHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post(service.ScanPath, cfg.Scan.Submit)
	app.Get(service.ScanPath, cfg.Scan.Lookup)

	profiles := app.Group("/v1/profiles", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	profiles.Post("/:id/qr", cfg.QR.Issue)
	profiles.Get("/:id/scans", cfg.QR.History)

	ops := app.Group("/ops", cfg.AuthMiddleware.Handle, auth.RequireOperator())
	ops.Get("/metrics", cfg.Health.Metrics)
}
