package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-activity/internal/api/http/handlers"
	"github.com/spec-kit/ticket-activity/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Activity       *handlers.ActivityHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	events := app.Group("/events")
	events.Post("/messages", cfg.Activity.PostMessage)
	events.Post("/channels", cfg.Activity.PostChannelCreated)

	app.Get("/activity/:window/:id", cfg.Activity.GetAggregate)
	// The static biweekly route must be registered ahead of the window
	// parameter route.
	app.Get("/reports/biweekly", cfg.Activity.GetBiweeklyReport)
	app.Get("/reports/:window", cfg.Activity.GetReport)
	app.Get("/channels", cfg.Activity.ListChannels)
	app.Get("/channels/:id/messages", cfg.Activity.GetChannelMessages)
	app.Get("/users/tracked", cfg.Activity.ListTracked)
	app.Get("/users/sources", cfg.Activity.ListSources)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle)
	admin.Post("/users/tracked", cfg.Admin.AddTracked)
	admin.Delete("/users/tracked/:id", cfg.Admin.RemoveTracked)
	admin.Post("/users/sources", cfg.Admin.AddSource)
	admin.Delete("/users/sources/:id", cfg.Admin.RemoveSource)
	admin.Post("/channels", cfg.Admin.AddChannel)
	admin.Delete("/channels/:id", cfg.Admin.RemoveChannel)
	admin.Put("/reports-channel", cfg.Admin.SetReportsChannel)
	admin.Post("/reconcile", cfg.Admin.ForceReconcile)
	admin.Post("/reset/:window", cfg.Admin.ForceWindowReset)
	admin.Post("/update-stats", cfg.Admin.UpdateStats)
	admin.Post("/reports/send", cfg.Admin.SendReport)
	admin.Post("/wipe", cfg.Admin.RequestWipe)
	admin.Post("/wipe/confirm", cfg.Admin.ConfirmWipe)
}
