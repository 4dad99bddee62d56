package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/api/http/handlers"
	"github.com/spec-kit/grievance-service/internal/auth"
	"github.com/spec-kit/grievance-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Complaints     *handlers.ComplaintsHandler
	Officers       *handlers.OfficerHandler
	OfficerTickets *handlers.OfficerTicketsHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/officers/login", cfg.Officers.Login)

	app.Post("/complaints", cfg.Complaints.Create)
	app.Post("/complaints/:code/duplicate", cfg.Complaints.Duplicate)
	app.Get("/track/:code", cfg.Complaints.Track)
	app.Post("/track/:code/feedback", cfg.Complaints.Feedback)

	officer := app.Group("/officer", cfg.AuthMiddleware.Handle, auth.RequireRole())
	officer.Get("/tickets", cfg.OfficerTickets.List)
	officer.Get("/tickets/:code", cfg.OfficerTickets.Get)
	officer.Get("/tickets/:code/audit", cfg.OfficerTickets.Audit)
	officer.Post("/tickets/:code/actions", cfg.OfficerTickets.Action)
	officer.Post("/tickets/:code/evidence", cfg.OfficerTickets.Evidence)
	officer.Post("/approvals/resolve", cfg.OfficerTickets.ResolveApproval)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleSuperAdmin))
	admin.Post("/sweep", cfg.Admin.Sweep)
	admin.Post("/officers", cfg.Officers.Create)
}
