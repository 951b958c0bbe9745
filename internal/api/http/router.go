package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/itops/helpdesk-service/internal/api/http/handlers"
	"github.com/itops/helpdesk-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	StaffTickets   *handlers.StaffTicketsHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Post("/password/change", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated(), cfg.Users.ChangePassword)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())

	api.Post("/tickets", cfg.Tickets.Create)
	api.Get("/tickets", cfg.Tickets.List)
	api.Get("/tickets/:id", cfg.Tickets.Get)
	api.Patch("/tickets/:id", cfg.Tickets.Update)
	api.Get("/tickets/:id/activity", cfg.Tickets.Activity)
	api.Post("/tickets/:id/comments", cfg.Tickets.AddComment)
	api.Get("/tickets/:id/comments", cfg.Tickets.ListComments)
	api.Delete("/comments/:id", cfg.Tickets.DeleteComment)

	staff := api.Group("/staff", auth.RequireStaff())
	staff.Get("/tickets", cfg.StaffTickets.List)
	staff.Get("/tickets/seq/:seq", cfg.StaffTickets.GetBySeq)
	staff.Post("/tickets/:id/merge", cfg.StaffTickets.Merge)
	staff.Delete("/tickets/:id", cfg.StaffTickets.Delete)
	staff.Get("/stats/dashboard", cfg.StaffTickets.Dashboard)
}
