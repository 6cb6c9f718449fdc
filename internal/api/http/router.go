package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Companies      *handlers.CompaniesHandler
	Notifications  *handlers.NotificationsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Role gates here are coarse; the policy
// engine inside the services makes the final decision.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)

	app.Get("/companies/available", cfg.Companies.Available)

	// Auth is mounted per prefix so unmatched paths still fall through to 404.
	protected := func(prefix string, handlers ...fiber.Handler) fiber.Router {
		chain := []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireAuthenticated()}
		return app.Group(prefix, append(chain, handlers...)...)
	}

	me := protected("/me")
	me.Get("/", cfg.Users.Me)
	me.Patch("/", cfg.Users.UpdateMe)

	users := protected("/users")
	users.Get("/", auth.RequireRole(domain.RoleAdmin, domain.RoleSupportEngineer), cfg.Users.ListUsers)
	users.Post("/", auth.RequireRole(domain.RoleAdmin), cfg.Users.CreateUser)
	users.Patch("/:uid", auth.RequireRole(domain.RoleAdmin), cfg.Users.UpdateUser)

	companies := protected("/companies", auth.RequireRole(domain.RoleAdmin))
	companies.Get("/", cfg.Companies.List)
	companies.Post("/", cfg.Companies.Create)
	companies.Post("/:id/deactivate", cfg.Companies.Deactivate)

	tickets := protected("/tickets")
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/deleted", cfg.Tickets.ListDeleted)
	tickets.Get("/counts", cfg.Tickets.Counts)
	tickets.Get("/buckets/:bucket", cfg.Tickets.ListByBucket)
	tickets.Get("/:tid", cfg.Tickets.GetTicket)
	tickets.Patch("/:tid", cfg.Tickets.UpdateTicket)
	tickets.Delete("/:tid", cfg.Tickets.DeleteTicket)
	tickets.Post("/:tid/review", cfg.Tickets.AttachReview)

	protected("/reviews").Get("/", cfg.Tickets.ListReviews)

	notifications := protected("/notifications")
	notifications.Get("/", cfg.Notifications.List)
	notifications.Patch("/:id/read", cfg.Notifications.SetRead)
}
