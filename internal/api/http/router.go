package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-routing/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health        *handlers.HealthHandler
	Tickets       *handlers.TicketsHandler
	Agents        *handlers.AgentsHandler
	SLA           *handlers.SLAHandler
	Notifications *handlers.NotificationsHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	tickets := app.Group("/tickets")
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/close", cfg.Tickets.CloseTicket)
	tickets.Post("/:id/escalate", cfg.Tickets.EscalateTicket)

	agents := app.Group("/agents")
	agents.Post("", cfg.Agents.CreateAgent)
	agents.Get("", cfg.Agents.ListAgents)
	agents.Get("/:id", cfg.Agents.GetAgent)
	agents.Put("/:id/skills", cfg.Agents.UpdateSkills)
	agents.Put("/:id/availability", cfg.Agents.SetAvailability)

	sla := app.Group("/sla")
	sla.Get("/rules", cfg.SLA.ListRules)
	sla.Put("/rules", cfg.SLA.SaveRule)
	sla.Delete("/rules/:urgency", cfg.SLA.DeleteRule)
	sla.Post("/check", cfg.SLA.Check)

	notifications := app.Group("/notifications")
	notifications.Get("", cfg.Notifications.ListNotifications)
	notifications.Post("/:id/read", cfg.Notifications.MarkRead)
}
