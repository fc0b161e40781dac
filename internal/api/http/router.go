package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/support-bot/internal/api/http/handlers"
	"github.com/spec-kit/support-bot/internal/auth"
	"github.com/spec-kit/support-bot/internal/domain"
	"github.com/spec-kit/support-bot/internal/observability"
	apperrors "github.com/spec-kit/support-bot/pkg/util/errorutil"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Tickets        *handlers.TicketsHandler
	Subscriptions  *handlers.SubscriptionsHandler
	Setup          *handlers.SetupHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	if registry := cfg.Metrics.Registry(); registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	gateway := auth.RequireGateway()
	anyone := auth.RequireSubject(domain.SubjectTypeGateway, domain.SubjectTypeOperator)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Post("/", gateway, cfg.Tickets.OpenTicket)
	tickets.Get("/", anyone, cfg.Tickets.ListTickets)
	tickets.Get("/:id", anyone, cfg.Tickets.GetTicket)
	tickets.Get("/:id/audit", anyone, cfg.Tickets.ListAudit)
	tickets.Post("/:id/messages", gateway, cfg.Tickets.PostMessage)
	tickets.Post("/:id/escalate", gateway, cfg.Tickets.Escalate)
	tickets.Post("/:id/more-support", gateway, cfg.Tickets.MoreSupport)
	tickets.Post("/:id/close", anyone, cfg.Tickets.Close)
	tickets.Post("/:id/staff-messages", anyone, cfg.Tickets.StaffMessage)

	setup := app.Group("/setup", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	setup.Post("/:panel", cfg.Setup.PublishPanel)

	subs := app.Group("/subscriptions", cfg.AuthMiddleware.Handle)
	subs.Get("/", anyone, cfg.Subscriptions.List)
	subs.Post("/purchase", gateway, cfg.Subscriptions.Purchase)
	subs.Delete("/purchase/:userID", gateway, cfg.Subscriptions.CancelPurchase)
	subs.Get("/:userID", anyone, cfg.Subscriptions.Status)

	app.Use(func(c *fiber.Ctx) error {
		return apperrors.NewNotFound("route", map[string]any{"method": c.Method(), "path": c.Path()})
	})
}
