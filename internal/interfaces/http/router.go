package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/recepcion-despacho/internal/application/fulfillment"
	"github.com/jhoicas/recepcion-despacho/internal/domain/entity"
	"github.com/jhoicas/recepcion-despacho/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Sessions  *fulfillment.SessionManager
	Slips     map[entity.Flow]*fulfillment.SlipUseCase
	Log       *logger.Logger
	JWTSecret string
}

// Router registra las rutas de la API. Entradas y salidas comparten handlers;
// el flujo lo fija FlowScope en cada grupo.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")
	h := NewFulfillmentHandler(deps.Sessions, deps.Slips, deps.Log)

	protected := func(flow entity.Flow) []fiber.Handler {
		return []fiber.Handler{
			AuthMiddleware(deps.JWTSecret),
			RequireRole(RoleAdmin, RoleBodeguero),
			FlowScope(flow),
		}
	}
	flowRoutes(api.Group("/entries", protected(entity.FlowInbound)...), h)
	flowRoutes(api.Group("/exits", protected(entity.FlowOutbound)...), h)
}

func flowRoutes(g fiber.Router, h *FulfillmentHandler) {
	sessions := g.Group("/sessions")
	sessions.Post("/", h.CreateSession)
	sessions.Get("/:sid", h.GetSession)
	sessions.Delete("/:sid", h.AbandonSession)
	sessions.Put("/:sid/order", h.SelectOrder)
	sessions.Put("/:sid/destination", h.SelectDestination)
	sessions.Post("/:sid/scan", h.Scan)
	sessions.Post("/:sid/validate", h.Validate)
	sessions.Post("/:sid/cart", h.AddToCart)
	sessions.Patch("/:sid/cart/:index", h.UpdateQuantity)
	sessions.Delete("/:sid/cart/:index", h.RemoveFromCart)
	sessions.Get("/:sid/progress", h.Progress)
	sessions.Post("/:sid/finalize", h.Finalize)
	sessions.Post("/:sid/reset", h.Reset)
	sessions.Delete("/:sid/error", h.ClearError)

	g.Get("/orders/:id/progress", h.OrderProgress)
	g.Get("/batches/:batchID/slip", h.DownloadSlip)
}
