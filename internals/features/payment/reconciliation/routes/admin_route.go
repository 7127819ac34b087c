package routes

import (
	"github.com/gofiber/fiber/v2"

	"tokoku_backend/internals/features/payment/reconciliation/controller"
	authMiddleware "tokoku_backend/internals/middlewares/auth"
)

// AdminRoutes: surface operasional, hanya untuk token admin.
func AdminRoutes(app *fiber.App, ctrl *controller.ReconciliationController) {
	admin := app.Group("/api/a", authMiddleware.AdminAuthMiddleware())

	admin.Post("/reconciliation/run", ctrl.RunSweep)
	admin.Get("/webhook-events", ctrl.ListWebhookEvents)
	admin.Get("/audit-logs", ctrl.ListAuditLogs)
}
