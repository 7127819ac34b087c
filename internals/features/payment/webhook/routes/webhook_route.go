package routes

import (
	"github.com/gofiber/fiber/v2"

	"tokoku_backend/internals/features/payment/webhook/controller"
)

// WebhookRoutes: endpoint publik untuk notifikasi gateway. Tanpa auth —
// keasliannya dicek lewat signature/IP di dalam handler.
func WebhookRoutes(app *fiber.App, ctrl *controller.WebhookController) {
	app.Post("/api/payments/webhook", ctrl.HandleGatewayWebhook)
}
