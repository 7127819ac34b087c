package routes

import (
	"github.com/gofiber/fiber/v2"

	"tokoku_backend/internals/features/payment/order/controller"
	"tokoku_backend/internals/middlewares"
)

// UserRoutes: surface storefront (checkout + polling status order).
func UserRoutes(app *fiber.App, ctrl *controller.OrderController) {
	user := app.Group("/api/u")

	user.Post("/checkout", middlewares.CheckoutRateLimiter(), ctrl.CreateCheckout)
	user.Get("/orders/:order_number", ctrl.GetOrderByNumber)
}
