// file: internals/route/index.go
package routes

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"tokoku_backend/internals/configs"

	auditService "tokoku_backend/internals/features/payment/audit/service"
	"tokoku_backend/internals/features/payment/gateway"
	notifService "tokoku_backend/internals/features/payment/notification/service"
	orderController "tokoku_backend/internals/features/payment/order/controller"
	orderRoutes "tokoku_backend/internals/features/payment/order/routes"
	orderService "tokoku_backend/internals/features/payment/order/service"
	reconController "tokoku_backend/internals/features/payment/reconciliation/controller"
	reconRoutes "tokoku_backend/internals/features/payment/reconciliation/routes"
	reconService "tokoku_backend/internals/features/payment/reconciliation/service"
	webhookController "tokoku_backend/internals/features/payment/webhook/controller"
	webhookRoutes "tokoku_backend/internals/features/payment/webhook/routes"
	webhookService "tokoku_backend/internals/features/payment/webhook/service"
)

// SetupRoutes merakit seluruh graph engine pembayaran dan memasang route.
// Mengembalikan sweeper supaya main bisa menjadwalkannya.
func SetupRoutes(app *fiber.App, db *gorm.DB, cfg configs.PaymentConfig, gatewayClient *gateway.Client) *reconService.Sweeper {
	// ===================== SHARED =====================
	audit := auditService.NewGormRecorder(db)
	orderStore := orderService.NewGormOrderStore(db)
	notifier := notifService.NewNotifier(notifService.LogSender{}, notifService.NewGormQueueStore(db))

	// satu state machine untuk dua jalur ingest (webhook & sweep)
	machine := orderService.NewStateMachine(orderStore, notifier)

	// ===================== WEBHOOK =====================
	log.Println("[INFO] Setting up WebhookRoutes...")
	eventStore := webhookService.NewGormEventStore(db)
	signature := webhookService.NewSignatureVerifier(webhookService.NewGormSettingStore(db), cfg, audit)
	dedup := webhookService.NewDeduplicator(eventStore)
	router := webhookService.NewRouter(gatewayClient, machine, audit)
	webhookRoutes.WebhookRoutes(app, webhookController.NewWebhookController(signature, dedup, router, eventStore))

	// ===================== STOREFRONT =====================
	log.Println("[INFO] Setting up UserRoutes...")
	orderRoutes.UserRoutes(app, orderController.NewOrderController(db, gatewayClient))

	// ===================== ADMIN / OPS =====================
	log.Println("[INFO] Setting up AdminRoutes...")
	sweeper := reconService.NewSweeper(orderStore, gatewayClient, machine, audit, cfg)
	reconRoutes.AdminRoutes(app, reconController.NewReconciliationController(db, sweeper))

	return sweeper
}
