package controller

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	helper "tokoku_backend/internals/helpers"

	auditModel "tokoku_backend/internals/features/payment/audit/model"
	"tokoku_backend/internals/features/payment/reconciliation/service"
	webhookModel "tokoku_backend/internals/features/payment/webhook/model"
)

type ReconciliationController struct {
	DB      *gorm.DB
	Sweeper *service.Sweeper
}

func NewReconciliationController(db *gorm.DB, sweeper *service.Sweeper) *ReconciliationController {
	return &ReconciliationController{DB: db, Sweeper: sweeper}
}

// 🟢 RUN SWEEP: trigger manual sweep rekonsiliasi (admin)
func (ctrl *ReconciliationController) RunSweep(c *fiber.Ctx) error {
	summary, err := ctrl.Sweeper.Run(c.UserContext())
	if err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Sweep rekonsiliasi gagal dijalankan")
	}
	return helper.Success(c, "Sweep rekonsiliasi selesai", summary)
}

// 🟢 LIST WEBHOOK EVENTS: ledger notifikasi masuk (admin)
func (ctrl *ReconciliationController) ListWebhookEvents(c *fiber.Ctx) error {
	page := helper.ParsePage(c, 25, 200)

	var events []webhookModel.WebhookEvent
	if err := ctrl.DB.WithContext(c.UserContext()).
		Order("created_at desc").
		Limit(page.PerPage).
		Offset(page.Offset()).
		Find(&events).Error; err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Gagal mengambil webhook events")
	}
	return helper.Success(c, "Webhook events", events)
}

// 🟢 LIST AUDIT LOGS: jejak audit keamanan & rekonsiliasi (admin)
func (ctrl *ReconciliationController) ListAuditLogs(c *fiber.Ctx) error {
	page := helper.ParsePage(c, 25, 200)

	query := ctrl.DB.WithContext(c.UserContext()).Order("created_at desc")
	if category := c.Query("category"); category != "" {
		query = query.Where("audit_log_category = ?", category)
	}

	var logs []auditModel.AuditLog
	if err := query.Limit(page.PerPage).Offset(page.Offset()).Find(&logs).Error; err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, "Gagal mengambil audit logs")
	}
	return helper.Success(c, "Audit logs", logs)
}
