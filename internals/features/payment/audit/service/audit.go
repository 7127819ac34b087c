package service

import (
	"context"
	"log"

	"github.com/bytedance/sonic"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"tokoku_backend/internals/features/payment/audit/model"
)

/* ===================== Constants ===================== */

const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

const (
	CategorySecurity       = "security"
	CategoryPayment        = "payment"
	CategoryReconciliation = "reconciliation"
)

/* ===================== Recorder ===================== */

type Entry struct {
	Action   string
	Category string
	Severity string
	Message  string
	IP       string
	Metadata map[string]interface{}
}

// Recorder: sink append-only. Implementasi tidak boleh mengembalikan error ke
// alur pembayaran — gagal tulis audit cukup ke log.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}

type GormRecorder struct {
	DB *gorm.DB
}

func NewGormRecorder(db *gorm.DB) *GormRecorder {
	return &GormRecorder{DB: db}
}

func (r *GormRecorder) Record(ctx context.Context, entry Entry) {
	row := model.AuditLog{
		AuditLogAction:   entry.Action,
		AuditLogCategory: entry.Category,
		AuditLogSeverity: entry.Severity,
		AuditLogMessage:  entry.Message,
		AuditLogIP:       entry.IP,
	}

	if entry.Metadata != nil {
		if raw, err := sonic.Marshal(entry.Metadata); err == nil {
			row.AuditLogMetadata = datatypes.JSON(raw)
		} else {
			log.Printf("[AUDIT] gagal marshal metadata: %v", err)
		}
	}

	if err := r.DB.WithContext(ctx).Create(&row).Error; err != nil {
		// best effort: audit bukan alasan menjatuhkan transisi pembayaran
		log.Printf("[AUDIT] gagal tulis audit log (%s): %v", entry.Action, err)
	}
}
