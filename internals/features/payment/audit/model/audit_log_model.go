package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AuditLog: sink append-only. Dipakai untuk insiden keamanan webhook
// (signature/IP ditolak) dan ringkasan sweep rekonsiliasi.
type AuditLog struct {
	AuditLogID uuid.UUID `gorm:"column:audit_log_id;type:uuid;default:gen_random_uuid();primaryKey" json:"audit_log_id"`

	AuditLogAction   string `gorm:"column:audit_log_action;type:varchar(60);not null;index" json:"audit_log_action"`
	AuditLogCategory string `gorm:"column:audit_log_category;type:varchar(40);index" json:"audit_log_category"`
	AuditLogSeverity string `gorm:"column:audit_log_severity;type:varchar(20);index" json:"audit_log_severity"`
	AuditLogMessage  string `gorm:"column:audit_log_message;type:text" json:"audit_log_message"`
	AuditLogIP       string `gorm:"column:audit_log_ip;type:varchar(45)" json:"audit_log_ip,omitempty"`

	AuditLogMetadata datatypes.JSON `gorm:"column:audit_log_metadata;type:jsonb" json:"audit_log_metadata,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }
