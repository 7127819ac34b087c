package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	NotificationStatusPending = "pending"
	NotificationStatusSent    = "sent"
)

// NotificationQueue: work item konfirmasi pembayaran yang gagal dikirim
// langsung. Unik per reference — re-entry (mis. sweeper konfirmasi ulang
// order yang sama) tidak boleh bikin work item ganda. Worker pengurasnya
// ada di luar engine ini; kontraknya: aman diproses lebih dari sekali.
type NotificationQueue struct {
	NotificationID uuid.UUID `gorm:"column:notification_id;type:uuid;default:gen_random_uuid();primaryKey" json:"notification_id"`

	NotificationReference string `gorm:"column:notification_reference;type:varchar(120);not null;uniqueIndex" json:"notification_reference"`
	NotificationRecipient string `gorm:"column:notification_recipient;type:varchar(120)" json:"notification_recipient"`
	NotificationTemplate  string `gorm:"column:notification_template;type:varchar(60)" json:"notification_template"`

	NotificationVariables datatypes.JSON `gorm:"column:notification_variables;type:jsonb" json:"notification_variables,omitempty"`

	NotificationStatus    string `gorm:"column:notification_status;type:varchar(20);default:'pending';index" json:"notification_status"`
	NotificationLastError string `gorm:"column:notification_last_error;type:text" json:"notification_last_error,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (NotificationQueue) TableName() string { return "notification_queue" }
