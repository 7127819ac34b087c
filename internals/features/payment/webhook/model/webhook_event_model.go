package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// WebhookEvent: ledger notifikasi masuk. Identity komposit
// (type, reference, provider_id) unik — pengiriman kedua dengan kunci sama
// dikenali dan di-short-circuit sebelum ada side effect. Baris dibuat SEBELUM
// diproses supaya crash di tengah tetap meninggalkan jejak audit.
type WebhookEvent struct {
	WebhookEventID uuid.UUID `gorm:"column:webhook_event_id;type:uuid;default:gen_random_uuid();primaryKey" json:"webhook_event_id"`

	WebhookEventType       string `gorm:"column:webhook_event_type;type:varchar(60);not null;uniqueIndex:idx_webhook_event_identity" json:"webhook_event_type"`
	WebhookEventReference  string `gorm:"column:webhook_event_reference;type:varchar(120);not null;uniqueIndex:idx_webhook_event_identity" json:"webhook_event_reference"`
	WebhookEventProviderID string `gorm:"column:webhook_event_provider_id;type:varchar(120);not null;uniqueIndex:idx_webhook_event_identity" json:"webhook_event_provider_id"`

	WebhookEventPayload   datatypes.JSON `gorm:"column:webhook_event_payload;type:jsonb" json:"webhook_event_payload,omitempty"`
	WebhookEventSignature string         `gorm:"column:webhook_event_signature;type:text" json:"webhook_event_signature,omitempty"`

	WebhookEventProcessed bool   `gorm:"column:webhook_event_processed;default:false;index" json:"webhook_event_processed"`
	WebhookEventResult    string `gorm:"column:webhook_event_result;type:text" json:"webhook_event_result,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (WebhookEvent) TableName() string { return "webhook_events" }
