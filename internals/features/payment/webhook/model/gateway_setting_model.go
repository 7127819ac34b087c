package model

import (
	"time"

	"github.com/google/uuid"
)

// GatewaySetting: konfigurasi provider yang bisa diganti tanpa redeploy.
// Resolusi secret webhook: setting aktif → override ENV → API secret key.
type GatewaySetting struct {
	GatewaySettingID uuid.UUID `gorm:"column:gateway_setting_id;type:uuid;default:gen_random_uuid();primaryKey" json:"gateway_setting_id"`

	GatewaySettingProvider      string `gorm:"column:gateway_setting_provider;type:varchar(40);not null" json:"gateway_setting_provider"`
	GatewaySettingWebhookSecret string `gorm:"column:gateway_setting_webhook_secret;type:text" json:"-"`
	GatewaySettingIsActive      bool   `gorm:"column:gateway_setting_is_active;default:false;index" json:"gateway_setting_is_active"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (GatewaySetting) TableName() string { return "gateway_settings" }
