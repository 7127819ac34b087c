package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"log"

	"gorm.io/gorm"

	"tokoku_backend/internals/configs"
	auditService "tokoku_backend/internals/features/payment/audit/service"
	"tokoku_backend/internals/features/payment/webhook/model"
)

// SignatureHeader: header berisi HMAC atas raw body dari gateway.
const SignatureHeader = "X-Gateway-Signature"

/* ===================== Secret resolution ===================== */

type SecretSource string

const (
	SecretSourceSetting  SecretSource = "gateway_setting"
	SecretSourceOverride SecretSource = "env_override"
	SecretSourceAPIKey   SecretSource = "api_secret_key"
	SecretSourceNone     SecretSource = "none"
)

// SettingStore menyediakan webhook secret dari setting provider aktif.
type SettingStore interface {
	ActiveWebhookSecret(ctx context.Context) (string, error)
}

type GormSettingStore struct {
	DB *gorm.DB
}

func NewGormSettingStore(db *gorm.DB) *GormSettingStore {
	return &GormSettingStore{DB: db}
}

func (s *GormSettingStore) ActiveWebhookSecret(ctx context.Context) (string, error) {
	var setting model.GatewaySetting
	err := s.DB.WithContext(ctx).
		Where("gateway_setting_is_active = ?", true).
		Order("updated_at desc").
		First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return setting.GatewaySettingWebhookSecret, nil
}

/* ===================== Verifier ===================== */

type SignatureOutcome struct {
	OK     bool
	Source SecretSource
	Reason string
}

// SignatureVerifier memverifikasi keaslian event masuk. Mismatch TIDAK
// pernah jadi 500 — pemanggil tetap membalas 2xx "ignored" (menolak dengan
// error memicu retry storm dari provider), insidennya dicatat ke audit.
type SignatureVerifier struct {
	Settings SettingStore
	Cfg      configs.PaymentConfig
	Audit    auditService.Recorder
}

func NewSignatureVerifier(settings SettingStore, cfg configs.PaymentConfig, audit auditService.Recorder) *SignatureVerifier {
	return &SignatureVerifier{Settings: settings, Cfg: cfg, Audit: audit}
}

// resolveSecret: setting aktif → override ENV → API secret key.
// Log sumbernya saja, jangan pernah nilai secret-nya.
func (v *SignatureVerifier) resolveSecret(ctx context.Context) (string, SecretSource) {
	if v.Settings != nil {
		if secret, err := v.Settings.ActiveWebhookSecret(ctx); err != nil {
			log.Printf("[WEBHOOK] gagal baca gateway_settings: %v", err)
		} else if secret != "" {
			return secret, SecretSourceSetting
		}
	}
	if v.Cfg.WebhookSecret != "" {
		return v.Cfg.WebhookSecret, SecretSourceOverride
	}
	if v.Cfg.GatewaySecretKey != "" {
		return v.Cfg.GatewaySecretKey, SecretSourceAPIKey
	}
	return "", SecretSourceNone
}

// Verify mengecek signature atas raw body persis (pre-parse). Tanpa secret
// sama sekali, jatuh ke pencocokan IP allow-list dengan sikap soft-fail yang
// sama: diabaikan dengan audit, bukan hard error di edge.
func (v *SignatureVerifier) Verify(ctx context.Context, rawBody []byte, signature, ip string) SignatureOutcome {
	secret, source := v.resolveSecret(ctx)

	if source == SecretSourceNone {
		return v.verifyByIP(ctx, ip)
	}

	log.Printf("[WEBHOOK] verifikasi signature pakai sumber: %s", source)

	if signature == "" {
		v.recordIncident(ctx, ip, "signature_missing", "webhook tanpa signature")
		return SignatureOutcome{OK: false, Source: source, Reason: "signature kosong"}
	}

	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	// hmac.Equal = perbandingan constant-time
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		v.recordIncident(ctx, ip, "signature_mismatch", "signature webhook tidak cocok")
		return SignatureOutcome{OK: false, Source: source, Reason: "signature tidak cocok"}
	}

	return SignatureOutcome{OK: true, Source: source}
}

func (v *SignatureVerifier) verifyByIP(ctx context.Context, ip string) SignatureOutcome {
	for _, allowed := range v.Cfg.AllowedIPs {
		if allowed == ip {
			log.Printf("[WEBHOOK] tanpa secret, IP %s lolos allow-list", ip)
			return SignatureOutcome{OK: true, Source: SecretSourceNone}
		}
	}
	v.recordIncident(ctx, ip, "ip_rejected", "webhook dari IP di luar allow-list (tanpa secret terkonfigurasi)")
	return SignatureOutcome{OK: false, Source: SecretSourceNone, Reason: "IP tidak di allow-list"}
}

func (v *SignatureVerifier) recordIncident(ctx context.Context, ip, action, message string) {
	if v.Audit == nil {
		return
	}
	v.Audit.Record(ctx, auditService.Entry{
		Action:   action,
		Category: auditService.CategorySecurity,
		Severity: auditService.SeverityCritical,
		Message:  message,
		IP:       ip,
	})
}
