package configs

import (
	"context"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	gormLogger "gorm.io/gorm/logger"
	"gorm.io/gorm/utils"
)

var (
	JWTSecret string
)

// =======================
// ENV LOADER
// =======================
func LoadEnv() {
	if os.Getenv("RAILWAY_ENVIRONMENT") == "" {
		if err := godotenv.Load(); err != nil {
			log.Println("⚠️ Tidak menemukan .env file, menggunakan ENV dari sistem")
		} else {
			log.Println("✅ .env file berhasil dimuat!")
		}
	} else {
		log.Println("🚀 Running in Railway, menggunakan ENV dari sistem")
	}

	JWTSecret = GetEnv("JWT_SECRET")
	if JWTSecret == "" {
		log.Println("❌ JWT_SECRET belum diset! Endpoint admin tidak bisa dipakai.")
	} else {
		log.Println("✅ JWT_SECRET berhasil dimuat.")
	}
}

func GetEnv(key string, defaultValue ...string) string {
	value, exists := os.LookupEnv(key)
	if !exists && len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return value
}

// TrustedProxies: daftar CIDR/IP reverse proxy yang boleh dipercaya untuk
// X-Forwarded-For. Default KOSONG — tanpa ini c.IP() memakai alamat koneksi
// langsung, jadi IP allow-list webhook tidak bisa dispoof lewat header.
func TrustedProxies() []string {
	var proxies []string
	for _, p := range strings.Split(GetEnv("TRUSTED_PROXIES"), ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			proxies = append(proxies, trimmed)
		}
	}
	return proxies
}

func GetEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
		log.Printf("⚠️ %s bukan angka, pakai default %d", key, defaultValue)
	}
	return defaultValue
}

// =======================
// PAYMENT CONFIG
// =======================

// PaymentConfig dibangun sekali saat start lalu di-inject ke tiap komponen.
// Jangan baca ENV langsung dari dalam service.
type PaymentConfig struct {
	GatewayBaseURL   string
	GatewaySecretKey string
	// Override webhook secret; kalau kosong, resolusi jatuh ke setting aktif
	// di DB lalu terakhir ke GatewaySecretKey.
	WebhookSecret string
	AllowedIPs    []string

	SweepInterval  time.Duration
	SweepGrace     time.Duration
	SweepLookback  time.Duration
	SweepBatchSize int

	VerifyMaxRetries int
	VerifyTimeout    time.Duration
}

func LoadPaymentConfig() PaymentConfig {
	cfg := PaymentConfig{
		GatewayBaseURL:   GetEnv("PAYMENT_GATEWAY_BASE_URL", "https://api.gateway.example"),
		GatewaySecretKey: GetEnv("PAYMENT_GATEWAY_SECRET_KEY"),
		WebhookSecret:    GetEnv("PAYMENT_WEBHOOK_SECRET"),

		SweepInterval:  time.Duration(GetEnvInt("SWEEP_INTERVAL_MINUTES", 15)) * time.Minute,
		SweepGrace:     time.Duration(GetEnvInt("SWEEP_GRACE_MINUTES", 10)) * time.Minute,
		SweepLookback:  time.Duration(GetEnvInt("SWEEP_LOOKBACK_HOURS", 48)) * time.Hour,
		SweepBatchSize: GetEnvInt("SWEEP_BATCH_LIMIT", 100),

		VerifyMaxRetries: GetEnvInt("VERIFY_MAX_RETRIES", 3),
		VerifyTimeout:    time.Duration(GetEnvInt("VERIFY_TIMEOUT_SECONDS", 10)) * time.Second,
	}

	if raw := GetEnv("PAYMENT_GATEWAY_ALLOWED_IPS"); raw != "" {
		for _, ip := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(ip); trimmed != "" {
				cfg.AllowedIPs = append(cfg.AllowedIPs, trimmed)
			}
		}
	}

	// Tidak fatal kalau secret kosong: webhook jatuh ke IP allow-list
	// (soft-fail, tetap tercatat di audit). Log keras saja di sini.
	if cfg.GatewaySecretKey == "" {
		log.Println("❌ PAYMENT_GATEWAY_SECRET_KEY belum diset! Verifikasi webhook fallback ke IP allow-list.")
	} else {
		log.Println("✅ PAYMENT_GATEWAY_SECRET_KEY berhasil dimuat.")
	}
	if cfg.WebhookSecret != "" {
		log.Println("✅ PAYMENT_WEBHOOK_SECRET (override) berhasil dimuat.")
	}
	if len(cfg.AllowedIPs) == 0 {
		log.Println("⚠️ PAYMENT_GATEWAY_ALLOWED_IPS kosong, fallback IP tidak tersedia.")
	}

	return cfg
}

// =======================
// GORM LOGGER CUSTOM
// =======================
type GormLogger struct {
	SlowThreshold time.Duration
	LogLevel      gormLogger.LogLevel
}

func NewGormLogger() gormLogger.Interface {
	return &GormLogger{
		SlowThreshold: 200 * time.Millisecond,
		LogLevel:      gormLogger.Warn,
	}
}

func (l *GormLogger) LogMode(level gormLogger.LogLevel) gormLogger.Interface {
	l.LogLevel = level
	return l
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	log.Printf("[INFO] "+msg, data...)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	log.Printf("[WARN] "+msg, data...)
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	log.Printf("[ERROR] "+msg, data...)
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	sql, rows := fc()
	file := utils.FileWithLineNum()

	if err != nil {
		log.Printf("[ERROR] %s | %v | %s | %d rows | %s", file, err, elapsed, rows, sql)
	} else if elapsed > l.SlowThreshold {
		log.Printf("[SLOW SQL] %s | %s | %d rows | %s", file, elapsed, rows, sql)
	}
}
