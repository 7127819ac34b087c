package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"tokoku_backend/internals/configs"
	auditModel "tokoku_backend/internals/features/payment/audit/model"
	notifModel "tokoku_backend/internals/features/payment/notification/model"
	orderModel "tokoku_backend/internals/features/payment/order/model"
	webhookModel "tokoku_backend/internals/features/payment/webhook/model"
)

var DB *gorm.DB

func ConnectDB() {
	log.Println("🔌 Koneksi ke PostgreSQL...")

	// ✅ URL/DSN lengkap + statement_timeout
	// Catatan: kalau pakai PgBouncer, ganti host/port ke port PgBouncer dan biarkan PreferSimpleProtocol=true
	sslmode := configs.GetEnv("DB_SSLMODE", "require")
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&application_name=tokoku&options=-c statement_timeout=3000",
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_HOST"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_NAME"),
		sslmode,
	)

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true, // 👍 cocok untuk PgBouncer (transaction pooling)
	}), &gorm.Config{
		Logger: configs.NewGormLogger(),
		// unique violation dari driver diterjemahkan jadi gorm.ErrDuplicatedKey
		// supaya klasifikasi konflik di layer store bisa pakai errors.Is
		TranslateError: true,
	})
	if err != nil {
		log.Fatalf("❌ Gagal konek DB: %v", err)
	}
	DB = db
	log.Println("✅ DB connected.")
}

func TunePool() {
	sqlDB, err := DB.DB()
	if err != nil {
		log.Printf("pool tune err: %v", err)
		return
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxIdleTime(60 * time.Second)
	sqlDB.SetConnMaxLifetime(10 * time.Minute)
}

// MigrateModels menjalankan auto-migrate untuk semua tabel engine pembayaran.
// Unique index (reference, identity webhook) dibuat dari tag model — itu yang
// menjamin pemenang tunggal saat transisi konkuren, bukan lock aplikasi.
func MigrateModels() {
	if err := DB.AutoMigrate(
		&orderModel.Order{},
		&orderModel.PaymentTransaction{},
		&webhookModel.WebhookEvent{},
		&webhookModel.GatewaySetting{},
		&notifModel.NotificationQueue{},
		&auditModel.AuditLog{},
	); err != nil {
		log.Fatalf("❌ Gagal migrate: %v", err)
	}
	log.Println("✅ Migrasi tabel selesai.")
}

func WarmUpQueries() {
	// jalankan ringan supaya koneksi/pool keisi & siap
	go func() {
		time.Sleep(500 * time.Millisecond)
		if err := ping(); err != nil {
			log.Printf("warm-up ping err: %v", err)
		}
	}()
}

func ping() error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
