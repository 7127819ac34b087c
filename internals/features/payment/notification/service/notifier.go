package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tokoku_backend/internals/features/payment/notification/model"
	orderModel "tokoku_backend/internals/features/payment/order/model"
)

const templatePaymentConfirmed = "payment_confirmed"

// sendTimeout independen dari jalur kritis pembayaran.
const sendTimeout = 5 * time.Second

/* ===================== Sender ===================== */

type Message struct {
	Recipient   string
	TemplateKey string
	Variables   map[string]string
}

// Sender: transport sebenarnya (email/SMS) ada di luar engine ini.
type Sender interface {
	Send(ctx context.Context, msg Message) (messageID string, err error)
}

// LogSender: implementasi default, cukup catat ke log.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, msg Message) (string, error) {
	if msg.Recipient == "" {
		return "", fmt.Errorf("recipient kosong")
	}
	log.Printf("[NOTIF] kirim %s ke %s vars=%v", msg.TemplateKey, msg.Recipient, msg.Variables)
	return uuid.NewString(), nil
}

/* ===================== Fallback queue ===================== */

type QueueStore interface {
	// UpsertPending: idempoten pada reference — dipanggil berkali-kali untuk
	// reference yang sama hasilnya tetap satu work item.
	UpsertPending(ctx context.Context, item *model.NotificationQueue) error
}

type GormQueueStore struct {
	DB *gorm.DB
}

func NewGormQueueStore(db *gorm.DB) *GormQueueStore {
	return &GormQueueStore{DB: db}
}

func (s *GormQueueStore) UpsertPending(ctx context.Context, item *model.NotificationQueue) error {
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "notification_reference"}},
		DoNothing: true,
	}).Create(item).Error
}

/* ===================== Notifier ===================== */

// Notifier menjamin: per pembayaran terkonfirmasi, minimal satu percobaan
// notifikasi — langsung, atau lewat satu baris fallback queue. Kegagalan di
// sini TIDAK BOLEH merembet ke kebenaran state pembayaran.
type Notifier struct {
	Sender Sender
	Store  QueueStore
}

func NewNotifier(sender Sender, store QueueStore) *Notifier {
	return &Notifier{Sender: sender, Store: store}
}

func (n *Notifier) NotifyPaymentConfirmed(ctx context.Context, order *orderModel.Order, reference string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[NOTIF] panic saat kirim konfirmasi %s: %v — jatuh ke fallback", reference, r)
			n.enqueueFallback(ctx, order, reference, fmt.Sprintf("panic: %v", r))
		}
	}()

	msg := Message{
		Recipient:   order.OrderCustomerEmail,
		TemplateKey: templatePaymentConfirmed,
		Variables: map[string]string{
			"order_number": order.OrderNumber,
			"amount":       fmt.Sprintf("%.2f", order.OrderTotalAmount),
		},
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	messageID, err := n.Sender.Send(sendCtx, msg)
	if err != nil {
		log.Printf("[NOTIF] kirim langsung gagal untuk %s: %v — enqueue fallback", reference, err)
		n.enqueueFallback(ctx, order, reference, err.Error())
		return
	}
	log.Printf("[NOTIF] konfirmasi %s terkirim, message_id=%s", reference, messageID)
}

func (n *Notifier) enqueueFallback(ctx context.Context, order *orderModel.Order, reference, lastErr string) {
	item := &model.NotificationQueue{
		NotificationReference: reference,
		NotificationRecipient: order.OrderCustomerEmail,
		NotificationTemplate:  templatePaymentConfirmed,
		NotificationStatus:    model.NotificationStatusPending,
		NotificationLastError: lastErr,
	}
	if raw, err := sonic.Marshal(map[string]string{
		"order_number": order.OrderNumber,
		"amount":       fmt.Sprintf("%.2f", order.OrderTotalAmount),
	}); err == nil {
		item.NotificationVariables = datatypes.JSON(raw)
	}

	if err := n.Store.UpsertPending(ctx, item); err != nil {
		// mentok total: tinggal jejak log, state pembayaran tetap benar
		log.Printf("[NOTIF] gagal enqueue fallback %s: %v", reference, err)
	}
}
