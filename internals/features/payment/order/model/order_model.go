package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

/* ===================== Constants ===================== */

const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusCancelled = "cancelled"
)

const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

/* ===================== Model ===================== */

// Order dibuat oleh checkout; order_payment_status & order_status hanya boleh
// dimutasi lewat state machine pembayaran. Tidak pernah dihapus, hanya digantikan.
type Order struct {
	OrderID     uuid.UUID `gorm:"column:order_id;type:uuid;default:gen_random_uuid();primaryKey" json:"order_id"`
	OrderNumber string    `gorm:"column:order_number;type:varchar(60);not null;unique" json:"order_number"`

	OrderStatus        string `gorm:"column:order_status;type:varchar(20);default:'pending';index" json:"order_status"`
	OrderPaymentStatus string `gorm:"column:order_payment_status;type:varchar(20);default:'pending';index" json:"order_payment_status"`

	// Kunci korelasi ke transaksi di sisi provider. Unik: satu reference satu order.
	OrderPaymentReference *string `gorm:"column:order_payment_reference;type:varchar(120);uniqueIndex" json:"order_payment_reference,omitempty"`

	OrderTotalAmount   float64 `gorm:"column:order_total_amount;not null;check:order_total_amount > 0" json:"order_total_amount"`
	OrderCustomerEmail string  `gorm:"column:order_customer_email;type:varchar(120)" json:"order_customer_email"`

	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"deleted_at,omitempty"`
}

func (Order) TableName() string { return "orders" }

// Reference mengembalikan payment reference atau "" kalau belum terpasang.
func (o *Order) Reference() string {
	if o.OrderPaymentReference == nil {
		return ""
	}
	return *o.OrderPaymentReference
}
