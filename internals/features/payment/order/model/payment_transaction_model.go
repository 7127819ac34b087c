package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

/* ===================== Constants ===================== */

const (
	TransactionStatusPending = "pending"
	TransactionStatusSuccess = "success"
	TransactionStatusFailed  = "failed"
)

/* ===================== Model ===================== */

// PaymentTransaction: ledger lokal, satu baris per reference provider.
// Unik pada reference — insert duplikat harus diperlakukan sukses (upsert
// idempoten), bukan error. Di-update in place oleh state machine, tidak dihapus.
type PaymentTransaction struct {
	PaymentTransactionID uuid.UUID `gorm:"column:payment_transaction_id;type:uuid;default:gen_random_uuid();primaryKey" json:"payment_transaction_id"`

	PaymentTransactionReference string     `gorm:"column:payment_transaction_reference;type:varchar(120);not null;uniqueIndex" json:"payment_transaction_reference"`
	PaymentTransactionOrderID   *uuid.UUID `gorm:"column:payment_transaction_order_id;type:uuid;index" json:"payment_transaction_order_id,omitempty"`

	PaymentTransactionAmount   float64 `gorm:"column:payment_transaction_amount" json:"payment_transaction_amount"`
	PaymentTransactionCurrency string  `gorm:"column:payment_transaction_currency;type:varchar(10);default:'IDR'" json:"payment_transaction_currency"`
	PaymentTransactionStatus   string  `gorm:"column:payment_transaction_status;type:varchar(20);default:'pending';index" json:"payment_transaction_status"`
	PaymentTransactionChannel  string  `gorm:"column:payment_transaction_channel;type:varchar(40)" json:"payment_transaction_channel"`

	// Payload mentah hasil verifikasi provider (bukan body webhook).
	PaymentTransactionGatewayResponse datatypes.JSON `gorm:"column:payment_transaction_gateway_response;type:jsonb" json:"payment_transaction_gateway_response,omitempty"`

	PaymentTransactionPaidAt *time.Time `gorm:"column:payment_transaction_paid_at" json:"payment_transaction_paid_at,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (PaymentTransaction) TableName() string { return "payment_transactions" }
