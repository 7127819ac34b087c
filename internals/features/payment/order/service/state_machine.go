package service

import (
	"context"
	"errors"
	"log"
	"math"

	"github.com/google/uuid"

	"tokoku_backend/internals/features/payment/gateway"
	"tokoku_backend/internals/features/payment/order/model"
)

// ConfirmationNotifier: hook notifikasi pasca-bayar. Implementasinya wajib
// mengisolasi kegagalan sendiri — state machine tidak peduli hasilnya.
type ConfirmationNotifier interface {
	NotifyPaymentConfirmed(ctx context.Context, order *model.Order, reference string)
}

type ApplyResult struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	// Duplicate: pemanggil lain sudah menyelesaikan transisi yang sama;
	// bagi pemanggil ini tetap sukses.
	Duplicate bool `json:"duplicate"`

	OrderAmount    float64 `json:"order_amount"`
	VerifiedAmount float64 `json:"verified_amount"`
	// AmountMismatch: jumlah provider ≠ total order. Transisi tetap jalan,
	// tapi dua angkanya di-surface untuk ditinjau operator.
	AmountMismatch bool `json:"amount_mismatch"`
}

// StateMachine: SATU-SATUNYA pintu transisi Order/PaymentTransaction dari
// pending ke status terminal. Jalur webhook dan sweeper rekonsiliasi dua-duanya
// lewat sini — jangan pernah bikin jalur transisi kedua.
type StateMachine struct {
	Store    OrderStore
	Notifier ConfirmationNotifier
}

func NewStateMachine(store OrderStore, notifier ConfirmationNotifier) *StateMachine {
	return &StateMachine{Store: store, Notifier: notifier}
}

// ApplyVerifiedPayment menerapkan hasil verifikasi provider ke order.
//  1. Transisi atomik pending→paid/confirmed + upsert baris transaksi.
//  2. ErrConflict = pemanggil lain sudah menang → ambil order sekarang dan
//     kembalikan sebagai duplikat-sukses, jangan error.
//  3. Error lain diteruskan ke pemanggil (retryable, kebijakan di pemanggil).
//  4. Notifikasi dikirim setelah sukses; gagal kirim tidak membatalkan 1–3.
func (m *StateMachine) ApplyVerifiedPayment(ctx context.Context, reference string, v gateway.VerifiedTransaction) (*ApplyResult, error) {
	confirmed := ConfirmedPayment{
		Amount:          v.AmountMajor(),
		Currency:        v.Currency,
		Channel:         v.Channel,
		PaidAt:          v.PaidAt,
		GatewayResponse: v.Raw,
	}

	order, err := m.Store.ConfirmPayment(ctx, reference, confirmed)
	switch {
	case err == nil:
		result := m.buildResult(order, v, false)
		if m.Notifier != nil {
			m.Notifier.NotifyPaymentConfirmed(ctx, order, reference)
		}
		return result, nil

	case errors.Is(err, ErrConflict):
		// idempotency escape hatch: webhook dobel atau balapan dengan sweeper
		current, ferr := m.Store.FindByReference(ctx, reference)
		if ferr != nil {
			return nil, ferr
		}
		log.Printf("[PAYMENT] transisi %s sudah dimenangkan pemanggil lain, dianggap sukses", reference)
		return m.buildResult(current, v, true), nil

	default:
		return nil, err
	}
}

// ApplyFailedPayment menangani charge.failed: dipercaya langsung tanpa
// verifikasi ganda (tidak ada risiko kurang-kredit pelanggan).
func (m *StateMachine) ApplyFailedPayment(ctx context.Context, reference, reason string) error {
	_, err := m.Store.FailPayment(ctx, reference, reason)
	if errors.Is(err, ErrConflict) {
		// sudah terminal (paid atau failed duluan) — bukan error
		log.Printf("[PAYMENT] %s sudah terminal, webhook failed diabaikan", reference)
		return nil
	}
	return err
}

func (m *StateMachine) buildResult(order *model.Order, v gateway.VerifiedTransaction, duplicate bool) *ApplyResult {
	verified := v.AmountMajor()
	return &ApplyResult{
		OrderID:        order.OrderID,
		OrderNumber:    order.OrderNumber,
		Duplicate:      duplicate,
		OrderAmount:    order.OrderTotalAmount,
		VerifiedAmount: verified,
		AmountMismatch: math.Abs(order.OrderTotalAmount-verified) > 0.009,
	}
}
