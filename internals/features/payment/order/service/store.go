package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tokoku_backend/internals/features/payment/order/model"
)

/* ===================== Typed errors ===================== */

// ErrConflict: transisi untuk reference ini sudah dimenangkan pemanggil lain.
// Ini hasil terklasifikasi dari layer datastore — pemulihan idempoten tidak
// boleh bergantung pada parsing teks error.
var ErrConflict = errors.New("payment transition already applied")

// ErrOrderNotFound: tidak ada order dengan payment reference tersebut.
var ErrOrderNotFound = errors.New("order not found for reference")

func classifyDBError(err error) error {
	if err == nil {
		return nil
	}
	// driver postgres GORM berbasis pgx — unique violation datang sebagai
	// *pgconn.PgError 23505, atau gorm.ErrDuplicatedKey lewat TranslateError
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrConflict
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrConflict
	}
	return err
}

/* ===================== Store ===================== */

// ConfirmedPayment: data terverifikasi dari provider yang siap dipersist.
type ConfirmedPayment struct {
	Amount          float64
	Currency        string
	Channel         string
	PaidAt          *time.Time
	GatewayResponse []byte
}

// OrderStore: satu-satunya pintu mutasi pasangan Order/PaymentTransaction.
type OrderStore interface {
	// ConfirmPayment menjalankan transisi atomik pending→paid/confirmed.
	// Mengembalikan ErrConflict kalau pemenangnya sudah ada, ErrOrderNotFound
	// kalau reference tidak dikenal.
	ConfirmPayment(ctx context.Context, reference string, p ConfirmedPayment) (*model.Order, error)
	// FailPayment: pending→failed/cancelled, atomik yang sama tanpa verifikasi
	// ganda (notifikasi gagal dari provider dipercaya langsung).
	FailPayment(ctx context.Context, reference, reason string) (*model.Order, error)
	FindByReference(ctx context.Context, reference string) (*model.Order, error)
}

type GormOrderStore struct {
	DB *gorm.DB
}

func NewGormOrderStore(db *gorm.DB) *GormOrderStore {
	return &GormOrderStore{DB: db}
}

func (s *GormOrderStore) ConfirmPayment(ctx context.Context, reference string, p ConfirmedPayment) (*model.Order, error) {
	var order model.Order

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_payment_reference = ?", reference).First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}

		// Conditional write: hanya baris yang masih pending yang berubah.
		// Dua pemanggil konkuren → tepat satu dapat RowsAffected=1, yang lain
		// jatuh ke ErrConflict dan pulih sebagai duplikat-sukses.
		res := tx.Model(&model.Order{}).
			Where("order_payment_reference = ? AND order_payment_status = ?", reference, model.PaymentStatusPending).
			Updates(map[string]interface{}{
				"order_payment_status": model.PaymentStatusPaid,
				"order_status":         model.OrderStatusConfirmed,
			})
		if res.Error != nil {
			return classifyDBError(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}

		// Upsert idempoten: baris transaksi dibuat saat checkout (pending)
		// atau lazily di sini saat rekonsiliasi menemukan pembayaran duluan.
		ptx := model.PaymentTransaction{
			PaymentTransactionReference:       reference,
			PaymentTransactionOrderID:         &order.OrderID,
			PaymentTransactionAmount:          p.Amount,
			PaymentTransactionStatus:          model.TransactionStatusSuccess,
			PaymentTransactionChannel:         p.Channel,
			PaymentTransactionPaidAt:          p.PaidAt,
			PaymentTransactionGatewayResponse: p.GatewayResponse,
		}
		if p.Currency != "" {
			ptx.PaymentTransactionCurrency = p.Currency
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "payment_transaction_reference"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"payment_transaction_order_id":         order.OrderID,
				"payment_transaction_amount":           p.Amount,
				"payment_transaction_status":           model.TransactionStatusSuccess,
				"payment_transaction_channel":          p.Channel,
				"payment_transaction_paid_at":          p.PaidAt,
				"payment_transaction_gateway_response": p.GatewayResponse,
			}),
		}).Create(&ptx).Error; err != nil {
			return classifyDBError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order.OrderPaymentStatus = model.PaymentStatusPaid
	order.OrderStatus = model.OrderStatusConfirmed
	return &order, nil
}

func (s *GormOrderStore) FailPayment(ctx context.Context, reference, reason string) (*model.Order, error) {
	var order model.Order

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_payment_reference = ?", reference).First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}

		res := tx.Model(&model.Order{}).
			Where("order_payment_reference = ? AND order_payment_status = ?", reference, model.PaymentStatusPending).
			Updates(map[string]interface{}{
				"order_payment_status": model.PaymentStatusFailed,
				"order_status":         model.OrderStatusCancelled,
			})
		if res.Error != nil {
			return classifyDBError(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}

		// Baris transaksi ikut ditandai failed hanya kalau masih pending;
		// jangan menimpa success (webhook failed bisa datang terlambat).
		if err := tx.Model(&model.PaymentTransaction{}).
			Where("payment_transaction_reference = ? AND payment_transaction_status = ?", reference, model.TransactionStatusPending).
			Update("payment_transaction_status", model.TransactionStatusFailed).Error; err != nil {
			return classifyDBError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order.OrderPaymentStatus = model.PaymentStatusFailed
	order.OrderStatus = model.OrderStatusCancelled
	return &order, nil
}

func (s *GormOrderStore) FindByReference(ctx context.Context, reference string) (*model.Order, error) {
	var order model.Order
	if err := s.DB.WithContext(ctx).Where("order_payment_reference = ?", reference).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// ListStuckPending: order yang masih pending lewat dari grace window tapi
// belum melewati lookback horizon. Dipakai sweeper rekonsiliasi.
func (s *GormOrderStore) ListStuckPending(ctx context.Context, createdBefore, createdAfter time.Time, limit int) ([]model.Order, error) {
	var orders []model.Order
	err := s.DB.WithContext(ctx).
		Where("order_payment_status = ? AND created_at < ? AND created_at > ?",
			model.PaymentStatusPending, createdBefore, createdAfter).
		Order("created_at asc").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}
