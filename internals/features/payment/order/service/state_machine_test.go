package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokoku_backend/internals/features/payment/gateway"
	"tokoku_backend/internals/features/payment/order/model"
)

type memOrderStore struct {
	mu     sync.Mutex
	orders map[string]*model.Order // key: payment reference

	confirmCalls int
	confirmed    map[string]ConfirmedPayment
}

func newMemOrderStore(orders ...*model.Order) *memOrderStore {
	s := &memOrderStore{
		orders:    make(map[string]*model.Order),
		confirmed: make(map[string]ConfirmedPayment),
	}
	for _, o := range orders {
		s.orders[o.Reference()] = o
	}
	return s
}

func (s *memOrderStore) ConfirmPayment(ctx context.Context, reference string, p ConfirmedPayment) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmCalls++

	order, ok := s.orders[reference]
	if !ok {
		return nil, ErrOrderNotFound
	}
	if order.OrderPaymentStatus != model.PaymentStatusPending {
		return nil, ErrConflict
	}
	order.OrderPaymentStatus = model.PaymentStatusPaid
	order.OrderStatus = model.OrderStatusConfirmed
	s.confirmed[reference] = p
	copied := *order
	return &copied, nil
}

func (s *memOrderStore) FailPayment(ctx context.Context, reference, reason string) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[reference]
	if !ok {
		return nil, ErrOrderNotFound
	}
	if order.OrderPaymentStatus != model.PaymentStatusPending {
		return nil, ErrConflict
	}
	order.OrderPaymentStatus = model.PaymentStatusFailed
	order.OrderStatus = model.OrderStatusCancelled
	copied := *order
	return &copied, nil
}

func (s *memOrderStore) FindByReference(ctx context.Context, reference string) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if order, ok := s.orders[reference]; ok {
		copied := *order
		return &copied, nil
	}
	return nil, ErrOrderNotFound
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (n *recordingNotifier) NotifyPaymentConfirmed(ctx context.Context, order *model.Order, reference string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, reference)
}

func pendingOrder(reference string, amount float64) *model.Order {
	ref := reference
	return &model.Order{
		OrderID:               uuid.New(),
		OrderNumber:           "ORD-" + reference,
		OrderPaymentReference: &ref,
		OrderTotalAmount:      amount,
		OrderCustomerEmail:    "buyer@example.com",
		OrderStatus:           model.OrderStatusPending,
		OrderPaymentStatus:    model.PaymentStatusPending,
	}
}

func verifiedTx(reference string, amountMinor int64) gateway.VerifiedTransaction {
	paidAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return gateway.VerifiedTransaction{
		Reference: reference,
		Status:    "success",
		Amount:    amountMinor,
		Currency:  "IDR",
		Channel:   "card",
		PaidAt:    &paidAt,
	}
}

func TestApplyVerifiedPaymentConfirmsAndNotifies(t *testing.T) {
	store := newMemOrderStore(pendingOrder("ref-1", 5000))
	notifier := &recordingNotifier{}
	m := NewStateMachine(store, notifier)

	res, err := m.ApplyVerifiedPayment(context.Background(), "ref-1", verifiedTx("ref-1", 500000))
	require.NoError(t, err)

	assert.False(t, res.Duplicate)
	assert.False(t, res.AmountMismatch)
	assert.Equal(t, "ORD-ref-1", res.OrderNumber)
	assert.Equal(t, model.PaymentStatusPaid, store.orders["ref-1"].OrderPaymentStatus)
	assert.Equal(t, model.OrderStatusConfirmed, store.orders["ref-1"].OrderStatus)
	assert.Equal(t, []string{"ref-1"}, notifier.calls)

	// amount yang dipersist datang dari hasil verifikasi, bukan body webhook
	assert.Equal(t, 5000.00, store.confirmed["ref-1"].Amount)
}

func TestApplyVerifiedPaymentConflictIsDuplicateSuccess(t *testing.T) {
	order := pendingOrder("ref-1", 5000)
	store := newMemOrderStore(order)
	m := NewStateMachine(store, &recordingNotifier{})

	first, err := m.ApplyVerifiedPayment(context.Background(), "ref-1", verifiedTx("ref-1", 500000))
	require.NoError(t, err)

	second, err := m.ApplyVerifiedPayment(context.Background(), "ref-1", verifiedTx("ref-1", 500000))
	require.NoError(t, err)

	assert.False(t, first.Duplicate)
	assert.True(t, second.Duplicate)
	// dua pemanggil melihat identitas order yang sama
	assert.Equal(t, first.OrderID, second.OrderID)
	assert.Equal(t, first.OrderNumber, second.OrderNumber)
}

func TestApplyVerifiedPaymentConcurrentCallersSingleWinner(t *testing.T) {
	store := newMemOrderStore(pendingOrder("ref-1", 5000))
	notifier := &recordingNotifier{}
	m := NewStateMachine(store, notifier)

	const callers = 8
	results := make([]*ApplyResult, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = m.ApplyVerifiedPayment(context.Background(), "ref-1", verifiedTx("ref-1", 500000))
		}(i)
	}
	wg.Wait()

	winners := 0
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, results[i])
		if !results[i].Duplicate {
			winners++
		}
		assert.Equal(t, results[0].OrderID, results[i].OrderID)
	}
	assert.Equal(t, 1, winners)
	// notifikasi hanya dari pemenang
	assert.Len(t, notifier.calls, 1)
}

func TestApplyVerifiedPaymentUnknownReference(t *testing.T) {
	m := NewStateMachine(newMemOrderStore(), &recordingNotifier{})

	_, err := m.ApplyVerifiedPayment(context.Background(), "ref-ghost", verifiedTx("ref-ghost", 1000))
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestApplyVerifiedPaymentSurfacesAmountMismatch(t *testing.T) {
	store := newMemOrderStore(pendingOrder("ref-1", 5000))
	m := NewStateMachine(store, &recordingNotifier{})

	// provider memverifikasi 4990.00, order-nya 5000.00
	res, err := m.ApplyVerifiedPayment(context.Background(), "ref-1", verifiedTx("ref-1", 499000))
	require.NoError(t, err)

	assert.True(t, res.AmountMismatch)
	assert.Equal(t, 5000.00, res.OrderAmount)
	assert.Equal(t, 4990.00, res.VerifiedAmount)
	// transisi tetap dilakukan
	assert.Equal(t, model.PaymentStatusPaid, store.orders["ref-1"].OrderPaymentStatus)
}

func TestApplyFailedPaymentMarksOrder(t *testing.T) {
	store := newMemOrderStore(pendingOrder("ref-1", 5000))
	m := NewStateMachine(store, &recordingNotifier{})

	require.NoError(t, m.ApplyFailedPayment(context.Background(), "ref-1", "declined"))
	assert.Equal(t, model.PaymentStatusFailed, store.orders["ref-1"].OrderPaymentStatus)
	assert.Equal(t, model.OrderStatusCancelled, store.orders["ref-1"].OrderStatus)
}

func TestApplyFailedPaymentAfterPaidIsNoop(t *testing.T) {
	store := newMemOrderStore(pendingOrder("ref-1", 5000))
	m := NewStateMachine(store, &recordingNotifier{})

	_, err := m.ApplyVerifiedPayment(context.Background(), "ref-1", verifiedTx("ref-1", 500000))
	require.NoError(t, err)

	// charge.failed terlambat tidak boleh menurunkan status paid
	require.NoError(t, m.ApplyFailedPayment(context.Background(), "ref-1", "declined"))
	assert.Equal(t, model.PaymentStatusPaid, store.orders["ref-1"].OrderPaymentStatus)
}

func TestApplyVerifiedPaymentPropagatesStoreError(t *testing.T) {
	m := NewStateMachine(&erroringOrderStore{err: errors.New("connection reset")}, &recordingNotifier{})

	_, err := m.ApplyVerifiedPayment(context.Background(), "ref-1", verifiedTx("ref-1", 1000))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrConflict)
}

type erroringOrderStore struct {
	err error
}

func (s *erroringOrderStore) ConfirmPayment(ctx context.Context, reference string, p ConfirmedPayment) (*model.Order, error) {
	return nil, s.err
}

func (s *erroringOrderStore) FailPayment(ctx context.Context, reference, reason string) (*model.Order, error) {
	return nil, s.err
}

func (s *erroringOrderStore) FindByReference(ctx context.Context, reference string) (*model.Order, error) {
	return nil, s.err
}
