package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"tokoku_backend/internals/features/payment/webhook/model"
)

type memEventStore struct {
	mu     sync.Mutex
	events map[string]*model.WebhookEvent
}

func newMemEventStore() *memEventStore {
	return &memEventStore{events: make(map[string]*model.WebhookEvent)}
}

func identity(eventType, reference, providerID string) string {
	return eventType + "|" + reference + "|" + providerID
}

func (s *memEventStore) FindByIdentity(ctx context.Context, eventType, reference, providerID string) (*model.WebhookEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.events[identity(eventType, reference, providerID)]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, nil
}

func (s *memEventStore) Create(ctx context.Context, event *model.WebhookEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := identity(event.WebhookEventType, event.WebhookEventReference, event.WebhookEventProviderID)
	if _, exists := s.events[key]; exists {
		return ErrDuplicateEvent
	}
	event.WebhookEventID = uuid.New()
	copied := *event
	s.events[key] = &copied
	return nil
}

func (s *memEventStore) MarkProcessed(ctx context.Context, id uuid.UUID, result string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e.WebhookEventID == id {
			e.WebhookEventProcessed = true
			e.WebhookEventResult = result
		}
	}
	return nil
}

func TestRegisterInsertsLedgerRowBeforeDispatch(t *testing.T) {
	store := newMemEventStore()
	d := NewDeduplicator(store)

	res, err := d.Register(context.Background(), "charge.success", "ref-1", "evt-1", []byte(`{}`), "sig")
	require.NoError(t, err)
	assert.False(t, res.Replay)
	assert.False(t, res.Event.WebhookEventProcessed)

	// baris sudah ada di ledger walau belum diproses
	stored, _ := store.FindByIdentity(context.Background(), "charge.success", "ref-1", "evt-1")
	require.NotNil(t, stored)
	assert.False(t, stored.WebhookEventProcessed)
}

func TestRegisterReplayReturnsStoredResult(t *testing.T) {
	store := newMemEventStore()
	d := NewDeduplicator(store)

	first, err := d.Register(context.Background(), "charge.success", "ref-1", "evt-1", []byte(`{}`), "sig")
	require.NoError(t, err)
	require.NoError(t, store.MarkProcessed(context.Background(), first.Event.WebhookEventID, "success: order ORD-1 terkonfirmasi"))

	second, err := d.Register(context.Background(), "charge.success", "ref-1", "evt-1", []byte(`{}`), "sig")
	require.NoError(t, err)
	assert.True(t, second.Replay)
	assert.Equal(t, "success: order ORD-1 terkonfirmasi", second.StoredResult)
}

func TestRegisterUnprocessedRowIsReprocessed(t *testing.T) {
	store := newMemEventStore()
	d := NewDeduplicator(store)

	first, err := d.Register(context.Background(), "charge.success", "ref-1", "evt-1", []byte(`{}`), "sig")
	require.NoError(t, err)

	// delivery kedua datang sebelum yang pertama selesai (atau crash)
	second, err := d.Register(context.Background(), "charge.success", "ref-1", "evt-1", []byte(`{}`), "sig")
	require.NoError(t, err)
	assert.False(t, second.Replay)
	assert.Equal(t, first.Event.WebhookEventID, second.Event.WebhookEventID)
}

func TestRegisterDistinctIdentityIsNotDuplicate(t *testing.T) {
	store := newMemEventStore()
	d := NewDeduplicator(store)

	_, err := d.Register(context.Background(), "charge.success", "ref-1", "evt-1", []byte(`{}`), "sig")
	require.NoError(t, err)

	// reference sama tapi event id beda = identity beda
	res, err := d.Register(context.Background(), "charge.success", "ref-1", "evt-2", []byte(`{}`), "sig")
	require.NoError(t, err)
	assert.False(t, res.Replay)
}

type racingEventStore struct {
	*memEventStore
	created bool
}

func (s *racingEventStore) Create(ctx context.Context, event *model.WebhookEvent) error {
	// simulasi kalah balapan insert: baris pemenang muncul "tiba-tiba"
	if !s.created {
		s.created = true
		winner := *event
		_ = s.memEventStore.Create(ctx, &winner)
		return ErrDuplicateEvent
	}
	return s.memEventStore.Create(ctx, event)
}

func TestRegisterLosingInsertRaceFetchesWinner(t *testing.T) {
	store := &racingEventStore{memEventStore: newMemEventStore()}
	d := NewDeduplicator(store)

	res, err := d.Register(context.Background(), "charge.success", "ref-1", "evt-1", []byte(`{}`), "sig")
	require.NoError(t, err)
	assert.False(t, res.Replay)
	require.NotNil(t, res.Event)
}

func TestClassifyInsertErrorUniqueViolation(t *testing.T) {
	// error mentah driver pgx untuk pelanggaran identity komposit
	driverErr := &pgconn.PgError{
		Code:           "23505",
		Message:        "duplicate key value violates unique constraint",
		ConstraintName: "idx_webhook_event_identity",
	}
	assert.ErrorIs(t, classifyInsertError(driverErr), ErrDuplicateEvent)
	assert.ErrorIs(t, classifyInsertError(gorm.ErrDuplicatedKey), ErrDuplicateEvent)
}

func TestClassifyInsertErrorPassesThroughOtherErrors(t *testing.T) {
	assert.NoError(t, classifyInsertError(nil))

	fkErr := &pgconn.PgError{Code: "23503", Message: "violates foreign key constraint"}
	assert.NotErrorIs(t, classifyInsertError(fkErr), ErrDuplicateEvent)

	plain := errors.New("connection reset by peer")
	assert.Equal(t, plain, classifyInsertError(plain))
}
