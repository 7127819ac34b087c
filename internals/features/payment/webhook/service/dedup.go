package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"tokoku_backend/internals/features/payment/webhook/model"
)

// ErrDuplicateEvent: baris ledger dengan identity sama sudah ada (hasil
// klasifikasi unique violation, bukan pencocokan teks error).
var ErrDuplicateEvent = errors.New("webhook event already recorded")

/* ===================== Event store ===================== */

type EventStore interface {
	FindByIdentity(ctx context.Context, eventType, reference, providerID string) (*model.WebhookEvent, error)
	Create(ctx context.Context, event *model.WebhookEvent) error
	MarkProcessed(ctx context.Context, id uuid.UUID, result string) error
}

type GormEventStore struct {
	DB *gorm.DB
}

func NewGormEventStore(db *gorm.DB) *GormEventStore {
	return &GormEventStore{DB: db}
}

func (s *GormEventStore) FindByIdentity(ctx context.Context, eventType, reference, providerID string) (*model.WebhookEvent, error) {
	var event model.WebhookEvent
	err := s.DB.WithContext(ctx).
		Where("webhook_event_type = ? AND webhook_event_reference = ? AND webhook_event_provider_id = ?",
			eventType, reference, providerID).
		First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (s *GormEventStore) Create(ctx context.Context, event *model.WebhookEvent) error {
	return classifyInsertError(s.DB.WithContext(ctx).Create(event).Error)
}

// classifyInsertError menerjemahkan unique violation identity komposit jadi
// ErrDuplicateEvent. Driver postgres GORM berbasis pgx, jadi bentuk mentahnya
// *pgconn.PgError 23505; TranslateError menambah jalur gorm.ErrDuplicatedKey.
func classifyInsertError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateEvent
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateEvent
	}
	return err
}

func (s *GormEventStore) MarkProcessed(ctx context.Context, id uuid.UUID, result string) error {
	return s.DB.WithContext(ctx).Model(&model.WebhookEvent{}).
		Where("webhook_event_id = ?", id).
		Updates(map[string]interface{}{
			"webhook_event_processed": true,
			"webhook_event_result":    result,
		}).Error
}

/* ===================== Deduplicator ===================== */

type DedupResult struct {
	Event *model.WebhookEvent
	// Replay: identity sudah pernah selesai diproses; kembalikan hasil
	// tersimpan tanpa dispatch ulang.
	Replay       bool
	StoredResult string
}

// Deduplicator memegang kontrak urutan: baris ledger masuk DULU (processed
// = false), baru event boleh di-dispatch. Crash di antara insert dan selesai
// meninggalkan baris "nyangkut" yang tertangkap sweep rekonsiliasi.
type Deduplicator struct {
	Store EventStore
}

func NewDeduplicator(store EventStore) *Deduplicator {
	return &Deduplicator{Store: store}
}

func (d *Deduplicator) Register(ctx context.Context, eventType, reference, providerID string, rawBody []byte, signature string) (*DedupResult, error) {
	existing, err := d.Store.FindByIdentity(ctx, eventType, reference, providerID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.WebhookEventProcessed {
			return &DedupResult{Event: existing, Replay: true, StoredResult: existing.WebhookEventResult}, nil
		}
		// baris ada tapi belum selesai (pemrosesan pertama crash atau masih
		// jalan) — proses ulang aman, transisinya idempoten
		return &DedupResult{Event: existing}, nil
	}

	event := &model.WebhookEvent{
		WebhookEventType:       eventType,
		WebhookEventReference:  reference,
		WebhookEventProviderID: providerID,
		WebhookEventPayload:    datatypes.JSON(rawBody),
		WebhookEventSignature:  signature,
	}
	if err := d.Store.Create(ctx, event); err != nil {
		if errors.Is(err, ErrDuplicateEvent) {
			// balapan dua delivery: yang kalah insert ambil baris pemenang
			winner, ferr := d.Store.FindByIdentity(ctx, eventType, reference, providerID)
			if ferr != nil || winner == nil {
				return nil, err
			}
			if winner.WebhookEventProcessed {
				return &DedupResult{Event: winner, Replay: true, StoredResult: winner.WebhookEventResult}, nil
			}
			return &DedupResult{Event: winner}, nil
		}
		return nil, err
	}
	return &DedupResult{Event: event}, nil
}
