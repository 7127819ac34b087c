package controller

import (
	"context"
	"log"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	helper "tokoku_backend/internals/helpers"

	"tokoku_backend/internals/features/payment/webhook/dto"
	"tokoku_backend/internals/features/payment/webhook/service"
)

// Budget pemrosesan inline; lewat dari ini outcome-nya "deferred" dan sweep
// rekonsiliasi yang menyelesaikan. Gateway berharap jawaban dalam hitungan detik.
const processTimeout = 15 * time.Second

/* ===================== Collaborator contracts ===================== */

type signatureChecker interface {
	Verify(ctx context.Context, rawBody []byte, signature, ip string) service.SignatureOutcome
}

type eventRegistrar interface {
	Register(ctx context.Context, eventType, reference, providerID string, rawBody []byte, signature string) (*service.DedupResult, error)
}

type eventDispatcher interface {
	Dispatch(ctx context.Context, env *dto.WebhookEnvelope) service.Outcome
}

type resultMarker interface {
	MarkProcessed(ctx context.Context, id uuid.UUID, result string) error
}

/* ===================== Controller ===================== */

type WebhookController struct {
	Signature signatureChecker
	Dedup     eventRegistrar
	Router    eventDispatcher
	Events    resultMarker
}

func NewWebhookController(sig signatureChecker, dedup eventRegistrar, router eventDispatcher, events resultMarker) *WebhookController {
	return &WebhookController{Signature: sig, Dedup: dedup, Router: router, Events: events}
}

// HandleGatewayWebhook: kontrak keluar = selalu 200 kecuali request-nya
// sendiri rusak struktural (envelope tak terparse). Kegagalan internal masuk
// ke processing_result ledger + audit, bukan ke status HTTP.
func (ctrl *WebhookController) HandleGatewayWebhook(c *fiber.Ctx) error {
	// raw bytes persis — signature dihitung atas body pre-parse
	raw := c.Body()
	signature := c.Get(service.SignatureHeader)

	ctx, cancel := context.WithTimeout(c.UserContext(), processTimeout)
	defer cancel()

	outcome := ctrl.Signature.Verify(ctx, raw, signature, c.IP())
	if !outcome.OK {
		// tolak dengan sopan: 200 "ignored" menghentikan retry storm,
		// insidennya sudah tercatat di audit oleh verifier
		return helper.Ack(c, service.OutcomeIgnored, "event diabaikan")
	}

	var env dto.WebhookEnvelope
	if err := sonic.Unmarshal(raw, &env); err != nil || !env.Valid() {
		return helper.Error(c, fiber.StatusBadRequest, "envelope webhook tidak valid")
	}

	ded, err := ctrl.Dedup.Register(ctx, env.Event, env.Data.Reference, env.ProviderEventID(), raw, signature)
	if err != nil {
		// ledger gagal ditulis: tetap 200, biar provider tidak retry;
		// order pending-nya nanti tertangkap sweep
		log.Printf("[WEBHOOK] gagal catat event %s/%s: %v", env.Event, env.Data.Reference, err)
		return helper.Ack(c, service.OutcomeDeferred, "event diterima, diproses ulang oleh rekonsiliasi")
	}
	if ded.Replay {
		return helper.Ack(c, service.OutcomeDuplicate, ded.StoredResult)
	}

	result := ctrl.Router.Dispatch(ctx, &env)

	if err := ctrl.Events.MarkProcessed(ctx, ded.Event.WebhookEventID, result.Status+": "+result.Message); err != nil {
		log.Printf("[WEBHOOK] gagal update hasil event %s: %v", ded.Event.WebhookEventID, err)
	}

	return helper.Ack(c, result.Status, result.Message)
}
