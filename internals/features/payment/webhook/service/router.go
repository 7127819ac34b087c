package service

import (
	"context"
	"errors"
	"log"

	auditService "tokoku_backend/internals/features/payment/audit/service"
	"tokoku_backend/internals/features/payment/gateway"
	orderService "tokoku_backend/internals/features/payment/order/service"
	"tokoku_backend/internals/features/payment/webhook/dto"
)

/* ===================== Outcome ===================== */

// Status outcome dipakai sebagai processing_result di ledger dan status di
// body acknowledgment (HTTP-nya tetap 200 apa pun isinya).
const (
	OutcomeSuccess      = "success"
	OutcomeDuplicate    = "duplicate"
	OutcomeIgnored      = "ignored"
	OutcomeDeferred     = "deferred"
	OutcomeFailed       = "failed"
	OutcomeAcknowledged = "acknowledged"
)

type Outcome struct {
	Status  string
	Message string
}

/* ===================== Router ===================== */

// PaymentApplier: pintu tunggal transisi state (state machine).
type PaymentApplier interface {
	ApplyVerifiedPayment(ctx context.Context, reference string, v gateway.VerifiedTransaction) (*orderService.ApplyResult, error)
	ApplyFailedPayment(ctx context.Context, reference, reason string) error
}

// Router men-dispatch event yang sudah lolos signature + dedup ke handler
// sesuai jenisnya.
type Router struct {
	Gateway gateway.Verifier
	Machine PaymentApplier
	Audit   auditService.Recorder
}

func NewRouter(gw gateway.Verifier, machine PaymentApplier, audit auditService.Recorder) *Router {
	return &Router{Gateway: gw, Machine: machine, Audit: audit}
}

func (r *Router) Dispatch(ctx context.Context, env *dto.WebhookEnvelope) Outcome {
	switch env.Kind() {
	case dto.EventChargeSuccess:
		return r.handleChargeSuccess(ctx, env)
	case dto.EventChargeFailed:
		return r.handleChargeFailed(ctx, env)
	case dto.EventChargeDispute:
		return r.handleChargeDispute(ctx, env)
	case dto.EventTransferSuccess, dto.EventTransferFailed:
		return r.handleTransfer(ctx, env)
	case dto.EventUnknown:
		return Outcome{Status: OutcomeIgnored, Message: "jenis event tidak didukung: " + env.Event}
	default:
		return Outcome{Status: OutcomeIgnored, Message: "jenis event tidak didukung: " + env.Event}
	}
}

// handleChargeSuccess: JANGAN percaya amount/status di body webhook — selalu
// verifikasi ulang ke provider, baru terapkan lewat state machine.
func (r *Router) handleChargeSuccess(ctx context.Context, env *dto.WebhookEnvelope) Outcome {
	reference := env.Data.Reference

	verified, err := r.Gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		if gateway.IsPermanent(err) {
			log.Printf("[WEBHOOK] verifikasi %s ditolak permanen: %v", reference, err)
			return Outcome{Status: OutcomeFailed, Message: "verifikasi provider ditolak"}
		}
		// transient / belum terindeks: jangan tahan koneksi HTTP lebih lama,
		// serahkan ke sweep rekonsiliasi
		log.Printf("[WEBHOOK] verifikasi %s belum berhasil: %v — diserahkan ke rekonsiliasi", reference, err)
		return Outcome{Status: OutcomeDeferred, Message: "verifikasi ditunda, ditangani rekonsiliasi"}
	}

	if !verified.Success() {
		// provider bilang belum sukses; webhook-nya mungkin basi/keliru
		return Outcome{Status: OutcomeIgnored, Message: "provider melaporkan status " + verified.Status}
	}

	result, err := r.Machine.ApplyVerifiedPayment(ctx, reference, *verified)
	if err != nil {
		if errors.Is(err, orderService.ErrOrderNotFound) {
			return Outcome{Status: OutcomeFailed, Message: "tidak ada order untuk reference ini"}
		}
		log.Printf("[WEBHOOK] apply %s gagal: %v", reference, err)
		return Outcome{Status: OutcomeDeferred, Message: "transisi gagal sementara, ditangani rekonsiliasi"}
	}

	if result.AmountMismatch {
		r.Audit.Record(ctx, auditService.Entry{
			Action:   "amount_mismatch",
			Category: auditService.CategoryPayment,
			Severity: auditService.SeverityWarning,
			Message:  "jumlah terverifikasi provider berbeda dari total order",
			Metadata: map[string]interface{}{
				"reference":       reference,
				"order_number":    result.OrderNumber,
				"order_amount":    result.OrderAmount,
				"verified_amount": result.VerifiedAmount,
			},
		})
	}

	if result.Duplicate {
		return Outcome{Status: OutcomeDuplicate, Message: "pembayaran sudah terkonfirmasi sebelumnya"}
	}
	return Outcome{Status: OutcomeSuccess, Message: "order " + result.OrderNumber + " terkonfirmasi"}
}

func (r *Router) handleChargeFailed(ctx context.Context, env *dto.WebhookEnvelope) Outcome {
	reference := env.Data.Reference
	if err := r.Machine.ApplyFailedPayment(ctx, reference, env.Data.Status); err != nil {
		if errors.Is(err, orderService.ErrOrderNotFound) {
			return Outcome{Status: OutcomeFailed, Message: "tidak ada order untuk reference ini"}
		}
		log.Printf("[WEBHOOK] tandai gagal %s error: %v", reference, err)
		return Outcome{Status: OutcomeDeferred, Message: "penandaan gagal tertunda"}
	}
	return Outcome{Status: OutcomeSuccess, Message: "pembayaran ditandai gagal"}
}

func (r *Router) handleChargeDispute(ctx context.Context, env *dto.WebhookEnvelope) Outcome {
	// dispute tidak mengubah state order — operator yang memutuskan
	r.Audit.Record(ctx, auditService.Entry{
		Action:   "charge_dispute",
		Category: auditService.CategoryPayment,
		Severity: auditService.SeverityCritical,
		Message:  "provider melaporkan dispute",
		Metadata: map[string]interface{}{
			"reference": env.Data.Reference,
			"amount":    env.Data.Amount,
		},
	})
	return Outcome{Status: OutcomeAcknowledged, Message: "dispute dicatat untuk ditinjau"}
}

func (r *Router) handleTransfer(ctx context.Context, env *dto.WebhookEnvelope) Outcome {
	// transfer = settlement payout merchant, bukan transisi order pelanggan
	r.Audit.Record(ctx, auditService.Entry{
		Action:   "transfer_event",
		Category: auditService.CategoryPayment,
		Severity: auditService.SeverityInfo,
		Message:  "event transfer diterima: " + env.Event,
		Metadata: map[string]interface{}{
			"reference": env.Data.Reference,
			"status":    env.Data.Status,
			"amount":    env.Data.Amount,
		},
	})
	return Outcome{Status: OutcomeAcknowledged, Message: "event transfer dicatat"}
}
