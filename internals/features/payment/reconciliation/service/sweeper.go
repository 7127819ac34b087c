package service

import (
	"context"
	"log"
	"time"

	"tokoku_backend/internals/configs"
	auditService "tokoku_backend/internals/features/payment/audit/service"
	"tokoku_backend/internals/features/payment/gateway"
	orderModel "tokoku_backend/internals/features/payment/order/model"
	orderService "tokoku_backend/internals/features/payment/order/service"
)

/* ===================== Result types ===================== */

const (
	ResultSuccess  = "success"
	ResultFailed   = "failed"
	ResultPending  = "pending"
	ResultNotFound = "not_found"
)

type Result struct {
	OrderNumber string  `json:"order_number"`
	Reference   string  `json:"reference"`
	Status      string  `json:"status"`
	Note        string  `json:"note,omitempty"`
	OrderAmount float64 `json:"order_amount"`
	// ProviderAmount terisi kalau verifikasi berhasil; dibandingkan dengan
	// OrderAmount untuk deteksi drift.
	ProviderAmount float64 `json:"provider_amount"`
	AmountMismatch bool    `json:"amount_mismatch"`
}

type Summary struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Scanned   int           `json:"scanned"`
	Success   int           `json:"success"`
	Failed    int           `json:"failed"`
	Pending   int           `json:"pending"`
	NotFound  int           `json:"not_found"`
	Results   []Result      `json:"results,omitempty"`
}

/* ===================== Sweeper ===================== */

type PendingLister interface {
	ListStuckPending(ctx context.Context, createdBefore, createdAfter time.Time, limit int) ([]orderModel.Order, error)
}

type PaymentApplier interface {
	ApplyVerifiedPayment(ctx context.Context, reference string, v gateway.VerifiedTransaction) (*orderService.ApplyResult, error)
}

// Sweeper: safety net untuk order yang webhook-nya hilang/tertunda. Memakai
// pintu transisi yang SAMA dengan jalur webhook, jadi balapan keduanya
// selesai lewat jaminan idempoten state machine.
type Sweeper struct {
	Orders  PendingLister
	Gateway gateway.Verifier
	Machine PaymentApplier
	Audit   auditService.Recorder
	Cfg     configs.PaymentConfig
}

func NewSweeper(orders PendingLister, gw gateway.Verifier, machine PaymentApplier, audit auditService.Recorder, cfg configs.PaymentConfig) *Sweeper {
	return &Sweeper{Orders: orders, Gateway: gw, Machine: machine, Audit: audit, Cfg: cfg}
}

// Run memproses satu batch. Kegagalan satu order tidak pernah menghentikan
// batch — outputnya agregat per status.
func (s *Sweeper) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	// grace window: jangan balapan dengan checkout yang masih jalan;
	// lookback: batasi biaya scan
	createdBefore := start.Add(-s.Cfg.SweepGrace)
	createdAfter := start.Add(-s.Cfg.SweepLookback)

	orders, err := s.Orders.ListStuckPending(ctx, createdBefore, createdAfter, s.Cfg.SweepBatchSize)
	if err != nil {
		return nil, err
	}

	summary := &Summary{StartedAt: start, Scanned: len(orders)}
	for i := range orders {
		res := s.reconcileOrder(ctx, &orders[i])
		summary.Results = append(summary.Results, res)
		switch res.Status {
		case ResultSuccess:
			summary.Success++
		case ResultFailed:
			summary.Failed++
		case ResultPending:
			summary.Pending++
		case ResultNotFound:
			summary.NotFound++
		}
		if res.AmountMismatch {
			s.Audit.Record(ctx, auditService.Entry{
				Action:   "amount_mismatch",
				Category: auditService.CategoryReconciliation,
				Severity: auditService.SeverityWarning,
				Message:  "jumlah provider berbeda dari total order saat rekonsiliasi",
				Metadata: map[string]interface{}{
					"order_number":    res.OrderNumber,
					"reference":       res.Reference,
					"order_amount":    res.OrderAmount,
					"provider_amount": res.ProviderAmount,
				},
			})
		}
	}
	summary.Duration = time.Since(start)

	s.Audit.Record(ctx, auditService.Entry{
		Action:   "reconciliation_sweep",
		Category: auditService.CategoryReconciliation,
		Severity: auditService.SeverityInfo,
		Message:  "sweep rekonsiliasi selesai",
		Metadata: map[string]interface{}{
			"scanned":   summary.Scanned,
			"success":   summary.Success,
			"failed":    summary.Failed,
			"pending":   summary.Pending,
			"not_found": summary.NotFound,
			"duration":  summary.Duration.String(),
		},
	})

	log.Printf("[SWEEP] scanned=%d success=%d failed=%d pending=%d not_found=%d dur=%s",
		summary.Scanned, summary.Success, summary.Failed, summary.Pending, summary.NotFound, summary.Duration)
	return summary, nil
}

func (s *Sweeper) reconcileOrder(ctx context.Context, order *orderModel.Order) Result {
	res := Result{
		OrderNumber: order.OrderNumber,
		Reference:   order.Reference(),
		OrderAmount: order.OrderTotalAmount,
	}

	// tanpa reference tidak ada yang bisa diverifikasi
	if res.Reference == "" {
		res.Status = ResultFailed
		res.Note = "order tanpa payment reference"
		return res
	}

	verified, err := s.Gateway.VerifyTransaction(ctx, res.Reference)
	if err != nil {
		if gateway.IsNotFound(err) {
			// JANGAN auto-cancel: bisa jadi cuma delay propagasi provider.
			// Dicatat untuk investigasi manual.
			res.Status = ResultNotFound
			res.Note = "provider tidak punya record untuk reference ini"
			return res
		}
		res.Status = ResultFailed
		res.Note = err.Error()
		return res
	}

	res.ProviderAmount = verified.AmountMajor()

	if !verified.Success() {
		// memang belum dibayar — jangan sentuh order
		res.Status = ResultPending
		res.Note = "provider melaporkan status " + verified.Status
		return res
	}

	applied, err := s.Machine.ApplyVerifiedPayment(ctx, res.Reference, *verified)
	if err != nil {
		res.Status = ResultFailed
		res.Note = "transisi gagal: " + err.Error()
		return res
	}

	res.Status = ResultSuccess
	res.AmountMismatch = applied.AmountMismatch
	if applied.Duplicate {
		res.Note = "sudah terkonfirmasi jalur lain"
	}
	return res
}
