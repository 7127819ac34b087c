package scheduler

import (
	"context"
	"log"
	"time"

	"tokoku_backend/internals/features/payment/reconciliation/service"
)

// StartReconciliationScheduler menjalankan sweep tiap interval sampai ctx
// selesai. Error satu putaran cuma dicatat; putaran berikut tetap jalan.
func StartReconciliationScheduler(ctx context.Context, sweeper *service.Sweeper, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Printf("[SWEEP] scheduler rekonsiliasi aktif, interval %s", interval)
		for {
			select {
			case <-ctx.Done():
				log.Println("[SWEEP] scheduler berhenti (shutdown)")
				return
			case <-ticker.C:
				if _, err := sweeper.Run(ctx); err != nil {
					log.Printf("[SWEEP ERROR] sweep gagal: %v", err)
				}
			}
		}
	}()
}
