// services/scheduler.go
package services

import (
	"log"
	"time"

	"referral-rewards-system/models"

	"github.com/go-co-op/gocron/v2"
)

// StartReconciliationScheduler audits every running balance against the full
// ledger fold on an interval. The balance moves in the same transaction as
// every append, so any mismatch is logged loudly and left untouched for a
// human to investigate.
func (s *LedgerService) StartReconciliationScheduler(interval time.Duration) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			var balances []models.AccountBalance
			if err := s.DB.Find(&balances).Error; err != nil {
				log.Printf("[Reconciliation] DB error: %v", err)
				return
			}

			var drift int
			for _, b := range balances {
				sum, err := s.RecomputeBalance(b.UserID, b.CurrencyType)
				if err != nil {
					log.Printf("[Reconciliation] Failed to fold ledger for user=%s currency=%s: %v",
						b.UserID, b.CurrencyType, err)
					continue
				}
				if !sum.Equal(b.Balance) {
					drift++
					log.Printf("🚨 [Reconciliation] DRIFT user=%s currency=%s running=%s ledger=%s",
						b.UserID, b.CurrencyType, b.Balance.String(), sum.String())
				}
			}

			if drift == 0 {
				log.Printf("[Reconciliation] ✅ %d balance(s) verified against ledger", len(balances))
			}
		}),
	)
}
