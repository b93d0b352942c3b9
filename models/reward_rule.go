package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RewardRule maps (program type, event type) to a payout amount. Rules are
// versioned by effective date and never edited in place: changing a payout
// means inserting a new rule row, optionally deactivating the old one.
// The resolver picks the newest active rule effective at or before "now".
type RewardRule struct {
	ID            string          `gorm:"primaryKey;type:uuid" json:"id"`
	ProgramType   AccountType     `gorm:"not null;index:idx_rule_lookup" json:"program_type"`
	EventType     JobType         `gorm:"not null;index:idx_rule_lookup" json:"event_type"`
	Amount        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	IsActive      bool            `gorm:"not null;default:true" json:"is_active"`
	EffectiveFrom time.Time       `gorm:"not null" json:"effective_from"`
	CreatedAt     time.Time       `json:"created_at" gorm:"autoCreateTime"`
}
