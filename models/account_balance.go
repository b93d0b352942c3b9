package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountBalance is the server-maintained running balance for one
// (user, currency) pair. It is updated in the same transaction as every
// ledger append, so it can never drift from the ledger fold under normal
// operation; the reconciliation job audits that equality on a schedule.
//
// Reads serve from this row instead of folding the ledger client-side,
// which also removes the truncated-window problem a capped fetch has.
type AccountBalance struct {
	ID           string          `gorm:"primaryKey;type:uuid" json:"id"`
	UserID       string          `gorm:"not null;uniqueIndex:idx_user_currency" json:"user_id"`
	CurrencyType CurrencyType    `gorm:"not null;uniqueIndex:idx_user_currency" json:"currency_type"`
	Balance      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"balance"`
	UpdatedAt    time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}
