package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryType tags why a ledger entry exists.
type EntryType string

const (
	EntryEarned       EntryType = "Earned"       // partner points from completed work
	EntryEarnedCash   EntryType = "EarnedCash"   // customer cash reward
	EntryEarnedCredit EntryType = "EarnedCredit" // customer account-credit reward
	EntryRedeemed     EntryType = "Redeemed"     // points deducted by a fulfilled redemption
)

// CurrencyType separates the three independent balances a user can hold.
type CurrencyType string

const (
	CurrencyPoints    CurrencyType = "POINTS"
	CurrencyUSDCash   CurrencyType = "USD_CASH"
	CurrencyUSDCredit CurrencyType = "USD_CREDIT"
)

// LedgerEntry is an immutable signed transaction record, the sole source of
// truth for balances. Append-only: no update or delete path exists anywhere
// in this codebase, and corrections are made with offsetting entries.
// Sign convention: positive credits the user, negative debits.
type LedgerEntry struct {
	ID                  string          `gorm:"primaryKey;type:uuid" json:"id"`
	UserID              string          `gorm:"index;not null" json:"user_id"`
	ReferralID          *string         `gorm:"index" json:"referral_id,omitempty"`
	JobID               *string         `gorm:"index" json:"job_id,omitempty"`
	RedemptionRequestID *string         `gorm:"index" json:"redemption_request_id,omitempty"`
	EntryType           EntryType       `gorm:"not null" json:"entry_type"`
	CurrencyType        CurrencyType    `gorm:"not null;index" json:"currency_type"`
	Amount              decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Memo                string          `gorm:"type:text" json:"memo"`
	CreatedAt           time.Time       `json:"created_at" gorm:"autoCreateTime"`
}
