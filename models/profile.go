package models

import "time"

// AccountType selects which reward track a user belongs to.
type AccountType string

const (
	AccountTypeCustomer AccountType = "customer" // earns cash or account credit
	AccountTypePartner  AccountType = "partner"  // earns points, redeems via catalog
)

// PayoutPreference applies to customer accounts only.
type PayoutPreference string

const (
	PayoutCash   PayoutPreference = "cash"
	PayoutCredit PayoutPreference = "credit"
)

// Profile is the local record for a user known to the identity gateway.
// The primary key is the identity provider's user ID, we never mint our own.
// Profiles are created on first sight of a user and never deleted.
type Profile struct {
	ID               string            `gorm:"primaryKey;type:uuid" json:"id"` // identity provider user ID
	FullName         string            `json:"full_name"`
	AccountType      AccountType       `gorm:"not null;default:'customer'" json:"account_type"`
	IsAdmin          bool              `gorm:"default:false" json:"is_admin"`
	PayoutPreference *PayoutPreference `json:"payout_preference,omitempty"` // customers only
	CreatedAt        time.Time         `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time         `json:"updated_at" gorm:"autoUpdateTime"`
}

// RemoteIdentity mirrors the identity service's profile payload (read-only).
// Used by the sync worker to refresh display names and admin flags.
type RemoteIdentity struct {
	UserID    string    `json:"user_id"`
	FullName  string    `json:"full_name"`
	IsAdmin   bool      `json:"is_admin"`
	UpdatedAt time.Time `json:"updated_at"`
}
