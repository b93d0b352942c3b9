package models

import "time"

// ReferralStatus values form the office workflow for a referral.
type ReferralStatus string

const (
	StatusSubmitted     ReferralStatus = "Submitted"
	StatusApproved      ReferralStatus = "Approved"
	StatusScheduled     ReferralStatus = "Scheduled"
	StatusCompletedWork ReferralStatus = "Completed Work"
	StatusEligible      ReferralStatus = "Eligible"
	StatusDenied        ReferralStatus = "Denied"
)

// DefaultDeniedReason is stored when the office denies without giving a reason.
const DefaultDeniedReason = "Denied"

// allowedTransitions is the normal-path workflow. Admins can still force any
// transition via the override flag, which is logged separately.
var allowedTransitions = map[ReferralStatus][]ReferralStatus{
	StatusSubmitted:     {StatusApproved, StatusDenied},
	StatusApproved:      {StatusScheduled, StatusDenied},
	StatusScheduled:     {StatusCompletedWork, StatusDenied},
	StatusCompletedWork: {StatusEligible},
	StatusEligible:      {},
	StatusDenied:        {},
}

// Valid reports whether s is a known status value.
func (s ReferralStatus) Valid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// Terminal statuses accept no further normal-path transitions.
func (s ReferralStatus) Terminal() bool {
	return len(allowedTransitions[s]) == 0
}

// CanTransitionTo checks the normal-path allow-list.
func (s ReferralStatus) CanTransitionTo(next ReferralStatus) bool {
	for _, t := range allowedTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Referral is a user-submitted lead. Program type snapshots the referrer's
// account type at submission time so a later account-type change never
// reroutes an in-flight reward.
type Referral struct {
	ID              string         `gorm:"primaryKey;type:uuid" json:"id"`
	ReferrerUserID  string         `gorm:"index;not null" json:"referrer_user_id"`
	ProgramType     AccountType    `gorm:"not null" json:"program_type"`
	ReferredName    string         `json:"referred_name"`
	ReferredPhone   string         `json:"referred_phone"`
	ReferredEmail   string         `json:"referred_email"`
	ReferredAddress string         `json:"referred_address"`
	Status          ReferralStatus `gorm:"not null;default:'Submitted';index" json:"status"`
	DeniedReason    *string        `json:"denied_reason,omitempty"`
	CreatedAt       time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
}
