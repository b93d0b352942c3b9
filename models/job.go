package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// JobType doubles as the reward-rule event type.
type JobType string

const (
	JobTypeRepair        JobType = "Repair"
	JobTypeReplacement   JobType = "Replacement"
	JobTypeVIPMembership JobType = "VIP_MEMBERSHIP"
	JobTypeVIPRenewal    JobType = "VIP_RENEWAL"
)

// Valid reports whether t is a known job type.
func (t JobType) Valid() bool {
	switch t {
	case JobTypeRepair, JobTypeReplacement, JobTypeVIPMembership, JobTypeVIPRenewal:
		return true
	}
	return false
}

// Job records the completed work that made a referral reward-eligible.
// Created exactly once per referral (unique index) by the admin issue
// operation; immutable after creation.
type Job struct {
	ID            string          `gorm:"primaryKey;type:uuid" json:"id"`
	ReferralID    string          `gorm:"uniqueIndex;not null" json:"referral_id"`
	JobType       JobType         `gorm:"not null" json:"job_type"`
	InvoiceNumber string          `json:"invoice_number"`
	InvoiceTotal  decimal.Decimal `gorm:"type:numeric(12,2)" json:"invoice_total"`
	InvoiceURL    string          `gorm:"type:text" json:"invoice_url,omitempty"` // R2 attachment, optional
	CompletedDate time.Time       `json:"completed_date"`
	CreatedAt     time.Time       `json:"created_at" gorm:"autoCreateTime"`
}
