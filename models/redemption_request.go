package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RedemptionStatus tracks a request from open until the office fulfills it.
type RedemptionStatus string

const (
	RedemptionRequested RedemptionStatus = "Requested"
	RedemptionFulfilled RedemptionStatus = "Fulfilled"
)

// RedemptionRequest is a partner's pending claim against the points catalog.
// PointsCost is snapshotted from the catalog item at request time.
// Fulfillment flips the status exactly once and writes the deduction entry
// in the same transaction.
type RedemptionRequest struct {
	ID                   string           `gorm:"primaryKey;type:uuid" json:"id"`
	UserID               string           `gorm:"index;not null" json:"user_id"`
	CatalogItemID        string           `gorm:"index;not null" json:"catalog_item_id"`
	PointsCost           decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"points_cost"`
	Status               RedemptionStatus `gorm:"not null;default:'Requested';index" json:"status"`
	FulfillmentReference *string          `json:"fulfillment_reference,omitempty"`
	ReceiptURL           *string          `gorm:"type:text" json:"receipt_url,omitempty"` // R2 attachment, optional
	FulfilledAt          *time.Time       `json:"fulfilled_at,omitempty"`
	CreatedAt            time.Time        `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt            time.Time        `json:"updated_at" gorm:"autoUpdateTime"`
}
