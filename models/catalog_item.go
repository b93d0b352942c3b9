package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CatalogItem is something a partner can spend points on. Redemption
// requests snapshot the points cost at request time, so editing or
// deactivating an item never changes an outstanding request.
type CatalogItem struct {
	ID          string          `gorm:"primaryKey;type:uuid" json:"id"`
	Name        string          `gorm:"not null" json:"name"`
	Slug        string          `gorm:"uniqueIndex;not null" json:"slug"`
	Description string          `gorm:"type:text" json:"description"`
	PointsCost  decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"points_cost"`
	IsActive    bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}
