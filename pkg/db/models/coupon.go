package models

import (
	"time"

	"github.com/google/uuid"
)

// Coupon is a human-issued discount code with a finite use count. Codes are
// stored canonically uppercased; lookups must uppercase before matching.
// Either PercentOff or AmountOff may be set; a coupon with neither positive
// never applies.
type Coupon struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Code          string    `gorm:"column:code;not null;uniqueIndex"`
	PercentOff    *int64    `gorm:"column:percent_off"`
	AmountOff     *int64    `gorm:"column:amount_off"`
	RemainingUses int64     `gorm:"column:remaining_uses;not null;default:0"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
