package models

import (
	"time"

	"github.com/google/uuid"
)

// GiftCode is a stored-value code minted after a captured gift purchase.
// RemainingCents only ever decreases; depleted codes are kept at zero balance
// so spent codes stay queryable.
type GiftCode struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Code           string    `gorm:"column:code;not null;uniqueIndex"`
	ValueCents     int64     `gorm:"column:value_cents;not null"`
	RemainingCents int64     `gorm:"column:remaining_cents;not null"`
	CustomerEmail  string    `gorm:"column:customer_email;not null;default:''"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
