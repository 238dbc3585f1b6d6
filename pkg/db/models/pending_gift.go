package models

import "time"

// PendingGift mirrors PendingOrder for gift-code purchases. AmountCents is the
// base amount paid; the bonus is applied when the code is minted.
type PendingGift struct {
	ProviderOrderID string    `gorm:"column:provider_order_id;primaryKey"`
	Email           string    `gorm:"column:email;not null;default:''"`
	AmountCents     int64     `gorm:"column:amount_cents;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
}
