package models

import "time"

// PendingOrder bridges checkout-start and payment capture. It is keyed by the
// payment provider's order id and consumed exactly once at finalization; the
// hourly sweep removes rows older than the retention window.
type PendingOrder struct {
	ProviderOrderID string    `gorm:"column:provider_order_id;primaryKey"`
	UserID          *string   `gorm:"column:user_id"`
	Email           string    `gorm:"column:email;not null;default:''"`
	AmountCents     int64     `gorm:"column:amount_cents;not null"`
	ItemsJSON       string    `gorm:"column:items_json;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
}
