package models

import (
	"time"

	"github.com/google/uuid"
)

// Order is the durable record created at finalization. TotalCents is the
// amount actually charged post-discount; ItemsJSON keeps the checkout-time
// snapshot for audit. Rows are never mutated after creation.
type Order struct {
	ID         uuid.UUID   `gorm:"column:id;type:uuid;primaryKey"`
	UserID     *string     `gorm:"column:user_id"`
	Email      string      `gorm:"column:email;not null;default:''"`
	TotalCents int64       `gorm:"column:total_cents;not null"`
	CouponCode *string     `gorm:"column:coupon_code"`
	ItemsJSON  string      `gorm:"column:items_json;not null;default:''"`
	Items      []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time   `gorm:"column:created_at;autoCreateTime"`
}
