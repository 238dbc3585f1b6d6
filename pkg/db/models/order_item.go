package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem captures the snapshot of each cart line within an order. The unit
// amount is the price at purchase time, not a live product reference.
type OrderItem struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID    uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID  string    `gorm:"column:product_id;not null"`
	Quantity   int64     `gorm:"column:quantity;not null"`
	UnitAmount int64     `gorm:"column:unit_amount;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}
