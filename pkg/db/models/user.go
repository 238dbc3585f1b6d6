package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered customer. Only the identity surface used by checkout
// lives here; credential handling is owned by the token issuer.
type User struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Email     string    `gorm:"column:email;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
