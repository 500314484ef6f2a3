package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog entry. Stock is only ever changed through relative
// SQL updates inside a transaction (checkout decrement, cancellation restore,
// admin edit) so concurrent checkouts cannot lose updates.
type Product struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string          `gorm:"index;not null"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Stock     int             `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
