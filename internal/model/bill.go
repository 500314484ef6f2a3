package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bill is a finalized sale. Totals are computed once at checkout and never
// recalculated; the only mutation after creation is the IsCancelled flag
// (one-way, false → true).
type Bill struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BillNo       string          `gorm:"type:varchar(20);uniqueIndex;not null"`
	CustomerName string          `gorm:"type:varchar(100);not null"`
	Mobile       string          `gorm:"type:varchar(20);not null"`
	Subtotal     decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	CGST         decimal.Decimal `gorm:"type:decimal(10,2);not null;column:cgst"`
	SGST         decimal.Decimal `gorm:"type:decimal(10,2);not null;column:sgst"`
	GrandTotal   decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	IsCancelled  bool            `gorm:"not null;default:false"`
	CreatedAt    time.Time

	Items []BillItem `gorm:"foreignKey:BillID;constraint:OnDelete:CASCADE"`
}

// BillItem is a line of a bill. ProductName and Price are snapshots taken at
// sale time so later catalog edits never rewrite history. ProductID is the
// stable reference used to restore stock on cancellation; it is nullable so
// a deleted product cannot break historical bills.
type BillItem struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	BillID      uuid.UUID  `gorm:"type:uuid;index;not null"`
	ProductID   *uuid.UUID `gorm:"type:uuid;index"`
	ProductName string     `gorm:"type:varchar(200);not null"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Quantity    int             `gorm:"not null"`
	Total       decimal.Decimal `gorm:"type:decimal(10,2);not null"`
}
