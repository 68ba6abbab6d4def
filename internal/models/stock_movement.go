package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type StockReason string

const (
	StockReserve StockReason = "reserve"
	StockRelease StockReason = "release"
)

// StockMovement records one stock adjustment. Delta is negative for
// reservations and positive for releases.
type StockMovement struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID   uint            `gorm:"index;not null" json:"product_id"`
	Reason      StockReason     `gorm:"size:20;not null" json:"reason"`
	Delta       decimal.Decimal `gorm:"type:decimal(12,3);not null" json:"delta"`
	StockBefore decimal.Decimal `gorm:"type:decimal(12,3);not null" json:"stock_before"`
	StockAfter  decimal.Decimal `gorm:"type:decimal(12,3);not null" json:"stock_after"`
	InvoiceID   *uint           `gorm:"index" json:"invoice_id,omitempty"`
	OrderID     *uint           `gorm:"index" json:"order_id,omitempty"`
	Note        string          `gorm:"size:255" json:"note,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
