package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Name      string          `gorm:"size:150;not null" json:"name"`
	Reference string          `gorm:"size:80;index" json:"reference,omitempty"`
	Category  string          `gorm:"size:80" json:"category,omitempty"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Stock     decimal.Decimal `gorm:"type:decimal(12,3);not null;default:0" json:"stock"`
	MinStock  decimal.Decimal `gorm:"type:decimal(12,3);not null;default:0" json:"min_stock"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type Service struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"size:150;not null" json:"name"`
	Description string          `gorm:"type:text" json:"description,omitempty"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Minutes     int             `json:"minutes,omitempty"`
	Category    string          `gorm:"size:80" json:"category,omitempty"`
	Active      bool            `gorm:"not null;default:true" json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
