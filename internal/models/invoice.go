package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentMethod string

const (
	PaymentCash       PaymentMethod = "CASH"
	PaymentCreditCard PaymentMethod = "CREDIT_CARD"
	PaymentDebitCard  PaymentMethod = "DEBIT_CARD"
	PaymentTransfer   PaymentMethod = "TRANSFER"
	PaymentCheck      PaymentMethod = "CHECK"
	PaymentOther      PaymentMethod = "OTHER"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCreditCard, PaymentDebitCard, PaymentTransfer, PaymentCheck, PaymentOther:
		return true
	}
	return false
}

type PaymentState string

const (
	StatePaid   PaymentState = "PAID"
	StateUnpaid PaymentState = "UNPAID"
)

func (s PaymentState) Valid() bool {
	return s == StatePaid || s == StateUnpaid
}

type LineCategory string

const (
	CategoryProduct LineCategory = "PRODUCT"
	CategoryService LineCategory = "SERVICE"
	CategoryOther   LineCategory = "OTHER"
)

// Invoice is a billing document. Total is always the untaxed sum of its
// lines; tax is only computed when the document is rendered.
type Invoice struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	ClientID      uint            `gorm:"index;not null" json:"client_id"`
	OrderID       *uint           `gorm:"index" json:"order_id,omitempty"`
	MechanicID    *uint           `gorm:"index" json:"mechanic_id,omitempty"`
	VehicleID     *uint           `gorm:"index" json:"vehicle_id,omitempty"`
	Total         decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total"`
	PaymentMethod PaymentMethod   `gorm:"size:20;not null" json:"payment_method"`
	PaymentState  PaymentState    `gorm:"size:10;not null;default:'UNPAID';index" json:"payment_state"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	Notes         string          `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`

	Client   *Client       `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Order    *Order        `gorm:"foreignKey:OrderID" json:"order,omitempty"`
	Mechanic *Mechanic     `gorm:"foreignKey:MechanicID" json:"mechanic,omitempty"`
	Vehicle  *Vehicle      `gorm:"foreignKey:VehicleID" json:"vehicle,omitempty"`
	Lines    []InvoiceLine `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"lines,omitempty"`
}

func (i *Invoice) IsPaid() bool {
	return i.PaymentState == StatePaid
}

func (i *Invoice) IsDeleted() bool {
	return i.DeletedAt.Valid
}

type InvoiceLine struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	InvoiceID   uint            `gorm:"index;not null" json:"invoice_id"`
	Position    int             `gorm:"not null;default:0" json:"position"`
	Description string          `gorm:"size:255;not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:decimal(12,3);not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Category    LineCategory    `gorm:"size:10" json:"category,omitempty"`
	ProductID   *uint           `gorm:"index" json:"product_id,omitempty"`
	ServiceID   *uint           `gorm:"index" json:"service_id,omitempty"`
}

func (l InvoiceLine) Item() LineItem {
	return LineItem{
		Description: l.Description,
		Quantity:    l.Quantity,
		UnitPrice:   l.UnitPrice,
		Category:    l.Category,
		ProductID:   l.ProductID,
		ServiceID:   l.ServiceID,
	}
}

// LineItem is the shape shared by invoice and order lines before they are
// bound to a document.
type LineItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Category    LineCategory    `json:"category"`
	ProductID   *uint           `json:"product_id,omitempty"`
	ServiceID   *uint           `json:"service_id,omitempty"`
}

func (l LineItem) Base() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice)
}

// SumItems is the raw, untaxed sum of quantity times unit price.
// SumItems is the stored document total: the exact line sum rounded half
// away from zero to the two decimals of the total column.
func SumItems(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Base())
	}
	return total.Round(2)
}

func InvoiceItems(lines []InvoiceLine) []LineItem {
	items := make([]LineItem, len(lines))
	for i, l := range lines {
		items[i] = l.Item()
	}
	return items
}

func NewInvoiceLines(items []LineItem) []InvoiceLine {
	lines := make([]InvoiceLine, len(items))
	for i, it := range items {
		lines[i] = InvoiceLine{
			Position:    i + 1,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Category:    it.Category,
			ProductID:   it.ProductID,
			ServiceID:   it.ServiceID,
		}
	}
	return lines
}
