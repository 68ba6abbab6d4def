package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderState string

const (
	OrderReceived   OrderState = "RECEIVED"
	OrderInProgress OrderState = "IN_PROGRESS"
	OrderDone       OrderState = "DONE"
	OrderInvoiced   OrderState = "INVOICED"
)

// Order is a repair job. Its lines hold the stock they reserved until the
// order is deleted or cleared.
type Order struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	ClientID   uint            `gorm:"index;not null" json:"client_id"`
	VehicleID  *uint           `gorm:"index" json:"vehicle_id,omitempty"`
	MechanicID *uint           `gorm:"index" json:"mechanic_id,omitempty"`
	State      OrderState      `gorm:"size:20;not null;default:'RECEIVED';index" json:"state"`
	Total      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total"`
	Notes      string          `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`

	Client   *Client     `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Vehicle  *Vehicle    `gorm:"foreignKey:VehicleID" json:"vehicle,omitempty"`
	Mechanic *Mechanic   `gorm:"foreignKey:MechanicID" json:"mechanic,omitempty"`
	Lines    []OrderLine `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"lines,omitempty"`
}

type OrderLine struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	OrderID     uint            `gorm:"index;not null" json:"order_id"`
	Position    int             `gorm:"not null;default:0" json:"position"`
	Description string          `gorm:"size:255;not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:decimal(12,3);not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Category    LineCategory    `gorm:"size:10" json:"category,omitempty"`
	ProductID   *uint           `gorm:"index" json:"product_id,omitempty"`
	ServiceID   *uint           `gorm:"index" json:"service_id,omitempty"`
}

func (l OrderLine) Item() LineItem {
	return LineItem{
		Description: l.Description,
		Quantity:    l.Quantity,
		UnitPrice:   l.UnitPrice,
		Category:    l.Category,
		ProductID:   l.ProductID,
		ServiceID:   l.ServiceID,
	}
}

func OrderItems(lines []OrderLine) []LineItem {
	items := make([]LineItem, len(lines))
	for i, l := range lines {
		items[i] = l.Item()
	}
	return items
}

func NewOrderLines(orderID uint, items []LineItem) []OrderLine {
	lines := make([]OrderLine, len(items))
	for i, it := range items {
		lines[i] = OrderLine{
			OrderID:     orderID,
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
