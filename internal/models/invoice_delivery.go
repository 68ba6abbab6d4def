package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// InvoiceDelivery is the audit trail of an invoice sent by email.
type InvoiceDelivery struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceID uint           `gorm:"index;not null" json:"invoice_id"`
	Recipient string         `gorm:"size:150;not null" json:"recipient"`
	CC        string         `gorm:"size:150" json:"cc,omitempty"`
	Subject   string         `gorm:"size:255" json:"subject"`
	MessageID string         `gorm:"size:150" json:"message_id"`
	Details   datatypes.JSON `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
