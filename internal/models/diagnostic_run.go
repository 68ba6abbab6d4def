package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type DiagnosticStatus string

const (
	DiagnosticRunning  DiagnosticStatus = "running"
	DiagnosticClean    DiagnosticStatus = "clean"
	DiagnosticFindings DiagnosticStatus = "findings"
	DiagnosticFailed   DiagnosticStatus = "failed"
)

// DiagnosticRun is one pass of the out-of-band consistency check.
type DiagnosticRun struct {
	ID               uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	Status           DiagnosticStatus `gorm:"size:20;not null" json:"status"`
	InvoicesChecked  int              `json:"invoices_checked"`
	ProductsChecked  int              `json:"products_checked"`
	TotalMismatches  int              `json:"total_mismatches"`
	NegativeStock    int              `json:"negative_stock"`
	DuplicateInvoice int              `json:"duplicate_invoice"`
	Findings         datatypes.JSON   `json:"findings,omitempty"`
	StartedAt        time.Time        `json:"started_at"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty"`
}
