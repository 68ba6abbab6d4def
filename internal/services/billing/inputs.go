package billing

import (
	"strings"
	"time"

	"workshop-billing-backend/internal/apperrors"
	"workshop-billing-backend/internal/models"
)

type CreateInput struct {
	OrderID       uint
	PaymentMethod models.PaymentMethod
	PaymentState  models.PaymentState
	Notes         string
	MechanicID    *uint
}

type NewClient struct {
	Name           string
	Identification string
	Phone          string
	Email          string
	Address        string
	City           string
}

type NewVehicle struct {
	Plate        string
	Brand        string
	Model        string
	Year         int
	Displacement int
	Color        string
	Mileage      int
}

type IndependentInput struct {
	ClientID      *uint
	NewClient     *NewClient
	VehicleID     *uint
	NewVehicle    *NewVehicle
	MechanicID    *uint
	PaymentMethod models.PaymentMethod
	PaymentState  models.PaymentState
	Notes         string
	Lines         []models.LineItem
}

// EditInput patches an unpaid invoice. Lines are only touched when
// ReplaceLines is set.
type EditInput struct {
	PaymentMethod *models.PaymentMethod
	Notes         *string
	MechanicID    *uint
	ReplaceLines  bool
	Lines         []models.LineItem
}

type Action string

const (
	ActionEdit   Action = "EDIT"
	ActionDelete Action = "DELETE"
)

type EmailInput struct {
	To        string
	CC        string
	Subject   string
	Message   string
	PDFBase64 string
}

type LaborQuery struct {
	MechanicID  uint
	From        time.Time
	To          time.Time
	ServiceName string
}

func validateMethod(op string, m models.PaymentMethod) error {
	if !m.Valid() {
		return apperrors.Validation(op, "invalid payment method %q", m)
	}
	return nil
}

// normalizeState defaults an empty state to UNPAID.
func normalizeState(op string, s models.PaymentState) (models.PaymentState, error) {
	if s == "" {
		return models.StateUnpaid, nil
	}
	if !s.Valid() {
		return "", apperrors.Validation(op, "invalid payment state %q", s)
	}
	return s, nil
}

func normalizePlate(plate string) string {
	return strings.ToUpper(strings.TrimSpace(plate))
}
