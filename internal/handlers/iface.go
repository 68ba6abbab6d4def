package handler

import (
	"context"
	"time"

	"workshop-billing-backend/internal/models"
	"workshop-billing-backend/internal/repository"
	"workshop-billing-backend/internal/services/auth"
	"workshop-billing-backend/internal/services/billing"
	"workshop-billing-backend/internal/services/catalog"
	"workshop-billing-backend/internal/services/orders"
)

type InvoiceService interface {
	Create(ctx context.Context, in billing.CreateInput) (*models.Invoice, error)
	CreateIndependent(ctx context.Context, in billing.IndependentInput) (*models.Invoice, error)
	Edit(ctx context.Context, id uint, in billing.EditInput) (*models.Invoice, error)
	SetPaymentState(ctx context.Context, id uint, state models.PaymentState, paidAt *time.Time) (*models.Invoice, error)
	Pay(ctx context.Context, id uint, paidAt *time.Time) (*models.Invoice, error)
	Unpay(ctx context.Context, id uint) (*models.Invoice, error)
	SoftDelete(ctx context.Context, id uint) error
	SoftDeleteSecured(ctx context.Context, id uint, password string) error
	Restore(ctx context.Context, id uint) (*models.Invoice, error)
	VerifyEditable(ctx context.Context, id uint) (billing.Editability, error)
	ValidatePasswordForAction(ctx context.Context, id uint, password string, action billing.Action) error
	FindOne(ctx context.Context, id uint) (*models.Invoice, error)
	List(ctx context.Context, filter repository.InvoiceFilter) ([]models.Invoice, error)
	Stats(ctx context.Context) (billing.Stats, error)
	LaborReport(ctx context.Context, q billing.LaborQuery) (*billing.LaborReport, error)
	RenderPDF(ctx context.Context, id uint) ([]byte, string, error)
	SendByEmail(ctx context.Context, id uint, in billing.EmailInput) (*models.InvoiceDelivery, error)
}

type OrderService interface {
	Create(ctx context.Context, in orders.CreateInput) (*models.Order, error)
	AddLine(ctx context.Context, orderID uint, item models.LineItem) (*models.Order, error)
	ReplaceLines(ctx context.Context, orderID uint, items []models.LineItem) (*models.Order, error)
	ReplaceLinesAsMechanic(ctx context.Context, orderID, mechanicID uint, items []models.LineItem) (*models.Order, error)
	ClearLines(ctx context.Context, orderID uint) (*models.Order, error)
	UpdateNotes(ctx context.Context, orderID uint, notes string) (*models.Order, error)
	Transition(ctx context.Context, orderID uint, target models.OrderState) (*models.Order, error)
	Delete(ctx context.Context, orderID uint) error
	DeleteSecured(ctx context.Context, orderID uint, password string) error
	FindOne(ctx context.Context, orderID uint) (*models.Order, error)
	List(ctx context.Context, filter repository.OrderFilter) ([]models.Order, error)
	ListByMechanic(ctx context.Context, mechanicID uint) ([]models.Order, error)
}

type AuthService interface {
	Login(ctx context.Context, username, password string) (*auth.Session, error)
	VerifyAdminPassword(ctx context.Context, password string) error
}

type CatalogService interface {
	Available(ctx context.Context) (*catalog.Availability, error)
}
