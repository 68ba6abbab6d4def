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

	"github.com/stretchr/testify/mock"
)

type mockInvoiceService struct{ mock.Mock }

func invoiceResult(args mock.Arguments) (*models.Invoice, error) {
	inv, _ := args.Get(0).(*models.Invoice)
	return inv, args.Error(1)
}

func (m *mockInvoiceService) Create(ctx context.Context, in billing.CreateInput) (*models.Invoice, error) {
	return invoiceResult(m.Called(ctx, in))
}

func (m *mockInvoiceService) CreateIndependent(ctx context.Context, in billing.IndependentInput) (*models.Invoice, error) {
	return invoiceResult(m.Called(ctx, in))
}

func (m *mockInvoiceService) Edit(ctx context.Context, id uint, in billing.EditInput) (*models.Invoice, error) {
	return invoiceResult(m.Called(ctx, id, in))
}

func (m *mockInvoiceService) SetPaymentState(ctx context.Context, id uint, state models.PaymentState, paidAt *time.Time) (*models.Invoice, error) {
	return invoiceResult(m.Called(ctx, id, state, paidAt))
}

func (m *mockInvoiceService) Pay(ctx context.Context, id uint, paidAt *time.Time) (*models.Invoice, error) {
	return invoiceResult(m.Called(ctx, id, paidAt))
}

func (m *mockInvoiceService) Unpay(ctx context.Context, id uint) (*models.Invoice, error) {
	return invoiceResult(m.Called(ctx, id))
}

func (m *mockInvoiceService) SoftDelete(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockInvoiceService) SoftDeleteSecured(ctx context.Context, id uint, password string) error {
	return m.Called(ctx, id, password).Error(0)
}

func (m *mockInvoiceService) Restore(ctx context.Context, id uint) (*models.Invoice, error) {
	return invoiceResult(m.Called(ctx, id))
}

func (m *mockInvoiceService) VerifyEditable(ctx context.Context, id uint) (billing.Editability, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(billing.Editability), args.Error(1)
}

func (m *mockInvoiceService) ValidatePasswordForAction(ctx context.Context, id uint, password string, action billing.Action) error {
	return m.Called(ctx, id, password, action).Error(0)
}

func (m *mockInvoiceService) FindOne(ctx context.Context, id uint) (*models.Invoice, error) {
	return invoiceResult(m.Called(ctx, id))
}

func (m *mockInvoiceService) List(ctx context.Context, filter repository.InvoiceFilter) ([]models.Invoice, error) {
	args := m.Called(ctx, filter)
	list, _ := args.Get(0).([]models.Invoice)
	return list, args.Error(1)
}

func (m *mockInvoiceService) Stats(ctx context.Context) (billing.Stats, error) {
	args := m.Called(ctx)
	return args.Get(0).(billing.Stats), args.Error(1)
}

func (m *mockInvoiceService) LaborReport(ctx context.Context, q billing.LaborQuery) (*billing.LaborReport, error) {
	args := m.Called(ctx, q)
	r, _ := args.Get(0).(*billing.LaborReport)
	return r, args.Error(1)
}

func (m *mockInvoiceService) RenderPDF(ctx context.Context, id uint) ([]byte, string, error) {
	args := m.Called(ctx, id)
	b, _ := args.Get(0).([]byte)
	return b, args.String(1), args.Error(2)
}

func (m *mockInvoiceService) SendByEmail(ctx context.Context, id uint, in billing.EmailInput) (*models.InvoiceDelivery, error) {
	args := m.Called(ctx, id, in)
	d, _ := args.Get(0).(*models.InvoiceDelivery)
	return d, args.Error(1)
}

type mockOrderService struct{ mock.Mock }

func orderResult(args mock.Arguments) (*models.Order, error) {
	o, _ := args.Get(0).(*models.Order)
	return o, args.Error(1)
}

func (m *mockOrderService) Create(ctx context.Context, in orders.CreateInput) (*models.Order, error) {
	return orderResult(m.Called(ctx, in))
}

func (m *mockOrderService) AddLine(ctx context.Context, orderID uint, item models.LineItem) (*models.Order, error) {
	return orderResult(m.Called(ctx, orderID, item))
}

func (m *mockOrderService) ReplaceLines(ctx context.Context, orderID uint, items []models.LineItem) (*models.Order, error) {
	return orderResult(m.Called(ctx, orderID, items))
}

func (m *mockOrderService) ReplaceLinesAsMechanic(ctx context.Context, orderID, mechanicID uint, items []models.LineItem) (*models.Order, error) {
	return orderResult(m.Called(ctx, orderID, mechanicID, items))
}

func (m *mockOrderService) ClearLines(ctx context.Context, orderID uint) (*models.Order, error) {
	return orderResult(m.Called(ctx, orderID))
}

func (m *mockOrderService) UpdateNotes(ctx context.Context, orderID uint, notes string) (*models.Order, error) {
	return orderResult(m.Called(ctx, orderID, notes))
}

func (m *mockOrderService) Transition(ctx context.Context, orderID uint, target models.OrderState) (*models.Order, error) {
	return orderResult(m.Called(ctx, orderID, target))
}

func (m *mockOrderService) Delete(ctx context.Context, orderID uint) error {
	return m.Called(ctx, orderID).Error(0)
}

func (m *mockOrderService) DeleteSecured(ctx context.Context, orderID uint, password string) error {
	return m.Called(ctx, orderID, password).Error(0)
}

func (m *mockOrderService) FindOne(ctx context.Context, orderID uint) (*models.Order, error) {
	return orderResult(m.Called(ctx, orderID))
}

func (m *mockOrderService) List(ctx context.Context, filter repository.OrderFilter) ([]models.Order, error) {
	args := m.Called(ctx, filter)
	list, _ := args.Get(0).([]models.Order)
	return list, args.Error(1)
}

func (m *mockOrderService) ListByMechanic(ctx context.Context, mechanicID uint) ([]models.Order, error) {
	args := m.Called(ctx, mechanicID)
	list, _ := args.Get(0).([]models.Order)
	return list, args.Error(1)
}

type mockAuthService struct{ mock.Mock }

func (m *mockAuthService) Login(ctx context.Context, username, password string) (*auth.Session, error) {
	args := m.Called(ctx, username, password)
	s, _ := args.Get(0).(*auth.Session)
	return s, args.Error(1)
}

func (m *mockAuthService) VerifyAdminPassword(ctx context.Context, password string) error {
	return m.Called(ctx, password).Error(0)
}

type mockCatalogService struct{ mock.Mock }

func (m *mockCatalogService) Available(ctx context.Context) (*catalog.Availability, error) {
	args := m.Called(ctx)
	a, _ := args.Get(0).(*catalog.Availability)
	return a, args.Error(1)
}
