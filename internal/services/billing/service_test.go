package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"workshop-billing-backend/internal/apperrors"
	"workshop-billing-backend/internal/document"
	"workshop-billing-backend/internal/mailer"
	"workshop-billing-backend/internal/models"
	"workshop-billing-backend/internal/repository/repotest"
	"workshop-billing-backend/internal/services/inventory"
	"workshop-billing-backend/internal/services/tax"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var now = time.Date(2025, 6, 2, 15, 4, 5, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func uptr(v uint) *uint { return &v }

type mockAdmin struct{ mock.Mock }

func (m *mockAdmin) VerifyAdminPassword(ctx context.Context, password string) error {
	return m.Called(ctx, password).Error(0)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendInvoice(ctx context.Context, e mailer.InvoiceEmail) (string, error) {
	args := m.Called(ctx, e)
	return args.String(0), args.Error(1)
}

type env struct {
	ctx   context.Context
	store *repotest.Store
	svc   *Service
	admin *mockAdmin
	mail  *mockMailer
}

func newEnv() *env {
	store := repotest.New()
	store.SetClock(func() time.Time { return now })
	admin := &mockAdmin{}
	mail := &mockMailer{}
	svc := NewService(store, inventory.NewLedger(), tax.NewCalculator(nil), admin, mail, document.DefaultIssuer())
	svc.SetClock(func() time.Time { return now })
	return &env{ctx: context.Background(), store: store, svc: svc, admin: admin, mail: mail}
}

type orderFixture struct {
	client models.Client
	brakes models.Product
	filter models.Product
	order  models.Order
}

// seedDoneOrder stores order #5, finished, with two product lines worth
// 45.50 and 25.00.
func (e *env) seedDoneOrder() orderFixture {
	var f orderFixture
	f.client = e.store.AddClient(models.Client{Name: "Laura Gómez", Identification: "1020"})
	f.brakes = e.store.AddProduct(models.Product{Name: "Pastillas de freno", Price: d("45.50"), Stock: d("10")})
	f.filter = e.store.AddProduct(models.Product{Name: "Filtro de aire", Price: d("25.00"), Stock: d("10")})
	f.order = e.store.AddOrder(models.Order{
		ID:       5,
		ClientID: f.client.ID,
		State:    models.OrderDone,
		Total:    d("70.50"),
		Lines: []models.OrderLine{
			{Position: 1, Description: "Pastillas de freno", Quantity: d("1"), UnitPrice: d("45.50"), Category: models.CategoryProduct, ProductID: uptr(f.brakes.ID)},
			{Position: 2, Description: "Filtro de aire", Quantity: d("1"), UnitPrice: d("25.00"), Category: models.CategoryProduct, ProductID: uptr(f.filter.ID)},
		},
	})
	return f
}

func productLine(id uint, qty, price string) models.LineItem {
	return models.LineItem{Description: "Repuesto", Quantity: d(qty), UnitPrice: d(price), Category: models.CategoryProduct, ProductID: uptr(id)}
}

func orderState(t *testing.T, e *env, id uint) models.OrderState {
	t.Helper()
	o, ok := e.store.Order(id)
	require.True(t, ok)
	return o.State
}

func TestCreate_FromDoneOrder(t *testing.T) {
	e := newEnv()
	f := e.seedDoneOrder()

	inv, err := e.svc.Create(e.ctx, CreateInput{OrderID: 5, PaymentMethod: models.PaymentCash})
	require.NoError(t, err)

	assert.True(t, d("70.50").Equal(inv.Total), "total %s", inv.Total)
	assert.Equal(t, f.client.ID, inv.ClientID)
	assert.Equal(t, uint(5), *inv.OrderID)
	assert.Equal(t, models.StateUnpaid, inv.PaymentState)
	assert.Nil(t, inv.PaidAt)
	require.Len(t, inv.Lines, 2)
	assert.Equal(t, models.CategoryProduct, inv.Lines[0].Category)
	assert.Equal(t, "Filtro de aire", inv.Lines[1].Description)
	assert.Equal(t, models.OrderInvoiced, orderState(t, e, 5))

	// the order already holds the stock
	assert.True(t, d("10").Equal(e.store.Stock(f.brakes.ID)))
	assert.Empty(t, e.store.Movements())

	_, err = e.svc.Create(e.ctx, CreateInput{OrderID: 5, PaymentMethod: models.PaymentCash})
	assert.True(t, errors.Is(err, apperrors.ErrConflict), "got %v", err)
	assert.Equal(t, 1, e.store.InvoiceCount())
}

func TestCreate_PaidStampsPaidAt(t *testing.T) {
	e := newEnv()
	e.seedDoneOrder()

	inv, err := e.svc.Create(e.ctx, CreateInput{OrderID: 5, PaymentMethod: models.PaymentTransfer, PaymentState: models.StatePaid})
	require.NoError(t, err)
	require.NotNil(t, inv.PaidAt)
	assert.Equal(t, now, *inv.PaidAt)
}

func TestCreate_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		setup func(e *env) CreateInput
		kind  error
	}{
		{
			name: "missing order",
			setup: func(e *env) CreateInput {
				return CreateInput{OrderID: 99, PaymentMethod: models.PaymentCash}
			},
			kind: apperrors.ErrNotFound,
		},
		{
			name: "order still in progress",
			setup: func(e *env) CreateInput {
				c := e.store.AddClient(models.Client{Name: "Ana", Identification: "1"})
				o := e.store.AddOrder(models.Order{ClientID: c.ID, State: models.OrderInProgress, Lines: []models.OrderLine{
					{Description: "Revisión", Quantity: d("1"), UnitPrice: d("10"), Category: models.CategoryOther},
				}})
				return CreateInput{OrderID: o.ID, PaymentMethod: models.PaymentCash}
			},
			kind: apperrors.ErrInvalidState,
		},
		{
			name: "unknown payment method",
			setup: func(e *env) CreateInput {
				e.seedDoneOrder()
				return CreateInput{OrderID: 5, PaymentMethod: "BITCOIN"}
			},
			kind: apperrors.ErrValidation,
		},
		{
			name: "unknown mechanic",
			setup: func(e *env) CreateInput {
				e.seedDoneOrder()
				return CreateInput{OrderID: 5, PaymentMethod: models.PaymentCash, MechanicID: uptr(404)}
			},
			kind: apperrors.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv()
			in := tt.setup(e)

			_, err := e.svc.Create(e.ctx, in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)
			assert.Equal(t, 0, e.store.InvoiceCount())
		})
	}
}

func TestCreateIndependent_ServiceLineIsStoredUntaxed(t *testing.T) {
	e := newEnv()
	client := e.store.AddClient(models.Client{Name: "Carlos Ruiz", Identification: "88"})
	align := e.store.AddService(models.Service{Name: "Alineación", Price: d("45.50"), Active: true})

	inv, err := e.svc.CreateIndependent(e.ctx, IndependentInput{
		ClientID:      uptr(client.ID),
		PaymentMethod: models.PaymentCreditCard,
		Lines: []models.LineItem{
			{Quantity: d("1"), UnitPrice: d("45.50"), ServiceID: uptr(align.ID)},
		},
	})
	require.NoError(t, err)
	assert.True(t, d("45.50").Equal(inv.Total))
	assert.Nil(t, inv.OrderID)
	require.Len(t, inv.Lines, 1)
	assert.Equal(t, "Alineación", inv.Lines[0].Description)
	assert.Equal(t, models.CategoryService, inv.Lines[0].Category)

	view, _, err := e.svc.Document(e.ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, d("8.645").Equal(view.Breakdown.Tax), "tax %s", view.Breakdown.Tax)
	assert.True(t, d("54.145").Equal(view.Breakdown.ServicesTotal))
	assert.Equal(t, "Carlos Ruiz", view.Client.Name)
}

func TestCreateIndependent_NewClientAndVehicleReserveStock(t *testing.T) {
	e := newEnv()
	oil := e.store.AddProduct(models.Product{Name: "Aceite 20W50", Price: d("12.00"), Stock: d("10")})
	mech := e.store.AddMechanic(models.Mechanic{Name: "Pedro", Active: true})

	inv, err := e.svc.CreateIndependent(e.ctx, IndependentInput{
		NewClient:     &NewClient{Name: "María", Identification: "555"},
		NewVehicle:    &NewVehicle{Plate: " abc12d ", Brand: "Honda"},
		MechanicID:    uptr(mech.ID),
		PaymentMethod: models.PaymentCash,
		Lines:         []models.LineItem{productLine(oil.ID, "3", "12.00")},
	})
	require.NoError(t, err)

	assert.True(t, d("36").Equal(inv.Total))
	assert.True(t, d("7").Equal(e.store.Stock(oil.ID)))
	require.NotNil(t, inv.VehicleID)

	full, err := e.svc.FindOne(e.ctx, inv.ID)
	require.NoError(t, err)
	require.NotNil(t, full.Vehicle)
	assert.Equal(t, "ABC12D", full.Vehicle.Plate)
	assert.Equal(t, inv.ClientID, full.Vehicle.ClientID)
	assert.Equal(t, "María", full.Client.Name)
	assert.Equal(t, "Pedro", full.Mechanic.Name)

	moves := e.store.Movements()
	require.Len(t, moves, 1)
	assert.Equal(t, inv.ID, *moves[0].InvoiceID)
}

func TestCreateIndependent_InsufficientStockRollsBackEverything(t *testing.T) {
	e := newEnv()
	oil := e.store.AddProduct(models.Product{Name: "Aceite 20W50", Stock: d("10")})
	battery := e.store.AddProduct(models.Product{Name: "Batería 12V", Stock: d("1")})

	_, err := e.svc.CreateIndependent(e.ctx, IndependentInput{
		NewClient:     &NewClient{Name: "María", Identification: "555"},
		PaymentMethod: models.PaymentCash,
		Lines: []models.LineItem{
			productLine(oil.ID, "2", "12.00"),
			productLine(battery.ID, "2", "80.00"),
		},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInsufficientStock))
	assert.Contains(t, apperrors.Message(err), "Batería 12V")

	assert.Equal(t, 0, e.store.InvoiceCount())
	assert.True(t, d("10").Equal(e.store.Stock(oil.ID)))
	assert.True(t, d("1").Equal(e.store.Stock(battery.ID)))
	assert.Empty(t, e.store.Movements())

	// the client created inside the failed transaction is gone, so the
	// same identification can be used again
	_, err = e.svc.CreateIndependent(e.ctx, IndependentInput{
		NewClient:     &NewClient{Name: "María", Identification: "555"},
		PaymentMethod: models.PaymentCash,
		Lines:         []models.LineItem{productLine(oil.ID, "2", "12.00")},
	})
	require.NoError(t, err)
}

func TestCreateIndependent_Rejections(t *testing.T) {
	line := models.LineItem{Description: "Mano de obra", Quantity: d("1"), UnitPrice: d("20"), Category: models.CategoryOther}

	tests := []struct {
		name  string
		setup func(e *env) IndependentInput
		kind  error
	}{
		{
			name: "no client",
			setup: func(e *env) IndependentInput {
				return IndependentInput{PaymentMethod: models.PaymentCash, Lines: []models.LineItem{line}}
			},
			kind: apperrors.ErrValidation,
		},
		{
			name: "both client forms",
			setup: func(e *env) IndependentInput {
				c := e.store.AddClient(models.Client{Name: "Ana", Identification: "1"})
				return IndependentInput{ClientID: uptr(c.ID), NewClient: &NewClient{Name: "B", Identification: "2"}, PaymentMethod: models.PaymentCash, Lines: []models.LineItem{line}}
			},
			kind: apperrors.ErrValidation,
		},
		{
			name: "missing client",
			setup: func(e *env) IndependentInput {
				return IndependentInput{ClientID: uptr(77), PaymentMethod: models.PaymentCash, Lines: []models.LineItem{line}}
			},
			kind: apperrors.ErrNotFound,
		},
		{
			name: "vehicle of another client",
			setup: func(e *env) IndependentInput {
				a := e.store.AddClient(models.Client{Name: "Ana", Identification: "1"})
				b := e.store.AddClient(models.Client{Name: "Beto", Identification: "2"})
				v := e.store.AddVehicle(models.Vehicle{ClientID: b.ID, Plate: "XYZ123"})
				return IndependentInput{ClientID: uptr(a.ID), VehicleID: uptr(v.ID), PaymentMethod: models.PaymentCash, Lines: []models.LineItem{line}}
			},
			kind: apperrors.ErrValidation,
		},
		{
			name: "plate already registered",
			setup: func(e *env) IndependentInput {
				a := e.store.AddClient(models.Client{Name: "Ana", Identification: "1"})
				e.store.AddVehicle(models.Vehicle{ClientID: a.ID, Plate: "XYZ123"})
				return IndependentInput{ClientID: uptr(a.ID), NewVehicle: &NewVehicle{Plate: "xyz123"}, PaymentMethod: models.PaymentCash, Lines: []models.LineItem{line}}
			},
			kind: apperrors.ErrValidation,
		},
		{
			name: "duplicate identification",
			setup: func(e *env) IndependentInput {
				e.store.AddClient(models.Client{Name: "Ana", Identification: "1"})
				return IndependentInput{NewClient: &NewClient{Name: "Ana bis", Identification: "1"}, PaymentMethod: models.PaymentCash, Lines: []models.LineItem{line}}
			},
			kind: apperrors.ErrConflict,
		},
		{
			name: "inactive service",
			setup: func(e *env) IndependentInput {
				c := e.store.AddClient(models.Client{Name: "Ana", Identification: "1"})
				sv := e.store.AddService(models.Service{Name: "Pintura", Active: false})
				return IndependentInput{ClientID: uptr(c.ID), PaymentMethod: models.PaymentCash, Lines: []models.LineItem{
					{Quantity: d("1"), UnitPrice: d("10"), ServiceID: uptr(sv.ID)},
				}}
			},
			kind: apperrors.ErrValidation,
		},
		{
			name: "no lines",
			setup: func(e *env) IndependentInput {
				c := e.store.AddClient(models.Client{Name: "Ana", Identification: "1"})
				return IndependentInput{ClientID: uptr(c.ID), PaymentMethod: models.PaymentCash}
			},
			kind: apperrors.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv()
			in := tt.setup(e)

			_, err := e.svc.CreateIndependent(e.ctx, in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)
			assert.Equal(t, 0, e.store.InvoiceCount())
		})
	}
}

// seedUnpaidInvoice stores an independent invoice holding qty units of a
// product whose remaining stock is 10.
func (e *env) seedUnpaidInvoice(qty string) (models.Invoice, models.Product) {
	c := e.store.AddClient(models.Client{Name: "Ana", Identification: "1"})
	p := e.store.AddProduct(models.Product{Name: "Bujía", Price: d("8.00"), Stock: d("10")})
	inv := e.store.AddInvoice(models.Invoice{
		ClientID:      c.ID,
		Total:         d(qty).Mul(d("8")),
		PaymentMethod: models.PaymentCash,
		PaymentState:  models.StateUnpaid,
		Lines: []models.InvoiceLine{
			{Position: 1, Description: "Bujía", Quantity: d(qty), UnitPrice: d("8.00"), Category: models.CategoryProduct, ProductID: uptr(p.ID)},
		},
	})
	return inv, p
}

func TestEdit_ReconcilesStockBothWays(t *testing.T) {
	e := newEnv()
	inv, p := e.seedUnpaidInvoice("2")

	edited, err := e.svc.Edit(e.ctx, inv.ID, EditInput{ReplaceLines: true, Lines: []models.LineItem{productLine(p.ID, "5", "8.00")}})
	require.NoError(t, err)
	assert.True(t, d("7").Equal(e.store.Stock(p.ID)), "stock %s", e.store.Stock(p.ID))
	assert.True(t, d("40").Equal(edited.Total))
	require.Len(t, edited.Lines, 1)
	assert.True(t, d("5").Equal(edited.Lines[0].Quantity))

	edited, err = e.svc.Edit(e.ctx, inv.ID, EditInput{ReplaceLines: true, Lines: []models.LineItem{productLine(p.ID, "2", "8.00")}})
	require.NoError(t, err)
	assert.True(t, d("10").Equal(e.store.Stock(p.ID)))
	assert.True(t, d("16").Equal(edited.Total))
}

func TestEdit_DroppedProductReturnsToStock(t *testing.T) {
	e := newEnv()
	inv, p := e.seedUnpaidInvoice("4")

	labor := models.LineItem{Description: "Mano de obra", Quantity: d("1"), UnitPrice: d("30")}
	edited, err := e.svc.Edit(e.ctx, inv.ID, EditInput{ReplaceLines: true, Lines: []models.LineItem{labor}})
	require.NoError(t, err)

	assert.True(t, d("14").Equal(e.store.Stock(p.ID)))
	assert.True(t, d("30").Equal(edited.Total))
	assert.Empty(t, edited.Lines[0].Category)
}

func TestEdit_FieldsOnlyLeavesLines(t *testing.T) {
	e := newEnv()
	inv, p := e.seedUnpaidInvoice("2")
	method := models.PaymentDebitCard
	notes := "cliente frecuente"

	edited, err := e.svc.Edit(e.ctx, inv.ID, EditInput{PaymentMethod: &method, Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentDebitCard, edited.PaymentMethod)
	assert.Equal(t, notes, edited.Notes)
	require.Len(t, edited.Lines, 1)
	assert.True(t, d("16").Equal(edited.Total))
	assert.True(t, d("10").Equal(e.store.Stock(p.ID)))
}

func TestEdit_FailuresLeaveInvoiceAndStockUntouched(t *testing.T) {
	tests := []struct {
		name  string
		paid  bool
		lines func(p models.Product) []models.LineItem
		kind  error
	}{
		{
			name:  "paid invoice",
			paid:  true,
			lines: func(p models.Product) []models.LineItem { return []models.LineItem{productLine(p.ID, "5", "8")} },
			kind:  apperrors.ErrInvalidState,
		},
		{
			name:  "not enough stock",
			lines: func(p models.Product) []models.LineItem { return []models.LineItem{productLine(p.ID, "20", "8")} },
			kind:  apperrors.ErrInsufficientStock,
		},
		{
			name: "missing service",
			lines: func(p models.Product) []models.LineItem {
				return []models.LineItem{productLine(p.ID, "5", "8"), {Quantity: d("1"), UnitPrice: d("1"), ServiceID: uptr(999)}}
			},
			kind: apperrors.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv()
			inv, p := e.seedUnpaidInvoice("2")
			if tt.paid {
				_, err := e.svc.Pay(e.ctx, inv.ID, nil)
				require.NoError(t, err)
			}

			_, err := e.svc.Edit(e.ctx, inv.ID, EditInput{ReplaceLines: true, Lines: tt.lines(p)})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)

			stored, ok := e.store.Invoice(inv.ID)
			require.True(t, ok)
			require.Len(t, stored.Lines, 1)
			assert.True(t, d("2").Equal(stored.Lines[0].Quantity))
			assert.True(t, d("16").Equal(stored.Total))
			assert.True(t, d("10").Equal(e.store.Stock(p.ID)))
			assert.Empty(t, e.store.Movements())
		})
	}
}

func TestEdit_PaidMessage(t *testing.T) {
	e := newEnv()
	inv, _ := e.seedUnpaidInvoice("1")
	_, err := e.svc.Pay(e.ctx, inv.ID, nil)
	require.NoError(t, err)

	_, err = e.svc.Edit(e.ctx, inv.ID, EditInput{})
	assert.Equal(t, "cannot edit a paid invoice", apperrors.Message(err))
}

func TestSetPaymentState(t *testing.T) {
	e := newEnv()
	inv, _ := e.seedUnpaidInvoice("1")
	paidAt := time.Date(2025, 5, 30, 9, 0, 0, 0, time.UTC)

	got, err := e.svc.Pay(e.ctx, inv.ID, &paidAt)
	require.NoError(t, err)
	assert.Equal(t, models.StatePaid, got.PaymentState)
	assert.Equal(t, paidAt, *got.PaidAt)

	// unchanged state is a no-op and keeps the first stamp
	got, err = e.svc.Pay(e.ctx, inv.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, paidAt, *got.PaidAt)

	got, err = e.svc.Unpay(e.ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateUnpaid, got.PaymentState)
	assert.Nil(t, got.PaidAt)

	got, err = e.svc.SetPaymentState(e.ctx, inv.ID, models.StatePaid, nil)
	require.NoError(t, err)
	assert.Equal(t, now, *got.PaidAt)

	_, err = e.svc.SetPaymentState(e.ctx, inv.ID, "REFUNDED", nil)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestSoftDeleteAndRestore_OrderLinked(t *testing.T) {
	e := newEnv()
	f := e.seedDoneOrder()
	inv, err := e.svc.Create(e.ctx, CreateInput{OrderID: 5, PaymentMethod: models.PaymentCash})
	require.NoError(t, err)

	require.NoError(t, e.svc.SoftDelete(e.ctx, inv.ID))

	stored, ok := e.store.Invoice(inv.ID)
	require.True(t, ok)
	assert.True(t, stored.DeletedAt.Valid)
	assert.Equal(t, models.OrderDone, orderState(t, e, 5))
	_, err = e.svc.FindOne(e.ctx, inv.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	restored, err := e.svc.Restore(e.ctx, inv.ID)
	require.NoError(t, err)
	assert.False(t, restored.IsDeleted())
	assert.Equal(t, models.OrderInvoiced, orderState(t, e, 5))

	assert.True(t, d("10").Equal(e.store.Stock(f.brakes.ID)))
	assert.True(t, d("10").Equal(e.store.Stock(f.filter.ID)))
	assert.Empty(t, e.store.Movements())
}

func TestSoftDelete_OrderLinkedReturnsExtraStock(t *testing.T) {
	e := newEnv()
	f := e.seedDoneOrder()
	inv, err := e.svc.Create(e.ctx, CreateInput{OrderID: 5, PaymentMethod: models.PaymentCash})
	require.NoError(t, err)

	// one more brake set than the order carries
	_, err = e.svc.Edit(e.ctx, inv.ID, EditInput{ReplaceLines: true, Lines: []models.LineItem{
		productLine(f.brakes.ID, "2", "45.50"),
		productLine(f.filter.ID, "1", "25.00"),
	}})
	require.NoError(t, err)
	assert.True(t, d("9").Equal(e.store.Stock(f.brakes.ID)))

	require.NoError(t, e.svc.SoftDelete(e.ctx, inv.ID))
	assert.True(t, d("10").Equal(e.store.Stock(f.brakes.ID)))

	_, err = e.svc.Restore(e.ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, d("9").Equal(e.store.Stock(f.brakes.ID)))
}

func TestSoftDeleteAndRestore_IndependentMovesStock(t *testing.T) {
	e := newEnv()
	client := e.store.AddClient(models.Client{Name: "Ana", Identification: "1"})
	p := e.store.AddProduct(models.Product{Name: "Cadena", Stock: d("10")})

	inv, err := e.svc.CreateIndependent(e.ctx, IndependentInput{
		ClientID:      uptr(client.ID),
		PaymentMethod: models.PaymentCash,
		Lines:         []models.LineItem{productLine(p.ID, "3", "60")},
	})
	require.NoError(t, err)
	assert.True(t, d("7").Equal(e.store.Stock(p.ID)))

	require.NoError(t, e.svc.SoftDelete(e.ctx, inv.ID))
	assert.True(t, d("10").Equal(e.store.Stock(p.ID)))

	_, err = e.svc.Restore(e.ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, d("7").Equal(e.store.Stock(p.ID)))

	require.NoError(t, e.svc.SoftDelete(e.ctx, inv.ID))
	e.store.SetStock(p.ID, d("1"))

	_, err = e.svc.Restore(e.ctx, inv.ID)
	assert.True(t, errors.Is(err, apperrors.ErrInsufficientStock), "got %v", err)
	stored, _ := e.store.Invoice(inv.ID)
	assert.True(t, stored.DeletedAt.Valid)
	assert.True(t, d("1").Equal(e.store.Stock(p.ID)))
}

func TestSoftDelete_PaidIsForbidden(t *testing.T) {
	e := newEnv()
	inv, p := e.seedUnpaidInvoice("2")
	_, err := e.svc.Pay(e.ctx, inv.ID, nil)
	require.NoError(t, err)

	err = e.svc.SoftDelete(e.ctx, inv.ID)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden), "got %v", err)

	stored, _ := e.store.Invoice(inv.ID)
	assert.False(t, stored.DeletedAt.Valid)
	assert.True(t, d("10").Equal(e.store.Stock(p.ID)))
}

func TestSoftDelete_Missing(t *testing.T) {
	e := newEnv()
	err := e.svc.SoftDelete(e.ctx, 42)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestRestore_Rejections(t *testing.T) {
	t.Run("not deleted", func(t *testing.T) {
		e := newEnv()
		inv, _ := e.seedUnpaidInvoice("1")
		_, err := e.svc.Restore(e.ctx, inv.ID)
		assert.True(t, errors.Is(err, apperrors.ErrInvalidState))
	})

	t.Run("order invoiced again", func(t *testing.T) {
		e := newEnv()
		e.seedDoneOrder()
		first, err := e.svc.Create(e.ctx, CreateInput{OrderID: 5, PaymentMethod: models.PaymentCash})
		require.NoError(t, err)
		require.NoError(t, e.svc.SoftDelete(e.ctx, first.ID))

		_, err = e.svc.Create(e.ctx, CreateInput{OrderID: 5, PaymentMethod: models.PaymentCheck})
		require.NoError(t, err)

		_, err = e.svc.Restore(e.ctx, first.ID)
		assert.True(t, errors.Is(err, apperrors.ErrConflict), "got %v", err)
		assert.Equal(t, models.OrderInvoiced, orderState(t, e, 5))
	})

	t.Run("order reopened", func(t *testing.T) {
		e := newEnv()
		e.seedDoneOrder()
		inv, err := e.svc.Create(e.ctx, CreateInput{OrderID: 5, PaymentMethod: models.PaymentCash})
		require.NoError(t, err)
		require.NoError(t, e.svc.SoftDelete(e.ctx, inv.ID))
		require.NoError(t, e.store.Orders().SetState(e.ctx, 5, models.OrderInProgress))

		_, err = e.svc.Restore(e.ctx, inv.ID)
		assert.True(t, errors.Is(err, apperrors.ErrInvalidState), "got %v", err)
	})
}

func TestSoftDeleteSecured(t *testing.T) {
	e := newEnv()
	inv, _ := e.seedUnpaidInvoice("1")
	e.admin.On("VerifyAdminPassword", mock.Anything, "wrong").
		Return(apperrors.Unauthorized("auth", "invalid admin password"))
	e.admin.On("VerifyAdminPassword", mock.Anything, "s3cret").Return(nil)

	err := e.svc.SoftDeleteSecured(e.ctx, inv.ID, "wrong")
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
	stored, _ := e.store.Invoice(inv.ID)
	assert.False(t, stored.DeletedAt.Valid)

	err = e.svc.SoftDeleteSecured(e.ctx, inv.ID, "")
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))

	require.NoError(t, e.svc.SoftDeleteSecured(e.ctx, inv.ID, "s3cret"))
	stored, _ = e.store.Invoice(inv.ID)
	assert.True(t, stored.DeletedAt.Valid)
	e.admin.AssertExpectations(t)
}

func TestValidatePasswordForAction(t *testing.T) {
	e := newEnv()
	unpaid, _ := e.seedUnpaidInvoice("1")
	paid := e.store.AddInvoice(models.Invoice{ClientID: unpaid.ClientID, PaymentMethod: models.PaymentCash, PaymentState: models.StatePaid})
	e.admin.On("VerifyAdminPassword", mock.Anything, "s3cret").Return(nil)

	assert.NoError(t, e.svc.ValidatePasswordForAction(e.ctx, unpaid.ID, "s3cret", ActionEdit))
	assert.NoError(t, e.svc.ValidatePasswordForAction(e.ctx, unpaid.ID, "s3cret", ActionDelete))

	err := e.svc.ValidatePasswordForAction(e.ctx, paid.ID, "s3cret", ActionEdit)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))
	err = e.svc.ValidatePasswordForAction(e.ctx, paid.ID, "s3cret", ActionDelete)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))

	err = e.svc.ValidatePasswordForAction(e.ctx, unpaid.ID, "s3cret", "ARCHIVE")
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	err = e.svc.ValidatePasswordForAction(e.ctx, 404, "s3cret", ActionEdit)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestVerifyEditable(t *testing.T) {
	e := newEnv()
	inv, _ := e.seedUnpaidInvoice("1")

	got, err := e.svc.VerifyEditable(e.ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, got.Editable)

	_, err = e.svc.Pay(e.ctx, inv.ID, nil)
	require.NoError(t, err)
	got, err = e.svc.VerifyEditable(e.ctx, inv.ID)
	require.NoError(t, err)
	assert.False(t, got.Editable)
	assert.NotEmpty(t, got.Reason)
}

func TestStats(t *testing.T) {
	e := newEnv()
	c := e.store.AddClient(models.Client{Name: "Ana", Identification: "1"})
	add := func(total string, state models.PaymentState, deleted bool) {
		inv := models.Invoice{ClientID: c.ID, Total: d(total), PaymentMethod: models.PaymentCash, PaymentState: state}
		if deleted {
			inv.DeletedAt = gorm.DeletedAt{Time: now, Valid: true}
		}
		e.store.AddInvoice(inv)
	}
	add("100", models.StatePaid, false)
	add("50", models.StateUnpaid, false)
	add("25.50", models.StateUnpaid, false)
	add("999", models.StatePaid, true)

	st, err := e.svc.Stats(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.Total)
	assert.Equal(t, int64(1), st.Paid)
	assert.Equal(t, int64(2), st.Unpaid)
	assert.True(t, d("33.33").Equal(st.PaidPercent), "percent %s", st.PaidPercent)
	assert.True(t, d("100").Equal(st.Collected))
	assert.True(t, d("75.50").Equal(st.Pending))
}

func TestStats_Empty(t *testing.T) {
	e := newEnv()
	st, err := e.svc.Stats(e.ctx)
	require.NoError(t, err)
	assert.Zero(t, st.Total)
	assert.True(t, st.PaidPercent.IsZero())
}

func TestLaborReport(t *testing.T) {
	e := newEnv()
	c := e.store.AddClient(models.Client{Name: "Ana", Identification: "1"})
	mech := e.store.AddMechanic(models.Mechanic{Name: "Pedro", Active: true})
	other := e.store.AddMechanic(models.Mechanic{Name: "Luis", Active: true})
	oil := e.store.AddService(models.Service{Name: "Cambio de aceite", Price: d("20"), Active: true})
	wash := e.store.AddService(models.Service{Name: "Lavado", Price: d("5"), Active: true})

	add := func(mechanicID uint, at time.Time, serviceID uint, qty, price string) {
		e.store.AddInvoice(models.Invoice{
			ClientID:      c.ID,
			MechanicID:    uptr(mechanicID),
			PaymentMethod: models.PaymentCash,
			PaymentState:  models.StateUnpaid,
			CreatedAt:     at,
			Lines: []models.InvoiceLine{
				{Description: "svc", Quantity: d(qty), UnitPrice: d(price), Category: models.CategoryService, ServiceID: uptr(serviceID)},
			},
		})
	}
	add(mech.ID, time.Date(2025, 5, 2, 10, 0, 0, 0, time.UTC), oil.ID, "1", "20")
	add(mech.ID, time.Date(2025, 5, 31, 22, 0, 0, 0, time.UTC), oil.ID, "2", "18.50")
	add(mech.ID, time.Date(2025, 5, 10, 10, 0, 0, 0, time.UTC), wash.ID, "1", "5")
	add(mech.ID, time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC), oil.ID, "1", "20")
	add(other.ID, time.Date(2025, 5, 15, 10, 0, 0, 0, time.UTC), oil.ID, "1", "20")

	report, err := e.svc.LaborReport(e.ctx, LaborQuery{
		MechanicID:  mech.ID,
		From:        time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		To:          time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC),
		ServiceName: "aceite",
	})
	require.NoError(t, err)

	assert.Equal(t, "Pedro", report.Mechanic.Name)
	assert.Equal(t, oil.ID, report.Service.ID)
	assert.Equal(t, 2, report.Count)
	assert.True(t, d("57").Equal(report.TotalBilled), "billed %s", report.TotalBilled)
	assert.Equal(t, "Ana", report.Entries[0].ClientName)
}

func TestLaborReport_Rejections(t *testing.T) {
	e := newEnv()
	from := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	_, err := e.svc.LaborReport(e.ctx, LaborQuery{ServiceName: "aceite", From: from, To: to})
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	_, err = e.svc.LaborReport(e.ctx, LaborQuery{MechanicID: 1, ServiceName: "aceite", From: to, To: from})
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	_, err = e.svc.LaborReport(e.ctx, LaborQuery{MechanicID: 1, ServiceName: "aceite", From: from, To: to})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}
