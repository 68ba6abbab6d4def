package repository

import (
	"context"
	"time"

	"workshop-billing-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Relation names a association a caller wants loaded. Nothing is loaded
// unless asked for.
type Relation string

const (
	WithLines        Relation = "Lines"
	WithClient       Relation = "Client"
	WithVehicle      Relation = "Vehicle"
	WithMechanic     Relation = "Mechanic"
	WithOrder        Relation = "Order"
	WithOrderVehicle Relation = "Order.Vehicle"
)

// DocumentRelations is everything the invoice renderer reads.
var DocumentRelations = []Relation{WithLines, WithClient, WithVehicle, WithMechanic, WithOrder, WithOrderVehicle}

// Store is the unit of work the engines run against. Transaction hands fn a
// Store bound to a single database transaction that is rolled back when fn
// returns an error or panics.
type Store interface {
	Invoices() InvoiceStore
	Orders() OrderStore
	Products() ProductStore
	Services() ServiceStore
	Clients() ClientStore
	Vehicles() VehicleStore
	Mechanics() MechanicStore
	Users() UserStore
	StockMovements() StockMovementStore
	Deliveries() DeliveryStore
	DiagnosticRuns() DiagnosticRunStore
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type InvoiceFilter struct {
	State      models.PaymentState
	ClientID   uint
	MechanicID uint
	From       *time.Time
	To         *time.Time
}

type StateTotal struct {
	State models.PaymentState
	Count int64
	Sum   decimal.Decimal
}

type InvoiceStore interface {
	Get(ctx context.Context, id uint, rels ...Relation) (*models.Invoice, error)
	// GetForUpdate locks the live invoice row and loads its lines.
	GetForUpdate(ctx context.Context, id uint) (*models.Invoice, error)
	// GetWithDeleted ignores the soft-delete scope and loads lines.
	GetWithDeleted(ctx context.Context, id uint) (*models.Invoice, error)
	ActiveForOrder(ctx context.Context, orderID uint, excludeID uint) (bool, error)
	Create(ctx context.Context, inv *models.Invoice) error
	Update(ctx context.Context, inv *models.Invoice) error
	ReplaceLines(ctx context.Context, invoiceID uint, lines []models.InvoiceLine) error
	SoftDelete(ctx context.Context, id uint) error
	Restore(ctx context.Context, id uint) error
	List(ctx context.Context, filter InvoiceFilter, rels ...Relation) ([]models.Invoice, error)
	TotalsByState(ctx context.Context) ([]StateTotal, error)
}

type OrderFilter struct {
	State      models.OrderState
	ClientID   uint
	MechanicID uint
}

type OrderStore interface {
	Get(ctx context.Context, id uint, rels ...Relation) (*models.Order, error)
	GetForUpdate(ctx context.Context, id uint) (*models.Order, error)
	Create(ctx context.Context, o *models.Order) error
	Update(ctx context.Context, o *models.Order) error
	SetState(ctx context.Context, id uint, state models.OrderState) error
	AddLine(ctx context.Context, line *models.OrderLine) error
	ReplaceLines(ctx context.Context, orderID uint, lines []models.OrderLine) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filter OrderFilter, rels ...Relation) ([]models.Order, error)
}

type ProductFilter struct {
	InStock       bool
	NegativeStock bool
}

type ProductStore interface {
	Get(ctx context.Context, id uint) (*models.Product, error)
	GetForUpdate(ctx context.Context, id uint) (*models.Product, error)
	AdjustStock(ctx context.Context, id uint, delta decimal.Decimal) error
	List(ctx context.Context, filter ProductFilter) ([]models.Product, error)
}

type ServiceStore interface {
	Get(ctx context.Context, id uint) (*models.Service, error)
	FindActiveByName(ctx context.Context, name string) (*models.Service, error)
	ListActive(ctx context.Context) ([]models.Service, error)
}

type ClientStore interface {
	Get(ctx context.Context, id uint) (*models.Client, error)
	Create(ctx context.Context, c *models.Client) error
}

type VehicleStore interface {
	Get(ctx context.Context, id uint) (*models.Vehicle, error)
	PlateExists(ctx context.Context, plate string) (bool, error)
	Create(ctx context.Context, v *models.Vehicle) error
}

type MechanicStore interface {
	Get(ctx context.Context, id uint) (*models.Mechanic, error)
	FindByUserID(ctx context.Context, userID uint) (*models.Mechanic, error)
}

type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

type StockMovementStore interface {
	Create(ctx context.Context, m *models.StockMovement) error
}

type DeliveryStore interface {
	Create(ctx context.Context, d *models.InvoiceDelivery) error
	ListByInvoice(ctx context.Context, invoiceID uint) ([]models.InvoiceDelivery, error)
}

type DiagnosticRunStore interface {
	Create(ctx context.Context, run *models.DiagnosticRun) error
	Update(ctx context.Context, run *models.DiagnosticRun) error
	Get(ctx context.Context, id uuid.UUID) (*models.DiagnosticRun, error)
}
