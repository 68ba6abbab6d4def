package repository

import (
	"context"
	"errors"
	"fmt"

	"workshop-billing-backend/internal/apperrors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements Store on top of a gorm handle. Inside Transaction the
// handle is the transaction itself, so every repository shares it.
type GormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) DB() *gorm.DB {
	return s.db
}

func (s *GormStore) Invoices() InvoiceStore             { return NewInvoiceRepository(s.db) }
func (s *GormStore) Orders() OrderStore                 { return NewOrderRepository(s.db) }
func (s *GormStore) Products() ProductStore             { return NewProductRepository(s.db) }
func (s *GormStore) Services() ServiceStore             { return NewServiceRepository(s.db) }
func (s *GormStore) Clients() ClientStore               { return NewClientRepository(s.db) }
func (s *GormStore) Vehicles() VehicleStore             { return NewVehicleRepository(s.db) }
func (s *GormStore) Mechanics() MechanicStore           { return NewMechanicRepository(s.db) }
func (s *GormStore) Users() UserStore                   { return NewUserRepository(s.db) }
func (s *GormStore) StockMovements() StockMovementStore { return NewStockMovementRepository(s.db) }
func (s *GormStore) Deliveries() DeliveryStore          { return NewDeliveryRepository(s.db) }
func (s *GormStore) DiagnosticRuns() DiagnosticRunStore { return NewDiagnosticRunRepository(s.db) }

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

var forUpdate = clause.Locking{Strength: "UPDATE"}

func preload(db *gorm.DB, rels []Relation) *gorm.DB {
	for _, rel := range rels {
		if rel == WithLines {
			db = db.Preload("Lines", func(db *gorm.DB) *gorm.DB {
				return db.Order("position ASC, id ASC")
			})
			continue
		}
		db = db.Preload(string(rel))
	}
	return db
}

// translate maps driver errors onto the application error kinds.
func translate(op, entity string, id interface{}, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.NotFound(op, "%s %v not found", entity, id)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &apperrors.Error{Kind: apperrors.ErrConflict, Op: op, Message: entity + " already exists", Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
