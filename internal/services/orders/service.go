package orders

import (
	"context"

	"workshop-billing-backend/internal/apperrors"
	"workshop-billing-backend/internal/logger"
	"workshop-billing-backend/internal/models"
	"workshop-billing-backend/internal/repository"
	"workshop-billing-backend/internal/services/inventory"
	"workshop-billing-backend/internal/services/lines"

	"github.com/rs/zerolog"
)

type AdminVerifier interface {
	VerifyAdminPassword(ctx context.Context, password string) error
}

type CreateInput struct {
	ClientID   uint
	VehicleID  *uint
	MechanicID *uint
	Notes      string
	Lines      []models.LineItem
}

// Service runs repair orders. Order lines hold their product stock from the
// moment they are added until they are removed or the order is deleted.
type Service struct {
	store  repository.Store
	ledger *inventory.Ledger
	admin  AdminVerifier
	log    zerolog.Logger
}

func NewService(store repository.Store, ledger *inventory.Ledger, admin AdminVerifier) *Service {
	if ledger == nil {
		ledger = inventory.NewLedger()
	}
	return &Service{store: store, ledger: ledger, admin: admin, log: logger.WithComponent("orders")}
}

var detailRelations = []repository.Relation{
	repository.WithLines, repository.WithClient, repository.WithVehicle, repository.WithMechanic,
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Order, error) {
	const op = "orders.Create"

	var items []models.LineItem
	if len(in.Lines) > 0 {
		var err error
		if items, err = lines.Normalize(op, in.Lines); err != nil {
			return nil, err
		}
	}

	var order *models.Order
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if _, err := tx.Clients().Get(ctx, in.ClientID); err != nil {
			return err
		}
		if in.VehicleID != nil {
			v, err := tx.Vehicles().Get(ctx, *in.VehicleID)
			if err != nil {
				return err
			}
			if v.ClientID != in.ClientID {
				return apperrors.Validation(op, "vehicle %s does not belong to client %d", v.Plate, in.ClientID)
			}
		}
		if in.MechanicID != nil {
			if _, err := tx.Mechanics().Get(ctx, *in.MechanicID); err != nil {
				return err
			}
		}

		resolved, err := lines.Resolve(ctx, tx, op, items)
		if err != nil {
			return err
		}

		order = &models.Order{
			ClientID:   in.ClientID,
			VehicleID:  in.VehicleID,
			MechanicID: in.MechanicID,
			State:      models.OrderReceived,
			Total:      models.SumItems(resolved),
			Notes:      in.Notes,
			Lines:      models.NewOrderLines(0, resolved),
		}
		if err := tx.Orders().Create(ctx, order); err != nil {
			return err
		}
		return s.ledger.ReserveAll(ctx, tx, resolved, inventory.Ref{OrderID: &order.ID, Note: "order created"})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Uint("order_id", order.ID).Uint("client_id", order.ClientID).Msg("order created")
	return order, nil
}

// AddLine appends one line and reserves its product stock.
func (s *Service) AddLine(ctx context.Context, orderID uint, item models.LineItem) (*models.Order, error) {
	const op = "orders.AddLine"

	item, err := lines.NormalizeOne(op, 1, item)
	if err != nil {
		return nil, err
	}

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		order, err := s.editable(ctx, tx, op, orderID)
		if err != nil {
			return err
		}
		resolved, err := lines.Resolve(ctx, tx, op, []models.LineItem{item})
		if err != nil {
			return err
		}
		if err := s.ledger.ReserveAll(ctx, tx, resolved, inventory.Ref{OrderID: &order.ID, Note: "order line added"}); err != nil {
			return err
		}

		line := models.NewOrderLines(order.ID, resolved)[0]
		line.Position = len(order.Lines) + 1
		if err := tx.Orders().AddLine(ctx, &line); err != nil {
			return err
		}

		order.Total = models.SumItems(append(models.OrderItems(order.Lines), line.Item()))
		return tx.Orders().Update(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	return s.FindOne(ctx, orderID)
}

// ReplaceLines swaps the whole line set, moving stock by the per-product
// difference.
func (s *Service) ReplaceLines(ctx context.Context, orderID uint, items []models.LineItem) (*models.Order, error) {
	const op = "orders.ReplaceLines"

	normalized, err := lines.Normalize(op, items)
	if err != nil {
		return nil, err
	}

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		order, err := s.editable(ctx, tx, op, orderID)
		if err != nil {
			return err
		}
		resolved, err := lines.Resolve(ctx, tx, op, normalized)
		if err != nil {
			return err
		}
		return s.applyLines(ctx, tx, order, resolved, "order lines replaced")
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Uint("order_id", orderID).Int("lines", len(normalized)).Msg("order lines replaced")
	return s.FindOne(ctx, orderID)
}

// ReplaceLinesAsMechanic is the mechanic's restricted edit: only their own
// orders, no new services, and products at catalog name and price.
func (s *Service) ReplaceLinesAsMechanic(ctx context.Context, orderID, mechanicID uint, items []models.LineItem) (*models.Order, error) {
	const op = "orders.ReplaceLinesAsMechanic"

	normalized, err := lines.Normalize(op, items)
	if err != nil {
		return nil, err
	}

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		order, err := s.editable(ctx, tx, op, orderID)
		if err != nil {
			return err
		}
		if order.MechanicID == nil || *order.MechanicID != mechanicID {
			return apperrors.Forbidden(op, "order %d is not assigned to you", orderID)
		}

		onOrder := map[uint]bool{}
		for _, l := range order.Lines {
			if l.ServiceID != nil {
				onOrder[*l.ServiceID] = true
			}
		}

		for i, l := range normalized {
			switch {
			case l.ServiceID != nil:
				if !onOrder[*l.ServiceID] {
					return apperrors.Forbidden(op, "new services cannot be added")
				}
				sv, err := tx.Services().Get(ctx, *l.ServiceID)
				if err != nil {
					return err
				}
				l.Description, l.UnitPrice = sv.Name, sv.Price
			case l.ProductID != nil:
				p, err := tx.Products().Get(ctx, *l.ProductID)
				if err != nil {
					return err
				}
				if !l.UnitPrice.Equal(p.Price) {
					return apperrors.Forbidden(op, "product prices cannot be changed")
				}
				l.Description, l.UnitPrice = p.Name, p.Price
			}
			normalized[i] = l
		}

		resolved, err := lines.Resolve(ctx, tx, op, normalized)
		if err != nil {
			return err
		}
		return s.applyLines(ctx, tx, order, resolved, "order lines replaced by mechanic")
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Uint("order_id", orderID).Uint("mechanic_id", mechanicID).Msg("order lines replaced by mechanic")
	return s.FindOne(ctx, orderID)
}

// ClearLines removes every line and gives their stock back.
func (s *Service) ClearLines(ctx context.Context, orderID uint) (*models.Order, error) {
	const op = "orders.ClearLines"

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		order, err := s.editable(ctx, tx, op, orderID)
		if err != nil {
			return err
		}
		return s.applyLines(ctx, tx, order, nil, "order lines cleared")
	})
	if err != nil {
		return nil, err
	}
	return s.FindOne(ctx, orderID)
}

func (s *Service) UpdateNotes(ctx context.Context, orderID uint, notes string) (*models.Order, error) {
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		order, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		order.Notes = notes
		return tx.Orders().Update(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	return s.FindOne(ctx, orderID)
}

// Transition moves an order along the manual part of its lifecycle.
// Invoicing and un-invoicing belong to the invoice engine.
func (s *Service) Transition(ctx context.Context, orderID uint, target models.OrderState) (*models.Order, error) {
	const op = "orders.Transition"

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		order, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		trigger, ok := manualTrigger(order.State, target)
		if !ok {
			return apperrors.InvalidState(op, "order %d cannot be moved to %s by hand", orderID, target)
		}
		next, err := Next(order.State, trigger)
		if err != nil {
			return err
		}
		return tx.Orders().SetState(ctx, orderID, next)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Uint("order_id", orderID).Str("state", string(target)).Msg("order state changed")
	return s.FindOne(ctx, orderID)
}

// Delete removes an order that was never invoiced and returns its stock.
func (s *Service) Delete(ctx context.Context, orderID uint) error {
	const op = "orders.Delete"

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		order, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.State == models.OrderInvoiced {
			return apperrors.InvalidState(op, "order %d is invoiced and cannot be deleted", orderID)
		}
		ref := inventory.Ref{OrderID: &order.ID, Note: "order deleted"}
		if err := s.ledger.ReleaseAll(ctx, tx, models.OrderItems(order.Lines), ref); err != nil {
			return err
		}
		return tx.Orders().Delete(ctx, orderID)
	})
	if err != nil {
		return err
	}

	s.log.Info().Uint("order_id", orderID).Msg("order deleted")
	return nil
}

func (s *Service) DeleteSecured(ctx context.Context, orderID uint, password string) error {
	const op = "orders.DeleteSecured"

	if s.admin == nil {
		return apperrors.Forbidden(op, "administrative verification is not configured")
	}
	if password == "" {
		return apperrors.Unauthorized(op, "admin password is required")
	}
	if err := s.admin.VerifyAdminPassword(ctx, password); err != nil {
		return err
	}
	return s.Delete(ctx, orderID)
}

func (s *Service) FindOne(ctx context.Context, orderID uint) (*models.Order, error) {
	return s.store.Orders().Get(ctx, orderID, detailRelations...)
}

func (s *Service) List(ctx context.Context, filter repository.OrderFilter) ([]models.Order, error) {
	return s.store.Orders().List(ctx, filter, repository.WithClient, repository.WithVehicle, repository.WithMechanic)
}

func (s *Service) ListByMechanic(ctx context.Context, mechanicID uint) ([]models.Order, error) {
	return s.store.Orders().List(ctx, repository.OrderFilter{MechanicID: mechanicID}, detailRelations...)
}

// editable locks the order and rejects invoiced ones.
func (s *Service) editable(ctx context.Context, tx repository.Store, op string, orderID uint) (*models.Order, error) {
	order, err := tx.Orders().GetForUpdate(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.State == models.OrderInvoiced {
		return nil, apperrors.InvalidState(op, "order %d is invoiced, its lines are frozen", orderID)
	}
	return order, nil
}

func (s *Service) applyLines(ctx context.Context, tx repository.Store, order *models.Order, items []models.LineItem, note string) error {
	ref := inventory.Ref{OrderID: &order.ID, Note: note}
	if err := s.ledger.Reconcile(ctx, tx, models.OrderItems(order.Lines), items, ref); err != nil {
		return err
	}
	if err := tx.Orders().ReplaceLines(ctx, order.ID, models.NewOrderLines(order.ID, items)); err != nil {
		return err
	}
	order.Total = models.SumItems(items)
	return tx.Orders().Update(ctx, order)
}
