// Package billing owns the invoice lifecycle: creation from an order or from
// scratch, editing with stock reconciliation, payment state, soft deletion
// and restore. Every mutation runs inside one store transaction.
package billing

import (
	"context"
	"errors"
	"time"

	"workshop-billing-backend/internal/apperrors"
	"workshop-billing-backend/internal/document"
	"workshop-billing-backend/internal/logger"
	"workshop-billing-backend/internal/mailer"
	"workshop-billing-backend/internal/models"
	"workshop-billing-backend/internal/repository"
	"workshop-billing-backend/internal/services/inventory"
	"workshop-billing-backend/internal/services/lines"
	"workshop-billing-backend/internal/services/orders"
	"workshop-billing-backend/internal/services/tax"

	"github.com/rs/zerolog"
)

// AdminVerifier checks the administrative password used by guarded actions.
type AdminVerifier interface {
	VerifyAdminPassword(ctx context.Context, password string) error
}

type Mailer interface {
	SendInvoice(ctx context.Context, e mailer.InvoiceEmail) (string, error)
}

type Service struct {
	store  repository.Store
	ledger *inventory.Ledger
	calc   *tax.Calculator
	admin  AdminVerifier
	mailer Mailer
	issuer document.Issuer
	now    func() time.Time
	log    zerolog.Logger
}

func NewService(
	store repository.Store,
	ledger *inventory.Ledger,
	calc *tax.Calculator,
	admin AdminVerifier,
	mail Mailer,
	issuer document.Issuer,
) *Service {
	if calc == nil {
		calc = tax.NewCalculator(nil)
	}
	if ledger == nil {
		ledger = inventory.NewLedger()
	}
	return &Service{
		store:  store,
		ledger: ledger,
		calc:   calc,
		admin:  admin,
		mailer: mail,
		issuer: issuer,
		now:    time.Now,
		log:    logger.WithComponent("billing"),
	}
}

// SetClock replaces the clock used for paid-at stamps.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Create bills a finished order. The invoice copies the order's lines and the
// order moves to INVOICED. Stock is untouched: the order already holds it.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Invoice, error) {
	const op = "billing.Create"

	if err := validateMethod(op, in.PaymentMethod); err != nil {
		return nil, err
	}
	state, err := normalizeState(op, in.PaymentState)
	if err != nil {
		return nil, err
	}

	var inv *models.Invoice
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		order, err := tx.Orders().GetForUpdate(ctx, in.OrderID)
		if err != nil {
			return err
		}

		exists, err := tx.Invoices().ActiveForOrder(ctx, order.ID, 0)
		if err != nil {
			return err
		}
		if exists {
			return apperrors.Conflict(op, "order %d already has an invoice", order.ID)
		}
		if order.State != models.OrderDone {
			return apperrors.InvalidState(op, "order %d is %s, only DONE orders can be invoiced", order.ID, order.State)
		}
		if len(order.Lines) == 0 {
			return apperrors.InvalidState(op, "order %d has no lines to invoice", order.ID)
		}

		mechanicID := order.MechanicID
		if in.MechanicID != nil {
			if _, err := tx.Mechanics().Get(ctx, *in.MechanicID); err != nil {
				return err
			}
			mechanicID = in.MechanicID
		}

		items := models.OrderItems(order.Lines)
		orderID := order.ID
		inv = &models.Invoice{
			ClientID:      order.ClientID,
			OrderID:       &orderID,
			MechanicID:    mechanicID,
			VehicleID:     order.VehicleID,
			Total:         models.SumItems(items),
			PaymentMethod: in.PaymentMethod,
			PaymentState:  state,
			PaidAt:        s.paidAt(state, nil),
			Notes:         in.Notes,
			Lines:         models.NewInvoiceLines(items),
		}
		if err := tx.Invoices().Create(ctx, inv); err != nil {
			return err
		}

		next, err := orders.Next(order.State, orders.TriggerInvoice)
		if err != nil {
			return err
		}
		return tx.Orders().SetState(ctx, order.ID, next)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Uint("invoice_id", inv.ID).Uint("order_id", in.OrderID).Str("total", inv.Total.StringFixed(2)).Msg("invoice created from order")
	return inv, nil
}

// CreateIndependent bills loose lines for an existing or new client. Product
// lines reserve their stock in the same transaction.
func (s *Service) CreateIndependent(ctx context.Context, in IndependentInput) (*models.Invoice, error) {
	const op = "billing.CreateIndependent"

	if err := validateMethod(op, in.PaymentMethod); err != nil {
		return nil, err
	}
	state, err := normalizeState(op, in.PaymentState)
	if err != nil {
		return nil, err
	}
	if (in.ClientID == nil) == (in.NewClient == nil) {
		return nil, apperrors.Validation(op, "provide either an existing client or a new client, not both")
	}
	if in.VehicleID != nil && in.NewVehicle != nil {
		return nil, apperrors.Validation(op, "provide either an existing vehicle or a new vehicle, not both")
	}
	if nc := in.NewClient; nc != nil && (nc.Name == "" || nc.Identification == "") {
		return nil, apperrors.Validation(op, "new client needs a name and an identification")
	}
	if nv := in.NewVehicle; nv != nil && normalizePlate(nv.Plate) == "" {
		return nil, apperrors.Validation(op, "new vehicle needs a plate")
	}
	normalized, err := lines.Normalize(op, in.Lines)
	if err != nil {
		return nil, err
	}

	var inv *models.Invoice
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		client, err := s.resolveClient(ctx, tx, in)
		if err != nil {
			return err
		}
		vehicleID, err := s.resolveVehicle(ctx, tx, op, client.ID, in)
		if err != nil {
			return err
		}
		if in.MechanicID != nil {
			if _, err := tx.Mechanics().Get(ctx, *in.MechanicID); err != nil {
				return err
			}
		}

		items, err := lines.Resolve(ctx, tx, op, normalized)
		if err != nil {
			return err
		}

		inv = &models.Invoice{
			ClientID:      client.ID,
			MechanicID:    in.MechanicID,
			VehicleID:     vehicleID,
			Total:         models.SumItems(items),
			PaymentMethod: in.PaymentMethod,
			PaymentState:  state,
			PaidAt:        s.paidAt(state, nil),
			Notes:         in.Notes,
			Lines:         models.NewInvoiceLines(items),
		}
		if err := tx.Invoices().Create(ctx, inv); err != nil {
			return err
		}
		return s.ledger.ReserveAll(ctx, tx, items, inventory.Ref{InvoiceID: &inv.ID, Note: "independent invoice"})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Uint("invoice_id", inv.ID).Uint("client_id", inv.ClientID).Int("lines", len(inv.Lines)).Str("total", inv.Total.StringFixed(2)).Msg("independent invoice created")
	return inv, nil
}

func (s *Service) resolveClient(ctx context.Context, tx repository.Store, in IndependentInput) (*models.Client, error) {
	if in.ClientID != nil {
		return tx.Clients().Get(ctx, *in.ClientID)
	}
	nc := in.NewClient
	c := &models.Client{
		Name:           nc.Name,
		Identification: nc.Identification,
		Phone:          nc.Phone,
		Email:          nc.Email,
		Address:        nc.Address,
		City:           nc.City,
	}
	if err := tx.Clients().Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) resolveVehicle(ctx context.Context, tx repository.Store, op string, clientID uint, in IndependentInput) (*uint, error) {
	switch {
	case in.VehicleID != nil:
		v, err := tx.Vehicles().Get(ctx, *in.VehicleID)
		if err != nil {
			return nil, err
		}
		if v.ClientID != clientID {
			return nil, apperrors.Validation(op, "vehicle %s does not belong to client %d", v.Plate, clientID)
		}
		return &v.ID, nil

	case in.NewVehicle != nil:
		nv := in.NewVehicle
		plate := normalizePlate(nv.Plate)
		taken, err := tx.Vehicles().PlateExists(ctx, plate)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperrors.Validation(op, "plate %s is already registered", plate)
		}
		v := &models.Vehicle{
			ClientID:     clientID,
			Plate:        plate,
			Brand:        nv.Brand,
			Model:        nv.Model,
			Year:         nv.Year,
			Displacement: nv.Displacement,
			Color:        nv.Color,
			Mileage:      nv.Mileage,
			Active:       true,
		}
		if err := tx.Vehicles().Create(ctx, v); err != nil {
			return nil, err
		}
		return &v.ID, nil
	}
	return nil, nil
}

// Edit patches an unpaid invoice. When lines are replaced the stock follows
// the per-product difference between the old and the new set.
func (s *Service) Edit(ctx context.Context, id uint, in EditInput) (*models.Invoice, error) {
	const op = "billing.Edit"

	if in.PaymentMethod != nil {
		if err := validateMethod(op, *in.PaymentMethod); err != nil {
			return nil, err
		}
	}
	var normalized []models.LineItem
	if in.ReplaceLines {
		var err error
		if normalized, err = lines.Normalize(op, in.Lines); err != nil {
			return nil, err
		}
	}

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		inv, err := tx.Invoices().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if inv.IsPaid() {
			return apperrors.InvalidState(op, "cannot edit a paid invoice")
		}

		if in.PaymentMethod != nil {
			inv.PaymentMethod = *in.PaymentMethod
		}
		if in.Notes != nil {
			inv.Notes = *in.Notes
		}
		if in.MechanicID != nil {
			if _, err := tx.Mechanics().Get(ctx, *in.MechanicID); err != nil {
				return err
			}
			inv.MechanicID = in.MechanicID
		}

		if in.ReplaceLines {
			items, err := lines.Resolve(ctx, tx, op, normalized)
			if err != nil {
				return err
			}
			ref := inventory.Ref{InvoiceID: &inv.ID, Note: "invoice edited"}
			if err := s.ledger.Reconcile(ctx, tx, models.InvoiceItems(inv.Lines), items, ref); err != nil {
				return err
			}
			if err := tx.Invoices().ReplaceLines(ctx, inv.ID, models.NewInvoiceLines(items)); err != nil {
				return err
			}
			inv.Total = models.SumItems(items)
		}

		return tx.Invoices().Update(ctx, inv)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Uint("invoice_id", id).Bool("lines_replaced", in.ReplaceLines).Msg("invoice edited")
	return s.store.Invoices().Get(ctx, id, repository.WithLines)
}

// SetPaymentState is a no-op when the state does not change. PAID stamps
// paidAt (or now), UNPAID clears it.
func (s *Service) SetPaymentState(ctx context.Context, id uint, state models.PaymentState, paidAt *time.Time) (*models.Invoice, error) {
	const op = "billing.SetPaymentState"

	if !state.Valid() {
		return nil, apperrors.Validation(op, "invalid payment state %q", state)
	}

	var inv *models.Invoice
	changed := false
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		if inv, err = tx.Invoices().GetForUpdate(ctx, id); err != nil {
			return err
		}
		if inv.PaymentState == state {
			return nil
		}
		inv.PaymentState = state
		inv.PaidAt = s.paidAt(state, paidAt)
		changed = true
		return tx.Invoices().Update(ctx, inv)
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.log.Info().Uint("invoice_id", id).Str("state", string(state)).Msg("payment state changed")
	}
	return inv, nil
}

func (s *Service) Pay(ctx context.Context, id uint, paidAt *time.Time) (*models.Invoice, error) {
	return s.SetPaymentState(ctx, id, models.StatePaid, paidAt)
}

func (s *Service) Unpay(ctx context.Context, id uint) (*models.Invoice, error) {
	return s.SetPaymentState(ctx, id, models.StateUnpaid, nil)
}

// SoftDelete hides an unpaid invoice. A linked order returns to DONE and the
// stock the invoice held beyond its order's lines goes back to the shelf.
func (s *Service) SoftDelete(ctx context.Context, id uint) error {
	const op = "billing.SoftDelete"

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		inv, err := tx.Invoices().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if inv.IsPaid() {
			return apperrors.Forbidden(op, "a paid invoice cannot be deleted")
		}

		var baseline []models.LineItem
		if inv.OrderID != nil {
			order, err := tx.Orders().GetForUpdate(ctx, *inv.OrderID)
			switch {
			case errors.Is(err, apperrors.ErrNotFound):
				s.log.Warn().Uint("invoice_id", inv.ID).Uint("order_id", *inv.OrderID).Msg("linked order missing, state not reverted")
			case err != nil:
				return err
			default:
				baseline = models.OrderItems(order.Lines)
				if order.State == models.OrderInvoiced {
					next, err := orders.Next(order.State, orders.TriggerUninvoice)
					if err != nil {
						return err
					}
					if err := tx.Orders().SetState(ctx, order.ID, next); err != nil {
						return err
					}
				}
			}
		}

		ref := inventory.Ref{InvoiceID: &inv.ID, OrderID: inv.OrderID, Note: "invoice deleted"}
		if err := s.ledger.Reconcile(ctx, tx, models.InvoiceItems(inv.Lines), baseline, ref); err != nil {
			return err
		}
		return tx.Invoices().SoftDelete(ctx, inv.ID)
	})
	if err != nil {
		return err
	}

	s.log.Info().Uint("invoice_id", id).Msg("invoice soft-deleted")
	return nil
}

// SoftDeleteSecured checks the admin password before deleting.
func (s *Service) SoftDeleteSecured(ctx context.Context, id uint, password string) error {
	if err := s.verifyAdmin(ctx, "billing.SoftDeleteSecured", password); err != nil {
		return err
	}
	return s.SoftDelete(ctx, id)
}

// Restore undoes a soft delete. The linked order must be DONE again and free
// of other active invoices; the invoice re-takes the stock it released.
func (s *Service) Restore(ctx context.Context, id uint) (*models.Invoice, error) {
	const op = "billing.Restore"

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		inv, err := tx.Invoices().GetWithDeleted(ctx, id)
		if err != nil {
			return err
		}
		if !inv.IsDeleted() {
			return apperrors.InvalidState(op, "invoice %d is not deleted", id)
		}

		var baseline []models.LineItem
		if inv.OrderID != nil {
			taken, err := tx.Invoices().ActiveForOrder(ctx, *inv.OrderID, inv.ID)
			if err != nil {
				return err
			}
			if taken {
				return apperrors.Conflict(op, "order %d already has another active invoice", *inv.OrderID)
			}
			order, err := tx.Orders().GetForUpdate(ctx, *inv.OrderID)
			if err != nil {
				return err
			}
			next, err := orders.Next(order.State, orders.TriggerInvoice)
			if err != nil {
				return err
			}
			if err := tx.Orders().SetState(ctx, order.ID, next); err != nil {
				return err
			}
			baseline = models.OrderItems(order.Lines)
		}

		ref := inventory.Ref{InvoiceID: &inv.ID, OrderID: inv.OrderID, Note: "invoice restored"}
		if err := s.ledger.Reconcile(ctx, tx, baseline, models.InvoiceItems(inv.Lines), ref); err != nil {
			return err
		}
		return tx.Invoices().Restore(ctx, inv.ID)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Uint("invoice_id", id).Msg("invoice restored")
	return s.store.Invoices().Get(ctx, id, repository.WithLines)
}

type Editability struct {
	Editable bool   `json:"editable"`
	Reason   string `json:"reason"`
}

func (s *Service) VerifyEditable(ctx context.Context, id uint) (Editability, error) {
	inv, err := s.store.Invoices().Get(ctx, id)
	if err != nil {
		return Editability{}, err
	}
	if inv.IsPaid() {
		return Editability{Editable: false, Reason: "paid invoices cannot be edited"}, nil
	}
	return Editability{Editable: true, Reason: "invoice is unpaid and can be edited"}, nil
}

// ValidatePasswordForAction gates the edit and delete screens. Neither
// action is allowed on a paid invoice, whatever the password.
func (s *Service) ValidatePasswordForAction(ctx context.Context, id uint, password string, action Action) error {
	const op = "billing.ValidatePasswordForAction"

	if action != ActionEdit && action != ActionDelete {
		return apperrors.Validation(op, "unknown action %q", action)
	}
	inv, err := s.store.Invoices().Get(ctx, id)
	if err != nil {
		return err
	}
	if inv.IsPaid() {
		return apperrors.Forbidden(op, "action %s is not allowed on a paid invoice", action)
	}
	return s.verifyAdmin(ctx, op, password)
}

// FindOne loads everything the invoice screen and the renderer read.
func (s *Service) FindOne(ctx context.Context, id uint) (*models.Invoice, error) {
	return s.store.Invoices().Get(ctx, id, repository.DocumentRelations...)
}

func (s *Service) List(ctx context.Context, filter repository.InvoiceFilter) ([]models.Invoice, error) {
	return s.store.Invoices().List(ctx, filter,
		repository.WithLines, repository.WithClient, repository.WithVehicle, repository.WithMechanic)
}

func (s *Service) verifyAdmin(ctx context.Context, op, password string) error {
	if s.admin == nil {
		return apperrors.Forbidden(op, "administrative verification is not configured")
	}
	if password == "" {
		return apperrors.Unauthorized(op, "admin password is required")
	}
	return s.admin.VerifyAdminPassword(ctx, password)
}

func (s *Service) paidAt(state models.PaymentState, explicit *time.Time) *time.Time {
	if state != models.StatePaid {
		return nil
	}
	if explicit != nil {
		t := *explicit
		return &t
	}
	t := s.now()
	return &t
}
