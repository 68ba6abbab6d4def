package inventory

import (
	"context"
	"errors"
	"sort"

	"workshop-billing-backend/internal/apperrors"
	"workshop-billing-backend/internal/logger"
	"workshop-billing-backend/internal/models"
	"workshop-billing-backend/internal/repository"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Ref ties a stock movement to the document that caused it.
type Ref struct {
	InvoiceID *uint
	OrderID   *uint
	Note      string
}

// Ledger adjusts product stock. Every method runs against the store of the
// caller's transaction, so a later failure rolls the adjustment back.
type Ledger struct {
	log zerolog.Logger
}

func NewLedger() *Ledger {
	return &Ledger{log: logger.WithComponent("inventory")}
}

// Reserve takes qty out of stock, failing when not enough is available.
func (l *Ledger) Reserve(ctx context.Context, tx repository.Store, productID uint, qty decimal.Decimal, ref Ref) error {
	if !qty.IsPositive() {
		return nil
	}

	p, err := tx.Products().GetForUpdate(ctx, productID)
	if err != nil {
		return err
	}
	if p.Stock.LessThan(qty) {
		l.log.Warn().Uint("product_id", p.ID).Str("available", p.Stock.String()).Str("requested", qty.String()).Msg("stock reservation rejected")
		return apperrors.InsufficientStock("inventory.Reserve",
			"insufficient stock for %s: available %s, requested %s", p.Name, p.Stock.String(), qty.String())
	}

	if err := tx.Products().AdjustStock(ctx, p.ID, qty.Neg()); err != nil {
		return err
	}
	return l.record(ctx, tx, p, models.StockReserve, qty.Neg(), ref)
}

// Release puts qty back. There is no upper bound. A product that no longer
// exists is skipped.
func (l *Ledger) Release(ctx context.Context, tx repository.Store, productID uint, qty decimal.Decimal, ref Ref) error {
	if !qty.IsPositive() {
		return nil
	}

	p, err := tx.Products().GetForUpdate(ctx, productID)
	if errors.Is(err, apperrors.ErrNotFound) {
		l.log.Warn().Uint("product_id", productID).Str("quantity", qty.String()).Msg("release skipped, product missing")
		return nil
	}
	if err != nil {
		return err
	}

	if err := tx.Products().AdjustStock(ctx, p.ID, qty); err != nil {
		return err
	}
	return l.record(ctx, tx, p, models.StockRelease, qty, ref)
}

// Reconcile moves stock from the previous line set to the next one. Products
// are visited in ascending id order so concurrent reconciliations lock rows
// in the same order.
func (l *Ledger) Reconcile(ctx context.Context, tx repository.Store, previous, next []models.LineItem, ref Ref) error {
	before := Quantities(previous)
	after := Quantities(next)

	ids := make([]uint, 0, len(before)+len(after))
	seen := map[uint]bool{}
	for id := range before {
		ids = append(ids, id)
		seen[id] = true
	}
	for id := range after {
		if !seen[id] {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		delta := after[id].Sub(before[id])
		switch {
		case delta.IsPositive():
			if err := l.Reserve(ctx, tx, id, delta, ref); err != nil {
				return err
			}
		case delta.IsNegative():
			if err := l.Release(ctx, tx, id, delta.Neg(), ref); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReserveAll reserves every product line, in ascending product order.
func (l *Ledger) ReserveAll(ctx context.Context, tx repository.Store, items []models.LineItem, ref Ref) error {
	return l.Reconcile(ctx, tx, nil, items, ref)
}

// ReleaseAll returns the stock held by every product line.
func (l *Ledger) ReleaseAll(ctx context.Context, tx repository.Store, items []models.LineItem, ref Ref) error {
	return l.Reconcile(ctx, tx, items, nil, ref)
}

// Quantities sums quantities per referenced product.
func Quantities(items []models.LineItem) map[uint]decimal.Decimal {
	out := map[uint]decimal.Decimal{}
	for _, it := range items {
		if it.ProductID == nil {
			continue
		}
		out[*it.ProductID] = out[*it.ProductID].Add(it.Quantity)
	}
	return out
}

func (l *Ledger) record(ctx context.Context, tx repository.Store, p *models.Product, reason models.StockReason, delta decimal.Decimal, ref Ref) error {
	m := &models.StockMovement{
		ProductID:   p.ID,
		Reason:      reason,
		Delta:       delta,
		StockBefore: p.Stock,
		StockAfter:  p.Stock.Add(delta),
		InvoiceID:   ref.InvoiceID,
		OrderID:     ref.OrderID,
		Note:        ref.Note,
	}
	l.log.Debug().Uint("product_id", p.ID).Str("reason", string(reason)).Str("delta", delta.String()).Msg("stock adjusted")
	return tx.StockMovements().Create(ctx, m)
}
