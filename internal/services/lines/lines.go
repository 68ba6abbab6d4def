// Package lines validates line items shared by invoices and orders.
package lines

import (
	"context"
	"strings"

	"workshop-billing-backend/internal/apperrors"
	"workshop-billing-backend/internal/models"
	"workshop-billing-backend/internal/repository"
)

// Normalize checks the shape of every line and fills an empty category from
// the catalog reference. Free-text lines without a tag stay untagged so the
// tax classifier can infer them from the description. It never touches the
// database.
func Normalize(op string, items []models.LineItem) ([]models.LineItem, error) {
	if len(items) == 0 {
		return nil, apperrors.Validation(op, "at least one line is required")
	}

	out := make([]models.LineItem, len(items))
	for i, l := range items {
		var err error
		if out[i], err = NormalizeOne(op, i+1, l); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// NormalizeOne checks a single line; n is its 1-based position in messages.
func NormalizeOne(op string, n int, l models.LineItem) (models.LineItem, error) {
	l.Description = strings.TrimSpace(l.Description)

	if !l.Quantity.IsPositive() {
		return l, apperrors.Validation(op, "line %d: quantity must be greater than zero", n)
	}
	if l.UnitPrice.IsNegative() {
		return l, apperrors.Validation(op, "line %d: unit price cannot be negative", n)
	}
	if l.ProductID != nil && l.ServiceID != nil {
		return l, apperrors.Validation(op, "line %d: a line references either a product or a service, not both", n)
	}

	switch l.Category {
	case "":
		switch {
		case l.ProductID != nil:
			l.Category = models.CategoryProduct
		case l.ServiceID != nil:
			l.Category = models.CategoryService
		}
	case models.CategoryProduct:
		if l.ServiceID != nil {
			return l, apperrors.Validation(op, "line %d: PRODUCT line cannot reference a service", n)
		}
	case models.CategoryService:
		if l.ProductID != nil {
			return l, apperrors.Validation(op, "line %d: SERVICE line cannot reference a product", n)
		}
	case models.CategoryOther:
		if l.ProductID != nil || l.ServiceID != nil {
			return l, apperrors.Validation(op, "line %d: OTHER line cannot reference the catalog", n)
		}
	default:
		return l, apperrors.Validation(op, "line %d: unknown category %q", n, l.Category)
	}

	if l.Description == "" && l.ProductID == nil && l.ServiceID == nil {
		return l, apperrors.Validation(op, "line %d: description is required", n)
	}
	return l, nil
}

// Resolve checks catalog references inside the caller's transaction: each
// product and service must exist and services must be active. Blank
// descriptions take the catalog name.
func Resolve(ctx context.Context, tx repository.Store, op string, items []models.LineItem) ([]models.LineItem, error) {
	out := make([]models.LineItem, len(items))
	for i, l := range items {
		switch {
		case l.ServiceID != nil:
			sv, err := tx.Services().Get(ctx, *l.ServiceID)
			if err != nil {
				return nil, err
			}
			if !sv.Active {
				return nil, apperrors.Validation(op, "service %s is inactive", sv.Name)
			}
			if l.Description == "" {
				l.Description = sv.Name
			}
		case l.ProductID != nil:
			p, err := tx.Products().Get(ctx, *l.ProductID)
			if err != nil {
				return nil, err
			}
			if l.Description == "" {
				l.Description = p.Name
			}
		}
		out[i] = l
	}
	return out, nil
}
