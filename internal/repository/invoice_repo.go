package repository

import (
	"context"

	"workshop-billing-backend/internal/apperrors"
	"workshop-billing-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// Get fetches a live invoice with the requested relations.
func (r *InvoiceRepository) Get(ctx context.Context, id uint, rels ...Relation) (*models.Invoice, error) {
	var inv models.Invoice
	err := preload(r.db.WithContext(ctx), rels).First(&inv, id).Error
	if err != nil {
		return nil, translate("invoices.Get", "invoice", id, err)
	}
	return &inv, nil
}

func (r *InvoiceRepository) GetForUpdate(ctx context.Context, id uint) (*models.Invoice, error) {
	var inv models.Invoice
	db := r.db.WithContext(ctx)
	if err := db.Clauses(forUpdate).First(&inv, id).Error; err != nil {
		return nil, translate("invoices.GetForUpdate", "invoice", id, err)
	}
	if err := db.Where("invoice_id = ?", id).Order("position ASC, id ASC").Find(&inv.Lines).Error; err != nil {
		return nil, translate("invoices.GetForUpdate", "invoice line", id, err)
	}
	return &inv, nil
}

func (r *InvoiceRepository) GetWithDeleted(ctx context.Context, id uint) (*models.Invoice, error) {
	var inv models.Invoice
	db := r.db.WithContext(ctx).Unscoped()
	if err := db.Clauses(forUpdate).First(&inv, id).Error; err != nil {
		return nil, translate("invoices.GetWithDeleted", "invoice", id, err)
	}
	if err := db.Where("invoice_id = ?", id).Order("position ASC, id ASC").Find(&inv.Lines).Error; err != nil {
		return nil, translate("invoices.GetWithDeleted", "invoice line", id, err)
	}
	return &inv, nil
}

// ActiveForOrder reports whether a live invoice other than excludeID
// references the order.
func (r *InvoiceRepository) ActiveForOrder(ctx context.Context, orderID uint, excludeID uint) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&models.Invoice{}).Where("order_id = ?", orderID)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, translate("invoices.ActiveForOrder", "invoice", orderID, err)
	}
	return count > 0, nil
}

// Create inserts the invoice together with its lines.
func (r *InvoiceRepository) Create(ctx context.Context, inv *models.Invoice) error {
	err := r.db.WithContext(ctx).
		Omit("Client", "Order", "Mechanic", "Vehicle").
		Create(inv).Error
	return translate("invoices.Create", "invoice", inv.OrderID, err)
}

// Update writes the scalar columns of a live invoice. Lines are replaced
// through ReplaceLines only.
func (r *InvoiceRepository) Update(ctx context.Context, inv *models.Invoice) error {
	res := r.db.WithContext(ctx).Model(inv).
		Select("client_id", "order_id", "mechanic_id", "vehicle_id", "total",
			"payment_method", "payment_state", "paid_at", "notes").
		Omit(clause.Associations).
		Updates(inv)
	if res.Error != nil {
		return translate("invoices.Update", "invoice", inv.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("invoices.Update", "invoice %d not found", inv.ID)
	}
	return nil
}

func (r *InvoiceRepository) ReplaceLines(ctx context.Context, invoiceID uint, lines []models.InvoiceLine) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("invoice_id = ?", invoiceID).Delete(&models.InvoiceLine{}).Error; err != nil {
		return translate("invoices.ReplaceLines", "invoice line", invoiceID, err)
	}
	if len(lines) == 0 {
		return nil
	}
	for i := range lines {
		lines[i].ID = 0
		lines[i].InvoiceID = invoiceID
	}
	return translate("invoices.ReplaceLines", "invoice line", invoiceID, db.Create(&lines).Error)
}

func (r *InvoiceRepository) SoftDelete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Invoice{}, id)
	if res.Error != nil {
		return translate("invoices.SoftDelete", "invoice", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("invoices.SoftDelete", "invoice %d not found", id)
	}
	return nil
}

func (r *InvoiceRepository) Restore(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Unscoped().Model(&models.Invoice{}).
		Where("id = ? AND deleted_at IS NOT NULL", id).
		Update("deleted_at", nil)
	if res.Error != nil {
		return translate("invoices.Restore", "invoice", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("invoices.Restore", "deleted invoice %d not found", id)
	}
	return nil
}

// List returns live invoices, newest first.
func (r *InvoiceRepository) List(ctx context.Context, filter InvoiceFilter, rels ...Relation) ([]models.Invoice, error) {
	var invoices []models.Invoice

	q := preload(r.db.WithContext(ctx).Model(&models.Invoice{}), rels)
	if filter.State != "" {
		q = q.Where("payment_state = ?", filter.State)
	}
	if filter.ClientID != 0 {
		q = q.Where("client_id = ?", filter.ClientID)
	}
	if filter.MechanicID != 0 {
		q = q.Where("mechanic_id = ?", filter.MechanicID)
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("created_at <= ?", *filter.To)
	}

	err := q.Order("created_at DESC, id DESC").Find(&invoices).Error
	return invoices, translate("invoices.List", "invoice", "", err)
}

// TotalsByState groups live invoices by payment state.
func (r *InvoiceRepository) TotalsByState(ctx context.Context) ([]StateTotal, error) {
	var rows []StateTotal
	err := r.db.WithContext(ctx).Model(&models.Invoice{}).
		Select("payment_state AS state, COUNT(*) AS count, COALESCE(SUM(total), 0) AS sum").
		Group("payment_state").
		Scan(&rows).Error
	return rows, translate("invoices.TotalsByState", "invoice", "", err)
}
