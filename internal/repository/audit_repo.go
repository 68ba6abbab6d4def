package repository

import (
	"context"
	"time"

	"workshop-billing-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StockMovementRepository struct {
	db *gorm.DB
}

func NewStockMovementRepository(db *gorm.DB) *StockMovementRepository {
	return &StockMovementRepository{db: db}
}

func (r *StockMovementRepository) Create(ctx context.Context, m *models.StockMovement) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return translate("stock_movements.Create", "stock movement", m.ID, r.db.WithContext(ctx).Create(m).Error)
}

type DeliveryRepository struct {
	db *gorm.DB
}

func NewDeliveryRepository(db *gorm.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

func (r *DeliveryRepository) Create(ctx context.Context, d *models.InvoiceDelivery) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return translate("deliveries.Create", "invoice delivery", d.ID, r.db.WithContext(ctx).Create(d).Error)
}

func (r *DeliveryRepository) ListByInvoice(ctx context.Context, invoiceID uint) ([]models.InvoiceDelivery, error) {
	var out []models.InvoiceDelivery
	err := r.db.WithContext(ctx).Where("invoice_id = ?", invoiceID).Order("created_at DESC").Find(&out).Error
	return out, translate("deliveries.ListByInvoice", "invoice delivery", invoiceID, err)
}

type DiagnosticRunRepository struct {
	db *gorm.DB
}

func NewDiagnosticRunRepository(db *gorm.DB) *DiagnosticRunRepository {
	return &DiagnosticRunRepository{db: db}
}

func (r *DiagnosticRunRepository) Create(ctx context.Context, run *models.DiagnosticRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	return translate("diagnostic_runs.Create", "diagnostic run", run.ID, r.db.WithContext(ctx).Create(run).Error)
}

func (r *DiagnosticRunRepository) Update(ctx context.Context, run *models.DiagnosticRun) error {
	return translate("diagnostic_runs.Update", "diagnostic run", run.ID, r.db.WithContext(ctx).Save(run).Error)
}

func (r *DiagnosticRunRepository) Get(ctx context.Context, id uuid.UUID) (*models.DiagnosticRun, error) {
	var run models.DiagnosticRun
	if err := r.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		return nil, translate("diagnostic_runs.Get", "diagnostic run", id, err)
	}
	return &run, nil
}
