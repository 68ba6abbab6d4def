package repository

import (
	"context"

	"workshop-billing-backend/internal/apperrors"
	"workshop-billing-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Get(ctx context.Context, id uint, rels ...Relation) (*models.Order, error) {
	var o models.Order
	if err := preload(r.db.WithContext(ctx), rels).First(&o, id).Error; err != nil {
		return nil, translate("orders.Get", "order", id, err)
	}
	return &o, nil
}

// GetForUpdate locks the order row and loads its lines.
func (r *OrderRepository) GetForUpdate(ctx context.Context, id uint) (*models.Order, error) {
	var o models.Order
	db := r.db.WithContext(ctx)
	if err := db.Clauses(forUpdate).First(&o, id).Error; err != nil {
		return nil, translate("orders.GetForUpdate", "order", id, err)
	}
	if err := db.Where("order_id = ?", id).Order("position ASC, id ASC").Find(&o.Lines).Error; err != nil {
		return nil, translate("orders.GetForUpdate", "order line", id, err)
	}
	return &o, nil
}

func (r *OrderRepository) Create(ctx context.Context, o *models.Order) error {
	err := r.db.WithContext(ctx).Omit("Client", "Vehicle", "Mechanic").Create(o).Error
	return translate("orders.Create", "order", o.ID, err)
}

func (r *OrderRepository) Update(ctx context.Context, o *models.Order) error {
	res := r.db.WithContext(ctx).Model(o).
		Select("client_id", "vehicle_id", "mechanic_id", "state", "total", "notes").
		Omit(clause.Associations).
		Updates(o)
	if res.Error != nil {
		return translate("orders.Update", "order", o.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("orders.Update", "order %d not found", o.ID)
	}
	return nil
}

func (r *OrderRepository) SetState(ctx context.Context, id uint, state models.OrderState) error {
	res := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Update("state", state)
	if res.Error != nil {
		return translate("orders.SetState", "order", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("orders.SetState", "order %d not found", id)
	}
	return nil
}

func (r *OrderRepository) AddLine(ctx context.Context, line *models.OrderLine) error {
	return translate("orders.AddLine", "order line", line.OrderID, r.db.WithContext(ctx).Create(line).Error)
}

func (r *OrderRepository) ReplaceLines(ctx context.Context, orderID uint, lines []models.OrderLine) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("order_id = ?", orderID).Delete(&models.OrderLine{}).Error; err != nil {
		return translate("orders.ReplaceLines", "order line", orderID, err)
	}
	if len(lines) == 0 {
		return nil
	}
	for i := range lines {
		lines[i].ID = 0
		lines[i].OrderID = orderID
	}
	return translate("orders.ReplaceLines", "order line", orderID, db.Create(&lines).Error)
}

// Delete removes the order and, through the cascade, its lines.
func (r *OrderRepository) Delete(ctx context.Context, id uint) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("order_id = ?", id).Delete(&models.OrderLine{}).Error; err != nil {
		return translate("orders.Delete", "order line", id, err)
	}
	res := db.Delete(&models.Order{}, id)
	if res.Error != nil {
		return translate("orders.Delete", "order", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("orders.Delete", "order %d not found", id)
	}
	return nil
}

func (r *OrderRepository) List(ctx context.Context, filter OrderFilter, rels ...Relation) ([]models.Order, error) {
	var orders []models.Order

	q := preload(r.db.WithContext(ctx).Model(&models.Order{}), rels)
	if filter.State != "" {
		q = q.Where("state = ?", filter.State)
	}
	if filter.ClientID != 0 {
		q = q.Where("client_id = ?", filter.ClientID)
	}
	if filter.MechanicID != 0 {
		q = q.Where("mechanic_id = ?", filter.MechanicID)
	}

	err := q.Order("created_at DESC, id DESC").Find(&orders).Error
	return orders, translate("orders.List", "order", "", err)
}
