package repository

import (
	"context"

	"workshop-billing-backend/internal/apperrors"
	"workshop-billing-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) Get(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, translate("products.Get", "product", id, err)
	}
	return &p, nil
}

// GetForUpdate takes a row lock so concurrent reservations on the same
// product serialize.
func (r *ProductRepository) GetForUpdate(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := r.db.WithContext(ctx).Clauses(forUpdate).First(&p, id).Error; err != nil {
		return nil, translate("products.GetForUpdate", "product", id, err)
	}
	return &p, nil
}

// AdjustStock applies delta in SQL so the update never works on a stale read.
func (r *ProductRepository) AdjustStock(ctx context.Context, id uint, delta decimal.Decimal) error {
	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		Update("stock", gorm.Expr("stock + ?", delta))
	if res.Error != nil {
		return translate("products.AdjustStock", "product", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("products.AdjustStock", "product %d not found", id)
	}
	return nil
}

func (r *ProductRepository) List(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	var products []models.Product

	q := r.db.WithContext(ctx).Model(&models.Product{})
	if filter.InStock {
		q = q.Where("stock > 0")
	}
	if filter.NegativeStock {
		q = q.Where("stock < 0")
	}

	err := q.Order("name ASC").Find(&products).Error
	return products, translate("products.List", "product", "", err)
}
