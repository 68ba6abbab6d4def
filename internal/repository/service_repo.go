package repository

import (
	"context"

	"workshop-billing-backend/internal/models"

	"gorm.io/gorm"
)

type ServiceRepository struct {
	db *gorm.DB
}

func NewServiceRepository(db *gorm.DB) *ServiceRepository {
	return &ServiceRepository{db: db}
}

func (r *ServiceRepository) Get(ctx context.Context, id uint) (*models.Service, error) {
	var s models.Service
	if err := r.db.WithContext(ctx).First(&s, id).Error; err != nil {
		return nil, translate("services.Get", "service", id, err)
	}
	return &s, nil
}

// FindActiveByName does a case-insensitive partial match on the name.
func (r *ServiceRepository) FindActiveByName(ctx context.Context, name string) (*models.Service, error) {
	var s models.Service
	err := r.db.WithContext(ctx).
		Where("name ILIKE ? AND active = ?", "%"+name+"%", true).
		Order("id ASC").
		First(&s).Error
	if err != nil {
		return nil, translate("services.FindActiveByName", "service", name, err)
	}
	return &s, nil
}

func (r *ServiceRepository) ListActive(ctx context.Context) ([]models.Service, error) {
	var services []models.Service
	err := r.db.WithContext(ctx).Where("active = ?", true).Order("name ASC").Find(&services).Error
	return services, translate("services.ListActive", "service", "", err)
}
