package repository

import (
	"context"

	"workshop-billing-backend/internal/models"

	"gorm.io/gorm"
)

type ClientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

func (r *ClientRepository) Get(ctx context.Context, id uint) (*models.Client, error) {
	var c models.Client
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, translate("clients.Get", "client", id, err)
	}
	return &c, nil
}

// Create fails with a conflict when the identification is taken.
func (r *ClientRepository) Create(ctx context.Context, c *models.Client) error {
	return translate("clients.Create", "client", c.Identification, r.db.WithContext(ctx).Create(c).Error)
}

type VehicleRepository struct {
	db *gorm.DB
}

func NewVehicleRepository(db *gorm.DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

func (r *VehicleRepository) Get(ctx context.Context, id uint) (*models.Vehicle, error) {
	var v models.Vehicle
	if err := r.db.WithContext(ctx).First(&v, id).Error; err != nil {
		return nil, translate("vehicles.Get", "vehicle", id, err)
	}
	return &v, nil
}

func (r *VehicleRepository) PlateExists(ctx context.Context, plate string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Vehicle{}).Where("plate = ?", plate).Count(&count).Error
	if err != nil {
		return false, translate("vehicles.PlateExists", "vehicle", plate, err)
	}
	return count > 0, nil
}

func (r *VehicleRepository) Create(ctx context.Context, v *models.Vehicle) error {
	return translate("vehicles.Create", "vehicle", v.Plate, r.db.WithContext(ctx).Create(v).Error)
}

type MechanicRepository struct {
	db *gorm.DB
}

func NewMechanicRepository(db *gorm.DB) *MechanicRepository {
	return &MechanicRepository{db: db}
}

func (r *MechanicRepository) Get(ctx context.Context, id uint) (*models.Mechanic, error) {
	var m models.Mechanic
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, translate("mechanics.Get", "mechanic", id, err)
	}
	return &m, nil
}

func (r *MechanicRepository) FindByUserID(ctx context.Context, userID uint) (*models.Mechanic, error) {
	var m models.Mechanic
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&m).Error; err != nil {
		return nil, translate("mechanics.FindByUserID", "mechanic for user", userID, err)
	}
	return &m, nil
}

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, translate("users.FindByUsername", "user", username, err)
	}
	return &u, nil
}
