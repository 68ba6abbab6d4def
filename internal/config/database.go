package config

import (
	"fmt"
	"time"

	"workshop-billing-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// InitDB opens the postgres connection pool. Driver errors are translated so
// unique violations surface as gorm.ErrDuplicatedKey.
func InitDB(cfg *Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Client{},
		&models.Vehicle{},
		&models.Mechanic{},
		&models.Product{},
		&models.Service{},
		&models.Order{},
		&models.OrderLine{},
		&models.Invoice{},
		&models.InvoiceLine{},
		&models.StockMovement{},
		&models.InvoiceDelivery{},
		&models.DiagnosticRun{},
	); err != nil {
		return err
	}

	// at most one live invoice per order
	return db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS ux_invoices_order_active
		ON invoices (order_id) WHERE deleted_at IS NULL AND order_id IS NOT NULL`).Error
}
