package main

import (
	"fmt"

	"workshop-billing-backend/internal/config"
	"workshop-billing-backend/internal/logger"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:   "workshopctl",
	Short: "Out-of-band administration for the workshop billing service",
	Long: `workshopctl runs maintenance tasks against the billing database
without going through the HTTP API.

It reads the same environment as the server (DATABASE_URL or DB_*, JWT_SECRET,
LOG_*), including a .env file in the working directory.`,
	SilenceUsage: true,
}

// openDB loads the server configuration, applies its log settings and
// connects to the database.
func openDB() (*gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return config.InitDB(cfg)
}
