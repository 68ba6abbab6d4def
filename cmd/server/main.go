package main

import (
	"fmt"
	"os"
	"time"

	"workshop-billing-backend/internal/config"
	"workshop-billing-backend/internal/logger"
	"workshop-billing-backend/internal/routes"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if envErr != nil {
		log.Info().Msg("no .env file found, relying on system env")
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	if err := config.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	r := gin.New()
	r.Use(gin.Recovery(), logger.RequestLogger())
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", logger.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", logger.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if err := routes.RegisterRoutes(r, db, cfg); err != nil {
		log.Fatal().Err(err).Msg("route setup failed")
	}

	log.Info().Str("port", cfg.Port).Msg("server starting")
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
