package main

import (
	"fmt"
	"os"

	"workshop-billing-backend/internal/logger"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	if err := logger.Setup(logger.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
