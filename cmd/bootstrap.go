package cmd

import (
	"fmt"
	"log"

	"taskshare/internal/config"
	"taskshare/internal/database"

	"github.com/joho/godotenv"
	"gorm.io/gorm/logger"
)

func loadConfig() (*config.Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println(".env file not found, using environment variables")
	}
	return config.LoadConfig()
}

func openDatabase(cfg *config.Config) (*database.DatabasePool, error) {
	logLevel := logger.Warn
	if cfg.Server.Environment == "development" {
		logLevel = logger.Info
	}

	pool, err := database.NewDatabasePool(&database.PoolConfig{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.GetDatabaseDSN(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		LogLevel:        logLevel,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return pool, nil
}
