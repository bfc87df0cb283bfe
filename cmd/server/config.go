package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"aquaops/internal/domain/projection"
)

// Storage backends.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config is the process configuration read from the environment.
type Config struct {
	Port     string
	Env      string
	LogLevel string

	Storage            string
	DatabaseURL        string
	DBMaxConns         int
	DBStatementTimeout time.Duration
	DBAutoMigrate      bool

	WarehouseLocation string
	WorkOrderTimezone *time.Location
	HorizonMonths     int
	CriticalMonths    int
}

// loadConfig reads .env when present, then the environment.
func loadConfig() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:               getEnv("APP_PORT", "8080"),
		Env:                getEnv("APP_ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		Storage:            getEnv("STORAGE", StoragePostgres),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		DBMaxConns:         getEnvInt("DB_MAX_CONNS", 25),
		DBStatementTimeout: getEnvDuration("DB_STATEMENT_TIMEOUT", 30*time.Second),
		DBAutoMigrate:      getEnv("DB_AUTO_MIGRATE", "false") == "true",
		WarehouseLocation:  getEnv("WAREHOUSE_LOCATION", "main"),
		HorizonMonths:      getEnvInt("PROJECTION_HORIZON_MONTHS", projection.DefaultHorizonMonths),
		CriticalMonths:     getEnvInt("PROJECTION_CRITICAL_MONTHS", projection.DefaultCriticalMonths),
	}

	loc, err := time.LoadLocation(getEnv("WORK_ORDER_TIMEZONE", "UTC"))
	if err != nil {
		return Config{}, fmt.Errorf("WORK_ORDER_TIMEZONE: %w", err)
	}
	cfg.WorkOrderTimezone = loc

	switch cfg.Storage {
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL is required for %s storage", StoragePostgres)
		}
	case StorageMemory:
	default:
		return Config{}, fmt.Errorf("STORAGE must be %q or %q, got %q", StoragePostgres, StorageMemory, cfg.Storage)
	}
	if cfg.HorizonMonths < 1 || cfg.HorizonMonths > projection.MaxHorizonMonths {
		return Config{}, fmt.Errorf("PROJECTION_HORIZON_MONTHS must be between 1 and %d", projection.MaxHorizonMonths)
	}
	if cfg.CriticalMonths < 1 {
		return Config{}, fmt.Errorf("PROJECTION_CRITICAL_MONTHS must be at least 1")
	}
	return cfg, nil
}

func (c Config) development() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.Atoi(value); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
