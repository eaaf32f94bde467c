package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Dataset drivers. "sqlite3" is the cgo driver, "sqlite" the pure Go one.
const (
	DriverCSV        = "csv"
	DriverSQLite     = "sqlite3"
	DriverSQLitePure = "sqlite"
)

// Config holds all configuration for the application.
type Config struct {
	AppEnv                string
	HTTPPort              int
	GRPCPort              int
	GRPCReflectionEnabled bool
	DatasetDriver         string
	DatasetPath           string
	DatasetTable          string
	FilterColumn          string
	ExcludedColumns       []string
	ShutdownTimeout       time.Duration
}

// LoadFromEnv loads configuration from environment variables. Malformed
// values fall back to their defaults.
func LoadFromEnv() *Config {
	return &Config{
		AppEnv:                getEnv("APP_ENV", "development"),
		HTTPPort:              getEnvInt("HTTP_PORT", 7860),
		GRPCPort:              getEnvInt("GRPC_PORT", 50051),
		GRPCReflectionEnabled: getEnvBool("GRPC_REFLECTION_ENABLED", false),
		DatasetDriver:         strings.ToLower(getEnv("DATASET_DRIVER", DriverCSV)),
		DatasetPath:           getEnv("DATASET_PATH", "./data/Train_final.csv"),
		DatasetTable:          getEnv("DATASET_TABLE", "customers"),
		FilterColumn:          getEnv("FILTER_COLUMN", "Credit Score"),
		ExcludedColumns:       splitList(getEnv("EXCLUDED_COLUMNS", "Customer ID,Name")),
		ShutdownTimeout:       getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var errs []error
	switch c.DatasetDriver {
	case DriverCSV, DriverSQLite, DriverSQLitePure:
	default:
		errs = append(errs, fmt.Errorf("unknown dataset driver %q", c.DatasetDriver))
	}
	if c.DatasetPath == "" {
		errs = append(errs, errors.New("dataset path is required"))
	}
	if c.DatasetDriver != DriverCSV && c.DatasetTable == "" {
		errs = append(errs, fmt.Errorf("dataset table is required for %s", c.DatasetDriver))
	}
	if c.FilterColumn == "" {
		errs = append(errs, errors.New("filter column is required"))
	}
	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP port %d", c.HTTPPort))
	}
	if c.GRPCPort < 0 || c.GRPCPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid gRPC port %d", c.GRPCPort))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("shutdown timeout must be positive, got %s", c.ShutdownTimeout))
	}
	return errors.Join(errs...)
}

// NewLogger creates a new Zap logger based on the config.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	if cfg.AppEnv == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	n, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(fallback)))
	if err != nil {
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, fallback.String()))
	if err != nil {
		return fallback
	}
	return d
}

// splitList splits a comma-separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
