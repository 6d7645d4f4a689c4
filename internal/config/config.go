package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"axle-upload/internal/models"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Config holds all configuration for the application.
type Config struct {
	AppEnv           string
	Port             string
	CORSAllowOrigins string
	CORSAllowMethods string
	CORSAllowHeaders string
	JWTSecret        string

	// Local ledger database.
	DBDriver                 string // sqlite (default), mysql or postgres
	SQLitePath               string
	DBDSN                    string // used by mysql/postgres
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeMinutes int

	// Process bridge to the inspection station's Access database.
	UtilityPath          string
	AccessDBPath         string
	BridgeTimeoutSeconds int

	ActivationCode string

	LogFilePath       string
	LogLevel          string
	LogRotateInterval int // hours
	LogMaxSize        int // MB
	LogMaxBackups     int
	LogMaxAge         int // days
	LogCompress       bool
	DBLogEnabled      bool
	DBLogLevel        string

	// Seed settings per upload target; persisted rows win after first run.
	TargetDefaults []models.TargetSetting
}

// LoadConfig reads configuration from environment variables or a .env file.
// The logger may be nil during early startup.
func LoadConfig(logger *zap.Logger) (*Config, error) {
	appEnv := getEnv("APP_ENV", "local")

	envFileName := fmt.Sprintf(".env.%s", appEnv)
	if _, err := os.Stat(envFileName); err == nil {
		if err := godotenv.Load(envFileName); err != nil {
			if logger != nil {
				logger.Warn("Error loading .env file, continuing with environment variables", zap.String("file", envFileName), zap.Error(err))
			}
		} else if logger != nil {
			logger.Info("Loaded configuration", zap.String("file", envFileName))
		}
	} else if logger != nil {
		logger.Warn("No .env file found for environment, relying on environment variables or defaults", zap.String("environment", appEnv))
	}

	cfg := &Config{
		AppEnv:    getEnv("APP_ENV", "local"),
		Port:      getEnv("PORT", "3000"),
		JWTSecret: getEnv("JWT_SECRET", "default-secret"),

		DBDriver:                 strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		SQLitePath:               getEnv("SQLITE_DB_PATH", "./data/axle-upload.db"),
		DBDSN:                    getEnv("DB_DSN", ""),
		DBMaxOpenConns:           getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
		DBMaxIdleConns:           getEnvAsInt("DB_MAX_IDLE_CONNS", 2),
		DBConnMaxLifetimeMinutes: getEnvAsInt("DB_CONN_MAX_LIFETIME_MINUTES", 60),

		UtilityPath:          getEnv("ACCESS_READER_PATH", "./tools/AccessReader/AccessReader.exe"),
		AccessDBPath:         getEnv("ACCESS_DB_PATH", ""),
		BridgeTimeoutSeconds: getEnvAsInt("BRIDGE_TIMEOUT_SECONDS", 60),

		ActivationCode: getEnv("ACTIVATION_CODE", ""),

		LogFilePath:       getEnv("LOG_FILE_PATH", "./logs/app.log"),
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogRotateInterval: getEnvAsInt("LOG_ROTATE_INTERVAL", 24),
		LogMaxSize:        getEnvAsInt("LOG_MAX_SIZE", 100),
		LogMaxBackups:     getEnvAsInt("LOG_MAX_BACKUPS", 5),
		LogMaxAge:         getEnvAsInt("LOG_MAX_AGE", 30),
		LogCompress:       getEnvAsBool("LOG_COMPRESS", false),
		DBLogEnabled:      getEnvAsBool("DB_LOG_ENABLED", true),
		DBLogLevel:        strings.ToLower(getEnv("DB_LOG_LEVEL", "warn")),

		CORSAllowOrigins: getEnv("CORS_ALLOW_ORIGINS", func() string {
			if getEnv("APP_ENV", "local") == "local" || getEnv("APP_ENV", "local") == "development" {
				return "*"
			}
			return ""
		}()),
		CORSAllowMethods: getEnv("CORS_ALLOW_METHODS", "GET,POST,HEAD,PUT,DELETE,PATCH"),
		CORSAllowHeaders: getEnv("CORS_ALLOW_HEADERS", "Origin,Content-Type,Accept,Authorization"),
	}

	for _, target := range []string{"hmis", "cmis", "lmis", "tmis"} {
		cfg.TargetDefaults = append(cfg.TargetDefaults, targetDefaults(target))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "dpanic": true, "panic": true, "fatal": true}
	if !validLevels[cfg.LogLevel] {
		if logger != nil {
			logger.Warn("Invalid LOG_LEVEL specified, defaulting to 'info'", zap.String("invalidLevel", cfg.LogLevel))
		}
		cfg.LogLevel = "info"
	}
	if !validLevels[cfg.DBLogLevel] {
		cfg.DBLogLevel = "warn"
	}

	switch cfg.DBDriver {
	case "sqlite":
	case "mysql", "postgres":
		if cfg.DBDSN == "" {
			return nil, fmt.Errorf("DB_DSN is required for driver %s", cfg.DBDriver)
		}
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	if cfg.AccessDBPath == "" {
		if logger != nil {
			logger.Warn("ACCESS_DB_PATH is not set; detection resolution will fail until it is configured")
		}
	}
	if cfg.JWTSecret == "default-secret" {
		if logger != nil {
			logger.Warn("JWT_SECRET is using the default value. Please set a strong secret in production.")
		}
	}
	if cfg.AppEnv != "local" && cfg.AppEnv != "development" && (cfg.CORSAllowOrigins == "*" || cfg.CORSAllowOrigins == "") {
		return nil, fmt.Errorf("CORS_ALLOW_ORIGINS must be set explicitly in production environments")
	}

	return cfg, nil
}

// targetDefaults builds the seed settings row for one target from its
// environment variables, e.g. HMIS_HOST or CMIS_AUTO_UPLOAD.
func targetDefaults(name string) models.TargetSetting {
	prefix := strings.ToUpper(name) + "_"
	return models.TargetSetting{
		Target:                    name,
		Host:                      getEnv(prefix+"HOST", ""),
		AutoUpload:                getEnvAsBool(prefix+"AUTO_UPLOAD", false),
		AutoUploadIntervalSeconds: getEnvAsInt(prefix+"AUTO_UPLOAD_INTERVAL_SECONDS", 300),
		TodayOnly:                 getEnvAsBool(prefix+"TODAY_ONLY", true),
		LookbackDays:              getEnvAsInt(prefix+"LOOKBACK_DAYS", 30),
		UnitCode:                  getEnv(prefix+"UNIT_CODE", ""),
		SiteCodePrefix:            getEnv(prefix+"SITE_CODE_PREFIX", ""),
		OperatorRole:              getEnv(prefix+"OPERATOR_ROLE", ""),
	}
}

// Helper function to get env var or default
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// Helper function to get env var as int or default
func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

// Helper function to get env var as bool or default
func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}
