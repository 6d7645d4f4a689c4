package utils

import (
	"fmt"

	"axle-upload/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TraceConfigDetails logs the loaded configuration with secrets masked.
func TraceConfigDetails(logger *zap.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		fmt.Println("[WARN] logger or config is nil in TraceConfigDetails")
		return
	}
	maskedJWTSecret := "*** MASKED ***"
	if cfg.JWTSecret == "default-secret" {
		maskedJWTSecret = "default-secret (!!! WARNING: Using default JWT secret !!!)"
	} else if cfg.JWTSecret == "" {
		maskedJWTSecret = "--- EMPTY (!!! WARNING: JWT Secret is empty !!!) ---"
	}
	maskedActivation := "--- NOT SET ---"
	if cfg.ActivationCode != "" {
		maskedActivation = fmt.Sprintf("*** MASKED (%d chars) ***", len(cfg.ActivationCode))
	}
	fields := []zapcore.Field{
		zap.String("AppEnv", cfg.AppEnv),
		zap.String("Port", cfg.Port),
		zap.String("JWTSecret", maskedJWTSecret),
		zap.String("DBDriver", cfg.DBDriver),
		zap.String("SQLitePath", cfg.SQLitePath),
		zap.String("DBDSN", MaskDSN(cfg.DBDSN)),
		zap.Int("DBMaxOpenConns", cfg.DBMaxOpenConns),
		zap.Int("DBMaxIdleConns", cfg.DBMaxIdleConns),
		zap.Int("DBConnMaxLifetimeMinutes", cfg.DBConnMaxLifetimeMinutes),
		zap.String("UtilityPath", cfg.UtilityPath),
		zap.String("AccessDBPath", cfg.AccessDBPath),
		zap.Int("BridgeTimeoutSeconds", cfg.BridgeTimeoutSeconds),
		zap.String("ActivationCode", maskedActivation),
		zap.String("LogFilePath", cfg.LogFilePath),
		zap.String("LogLevel", cfg.LogLevel),
		zap.Int("LogRotateIntervalHours", cfg.LogRotateInterval),
		zap.Int("LogMaxSizeMB", cfg.LogMaxSize),
		zap.Int("LogMaxBackups", cfg.LogMaxBackups),
		zap.Int("LogMaxAgeDays", cfg.LogMaxAge),
		zap.Bool("LogCompress", cfg.LogCompress),
		zap.Bool("DBLogEnabled", cfg.DBLogEnabled),
		zap.String("DBLogLevel", cfg.DBLogLevel),
		zap.String("CORS_AllowOrigins", cfg.CORSAllowOrigins),
		zap.String("CORS_AllowMethods", cfg.CORSAllowMethods),
		zap.String("CORS_AllowHeaders", cfg.CORSAllowHeaders),
	}
	for _, t := range cfg.TargetDefaults {
		fields = append(fields, zap.String("Target_"+t.Target+"_Host", t.Host))
	}
	logger.Debug("Loaded application configuration details", fields...)
}
