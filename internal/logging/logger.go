package logging

import (
	"os"
	"sync"

	"axle-upload/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	globalLogger   *zap.Logger
	globalLoggerMu sync.RWMutex
)

// Custom level encoder function
func customLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + level.CapitalString() + "]")
}

// Custom level encoder function with color for console
func customColorLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	var colorPrefix, colorSuffix string
	switch level {
	case zapcore.DebugLevel:
		colorPrefix = "\x1b[35m" // Magenta
		colorSuffix = "\x1b[0m"
	case zapcore.InfoLevel:
		colorPrefix = "\x1b[32m" // Green
		colorSuffix = "\x1b[0m"
	case zapcore.WarnLevel:
		colorPrefix = "\x1b[33m" // Yellow
		colorSuffix = "\x1b[0m"
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		colorPrefix = "\x1b[31m" // Red
		colorSuffix = "\x1b[0m"
	}
	enc.AppendString(colorPrefix + "[" + level.CapitalString() + "]" + colorSuffix)
}

// CreateFileConsoleEncoderConfigs sets up the encoder configurations for the
// console and file outputs.
func CreateFileConsoleEncoderConfigs() (zapcore.EncoderConfig, zapcore.EncoderConfig) {
	consoleEncoderCfg := zap.NewDevelopmentEncoderConfig()
	consoleEncoderCfg.EncodeLevel = customColorLevelEncoder
	consoleEncoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleEncoderCfg.EncodeCaller = zapcore.ShortCallerEncoder

	fileEncoderCfg := zap.NewProductionEncoderConfig()
	fileEncoderCfg.EncodeLevel = customLevelEncoder
	fileEncoderCfg.TimeKey = "timestamp"
	fileEncoderCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	fileEncoderCfg.EncodeCaller = zapcore.ShortCallerEncoder

	return consoleEncoderCfg, fileEncoderCfg
}

// InitializeLogger builds the application logger writing to console and the
// rotating log file. The DB core is attached later, once the ledger database
// is open; see AttachDBCore.
func InitializeLogger(cfg *config.Config, fileSyncer zapcore.WriteSyncer) *zap.Logger {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = zapcore.InfoLevel
	}

	consoleEncoderCfg, fileEncoderCfg := CreateFileConsoleEncoderConfigs()
	consoleCore := zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoderCfg), zapcore.Lock(os.Stdout), level)
	fileCore := zapcore.NewCore(zapcore.NewConsoleEncoder(fileEncoderCfg), fileSyncer, level)

	logger := zap.New(zapcore.NewTee(consoleCore, fileCore),
		zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	logger.Info("Application logger initialized",
		zap.String("environment", cfg.AppEnv),
		zap.String("configuredLevel", cfg.LogLevel),
		zap.String("logFile", cfg.LogFilePath),
	)
	return logger
}

// SetGlobalLogger sets the global logger instance.
func SetGlobalLogger(logger *zap.Logger) {
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()
	globalLogger = logger
}

// GetLogger returns the global logger, or a production fallback if it was
// accessed before being set.
func GetLogger() *zap.Logger {
	globalLoggerMu.RLock()
	l := globalLogger
	globalLoggerMu.RUnlock()

	if l == nil {
		fallbackLogger, _ := zap.NewProduction()
		fallbackLogger.Warn("Global logger accessed before being set!")
		return fallbackLogger
	}
	return l
}
