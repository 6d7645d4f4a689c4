package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"axle-upload/internal/bootstrap"
	"axle-upload/internal/config"
	"axle-upload/internal/database"
	"axle-upload/internal/logging"
	"axle-upload/internal/middleware"
	"axle-upload/internal/routes"
	"axle-upload/internal/utils"

	"github.com/DeRuina/timberjack"
	"github.com/gofiber/contrib/fiberzap/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Run initializes and starts the application.
func Run() {
	initAppStartTime := time.Now()

	// --- 1. Load Configuration ---
	tempConfigLogger, _ := zap.NewProduction(zap.ErrorOutput(zapcore.Lock(os.Stderr)))
	defer tempConfigLogger.Sync()

	cfg, err := config.LoadConfig(tempConfigLogger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- 2. Create rotating file writer ---
	logDir := filepath.Dir(cfg.LogFilePath)
	if logDir != "." && logDir != "/" {
		if err := os.MkdirAll(logDir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: Failed to ensure log directory %s exists: %v\n", logDir, err)
			os.Exit(1)
		}
	}
	timberJackLogger := &timberjack.Logger{
		Filename:         cfg.LogFilePath,
		MaxSize:          cfg.LogMaxSize,
		MaxBackups:       cfg.LogMaxBackups,
		MaxAge:           cfg.LogMaxAge,
		Compress:         cfg.LogCompress,
		LocalTime:        true,
		RotationInterval: time.Duration(cfg.LogRotateInterval) * time.Hour,
	}
	fileSyncer := zapcore.AddSync(timberJackLogger)

	// --- 3. Initialize application logger ---
	logger := logging.InitializeLogger(cfg, fileSyncer)
	logging.SetGlobalLogger(logger)
	utils.TraceConfigDetails(logger, cfg)

	// --- 4. Open the ledger database ---
	db, err := database.Connect(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}

	// --- 5. Initialize application components ---
	components, err := bootstrap.InitializeAppComponents(cfg, logger, db)
	if err != nil {
		logger.Fatal("Failed to initialize application components", zap.Error(err))
	}

	// Attach the DB log core now that the log repository is live. Warn and
	// above also land in the database for later review.
	if cfg.DBLogEnabled {
		var dbLogLevel zapcore.Level
		if err := dbLogLevel.UnmarshalText([]byte(cfg.DBLogLevel)); err != nil {
			dbLogLevel = zapcore.WarnLevel
		}
		logger = logging.AttachDBCore(logger, components.LogRepo, dbLogLevel)
		logging.SetGlobalLogger(logger)
		logger.Info("Database log core attached", zap.String("level", dbLogLevel.String()))
	}

	// --- 6. Initialize Fiber App ---
	appFiber := fiber.New(fiber.Config{
		AppName: "axle-upload",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			lg := middleware.GetRequestLogger(c)
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) && e != nil {
				code = e.Code
			}
			fields := []zap.Field{
				zap.Int("status", code),
				zap.String("path", c.Path()),
				zap.String("method", c.Method()),
				zap.String("ip", c.IP()),
				zap.Error(err),
			}
			if code == fiber.StatusNotFound {
				lg.Warn("Resource not found", fields...)
			} else {
				lg.Error("Unhandled request error", fields...)
			}
			resp := fiber.Map{"error": "An unexpected error occurred"}
			if cfg.AppEnv != "production" && err != nil {
				resp["detail"] = err.Error()
			}
			return c.Status(code).JSON(resp)
		},
	})

	// --- 7. Register Middleware ---
	appFiber.Use(recover.New(recover.Config{
		EnableStackTrace: strings.ToLower(cfg.LogLevel) == "debug",
		StackTraceHandler: func(c *fiber.Ctx, e interface{}) {
			middleware.GetRequestLogger(c).Error("Panic recovered", zap.Any("panic_value", e))
		},
	}))
	logger.Info("Configuring CORS",
		zap.String("origins", cfg.CORSAllowOrigins),
		zap.String("methods", cfg.CORSAllowMethods),
		zap.String("headers", cfg.CORSAllowHeaders))
	appFiber.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSAllowOrigins,
		AllowMethods: cfg.CORSAllowMethods,
		AllowHeaders: cfg.CORSAllowHeaders,
	}))
	appFiber.Use(middleware.RequestLogger(logger))
	appFiber.Use(fiberzap.New(fiberzap.Config{
		Logger: logger,
		Fields: []string{"status", "method", "url", "ip", "latency", "error"},
		FieldsFunc: func(c *fiber.Ctx) []zap.Field {
			fields := []zap.Field{zap.String("log_type", "access")}
			if reqID := middleware.GetRequestID(c); reqID != "" {
				fields = append(fields, zap.String("request_id", reqID))
			}
			return fields
		},
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/health" || strings.HasSuffix(c.Path(), "/events")
		},
	}))

	// --- 8. Setup Application Routes ---
	routes.SetupRoutes(appFiber, cfg, logger, components, db)

	// --- 9. Start the auto-upload scheduler ---
	components.Scheduler.Start()
	logger.Info("Auto-upload scheduler started")

	// --- 10. Start Server & Graceful Shutdown ---
	serverCtx, cancelServerCtx := context.WithCancel(context.Background())
	defer cancelServerCtx()
	serverStopped := make(chan struct{})

	initAppDurationMs := time.Since(initAppStartTime).Milliseconds()

	go func() {
		defer close(serverStopped)
		listenAddr := ":" + cfg.Port
		logger.Info(fmt.Sprintf("Completed initialization application in %d ms.", initAppDurationMs))
		logger.Info("Starting Fiber server...",
			zap.String("address", listenAddr),
			zap.Int("pid", os.Getpid()),
			zap.String("app_env", cfg.AppEnv),
		)
		if err := appFiber.Listen(listenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server listener failed", zap.String("address", listenAddr), zap.Error(err))
			cancelServerCtx()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	select {
	case s := <-sig:
		logger.Info("Shutdown signal received.", zap.String("signal", s.String()))
	case <-serverCtx.Done():
		logger.Info("Server context cancelled, initiating shutdown.")
	}

	logger.Info("Initiating graceful shutdown...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancelShutdown()

	components.Scheduler.Stop()
	logger.Info("Auto-upload scheduler stopped")

	if err := appFiber.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Fiber server shutdown failed", zap.Error(err))
	} else {
		logger.Info("Fiber server gracefully stopped.")
	}
	<-serverStopped

	if sqlDB, err := db.DB(); err == nil {
		if errClose := sqlDB.Close(); errClose != nil {
			fmt.Fprintf(os.Stderr, "[ERROR] Error closing database: %v\n", errClose)
		} else {
			fmt.Println("[INFO] Database connection closed.")
		}
	}

	if errSync := logger.Sync(); errSync != nil {
		errMsg := errSync.Error()
		if !strings.Contains(errMsg, "handle is invalid") && !strings.Contains(errMsg, "sync /dev/stdout") {
			fmt.Fprintf(os.Stderr, "[WARN] Error syncing logger: %v\n", errSync)
		}
	}

	fmt.Println("[INFO] Application shutdown complete.")
}
