package routes

import (
	"time"

	"axle-upload/internal/bootstrap"
	"axle-upload/internal/config"
	"axle-upload/internal/logging"
	mw "axle-upload/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SetupRoutes configures the application routes.
func SetupRoutes(
	app *fiber.App,
	cfg *config.Config,
	logger *zap.Logger,
	components *bootstrap.AppComponents,
	db *gorm.DB,
) {
	logger.Info("Setting up application routes...")

	// Health Check
	app.Get("/health", func(c *fiber.Ctx) error {
		lg := logging.GetLogger()
		healthStatus := fiber.Map{"status": "healthy", "timestamp": time.Now().UTC()}
		dbStatus := "uninitialized"

		if db != nil {
			if sqlDB, err := db.DB(); err == nil {
				if err := sqlDB.PingContext(c.Context()); err == nil {
					dbStatus = "connected"
				} else {
					dbStatus = "disconnected"
					lg.Warn("Health check: database ping failed", zap.Error(err))
				}
			} else {
				dbStatus = "disconnected"
			}
		}
		healthStatus["dependencies"] = fiber.Map{"database": dbStatus}
		return c.Status(fiber.StatusOK).JSON(healthStatus)
	})

	api := app.Group("/api/v1")

	// Authentication (public)
	auth := api.Group("/auth")
	auth.Post("/login", components.AuthHandler.Login)

	// Activation status (public read, protected write)
	api.Get("/activation", components.SettingsHandler.Activation)
	api.Post("/activation", mw.Protected(cfg.JWTSecret), components.SettingsHandler.SetActivation)

	// Persisted application logs (operator review)
	api.Get("/logs", mw.Protected(cfg.JWTSecret), components.LogHandler.Recent)

	// Per-target routes
	target := api.Group("/targets/:target")
	target.Post("/scan", components.TargetHandler.Scan)
	target.Get("/records", components.TargetHandler.List)
	target.Post("/records/:id/upload", components.TargetHandler.Upload)
	target.Delete("/records/:id", mw.Protected(cfg.JWTSecret), components.TargetHandler.Delete)
	target.Get("/events", components.TargetHandler.Events)
	target.Get("/settings", components.SettingsHandler.Get)
	target.Put("/settings", mw.Protected(cfg.JWTSecret), components.SettingsHandler.Update)
}
