package bootstrap

import (
	"context"
	"time"

	"axle-upload/internal/activation"
	"axle-upload/internal/bridge"
	"axle-upload/internal/config"
	"axle-upload/internal/handlers"
	"axle-upload/internal/notify"
	"axle-upload/internal/repositories"
	"axle-upload/internal/resolver"
	"axle-upload/internal/scheduler"
	"axle-upload/internal/services"
	"axle-upload/internal/settings"
	"axle-upload/internal/targets"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AppComponents holds the initialized components: handlers, the scheduler and
// the shared stores.
type AppComponents struct {
	AuthHandler     *handlers.AuthHandler
	TargetHandler   *handlers.TargetHandler
	SettingsHandler *handlers.SettingsHandler
	LogHandler      *handlers.LogHandler

	Scheduler *scheduler.Scheduler
	Settings  *settings.Store
	Gate      *activation.Gate
	Hub       *notify.Hub
	LogRepo   repositories.LogRepository
}

// InitializeAppComponents creates and wires up the application's core
// components: repositories, the bridge and resolver, the target adapters, the
// scheduler, services and handlers.
func InitializeAppComponents(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
) (*AppComponents, error) {
	logger.Info("Initializing application components...")

	logRepo := repositories.NewLogRepository(db, logger)
	userRepo := repositories.NewUserRepository(db, logger)

	store, err := settings.NewStore(db, cfg.TargetDefaults, logger)
	if err != nil {
		return nil, err
	}

	br := bridge.New(cfg.UtilityPath, time.Duration(cfg.BridgeTimeoutSeconds)*time.Second, logger)
	res := resolver.New(br, cfg.AccessDBPath, logger)
	gate := activation.New(cfg.ActivationCode, logger)
	hub := notify.NewHub()

	descriptors := []targets.Descriptor{targets.HMIS(), targets.CMIS(), targets.LMIS(), targets.TMIS()}
	adapters := make([]*targets.Adapter, 0, len(descriptors))
	uploaders := make([]scheduler.Uploader, 0, len(descriptors))
	for _, desc := range descriptors {
		ledger := repositories.NewLedgerRepository(db, targets.LedgerTable(desc.Name), logger)
		a := targets.NewAdapter(desc, store, ledger, res, hub, logger)
		adapters = append(adapters, a)
		uploaders = append(uploaders, a)
	}

	sched := scheduler.New(uploaders, store, gate, logger)

	authService := services.NewAuthService(userRepo, logger, cfg.JWTSecret)
	seedCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := authService.EnsureDefaultAdmin(seedCtx, "admin", "admin"); err != nil {
		return nil, err
	}

	components := &AppComponents{
		AuthHandler:     handlers.NewAuthHandler(authService, logger),
		TargetHandler:   handlers.NewTargetHandler(adapters, hub, logger),
		SettingsHandler: handlers.NewSettingsHandler(store, gate, logger),
		LogHandler:      handlers.NewLogHandler(logRepo, logger),
		Scheduler:       sched,
		Settings:        store,
		Gate:            gate,
		Hub:             hub,
		LogRepo:         logRepo,
	}
	logger.Info("Application components initialization complete.")
	return components, nil
}
