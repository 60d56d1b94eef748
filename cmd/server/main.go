// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "terminal-bridge/docs"
	"terminal-bridge/internal/config"
	"terminal-bridge/internal/database"
	"terminal-bridge/internal/dispatcher"
	"terminal-bridge/internal/driver"
	"terminal-bridge/internal/handler"
	"terminal-bridge/internal/mdns"
	"terminal-bridge/internal/relay"
	"terminal-bridge/internal/repository"
	"terminal-bridge/internal/routes"
	"terminal-bridge/internal/service"
	"terminal-bridge/internal/token"
	"terminal-bridge/internal/utils"
	"terminal-bridge/pkg/terminal"
)

// Application represents the main application
type Application struct {
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
	database *database.DB

	journal repository.CommandRepository

	driverRegistry *driver.Registry
	terminal       terminal.Terminal
	bridge         *dispatcher.Dispatcher

	connections *handler.ConnectionManager
	eventBus    *handler.EventBus
	wsHandler   *handler.WebSocketHandler
	advertiser  *mdns.Advertiser

	stopBackground context.CancelFunc
}

// @title Terminal Bridge API
// @version 1.0.0
// @description Local bridge between a host application and a card reader SDK

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:4242
// @BasePath /
func main() {
	app, err := NewApplication()
	if err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if err := app.Start(); err != nil {
		app.logger.Fatal("Failed to start application", zap.Error(err))
	}
}

// NewApplication creates a new application instance
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	serviceLogger := utils.NewServiceLogger(logger, "terminal-bridge")
	serviceLogger.LogServiceStart(cfg.App.Version, cfg)

	app := &Application{
		config: cfg,
		logger: logger,
	}

	if err := app.initializeJournal(); err != nil {
		return nil, fmt.Errorf("failed to initialize command journal: %w", err)
	}

	if err := app.initializeTerminal(); err != nil {
		return nil, fmt.Errorf("failed to initialize terminal: %w", err)
	}

	if err := app.initializeBridge(); err != nil {
		return nil, fmt.Errorf("failed to initialize bridge: %w", err)
	}

	if err := app.initializeServer(); err != nil {
		return nil, fmt.Errorf("failed to initialize server: %w", err)
	}

	return app, nil
}

// initializeJournal opens the database journal when enabled, otherwise keeps
// the journal in memory
func (app *Application) initializeJournal() error {
	if !app.config.Database.Enabled {
		app.journal = repository.NewMemoryCommandRepository(app.config.Database.MemoryLimit, app.logger)
		app.logger.Info("Command journal kept in memory",
			zap.Int("limit", app.config.Database.MemoryLimit),
		)
		return nil
	}

	db, err := database.NewConnection(&app.config.Database, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create database connection: %w", err)
	}
	app.database = db

	migrator := database.NewMigrator(db, app.logger)
	if err := migrator.Up(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	app.journal = repository.NewCommandRepository(db, app.logger)
	app.logger.Info("Database initialized successfully")
	return nil
}

// initializeTerminal creates the configured SDK backend
func (app *Application) initializeTerminal() error {
	app.driverRegistry = driver.NewRegistry(app.logger)
	driver.RegisterDefaultDrivers(app.driverRegistry)

	sdk, err := app.driverRegistry.Create(&app.config.Terminal)
	if err != nil {
		return err
	}
	app.terminal = sdk

	app.logger.Info("Terminal driver initialized",
		zap.String("driver", app.config.Terminal.Driver),
		zap.Strings("registered_drivers", app.driverRegistry.List()),
	)
	return nil
}

// initializeBridge wires the dispatcher to the event channel
func (app *Application) initializeBridge() error {
	policy, err := service.ParseSlotPolicy(app.config.Terminal.HandlePolicy)
	if err != nil {
		return err
	}

	app.connections = handler.NewConnectionManager()
	app.eventBus = handler.NewEventBus(app.connections, app.logger)

	app.bridge = dispatcher.New(
		app.terminal,
		token.NewProvider(&app.config.Token, app.logger),
		relay.NewEventRelay(app.eventBus, app.logger),
		app.journal,
		dispatcher.Options{
			HandlePolicy:      policy,
			DefaultLocationID: app.config.Terminal.DefaultLocationID,
		},
		app.logger,
	)

	app.logger.Info("Bridge initialized",
		zap.String("handle_policy", string(policy)),
		zap.Int("methods", len(app.bridge.Methods())),
	)
	return nil
}

func (app *Application) initializeServer() error {
	routerManager := routes.NewRouter(
		app.config,
		app.logger,
		app.database,
		app.bridge,
		app.journal,
		app.connections,
	)
	app.wsHandler = routerManager.WebSocketHandler()

	router := routerManager.SetupRouter()

	app.server = &http.Server{
		Addr:         app.config.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  app.config.Server.IdleTimeout,
	}

	if app.config.MDNS.Enabled {
		port, err := strconv.Atoi(app.config.Server.Port)
		if err != nil {
			return fmt.Errorf("invalid server port for mDNS: %w", err)
		}
		app.advertiser = mdns.NewAdvertiser(&app.config.MDNS, port, app.config.App.Version, routes.ChannelPath, app.logger)
	}

	app.logger.Info("HTTP server initialized",
		zap.String("address", app.config.GetServerAddr()),
		zap.Bool("tls_enabled", app.config.Server.TLS.Enabled),
	)

	return nil
}

// startBackgroundServices starts background services
func (app *Application) startBackgroundServices() {
	ctx, cancel := context.WithCancel(context.Background())
	app.stopBackground = cancel

	go app.eventBus.Start()
	go app.startCleanupService(ctx)

	if app.advertiser != nil {
		if err := app.advertiser.Start(); err != nil {
			app.logger.Warn("mDNS advertisement unavailable", zap.Error(err))
		}
	}

	app.logger.Info("Background services started")
}

// startCleanupService prunes journal entries older than the retention window
func (app *Application) startCleanupService(ctx context.Context) {
	ticker := time.NewTicker(app.config.Database.CleanupPeriod)
	defer ticker.Stop()

	app.logger.Info("Journal cleanup started",
		zap.Duration("interval", app.config.Database.CleanupPeriod),
		zap.Duration("retention", app.config.Database.Retention),
	)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		cleanupCtx, cancel := context.WithTimeout(ctx, time.Minute)
		deleted, err := app.journal.DeleteOlderThan(cleanupCtx, time.Now().Add(-app.config.Database.Retention))
		cancel()

		if err != nil {
			app.logger.Error("Failed to clean up command journal", zap.Error(err))
		} else if deleted > 0 {
			app.logger.Info("Cleaned up command journal", zap.Int64("deleted", deleted))
		}
	}
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown
func (app *Application) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	app.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	app.shutdown()
}

// shutdown performs graceful shutdown
func (app *Application) shutdown() {
	serviceLogger := utils.NewServiceLogger(app.logger, "terminal-bridge")
	serviceLogger.LogServiceStop("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if app.advertiser != nil {
		app.advertiser.Stop()
	}

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		app.logger.Info("HTTP server stopped")
	}

	// Channel clients are hijacked connections and outlive server.Shutdown
	app.wsHandler.Shutdown()
	app.bridge.Close(ctx)
	app.eventBus.Stop()

	if app.stopBackground != nil {
		app.stopBackground()
	}

	if app.database != nil {
		if err := app.database.Close(); err != nil {
			app.logger.Error("Database close error", zap.Error(err))
		} else {
			app.logger.Info("Database connection closed")
		}
	}

	app.logger.Info("Application shutdown completed")

	if err := utils.CloseLogger(app.logger); err != nil {
		fmt.Printf("Logger close error: %v\n", err)
	}
}

func (app *Application) Start() error {
	go func() {
		app.logger.Info("Starting HTTP server",
			zap.String("address", app.server.Addr),
		)

		var err error
		if app.config.Server.TLS.Enabled {
			err = app.server.ListenAndServeTLS(
				app.config.Server.TLS.CertFile,
				app.config.Server.TLS.KeyFile,
			)
		} else {
			err = app.server.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			app.logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	app.startBackgroundServices()

	app.waitForShutdown()

	return nil
}
