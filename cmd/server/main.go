// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "sqm-service/docs"
	"sqm-service/internal/config"
	"sqm-service/internal/handler"
	"sqm-service/internal/routes"
	"sqm-service/internal/service"
	"sqm-service/internal/utils"
)

// Application represents the main application
type Application struct {
	config *config.Config
	logger *zap.Logger
	server *http.Server

	events        *service.EventBus
	sensorService *service.SensorService
	wsHandler     *handler.WebSocketHandler

	// cancels the event bus and websocket loops
	stopBackground context.CancelFunc
}

// @title SQM Service API
// @version 1.0.0
// @description Client service for SQM-LE and SQM-LU sky quality meters

// @contact.name SQM Service API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8085
// @BasePath /
func main() {
	app, err := NewApplication(os.Getenv("SQM_SERVICE_CONFIG"))
	if err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if err := app.Start(); err != nil {
		app.logger.Fatal("Failed to start application", zap.Error(err))
	}
}

// NewApplication creates a new application instance
func NewApplication(configPath string) (*Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	serviceLogger := utils.NewServiceLogger(logger, cfg.App.Name)
	serviceLogger.LogServiceStart(cfg.App.Version, cfg)

	app := &Application{
		config: cfg,
		logger: logger,
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := app.initializeServer(); err != nil {
		return nil, fmt.Errorf("failed to initialize server: %w", err)
	}

	return app, nil
}

// initializeServices creates the event bus and the sensor service
func (app *Application) initializeServices() error {
	app.events = service.NewEventBus(app.logger)

	sensorService, err := service.NewSensorService(app.config, app.events, app.logger)
	if err != nil {
		return err
	}
	app.sensorService = sensorService

	app.logger.Info("Services initialized successfully",
		zap.String("device_type", app.config.Sensor.DeviceType),
		zap.String("address", app.config.Sensor.Address),
		zap.Bool("discovery_enabled", app.config.Discovery.Enabled),
	)
	return nil
}

// initializeServer sets up HTTP server and routes
func (app *Application) initializeServer() error {
	routerManager := routes.NewRouter(app.config, app.logger, app.sensorService)
	router := routerManager.SetupRouter()
	app.wsHandler = routerManager.WebSocketHandler()

	app.server = &http.Server{
		Addr:         app.config.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  app.config.Server.IdleTimeout,
	}

	app.logger.Info("HTTP server initialized",
		zap.String("address", app.config.GetServerAddr()),
	)

	return nil
}

// startBackgroundServices starts the event bus, the websocket pump and the
// initial sensor connection
func (app *Application) startBackgroundServices() {
	ctx, cancel := context.WithCancel(context.Background())
	app.stopBackground = cancel

	go app.events.Run(ctx)
	go app.wsHandler.Run(ctx)

	if app.config.Sensor.ConnectOnStart {
		go app.connectSensor(ctx)
	}

	app.logger.Info("Background services started")
}

// connectSensor makes the initial connection. A failure is logged and left
// to an explicit connect request.
func (app *Application) connectSensor(ctx context.Context) {
	if err := app.sensorService.Connect(ctx); err != nil {
		app.logger.Warn("Initial sensor connection failed", zap.Error(err))
		return
	}

	app.logger.Info("Sensor connected",
		zap.String("address", app.sensorService.Status().Address),
	)
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
	serviceLogger := utils.NewServiceLogger(app.logger, app.config.App.Name)
	serviceLogger.LogServiceStop("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		app.logger.Info("HTTP server stopped")
	}

	if app.stopBackground != nil {
		app.stopBackground()
	}

	if err := app.sensorService.Close(ctx); err != nil {
		app.logger.Error("Sensor close error", zap.Error(err))
	} else {
		app.logger.Info("Sensor connection closed")
	}

	app.logger.Info("Application shutdown completed")

	if err := utils.CloseLogger(app.logger); err != nil {
		fmt.Printf("Logger close error: %v\n", err)
	}
}

// Start runs the HTTP server and blocks until a shutdown signal arrives
func (app *Application) Start() error {
	go func() {
		app.logger.Info("Starting HTTP server",
			zap.String("address", app.server.Addr),
		)

		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	app.startBackgroundServices()
	app.waitForShutdown()

	return nil
}
