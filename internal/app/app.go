// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/StoryboardStudio/internal/api"
	"github.com/Corphon/StoryboardStudio/internal/config"
	"github.com/Corphon/StoryboardStudio/internal/di"
	"github.com/Corphon/StoryboardStudio/internal/gateway"
	"github.com/Corphon/StoryboardStudio/internal/media"
	"github.com/Corphon/StoryboardStudio/internal/services"
	"github.com/Corphon/StoryboardStudio/internal/storage"
	"github.com/Corphon/StoryboardStudio/internal/utils"
)

const shutdownTimeout = 30 * time.Second

// App owns the HTTP server and the services behind it.
type App struct {
	config    *config.AppConfig
	container *di.Container
	router    *gin.Engine
	server    *http.Server
	logger    *utils.Logger

	stopChan      chan struct{}
	stopOnce      sync.Once
	cancelReports context.CancelFunc
}

var (
	instance   *App
	instanceMu sync.Mutex
)

// GetApp returns the process-wide app.
func GetApp() *App {
	instanceMu.Lock()
	defer instanceMu.Unlock()

	if instance == nil {
		instance = &App{
			container: di.GetContainer(),
			stopChan:  make(chan struct{}),
		}
	}
	return instance
}

// InitServices registers every service in the global container.
func InitServices() error {
	return InitServicesWith(di.GetContainer(), config.GetCurrentConfig())
}

// InitServicesWith registers every service in container, in dependency order.
func InitServicesWith(container *di.Container, cfg *config.AppConfig) error {
	logger := utils.GetLogger()
	container.Register(di.ServiceLogger, logger)

	metrics := utils.NewStudioMetrics(utils.GetMetricsCollector(), logger)
	container.Register(di.ServiceMetrics, metrics)

	gw := gateway.NewHTTPClient(gateway.Options{
		BaseURL:         cfg.Gateway.BaseURL,
		APIKey:          cfg.Gateway.APIKey,
		Timeout:         cfg.Gateway.Timeout,
		RatePerSec:      cfg.Gateway.RatePerSec,
		Burst:           cfg.Gateway.Burst,
		MaxRequestBytes: cfg.MaxRequestBytes,
		Metrics:         metrics,
		Logger:          logger,
	})
	container.Register(di.ServiceGateway, gw)

	compressor := media.NewCompressor(logger)
	container.Register(di.ServiceCompressor, compressor)

	exporter := services.NewStoryboardExporter(logger)
	container.Register(di.ServiceExporter, exporter)

	store, err := storage.NewFileStorage(cfg.DataDir, logger)
	if err != nil {
		return fmt.Errorf("failed to open artifact storage: %w", err)
	}
	container.Register(di.ServiceStorage, store)

	hub := api.NewHub(logger)
	go hub.Run()
	container.Register(di.ServiceHub, hub)

	studio := services.NewStudioService(services.StudioOptions{
		Gateway:           gw,
		Compressor:        compressor,
		Exporter:          exporter,
		Artifacts:         store,
		Notifier:          hub,
		Metrics:           metrics,
		Logger:            logger,
		ProjectTTL:        cfg.ProjectTTL,
		UploadConcurrency: cfg.UploadConcurrency,
	})
	container.Register(di.ServiceStudio, studio)

	logger.Info("✅ Services registered", map[string]interface{}{
		"services": container.GetNames(),
		"gateway":  gw.BaseURL(),
	})
	return nil
}

// Initialize wires services and the router. Services already in the container are reused.
func (a *App) Initialize() error {
	a.config = config.GetCurrentConfig()
	a.logger = utils.GetLogger()

	if !a.container.Has(di.ServiceStudio) {
		if err := InitServicesWith(a.container, a.config); err != nil {
			return err
		}
	}

	router, err := api.SetupRouterWith(a.container, a.config)
	if err != nil {
		return fmt.Errorf("failed to set up router: %w", err)
	}
	a.router = router
	a.server = &http.Server{
		Addr:              ":" + a.config.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// Run serves until Stop is called or the server fails, then shuts down gracefully.
func (a *App) Run() error {
	if a.server == nil {
		return errors.New("app is not initialized")
	}

	reportCtx, cancel := context.WithCancel(context.Background())
	a.cancelReports = cancel
	if metrics, err := di.Resolve[*utils.StudioMetrics](a.container, di.ServiceMetrics); err == nil {
		metrics.StartReporting(reportCtx, 5*time.Minute)
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("🌐 Server listening", map[string]interface{}{"addr": a.server.Addr})
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			a.Cleanup()
			return fmt.Errorf("server failed: %w", err)
		}
	case <-a.stopChan:
	}

	a.logger.Info("🛑 Shutting down server", nil)
	ctx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	err := a.server.Shutdown(ctx)
	a.Cleanup()
	if err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	a.logger.Info("✅ Server stopped", nil)
	return nil
}

// Stop asks Run to return.
func (a *App) Stop() {
	a.stopOnce.Do(func() { close(a.stopChan) })
}

// Cleanup stops background work and flushes logs.
func (a *App) Cleanup() {
	if a.cancelReports != nil {
		a.cancelReports()
	}
	if hub, err := di.Resolve[*api.Hub](a.container, di.ServiceHub); err == nil {
		hub.Stop()
	}
	if studio, err := di.Resolve[*services.StudioService](a.container, di.ServiceStudio); err == nil {
		studio.Close()
	}
	if a.logger != nil {
		a.logger.Sync()
	}
}

// Router returns the configured engine.
func (a *App) Router() *gin.Engine {
	return a.router
}

// GetConfig returns the configuration captured at Initialize.
func (a *App) GetConfig() *config.AppConfig {
	return a.config
}

// GetDIContainer returns the app's container.
func (a *App) GetDIContainer() *di.Container {
	return a.container
}

// IsDebugMode reports whether debug mode is on.
func (a *App) IsDebugMode() bool {
	return a.config != nil && a.config.DebugMode
}
