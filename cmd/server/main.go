// cmd/server/main.go
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/Corphon/StoryboardStudio/internal/app"
	"github.com/Corphon/StoryboardStudio/internal/config"
	"github.com/Corphon/StoryboardStudio/internal/di"
	"github.com/Corphon/StoryboardStudio/internal/storage"
	"github.com/Corphon/StoryboardStudio/internal/utils"
)

func main() {
	log.Println("🚀 Starting Storyboard Studio server...")

	// 1. environment
	baseConfig, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}
	log.Printf("✅ Base configuration loaded, port: %s", baseConfig.Port)

	// 2. directories
	createDirectories(baseConfig)

	// 3. persisted settings
	if err := config.InitConfig(baseConfig.DataDir); err != nil {
		log.Fatalf("❌ Failed to initialize configuration: %v", err)
	}

	// 4. logging
	if err := utils.InitLogger(filepath.Join(baseConfig.LogDir, "studio.log"), baseConfig.LogLevel); err != nil {
		log.Printf("⚠️ File logging disabled: %v", err)
	}
	logger := utils.GetLogger()

	// 5. services
	if err := app.InitServices(); err != nil {
		logger.Fatal("❌ Failed to initialize services", map[string]interface{}{"error": err.Error()})
	}
	if err := performHealthCheck(); err != nil {
		logger.Warn("⚠️ Service health check", map[string]interface{}{"error": err.Error()})
	}

	// 6. server
	application := app.GetApp()
	if err := application.Initialize(); err != nil {
		logger.Fatal("❌ Failed to set up server", map[string]interface{}{"error": err.Error()})
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-quit
		logger.Info("🛑 Signal received", map[string]interface{}{"signal": sig.String()})
		application.Stop()
	}()

	logger.Info("🔗 Ready", map[string]interface{}{
		"api":       fmt.Sprintf("http://localhost:%s/api", baseConfig.Port),
		"websocket": fmt.Sprintf("ws://localhost:%s/ws/projects/:id", baseConfig.Port),
	})
	if err := application.Run(); err != nil {
		logger.Fatal("❌ Server stopped with error", map[string]interface{}{"error": err.Error()})
	}
}

// performHealthCheck verifies the services the router depends on.
func performHealthCheck() error {
	container := di.GetContainer()
	for _, name := range []string{di.ServiceStudio, di.ServiceGateway, di.ServiceHub, di.ServiceStorage} {
		if !container.Has(name) {
			return fmt.Errorf("service not registered: %s", name)
		}
	}
	log.Println("✅ Service health check passed")
	return nil
}

func createDirectories(cfg *config.Config) {
	dirs := []string{
		cfg.DataDir,
		filepath.Join(cfg.DataDir, storage.ExportsDir),
		cfg.LogDir,
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("❌ Failed to create directory %s: %v", dir, err)
		}
	}
	log.Println("✅ Directory structure ready")
}
