// internal/api/router.go
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Corphon/StoryboardStudio/internal/config"
	"github.com/Corphon/StoryboardStudio/internal/di"
	"github.com/Corphon/StoryboardStudio/internal/gateway"
	"github.com/Corphon/StoryboardStudio/internal/models"
	"github.com/Corphon/StoryboardStudio/internal/services"
	"github.com/Corphon/StoryboardStudio/internal/storage"
	"github.com/Corphon/StoryboardStudio/internal/utils"
)

// SetupRouter builds the engine from the services registered in the global container.
func SetupRouter() (*gin.Engine, error) {
	return SetupRouterWith(di.GetContainer(), config.GetCurrentConfig())
}

// SetupRouterWith builds the engine from container. Only the studio is required.
func SetupRouterWith(container *di.Container, cfg *config.AppConfig) (*gin.Engine, error) {
	studio, err := di.Resolve[*services.StudioService](container, di.ServiceStudio)
	if err != nil {
		return nil, fmt.Errorf("studio service is not initialized: %w", err)
	}

	opts := HandlerOptions{Studio: studio, CORSOrigins: cfg.CORSOrigins}
	if logger, err := di.Resolve[*utils.Logger](container, di.ServiceLogger); err == nil {
		opts.Logger = logger
	}
	if metrics, err := di.Resolve[*utils.StudioMetrics](container, di.ServiceMetrics); err == nil {
		opts.Metrics = metrics
	}
	if gw, err := di.Resolve[*gateway.HTTPClient](container, di.ServiceGateway); err == nil {
		opts.Gateway = gw
	}
	if store, err := di.Resolve[*storage.FileStorage](container, di.ServiceStorage); err == nil {
		opts.Storage = store
	}
	if hub, err := di.Resolve[*Hub](container, di.ServiceHub); err == nil {
		opts.Hub = hub
	}

	return NewRouter(NewHandler(opts), cfg), nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Content-Length", "Accept", "Authorization", "X-Requested-With", requestIDHeader},
		ExposeHeaders: []string{"Content-Disposition", requestIDHeader, "X-Export-Path", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

// NewRouter mounts every route on a fresh engine.
func NewRouter(h *Handler, cfg *config.AppConfig) *gin.Engine {
	if !cfg.DebugMode && gin.Mode() == gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.MaxMultipartMemory = 32 << 20
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(h.logger))
	r.Use(Metrics(h.Metrics))
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	r.Use(BodyLimit(cfg.MaxRequestBytes))

	r.NoRoute(func(c *gin.Context) {
		h.Response.NotFound(c, "route not found")
	})

	r.GET("/ws/projects/:id", h.ProjectWebSocket)

	api := r.Group("/api")
	api.Use(NewRateLimiter(cfg.APIRateLimit).Middleware(h.Response))
	{
		api.GET("/health", h.Health)
		api.GET("/metrics", h.GetMetrics)
		api.GET("/ws/status", h.GetWebSocketStatus)

		settings := api.Group("/settings")
		{
			settings.GET("", h.GetSettings)
			settings.PUT("/gateway", h.UpdateGatewaySettings)
			settings.PUT("/features", h.UpdateFeatureSettings)
		}

		api.GET("/styles/presets", h.GetStylePresets)
		api.GET("/storyboard/templates", h.GetStoryboardTemplates)

		api.POST("/projects", h.CreateProject)
		api.GET("/projects", h.ListProjects)
		api.POST("/projects/import", h.ImportProject)

		project := api.Group("/projects/:id")
		{
			project.GET("", h.GetProject)
			project.PATCH("", h.UpdateProject)
			project.DELETE("", h.DeleteProject)
			project.GET("/snapshot", h.DownloadSnapshot)
			project.POST("/snapshot/save", h.SaveSnapshot)

			project.POST("/panels", h.AddPanel)
			project.POST("/panels/suggestion", h.AddPanelFromSuggestion)
			project.PATCH("/panels/:panelId", h.UpdatePanel)
			project.DELETE("/panels/:panelId", h.RemovePanel)
			project.POST("/panels/:panelId/generate", h.GeneratePanelImage)
			project.PUT("/active-panel", h.SetActivePanel)

			project.GET("/assets", h.ListAssets)
			project.POST("/assets", h.UploadAssets)
			project.PATCH("/assets/:category/:assetId", h.UpdateAsset)
			project.DELETE("/assets/:category/:assetId", h.DeleteAsset)
			project.POST("/resolve", h.ResolvePrompt)

			style := project.Group("/style")
			{
				style.GET("", h.GetStyle)
				style.PUT("/preset", h.SelectStylePreset)
				style.PUT("/custom", h.SetCustomStyle)
				style.PUT("/consistency", h.SetMaintainConsistency)
				style.POST("/image", h.UploadStyleImage)
				style.DELETE("/image", h.RemoveStyleImage)
				style.POST("/generate", h.GenerateStyleReference)
				style.GET("/session", h.GetStyleSession)
			}

			project.POST("/script/refine", h.RefineScript)
			project.POST("/storyboard", h.GenerateStoryboard)
			project.POST("/analysis", h.AnalyzeStory)
			project.POST("/audio", h.GenerateAudio)
			project.GET("/audio/current", h.CurrentAudio)

			animatic := project.Group("/animatic")
			{
				animatic.GET("", h.GetAnimatic)
				for _, action := range []string{"start", "pause", "next", "prev", "stop"} {
					animatic.POST("/"+action, h.AnimaticControl(action))
				}
			}

			project.GET("/export/xml", h.Export(models.ExportFormatXML))
			project.GET("/export/pdf", h.Export(models.ExportFormatPDF))
			project.GET("/exports", h.ListExports)
			project.GET("/exports/:name", h.DownloadExport)
		}
	}

	return r
}
