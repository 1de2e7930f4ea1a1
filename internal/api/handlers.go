// internal/api/handlers.go
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Corphon/StoryboardStudio/internal/config"
	apperrors "github.com/Corphon/StoryboardStudio/internal/errors"
	"github.com/Corphon/StoryboardStudio/internal/gateway"
	"github.com/Corphon/StoryboardStudio/internal/models"
	"github.com/Corphon/StoryboardStudio/internal/services"
	"github.com/Corphon/StoryboardStudio/internal/storage"
	"github.com/Corphon/StoryboardStudio/internal/utils"
)

// Handler serves the studio API.
type Handler struct {
	Studio   *services.StudioService
	Gateway  *gateway.HTTPClient   // nil when the backend is not an HTTP gateway
	Storage  *storage.FileStorage  // nil disables saved-export downloads
	Hub      *Hub
	Metrics  *utils.StudioMetrics
	Response *ResponseHelper

	logger    *utils.Logger
	upgrader  websocket.Upgrader
	startedAt time.Time
}

// HandlerOptions wires a Handler.
type HandlerOptions struct {
	Studio      *services.StudioService
	Gateway     *gateway.HTTPClient
	Storage     *storage.FileStorage
	Hub         *Hub
	Metrics     *utils.StudioMetrics
	Logger      *utils.Logger
	CORSOrigins []string
}

// NewHandler creates a handler.
func NewHandler(opts HandlerOptions) *Handler {
	if opts.Logger == nil {
		opts.Logger = utils.GetLogger()
	}
	if opts.Hub == nil {
		opts.Hub = NewHub(opts.Logger)
		go opts.Hub.Run()
		if opts.Studio != nil {
			opts.Studio.SetNotifier(opts.Hub)
		}
	}
	if opts.Metrics == nil {
		opts.Metrics = utils.NewStudioMetrics(utils.GetMetricsCollector(), opts.Logger)
	}
	return &Handler{
		Studio:    opts.Studio,
		Gateway:   opts.Gateway,
		Storage:   opts.Storage,
		Hub:       opts.Hub,
		Metrics:   opts.Metrics,
		Response:  NewResponseHelper(),
		logger:    opts.Logger,
		upgrader:  newUpgrader(opts.CORSOrigins),
		startedAt: time.Now(),
	}
}

// respondError writes the error envelope and logs server-side failures.
func (h *Handler) respondError(c *gin.Context, err error) {
	status := h.Response.FromError(c, err)
	_ = c.Error(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", map[string]interface{}{
			"path":       c.Request.URL.Path,
			"request_id": c.GetString(requestIDKey),
			"error":      err,
		})
	}
}

// bindJSON decodes the body into req. An empty body is accepted when optional is set.
func (h *Handler) bindJSON(c *gin.Context, req interface{}, optional bool) bool {
	err := c.ShouldBindJSON(req)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		h.respondError(c, err)
		return false
	}
	h.Response.BadRequest(c, ErrorInvalidJSON, "invalid request body", err.Error())
	return false
}

func (h *Handler) panelIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("panelId"), 10, 64)
	if err != nil || id <= 0 {
		h.Response.BadRequest(c, ErrorInvalidPanelID, "panel id must be a positive integer")
		return 0, false
	}
	return id, true
}

// ========================================
// service status and settings
// ========================================

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	status := gin.H{
		"status":         "ok",
		"projects":       len(h.Studio.ListProjects()),
		"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
	}
	if h.Gateway != nil {
		status["gateway"] = h.Gateway.BaseURL()
	}
	h.Response.Success(c, status)
}

// GetMetrics dumps the collector.
func (h *Handler) GetMetrics(c *gin.Context) {
	h.Response.Success(c, h.Metrics.Collector().GetMetrics())
}

// GatewaySettings is the public view of the gateway configuration. The key is never returned.
type GatewaySettings struct {
	BaseURL        string  `json:"base_url"`
	HasAPIKey      bool    `json:"has_api_key"`
	TimeoutSeconds float64 `json:"timeout_seconds"`
	RatePerSec     float64 `json:"rate_per_sec"`
	Burst          int     `json:"burst"`
}

// SettingsResponse is returned by GET /settings.
type SettingsResponse struct {
	Gateway           GatewaySettings `json:"gateway"`
	Features          config.Features `json:"features"`
	MaxRequestBytes   int64           `json:"max_request_bytes"`
	ProjectTTLSeconds float64         `json:"project_ttl_seconds"`
	UploadConcurrency int             `json:"upload_concurrency"`
}

func settingsView(cfg *config.AppConfig) SettingsResponse {
	return SettingsResponse{
		Gateway: GatewaySettings{
			BaseURL:        cfg.Gateway.BaseURL,
			HasAPIKey:      cfg.Gateway.APIKey != "",
			TimeoutSeconds: cfg.Gateway.Timeout.Seconds(),
			RatePerSec:     cfg.Gateway.RatePerSec,
			Burst:          cfg.Gateway.Burst,
		},
		Features:          cfg.Features,
		MaxRequestBytes:   cfg.MaxRequestBytes,
		ProjectTTLSeconds: cfg.ProjectTTL.Seconds(),
		UploadConcurrency: cfg.UploadConcurrency,
	}
}

// GetSettings returns the runtime configuration.
func (h *Handler) GetSettings(c *gin.Context) {
	h.Response.Success(c, settingsView(config.GetCurrentConfig()))
}

// GatewaySettingsRequest updates the gateway. An empty api_key keeps the stored key.
type GatewaySettingsRequest struct {
	BaseURL        string  `json:"base_url" binding:"required"`
	APIKey         string  `json:"api_key"`
	TimeoutSeconds float64 `json:"timeout_seconds"`
	RatePerSec     float64 `json:"rate_per_sec"`
	Burst          int     `json:"burst"`
}

// UpdateGatewaySettings persists new gateway settings and applies them immediately.
func (h *Handler) UpdateGatewaySettings(c *gin.Context) {
	var req GatewaySettingsRequest
	if !h.bindJSON(c, &req, false) {
		return
	}
	u, err := url.Parse(req.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		h.Response.BadRequest(c, ErrorConfigInvalid, "base_url must be an absolute http(s) URL")
		return
	}

	err = config.UpdateGatewayConfig(config.GatewayConfig{
		BaseURL:    req.BaseURL,
		APIKey:     req.APIKey,
		Timeout:    time.Duration(req.TimeoutSeconds * float64(time.Second)),
		RatePerSec: req.RatePerSec,
		Burst:      req.Burst,
	})
	if err != nil {
		h.Response.Error(c, http.StatusInternalServerError, ErrorConfigSave, "failed to save gateway settings", err.Error())
		return
	}

	cfg := config.GetCurrentConfig()
	if h.Gateway != nil {
		h.Gateway.Reconfigure(gateway.Options{
			BaseURL:         cfg.Gateway.BaseURL,
			APIKey:          cfg.Gateway.APIKey,
			Timeout:         cfg.Gateway.Timeout,
			RatePerSec:      cfg.Gateway.RatePerSec,
			Burst:           cfg.Gateway.Burst,
			MaxRequestBytes: cfg.MaxRequestBytes,
		})
	}
	h.logger.Info("Gateway settings updated", map[string]interface{}{"base_url": cfg.Gateway.BaseURL})
	h.Response.Success(c, settingsView(cfg), "gateway settings saved")
}

// UpdateFeatureSettings persists the feature flags.
func (h *Handler) UpdateFeatureSettings(c *gin.Context) {
	var req config.Features
	if !h.bindJSON(c, &req, false) {
		return
	}
	if err := config.UpdateFeatures(req); err != nil {
		h.Response.Error(c, http.StatusInternalServerError, ErrorConfigSave, "failed to save feature flags", err.Error())
		return
	}
	h.logger.Info("Feature flags updated", map[string]interface{}{
		"asset_categories":  req.AssetCategories,
		"cinematography":    req.Cinematography,
		"script_refinement": req.ScriptRefinement,
	})
	h.Response.Success(c, settingsView(config.GetCurrentConfig()), "feature flags saved")
}

// GetStylePresets lists the style presets.
func (h *Handler) GetStylePresets(c *gin.Context) {
	h.Response.Success(c, gin.H{
		"presets": models.StylePresets,
		"default": models.DefaultStylePreset,
	})
}

// GetStoryboardTemplates lists the storyboard templates and count limits.
func (h *Handler) GetStoryboardTemplates(c *gin.Context) {
	h.Response.Success(c, gin.H{
		"templates":           models.StoryboardTemplates,
		"default_panel_count": models.DefaultPanelCount,
		"max_panel_count":     models.MaxPanelCount,
	})
}

// ========================================
// projects
// ========================================

type projectRequest struct {
	Title string `json:"title"`
}

// CreateProject starts an empty project.
func (h *Handler) CreateProject(c *gin.Context) {
	var req projectRequest
	if !h.bindJSON(c, &req, true) {
		return
	}
	project, err := h.Studio.CreateProject(req.Title)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.Response.Created(c, project)
}

// ListProjects lists live projects.
func (h *Handler) ListProjects(c *gin.Context) {
	h.Response.Success(c, h.Studio.ListProjects())
}

// GetProject returns a project snapshot.
func (h *Handler) GetProject(c *gin.Context) {
	project, err := h.Studio.GetProject(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.Response.Success(c, project)
}

// UpdateProject renames a project.
func (h *Handler) UpdateProject(c *gin.Context) {
	var req projectRequest
	if !h.bindJSON(c, &req, false) {
		return
	}
	project, err := h.Studio.RenameProject(c.Param("id"), req.Title)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.Response.Success(c, project)
}

// DeleteProject drops a project.
func (h *Handler) DeleteProject(c *gin.Context) {
	if err := h.Studio.DeleteProject(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	h.Response.Success(c, gin.H{"project_id": c.Param("id")}, "project deleted")
}

// DownloadSnapshot sends the project as a JSON file.
func (h *Handler) DownloadSnapshot(c *gin.Context) {
	snapshot, err := h.Studio.Snapshot(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		h.respondError(c, apperrors.NewProcessingError("failed to encode snapshot", err))
		return
	}
	h.Response.FileResponse(c, data, models.ExportFileName(snapshot.Title, "json"), "application/json")
}

// SaveSnapshot stores the project JSON next to its exports.
func (h *Handler) SaveSnapshot(c *gin.Context) {
	info, err := h.Studio.SaveSnapshot(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.Response.Created(c, info, "snapshot saved")
}

// ImportProject registers a project from a snapshot body.
func (h *Handler) ImportProject(c *gin.Context) {
	var snapshot models.Project
	if !h.bindJSON(c, &snapshot, false) {
		return
	}
	project, err := h.Studio.ImportSnapshot(&snapshot)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.Response.Created(c, project, "project imported")
}

// ========================================
// panels
// ========================================

// AddPanel appends a panel. The body is an optional partial panel.
func (h *Handler) AddPanel(c *gin.Context) {
	var patch models.PanelPatch
	if !h.bindJSON(c, &patch, true) {
		return
	}
	panel, err := h.Studio.AddPanel(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.Response.Created(c, panel)
}

type suggestionRequest struct {
	Text string `json:"text" binding:"required"`
}

// AddPanelFromSuggestion appends a panel built from a suggestion.
func (h *Handler) AddPanelFromSuggestion(c *gin.Context) {
	var req suggestionRequest
	if !h.bindJSON(c, &req, false) {
		return
	}
	panel, err := h.Studio.AddPanelFromSuggestion(c.Request.Context(), c.Param("id"), req.Text)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.Response.Created(c, panel)
}

// UpdatePanel applies a partial update.
func (h *Handler) UpdatePanel(c *gin.Context) {
	panelID, ok := h.panelIDParam(c)
	if !ok {
		return
	}
	var patch models.PanelPatch
	if !h.bindJSON(c, &patch, false) {
		return
	}
	panel, err := h.Studio.UpdatePanel(c.Param("id"), panelID, patch)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.Response.Success(c, panel)
}

// RemovePanel deletes a panel.
func (h *Handler) RemovePanel(c *gin.Context) {
	panelID, ok := h.panelIDParam(c)
	if !ok {
		return
	}
	project, err := h.Studio.RemovePanel(c.Param("id"), panelID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.Response.Success(c, project)
}

type activePanelRequest struct {
	PanelID int64 `json:"panel_id"`
}

// SetActivePanel selects a panel; zero clears the selection.
func (h *Handler) SetActivePanel(c *gin.Context) {
	var req activePanelRequest
	if !h.bindJSON(c, &req, false) {
		return
	}
	project, err := h.Studio.SetActivePanel(c.Param("id"), req.PanelID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.Response.Success(c, project)
}
