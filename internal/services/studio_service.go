// internal/services/studio_service.go
package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Corphon/StoryboardStudio/internal/config"
	apperrors "github.com/Corphon/StoryboardStudio/internal/errors"
	"github.com/Corphon/StoryboardStudio/internal/gateway"
	"github.com/Corphon/StoryboardStudio/internal/media"
	"github.com/Corphon/StoryboardStudio/internal/models"
	"github.com/Corphon/StoryboardStudio/internal/utils"
)

// Events pushed to project subscribers.
const (
	EventProjectUpdated     = "project_updated"
	EventProjectDeleted     = "project_deleted"
	EventAnimaticFrame      = "animatic_frame"
	EventAnimaticStopped    = "animatic_stopped"
	EventGenerationStarted  = "generation_started"
	EventGenerationFinished = "generation_finished"
	EventError              = "error"
)

// Notifier fans project events out to subscribers.
type Notifier interface {
	BroadcastToProject(projectID, eventType string, data interface{})
}

type nopNotifier struct{}

func (nopNotifier) BroadcastToProject(string, string, interface{}) {}

// ArtifactStore persists rendered exports and snapshots.
type ArtifactStore interface {
	Save(projectID, name string, data []byte) (*models.ArtifactInfo, error)
	List(projectID string) ([]models.ArtifactInfo, error)
}

// StudioOptions wires a StudioService.
type StudioOptions struct {
	Gateway           gateway.Client
	Compressor        *media.Compressor
	Exporter          *StoryboardExporter
	Artifacts         ArtifactStore
	Notifier          Notifier
	Metrics           *utils.StudioMetrics
	Logger            *utils.Logger
	Features          func() config.Features
	Scheduler         Scheduler
	ProjectTTL        time.Duration
	UploadConcurrency int
}

// StudioService is the single owner of every project. Each mutation runs under
// the project's write lock, bumps the project version and then broadcasts
// project_updated with a snapshot.
type StudioService struct {
	gateway    gateway.Client
	compressor *media.Compressor
	exporter   *StoryboardExporter
	artifacts  ArtifactStore
	notifier   Notifier
	metrics    *utils.StudioMetrics
	logger     *utils.Logger
	features   func() config.Features
	scheduler  Scheduler

	registry          *ProjectRegistry
	locks             *LockManager
	resolver          *ReferenceResolver
	uploadConcurrency int

	playersMu sync.Mutex
	players   map[string]*AnimaticPlayer

	tokens atomic.Uint64
	now    func() time.Time
}

// NewStudioService creates the studio.
func NewStudioService(opts StudioOptions) *StudioService {
	if opts.Logger == nil {
		opts.Logger = utils.GetLogger()
	}
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}
	if opts.Metrics == nil {
		opts.Metrics = utils.NewStudioMetrics(utils.NewMetricsCollector(), opts.Logger)
	}
	if opts.Compressor == nil {
		opts.Compressor = media.NewCompressor(opts.Logger)
	}
	if opts.Exporter == nil {
		opts.Exporter = NewStoryboardExporter(opts.Logger)
	}
	if opts.Features == nil {
		opts.Features = func() config.Features { return config.GetCurrentConfig().Features }
	}
	if opts.UploadConcurrency <= 0 {
		opts.UploadConcurrency = 4
	}

	s := &StudioService{
		gateway:           opts.Gateway,
		compressor:        opts.Compressor,
		exporter:          opts.Exporter,
		artifacts:         opts.Artifacts,
		notifier:          opts.Notifier,
		metrics:           opts.Metrics,
		logger:            opts.Logger,
		features:          opts.Features,
		scheduler:         opts.Scheduler,
		locks:             NewLockManager(),
		resolver:          NewReferenceResolver(opts.Logger),
		uploadConcurrency: opts.UploadConcurrency,
		players:           make(map[string]*AnimaticPlayer),
		now:               time.Now,
	}
	s.registry = NewProjectRegistry(opts.ProjectTTL, s.onEvicted)
	return s
}

// SetNotifier swaps the event sink once the WebSocket hub exists.
func (s *StudioService) SetNotifier(n Notifier) {
	if n == nil {
		n = nopNotifier{}
	}
	s.notifier = n
}

// Features returns the current feature flags.
func (s *StudioService) Features() config.Features {
	return s.features()
}

// Close stops background work.
func (s *StudioService) Close() {
	s.playersMu.Lock()
	for _, p := range s.players {
		p.Stop()
	}
	s.players = make(map[string]*AnimaticPlayer)
	s.playersMu.Unlock()
	s.locks.Stop()
}

func (s *StudioService) onEvicted(p *models.Project) {
	s.playersMu.Lock()
	player := s.players[p.ID]
	delete(s.players, p.ID)
	s.playersMu.Unlock()
	if player != nil {
		player.Stop()
	}
	s.locks.Forget(p.ID)
	s.logger.Info("Project evicted", map[string]interface{}{"project_id": p.ID})
}

// mutate runs fn under the write lock and broadcasts the new snapshot.
func (s *StudioService) mutate(projectID string, fn func(p *models.Project) error) (*models.Project, error) {
	p, err := s.registry.Get(projectID)
	if err != nil {
		return nil, err
	}

	var snapshot *models.Project
	err = s.locks.ExecuteWithProjectLock(projectID, func() error {
		if err := fn(p); err != nil {
			return err
		}
		p.Version++
		p.UpdatedAt = s.now()
		snapshot = p.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.BroadcastToProject(projectID, EventProjectUpdated, snapshot)
	return snapshot, nil
}

// read runs fn under the read lock.
func (s *StudioService) read(projectID string, fn func(p *models.Project) error) error {
	p, err := s.registry.Get(projectID)
	if err != nil {
		return err
	}
	return s.locks.ExecuteWithProjectReadLock(projectID, func() error {
		return fn(p)
	})
}

// syncStyle sends a style-session upsert. Failures are only logged.
func (s *StudioService) syncStyle(ctx context.Context, projectID string, req *gateway.StyleSessionRequest) {
	if req == nil || s.gateway == nil {
		return
	}
	if _, err := s.gateway.CreateStyleSession(ctx, *req); err != nil {
		s.logger.Warn("Style session sync failed", map[string]interface{}{
			"project_id":       projectID,
			"project_style_id": req.ProjectID,
			"error":            err,
		})
	}
}

func (s *StudioService) requireGateway() error {
	if s.gateway == nil {
		return apperrors.NewProcessingError("generation backend is not configured", nil)
	}
	return nil
}

// ---- projects ----

// CreateProject registers an empty project.
func (s *StudioService) CreateProject(title string) (*models.Project, error) {
	p := models.NewProject(uuid.NewString(), strings.TrimSpace(title), s.now())
	if err := s.registry.Add(p); err != nil {
		return nil, err
	}
	s.logger.Info("Project created", map[string]interface{}{"project_id": p.ID, "title": p.Title})
	return p.Clone(), nil
}

// GetProject returns a snapshot of a project.
func (s *StudioService) GetProject(projectID string) (*models.Project, error) {
	var snapshot *models.Project
	err := s.read(projectID, func(p *models.Project) error {
		snapshot = p.Clone()
		return nil
	})
	return snapshot, err
}

// Snapshot is GetProject under the name used for save files.
func (s *StudioService) Snapshot(projectID string) (*models.Project, error) {
	return s.GetProject(projectID)
}

// ListProjects summarizes live projects, most recently updated first.
func (s *StudioService) ListProjects() []models.ProjectSummary {
	projects := s.registry.List()
	out := make([]models.ProjectSummary, 0, len(projects))
	for _, p := range projects {
		_ = s.locks.ExecuteWithProjectReadLock(p.ID, func() error {
			out = append(out, p.Summary())
			return nil
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out
}

// RenameProject changes the title used for exports.
func (s *StudioService) RenameProject(projectID, title string) (*models.Project, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperrors.NewValidationError("project title cannot be empty", nil)
	}
	return s.mutate(projectID, func(p *models.Project) error {
		p.Title = title
		return nil
	})
}

// DeleteProject drops a project and, best effort, its backend style session.
func (s *StudioService) DeleteProject(ctx context.Context, projectID string) error {
	var styleID string
	if err := s.read(projectID, func(p *models.Project) error {
		styleID = p.Style.ProjectStyleID
		return nil
	}); err != nil {
		return err
	}
	if err := s.registry.Delete(projectID); err != nil {
		return err
	}
	s.notifier.BroadcastToProject(projectID, EventProjectDeleted, map[string]string{"project_id": projectID})

	if styleID != "" && s.gateway != nil {
		if err := s.gateway.DeleteStyleSession(ctx, styleID); err != nil {
			s.logger.Warn("Failed to delete style session", map[string]interface{}{
				"project_id":       projectID,
				"project_style_id": styleID,
				"error":            err,
			})
		}
	}
	return nil
}

// ImportSnapshot registers a project from a saved snapshot. Transient state is reset.
func (s *StudioService) ImportSnapshot(snapshot *models.Project) (*models.Project, error) {
	if snapshot == nil {
		return nil, apperrors.NewValidationError("snapshot is empty", nil)
	}
	p := snapshot.Clone()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if strings.TrimSpace(p.Title) == "" {
		p.Title = models.DefaultProjectTitle
	}
	if p.Panels == nil {
		p.Panels = []*models.Panel{}
	}

	var maxID int64
	active := false
	for _, panel := range p.Panels {
		panel.IsLoading = false
		panel.GenerationToken = 0
		if panel.Suggestions == nil {
			panel.Suggestions = []string{}
		}
		if panel.ID > maxID {
			maxID = panel.ID
		}
		if panel.ID == p.ActivePanelID {
			active = true
		}
	}
	if !active {
		p.ActivePanelID = 0
	}
	if p.NextPanelID <= maxID {
		p.NextPanelID = maxID + 1
	}
	if p.Style.Preset == "" {
		p.Style.Preset = models.DefaultStylePreset
	}
	now := s.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	if err := s.registry.Add(p); err != nil {
		return nil, err
	}
	s.logger.Info("Project imported", map[string]interface{}{"project_id": p.ID, "panels": len(p.Panels)})
	return p.Clone(), nil
}

// ---- panels ----

func (s *StudioService) panelPatch(patch models.PanelPatch) models.PanelPatch {
	if !s.features().Cinematography {
		return patch.WithoutCinematography()
	}
	return patch
}

func (s *StudioService) appendPanel(ctx context.Context, projectID string, patch models.PanelPatch) (*models.Panel, error) {
	var panel *models.Panel
	var styleReq *gateway.StyleSessionRequest
	_, err := s.mutate(projectID, func(p *models.Project) error {
		panel = NewPanelSequence(p).Append(patch).Clone()
		styleReq = NewStyleSessionManager(p).Initialize()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.syncStyle(ctx, projectID, styleReq)
	return panel, nil
}

// AddPanel appends a panel and selects it.
func (s *StudioService) AddPanel(ctx context.Context, projectID string, patch models.PanelPatch) (*models.Panel, error) {
	return s.appendPanel(ctx, projectID, s.panelPatch(patch))
}

// AddPanelFromSuggestion appends a panel built from a suggestion.
func (s *StudioService) AddPanelFromSuggestion(ctx context.Context, projectID, text string) (*models.Panel, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.NewValidationError("suggestion text cannot be empty", nil)
	}
	return s.appendPanel(ctx, projectID, SuggestionPatch(text, s.features().Cinematography))
}

// RemovePanel deletes a panel.
func (s *StudioService) RemovePanel(projectID string, panelID int64) (*models.Project, error) {
	return s.mutate(projectID, func(p *models.Project) error {
		return NewPanelSequence(p).Remove(panelID)
	})
}

// SetActivePanel selects a panel, or clears the selection with zero.
func (s *StudioService) SetActivePanel(projectID string, panelID int64) (*models.Project, error) {
	return s.mutate(projectID, func(p *models.Project) error {
		return NewPanelSequence(p).SetActive(panelID)
	})
}

// UpdatePanel applies a partial update.
func (s *StudioService) UpdatePanel(projectID string, panelID int64, patch models.PanelPatch) (*models.Panel, error) {
	patch = s.panelPatch(patch)
	var panel *models.Panel
	_, err := s.mutate(projectID, func(p *models.Project) error {
		updated, err := NewPanelSequence(p).Update(panelID, patch)
		if err != nil {
			return err
		}
		panel = updated.Clone()
		return nil
	})
	return panel, err
}
