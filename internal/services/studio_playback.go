// internal/services/studio_playback.go
package services

import (
	"encoding/json"

	apperrors "github.com/Corphon/StoryboardStudio/internal/errors"
	"github.com/Corphon/StoryboardStudio/internal/models"
)

// player returns the project's animatic player, creating it on first use.
func (s *StudioService) player(projectID string) (*AnimaticPlayer, error) {
	if _, err := s.registry.Get(projectID); err != nil {
		return nil, err
	}

	s.playersMu.Lock()
	defer s.playersMu.Unlock()
	if p, ok := s.players[projectID]; ok {
		return p, nil
	}

	source := func() []*models.Panel {
		var panels []*models.Panel
		_ = s.read(projectID, func(p *models.Project) error {
			panels = make([]*models.Panel, len(p.Panels))
			for i, panel := range p.Panels {
				panels[i] = panel.Clone()
			}
			return nil
		})
		return panels
	}
	p := NewAnimaticPlayer(source, s.scheduler,
		func(f models.AnimaticFrame) {
			s.notifier.BroadcastToProject(projectID, EventAnimaticFrame, f)
		},
		func(st models.AnimaticState) {
			s.notifier.BroadcastToProject(projectID, EventAnimaticStopped, st)
		})
	s.players[projectID] = p
	return p, nil
}

// AnimaticState returns the playback cursor of a project.
func (s *StudioService) AnimaticState(projectID string) (models.AnimaticState, error) {
	p, err := s.player(projectID)
	if err != nil {
		return models.AnimaticState{}, err
	}
	return p.State(), nil
}

// StartAnimatic starts or resumes playback.
func (s *StudioService) StartAnimatic(projectID string) (*models.AnimaticFrame, error) {
	p, err := s.player(projectID)
	if err != nil {
		return nil, err
	}
	frame, err := p.Start()
	if err != nil {
		return nil, err
	}
	return &frame, nil
}

// PauseAnimatic pauses playback on the current panel.
func (s *StudioService) PauseAnimatic(projectID string) (models.AnimaticState, error) {
	p, err := s.player(projectID)
	if err != nil {
		return models.AnimaticState{}, err
	}
	return p.Pause(), nil
}

// NextFrame steps forward, wrapping around.
func (s *StudioService) NextFrame(projectID string) (*models.AnimaticFrame, error) {
	p, err := s.player(projectID)
	if err != nil {
		return nil, err
	}
	return p.Next()
}

// PrevFrame steps back, wrapping around.
func (s *StudioService) PrevFrame(projectID string) (*models.AnimaticFrame, error) {
	p, err := s.player(projectID)
	if err != nil {
		return nil, err
	}
	return p.Prev()
}

// StopAnimatic stops playback and rewinds.
func (s *StudioService) StopAnimatic(projectID string) (models.AnimaticState, error) {
	p, err := s.player(projectID)
	if err != nil {
		return models.AnimaticState{}, err
	}
	return p.Stop(), nil
}

// ---- exports ----

// Export renders a project as xml or pdf. With save set the file is also stored.
func (s *StudioService) Export(projectID, format string, save bool) (*models.ExportResult, error) {
	snapshot, err := s.GetProject(projectID)
	if err != nil {
		return nil, err
	}

	var result *models.ExportResult
	switch format {
	case models.ExportFormatXML:
		result, err = s.exporter.ExportXML(snapshot)
	case models.ExportFormatPDF:
		result, err = s.exporter.ExportPDF(snapshot)
	default:
		return nil, apperrors.NewValidationError("unsupported export format: "+format, nil)
	}
	if err != nil {
		return nil, err
	}
	s.metrics.RecordExport(format, len(result.Content))

	if save {
		info, err := s.saveArtifact(projectID, result.FileName, result.Content)
		if err != nil {
			return nil, err
		}
		result.FilePath = info.Path
	}
	return result, nil
}

// ExportXML renders the editing timeline.
func (s *StudioService) ExportXML(projectID string, save bool) (*models.ExportResult, error) {
	return s.Export(projectID, models.ExportFormatXML, save)
}

// ExportPDF renders the contact sheet.
func (s *StudioService) ExportPDF(projectID string, save bool) (*models.ExportResult, error) {
	return s.Export(projectID, models.ExportFormatPDF, save)
}

// SaveSnapshot stores the project as JSON next to its exports.
func (s *StudioService) SaveSnapshot(projectID string) (*models.ArtifactInfo, error) {
	snapshot, err := s.GetProject(projectID)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, apperrors.NewProcessingError("failed to encode snapshot", err)
	}
	return s.saveArtifact(projectID, models.ExportFileName(snapshot.Title, "json"), data)
}

func (s *StudioService) saveArtifact(projectID, name string, data []byte) (*models.ArtifactInfo, error) {
	if s.artifacts == nil {
		return nil, apperrors.NewProcessingError("artifact storage is not configured", nil)
	}
	info, err := s.artifacts.Save(projectID, name, data)
	if err != nil {
		return nil, apperrors.NewProcessingError("failed to save "+name, err)
	}
	s.logger.Info("Artifact saved", map[string]interface{}{
		"project_id": projectID,
		"path":       info.Path,
		"size":       info.Size,
	})
	return info, nil
}

// ListExports lists the saved files of a project.
func (s *StudioService) ListExports(projectID string) ([]models.ArtifactInfo, error) {
	if _, err := s.registry.Get(projectID); err != nil {
		return nil, err
	}
	if s.artifacts == nil {
		return []models.ArtifactInfo{}, nil
	}
	return s.artifacts.List(projectID)
}
