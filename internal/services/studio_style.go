// internal/services/studio_style.go
package services

import (
	"context"
	"strings"

	apperrors "github.com/Corphon/StoryboardStudio/internal/errors"
	"github.com/Corphon/StoryboardStudio/internal/gateway"
	"github.com/Corphon/StoryboardStudio/internal/models"
)

// styleMutation applies fn to the project's style and syncs the resulting upsert.
func (s *StudioService) styleMutation(ctx context.Context, projectID string, fn func(m *StyleSessionManager) (*gateway.StyleSessionRequest, error)) (*models.StyleSession, error) {
	var req *gateway.StyleSessionRequest
	snapshot, err := s.mutate(projectID, func(p *models.Project) error {
		var err error
		req, err = fn(NewStyleSessionManager(p))
		return err
	})
	if err != nil {
		return nil, err
	}
	s.syncStyle(ctx, projectID, req)
	return &snapshot.Style, nil
}

// GetStyle returns the style state with the style actually sent to the backend.
func (s *StudioService) GetStyle(projectID string) (*models.StyleSession, string, error) {
	var (
		style     models.StyleSession
		effective string
	)
	err := s.read(projectID, func(p *models.Project) error {
		style = p.Style.Clone()
		effective = NewStyleSessionManager(p).EffectiveStyle()
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return &style, effective, nil
}

// SelectStylePreset switches to a named preset.
func (s *StudioService) SelectStylePreset(ctx context.Context, projectID, preset string) (*models.StyleSession, error) {
	return s.styleMutation(ctx, projectID, func(m *StyleSessionManager) (*gateway.StyleSessionRequest, error) {
		return m.SelectPreset(preset)
	})
}

// SetCustomStyle switches to the Custom preset with a written description.
func (s *StudioService) SetCustomStyle(ctx context.Context, projectID, description string) (*models.StyleSession, error) {
	return s.styleMutation(ctx, projectID, func(m *StyleSessionManager) (*gateway.StyleSessionRequest, error) {
		return m.SetCustomDescription(description), nil
	})
}

// SetMaintainConsistency toggles the consistency hint.
func (s *StudioService) SetMaintainConsistency(projectID string, on bool) (*models.StyleSession, error) {
	return s.styleMutation(context.Background(), projectID, func(m *StyleSessionManager) (*gateway.StyleSessionRequest, error) {
		m.SetMaintainConsistency(on)
		return nil, nil
	})
}

// UploadStyleImage sets a reference image and derives a custom style from it.
// When the backend cannot analyze the image a generic description is used.
func (s *StudioService) UploadStyleImage(ctx context.Context, projectID string, upload models.AssetUpload) (*models.StyleSession, error) {
	prepared, err := s.compressor.Prepare(upload)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error(), err)
	}
	img := models.ImageData{Base64: prepared.Base64, MimeType: prepared.MimeType}

	if _, err := s.mutate(projectID, func(p *models.Project) error {
		p.Style.Image = &img
		p.Style.Preset = models.CustomStylePreset
		return nil
	}); err != nil {
		return nil, err
	}

	analysis := models.FallbackStyleAnalysis()
	if s.gateway != nil {
		result, err := s.gateway.AnalyzeStyle(ctx, gateway.AnalyzeStyleRequest{ImageBase64: img.Base64, MimeType: img.MimeType})
		if err != nil {
			s.logger.Warn("Style analysis failed, using generic description", map[string]interface{}{
				"project_id": projectID,
				"error":      err,
			})
		} else if result != nil {
			analysis = result
		}
	}

	return s.styleMutation(ctx, projectID, func(m *StyleSessionManager) (*gateway.StyleSessionRequest, error) {
		return m.ApplyAnalysis(analysis), nil
	})
}

// RemoveStyleImage drops the reference image.
func (s *StudioService) RemoveStyleImage(ctx context.Context, projectID string) (*models.StyleSession, error) {
	return s.styleMutation(ctx, projectID, func(m *StyleSessionManager) (*gateway.StyleSessionRequest, error) {
		return m.RemoveStyleImage(), nil
	})
}

// GenerateStyleReference renders a reference image for a description and uses it as the style image.
func (s *StudioService) GenerateStyleReference(ctx context.Context, projectID, description string) (*models.StyleSession, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, apperrors.NewValidationError("Please describe the style to generate.", nil)
	}
	if err := s.requireGateway(); err != nil {
		return nil, err
	}
	if _, err := s.registry.Get(projectID); err != nil {
		return nil, err
	}

	resp, err := s.gateway.GenerateStyle(ctx, description)
	if err != nil {
		return nil, err
	}
	return s.styleMutation(ctx, projectID, func(m *StyleSessionManager) (*gateway.StyleSessionRequest, error) {
		return m.SetStyleImage(models.ImageData{Base64: resp.Base64, MimeType: resp.MimeType}), nil
	})
}

// StyleSessionDocument fetches the backend's view of the project's style session.
func (s *StudioService) StyleSessionDocument(ctx context.Context, projectID string) (gateway.StyleSessionDocument, error) {
	var styleID string
	if err := s.read(projectID, func(p *models.Project) error {
		styleID = p.Style.ProjectStyleID
		return nil
	}); err != nil {
		return nil, err
	}
	if styleID == "" {
		return nil, apperrors.NewNotFoundError("style session has not been initialized", nil)
	}
	if err := s.requireGateway(); err != nil {
		return nil, err
	}
	return s.gateway.GetStyleSession(ctx, styleID)
}
