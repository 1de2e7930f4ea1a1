// internal/services/studio_generation.go
package services

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/Corphon/StoryboardStudio/internal/errors"
	"github.com/Corphon/StoryboardStudio/internal/gateway"
	"github.com/Corphon/StoryboardStudio/internal/models"
)

// GeneratePanelImage generates the image of a panel, or of the active panel when
// panelID is zero. The backend is called without holding the project lock; a
// response that arrives after the panel was regenerated or removed is dropped
// and reported as a conflict.
func (s *StudioService) GeneratePanelImage(ctx context.Context, projectID string, panelID int64) (*models.Panel, error) {
	if err := s.requireGateway(); err != nil {
		return nil, err
	}
	feats := s.features()

	var (
		req    gateway.ImageRequest
		token  uint64
		prompt string
	)
	_, err := s.mutate(projectID, func(p *models.Project) error {
		seq := NewPanelSequence(p)
		if panelID == 0 {
			panelID = p.ActivePanelID
		}
		if panelID == 0 {
			return apperrors.NewValidationError("Please select a panel first.", nil)
		}
		panel, err := seq.Get(panelID)
		if err != nil {
			return err
		}
		if strings.TrimSpace(panel.Prompt) == "" {
			return apperrors.NewValidationError("Please enter a prompt for the selected panel.", nil)
		}

		token = s.tokens.Add(1)
		panel.GenerationToken = token
		panel.IsLoading = true
		panel.Suggestions = []string{}
		prompt = panel.Prompt

		resolved := s.resolver.Resolve(panel.Prompt, &p.Assets, feats.AssetCategories, true)
		style := NewStyleSessionManager(p)
		req = gateway.ImageRequest{
			Prompt:              resolved.EnhancedPrompt,
			Style:               style.EffectiveStyle(),
			Cinematography:      map[string]string{},
			RefPrev:             panel.RefPrev,
			AssetImages:         resolved.AssetImages,
			ProjectStyleID:      p.Style.ProjectStyleID,
			MaintainConsistency: p.Style.MaintainConsistency,
		}
		if feats.Cinematography {
			req.Cinematography = panel.Cinematography()
		}
		if panel.RefPrev {
			if prev := seq.Previous(panelID); prev.HasImage() {
				url := prev.ImageURL
				req.PreviousImageURL = &url
			}
		}
		if img := p.Style.Image; img != nil {
			b64, mime := img.Base64, img.MimeType
			req.StyleImageBase64 = &b64
			req.StyleImageMimeType = &mime
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.BroadcastToProject(projectID, EventGenerationStarted, map[string]interface{}{"panel_id": panelID})
	s.logger.Info("Generating panel image", map[string]interface{}{
		"project_id":   projectID,
		"panel_id":     panelID,
		"asset_images": len(req.AssetImages),
		"ref_prev":     req.PreviousImageURL != nil,
	})

	resp, genErr := s.gateway.GenerateImage(ctx, req)
	if genErr != nil {
		if _, err := s.applyGeneration(projectID, panelID, token, func(panel *models.Panel) {
			panel.ImageURL = ""
			panel.IsLoading = false
		}); err != nil {
			return nil, err
		}
		s.metrics.RecordGeneration("failure")
		s.notifier.BroadcastToProject(projectID, EventError, map[string]interface{}{
			"panel_id": panelID,
			"message":  apperrors.Message(genErr),
		})
		return nil, genErr
	}

	if _, err := s.applyGeneration(projectID, panelID, token, func(panel *models.Panel) {
		panel.ImageURL = resp.ImageURL
	}); err != nil {
		return nil, err
	}

	suggestions, err := s.gateway.GenerateSuggestions(ctx, prompt)
	if err != nil {
		s.logger.Warn("Suggestion generation failed", map[string]interface{}{
			"project_id": projectID,
			"panel_id":   panelID,
			"error":      err,
		})
		suggestions = []string{}
	}
	if suggestions == nil {
		suggestions = []string{}
	}

	panel, err := s.applyGeneration(projectID, panelID, token, func(panel *models.Panel) {
		panel.Suggestions = suggestions
		panel.IsLoading = false
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordGeneration("success")
	s.notifier.BroadcastToProject(projectID, EventGenerationFinished, map[string]interface{}{"panel_id": panelID})
	return panel, nil
}

// applyGeneration updates a panel only if its generation token still matches.
func (s *StudioService) applyGeneration(projectID string, panelID int64, token uint64, fn func(*models.Panel)) (*models.Panel, error) {
	var out *models.Panel
	_, err := s.mutate(projectID, func(p *models.Project) error {
		panel, _ := NewPanelSequence(p).Find(panelID)
		if panel == nil || panel.GenerationToken != token {
			return apperrors.NewConflictError(
				fmt.Sprintf("panel %d changed while its image was generating; result discarded", panelID), nil)
		}
		fn(panel)
		out = panel.Clone()
		return nil
	})
	if apperrors.IsConflictError(err) {
		s.metrics.RecordGeneration("stale")
		s.logger.Info("Discarded stale generation result", map[string]interface{}{
			"project_id": projectID,
			"panel_id":   panelID,
		})
	}
	return out, err
}

// ValidateStoryboardRequest checks template and count, defaulting the count.
func ValidateStoryboardRequest(templateType string, panelCount int) (int, error) {
	if templateType != "" {
		known := false
		for _, t := range models.StoryboardTemplates {
			if t == templateType {
				known = true
				break
			}
		}
		if !known {
			return 0, apperrors.NewValidationError(fmt.Sprintf("unknown storyboard template %q", templateType), nil)
		}
	}
	if panelCount == 0 {
		panelCount = models.DefaultPanelCount
	}
	if panelCount < 1 || panelCount > models.MaxPanelCount {
		return 0, apperrors.NewValidationError(
			fmt.Sprintf("panel count must be between 1 and %d", models.MaxPanelCount), nil)
	}
	return panelCount, nil
}

// GenerateStoryboard replaces the panels with a storyboard synthesized from script.
func (s *StudioService) GenerateStoryboard(ctx context.Context, projectID, script, templateType string, panelCount int) (*models.Project, error) {
	if strings.TrimSpace(script) == "" {
		return nil, apperrors.NewValidationError("Please enter a script first.", nil)
	}
	count, err := ValidateStoryboardRequest(templateType, panelCount)
	if err != nil {
		return nil, err
	}
	if err := s.requireGateway(); err != nil {
		return nil, err
	}
	if _, err := s.registry.Get(projectID); err != nil {
		return nil, err
	}

	req := gateway.StoryboardRequest{Script: script, PanelCount: count}
	if templateType != "" {
		req.TemplateType = &templateType
	}
	resp, err := s.gateway.GenerateStoryboard(ctx, req)
	if err != nil {
		return nil, err
	}

	cinematography := s.features().Cinematography
	var styleReq *gateway.StyleSessionRequest
	snapshot, err := s.mutate(projectID, func(p *models.Project) error {
		seq := NewPanelSequence(p)
		seq.Reset()
		var first *models.Panel
		for _, patch := range resp.Panels {
			if !cinematography {
				patch = patch.WithoutCinematography()
			}
			panel := seq.Append(patch)
			if first == nil {
				first = panel
			}
		}
		if first != nil {
			p.ActivePanelID = first.ID
			styleReq = NewStyleSessionManager(p).Initialize()
		}
		p.Script = script
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.syncStyle(ctx, projectID, styleReq)
	s.logger.Info("Storyboard generated", map[string]interface{}{
		"project_id": projectID,
		"panels":     len(resp.Panels),
		"template":   templateType,
	})
	return snapshot, nil
}

// RefineScript turns a natural-language description into a screenplay-style script.
func (s *StudioService) RefineScript(ctx context.Context, projectID, naturalLanguage string) (string, error) {
	if !s.features().ScriptRefinement {
		return "", apperrors.NewFeatureDisabledError("script_refinement")
	}
	if strings.TrimSpace(naturalLanguage) == "" {
		return "", apperrors.NewValidationError("Please describe the story to refine.", nil)
	}
	if err := s.requireGateway(); err != nil {
		return "", err
	}
	if _, err := s.registry.Get(projectID); err != nil {
		return "", err
	}

	refined, err := s.gateway.RefineScript(ctx, naturalLanguage)
	if err != nil {
		return "", err
	}
	if _, err := s.mutate(projectID, func(p *models.Project) error {
		p.Script = refined
		return nil
	}); err != nil {
		return "", err
	}
	return refined, nil
}

// AnalyzeStory asks the backend to critique the storyboard.
func (s *StudioService) AnalyzeStory(ctx context.Context, projectID string) (*models.StoryAnalysis, error) {
	var panels []gateway.StoryPanel
	if err := s.read(projectID, func(p *models.Project) error {
		var err error
		panels, err = StoryPanels(p.Panels)
		return err
	}); err != nil {
		return nil, err
	}
	if err := s.requireGateway(); err != nil {
		return nil, err
	}

	raw, err := s.gateway.AnalyzeStory(ctx, panels)
	if err != nil {
		return nil, err
	}
	return FormatStoryAnalysis(raw)
}

// GenerateAudio synthesizes speech and makes it the project's current clip,
// replacing the previous one.
func (s *StudioService) GenerateAudio(ctx context.Context, projectID, text string) (*models.AudioClip, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.NewValidationError("Please enter some text to voice.", nil)
	}
	if err := s.requireGateway(); err != nil {
		return nil, err
	}
	if _, err := s.registry.Get(projectID); err != nil {
		return nil, err
	}

	audio, err := s.gateway.GenerateAudio(ctx, text)
	if err != nil {
		return nil, err
	}
	clip := &models.AudioClip{
		Text:      text,
		MimeType:  audio.MimeType,
		Data:      audio.Data,
		Size:      len(audio.Data),
		CreatedAt: s.now(),
	}
	if clip.MimeType == "" {
		clip.MimeType = "audio/wav"
	}

	_, err = s.mutate(projectID, func(p *models.Project) error {
		p.Audio = clip
		return nil
	})
	if err != nil {
		return nil, err
	}
	return clip, nil
}

// CurrentAudio returns the project's current clip.
func (s *StudioService) CurrentAudio(projectID string) (*models.AudioClip, error) {
	var clip *models.AudioClip
	err := s.read(projectID, func(p *models.Project) error {
		clip = p.Audio
		return nil
	})
	if err != nil {
		return nil, err
	}
	if clip == nil {
		return nil, apperrors.NewNotFoundError("no audio clip has been generated", nil)
	}
	return clip, nil
}
