// internal/services/panel_sequence.go
package services

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/Corphon/StoryboardStudio/internal/errors"
	"github.com/Corphon/StoryboardStudio/internal/models"
)

// PanelSequence is the ordered panel list of one project.
// It does no locking; the studio holds the project lock while calling it.
type PanelSequence struct {
	project *models.Project
	now     func() time.Time
}

// NewPanelSequence wraps the panels of p.
func NewPanelSequence(p *models.Project) *PanelSequence {
	return &PanelSequence{project: p, now: time.Now}
}

// Len returns the number of panels.
func (s *PanelSequence) Len() int {
	return len(s.project.Panels)
}

// Append adds a panel at the end with defaults, overlays patch and makes it active.
func (s *PanelSequence) Append(patch models.PanelPatch) *models.Panel {
	p := s.project
	panel := &models.Panel{
		ID:          p.NextPanelID,
		RefPrev:     true,
		Duration:    models.DefaultPanelDuration,
		Suggestions: []string{},
		CreatedAt:   s.now(),
	}
	patch.ApplyTo(panel)

	p.NextPanelID++
	p.Panels = append(p.Panels, panel)
	p.ActivePanelID = panel.ID
	return panel
}

// Find returns the panel with id and its index, or nil and -1.
func (s *PanelSequence) Find(id int64) (*models.Panel, int) {
	for i, panel := range s.project.Panels {
		if panel.ID == id {
			return panel, i
		}
	}
	return nil, -1
}

// Get returns the panel with id or a not-found error.
func (s *PanelSequence) Get(id int64) (*models.Panel, error) {
	panel, _ := s.Find(id)
	if panel == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("panel %d not found", id), nil)
	}
	return panel, nil
}

// Active returns the active panel, or nil when none is selected.
func (s *PanelSequence) Active() *models.Panel {
	if s.project.ActivePanelID == 0 {
		return nil
	}
	panel, _ := s.Find(s.project.ActivePanelID)
	return panel
}

// Previous returns the panel right before id, or nil for the first panel.
func (s *PanelSequence) Previous(id int64) *models.Panel {
	_, i := s.Find(id)
	if i <= 0 {
		return nil
	}
	return s.project.Panels[i-1]
}

// Remove deletes a panel. When it was active, the panel before it becomes active
// (clamped to the first panel), or none if the sequence is now empty.
func (s *PanelSequence) Remove(id int64) error {
	p := s.project
	_, index := s.Find(id)
	if index < 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("panel %d not found", id), nil)
	}

	wasActive := p.ActivePanelID == id
	p.Panels = append(p.Panels[:index:index], p.Panels[index+1:]...)

	if wasActive {
		if len(p.Panels) == 0 {
			p.ActivePanelID = 0
			return nil
		}
		next := index - 1
		if next < 0 {
			next = 0
		}
		p.ActivePanelID = p.Panels[next].ID
	}
	return nil
}

// SetActive selects a panel. Zero clears the selection.
func (s *PanelSequence) SetActive(id int64) error {
	if id == 0 {
		s.project.ActivePanelID = 0
		return nil
	}
	if panel, _ := s.Find(id); panel == nil {
		return apperrors.NewNotFoundError(fmt.Sprintf("panel %d not found", id), nil)
	}
	s.project.ActivePanelID = id
	return nil
}

// Update applies patch to the panel with id.
func (s *PanelSequence) Update(id int64, patch models.PanelPatch) (*models.Panel, error) {
	panel, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	patch.ApplyTo(panel)
	return panel, nil
}

// Reset drops every panel and clears the selection. Ids keep increasing.
func (s *PanelSequence) Reset() {
	s.project.Panels = []*models.Panel{}
	s.project.ActivePanelID = 0
}

// HasAnyImage reports whether at least one panel has a generated image.
func (s *PanelSequence) HasAnyImage() bool {
	for _, panel := range s.project.Panels {
		if panel.HasImage() {
			return true
		}
	}
	return false
}

// SuggestionPatch builds the new panel created from a clicked suggestion,
// deriving camera tags from keywords in the text.
func SuggestionPatch(text string, withCinematography bool) models.PanelPatch {
	refPrev := true
	patch := models.PanelPatch{Prompt: &text, RefPrev: &refPrev}
	if !withCinematography {
		return patch
	}

	lower := strings.ToLower(text)
	set := func(v string) *string { return &v }
	switch {
	case strings.Contains(lower, "close-up") || strings.Contains(lower, "portrait"):
		patch.Lens = set("portrait")
	case strings.Contains(lower, "wide") || strings.Contains(lower, "establishing"):
		patch.Lens = set("wide")
	}
	if strings.Contains(lower, "dutch") {
		patch.Composition = set("dutch")
	}
	if strings.Contains(lower, "golden hour") {
		patch.Lighting = set("golden_hour")
	}
	return patch
}
