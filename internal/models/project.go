// internal/models/project.go
package models

import "time"

// DefaultProjectTitle names projects created without a title.
const DefaultProjectTitle = "Untitled Storyboard"

// Storyboard templates accepted by generate-storyboard, plus the default panel count.
const (
	TemplateExplainer      = "explainer"
	TemplateSocial         = "social"
	TemplateMusic          = "music"
	DefaultPanelCount      = 8
	MaxPanelCount          = 24
	MinPanelsForAnalysis   = 3
	AnimaticPlaceholderURL = "https://placehold.co/1920x1080/181824/606060?text=No+Image"
)

// StoryboardTemplates lists the valid template types.
var StoryboardTemplates = []string{TemplateExplainer, TemplateSocial, TemplateMusic}

// Project is one in-memory storyboard with everything the editor works on.
type Project struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Panels        []*Panel     `json:"panels"`
	ActivePanelID int64        `json:"active_panel_id,omitempty"`
	NextPanelID   int64        `json:"next_panel_id"`
	Assets        AssetLibrary `json:"assets"`
	Style         StyleSession `json:"style"`
	Script        string       `json:"script,omitempty"`
	Version       int64        `json:"version"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`

	Audio *AudioClip `json:"-"`
}

// NewProject returns an empty project.
func NewProject(id, title string, now time.Time) *Project {
	if title == "" {
		title = DefaultProjectTitle
	}
	return &Project{
		ID:          id,
		Title:       title,
		Panels:      []*Panel{},
		NextPanelID: 1,
		Style:       NewStyleSession(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// ProjectSummary is the list view of a project.
type ProjectSummary struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	PanelCount int       `json:"panel_count"`
	AssetCount int       `json:"asset_count"`
	Version    int64     `json:"version"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Summary builds the list view.
func (p *Project) Summary() ProjectSummary {
	return ProjectSummary{
		ID:         p.ID,
		Title:      p.Title,
		PanelCount: len(p.Panels),
		AssetCount: len(p.Assets.Legacy) + len(p.Assets.Characters) + len(p.Assets.Scenes) + len(p.Assets.Props),
		Version:    p.Version,
		UpdatedAt:  p.UpdatedAt,
	}
}

// AudioClip is the one generated voice-over clip a project keeps.
type AudioClip struct {
	Text      string    `json:"text"`
	MimeType  string    `json:"mime_type"`
	Data      []byte    `json:"-"`
	Size      int       `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// StoryAnalysis is the formatted result of analyze-story.
type StoryAnalysis struct {
	Raw  string `json:"raw"`
	HTML string `json:"html"`
}

// Clone returns a deep copy suitable for handing out of the project lock.
// The current audio clip is not part of snapshots.
func (p *Project) Clone() *Project {
	c := *p
	c.Audio = nil
	c.Panels = make([]*Panel, len(p.Panels))
	for i, panel := range p.Panels {
		c.Panels[i] = panel.Clone()
	}
	c.Assets = p.Assets.Clone()
	c.Style = p.Style.Clone()
	return &c
}
