// internal/models/style.go
package models

// Style presets offered by the editor. CustomStylePreset defers to a free-text description.
const (
	DefaultStylePreset = "Cinematic Realism"
	CustomStylePreset  = "Custom"
)

// StylePresets lists the named presets in display order.
var StylePresets = []string{
	DefaultStylePreset,
	"Anime",
	"Comic Book",
	"Watercolor",
	"Pencil Sketch",
	"3D Render",
	"Film Noir",
	CustomStylePreset,
}

// ImageData is an inline image payload.
type ImageData struct {
	Base64   string `json:"base64"`
	MimeType string `json:"mime_type"`
}

// DataURL renders the image as a data: URL.
func (d *ImageData) DataURL() string {
	return "data:" + d.MimeType + ";base64," + d.Base64
}

// StyleSession is the project-wide visual style kept in sync with the backend.
type StyleSession struct {
	ProjectStyleID      string     `json:"project_style_id,omitempty"`
	Preset              string     `json:"preset"`
	CustomDescription   string     `json:"custom_description,omitempty"`
	Image               *ImageData `json:"image,omitempty"`
	MaintainConsistency bool       `json:"maintain_consistency"`
	// DescriptionFromAnalysis is true while the custom description is the untouched
	// result of analyzing the uploaded style image.
	DescriptionFromAnalysis bool           `json:"description_from_analysis"`
	Initialized             bool           `json:"initialized"`
	LastAnalysis            *StyleAnalysis `json:"last_analysis,omitempty"`
}

// NewStyleSession returns the session a fresh project starts with.
func NewStyleSession() StyleSession {
	return StyleSession{Preset: DefaultStylePreset, MaintainConsistency: true}
}

// StyleCharacteristics is the structured part of a style analysis.
type StyleCharacteristics struct {
	Medium       string `json:"medium"`
	ColorPalette string `json:"color_palette"`
	Lighting     string `json:"lighting"`
	Texture      string `json:"texture"`
}

// StyleAnalysis is what analyze-style reports about an uploaded image.
type StyleAnalysis struct {
	StyleName        string               `json:"style_name"`
	StyleDescription string               `json:"style_description"`
	Characteristics  StyleCharacteristics `json:"characteristics"`
}

// FallbackStyleAnalysis is used when the backend cannot analyze an image.
func FallbackStyleAnalysis() *StyleAnalysis {
	return &StyleAnalysis{
		StyleName:        "Custom Style",
		StyleDescription: "Custom uploaded style",
		Characteristics: StyleCharacteristics{
			Medium:       "Unknown",
			ColorPalette: "Varied",
			Lighting:     "Mixed",
			Texture:      "Original",
		},
	}
}

// Clone copies the session including its image and analysis.
func (s StyleSession) Clone() StyleSession {
	if s.Image != nil {
		img := *s.Image
		s.Image = &img
	}
	if s.LastAnalysis != nil {
		a := *s.LastAnalysis
		s.LastAnalysis = &a
	}
	return s
}
