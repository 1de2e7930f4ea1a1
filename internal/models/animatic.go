// internal/models/animatic.go
package models

// AnimaticStatus is the playback state of the animatic preview.
type AnimaticStatus string

const (
	AnimaticStopped AnimaticStatus = "stopped"
	AnimaticPlaying AnimaticStatus = "playing"
	AnimaticPaused  AnimaticStatus = "paused"
)

// AnimaticState is the ephemeral playback cursor.
type AnimaticState struct {
	Status       AnimaticStatus `json:"status"`
	IsPlaying    bool           `json:"is_playing"`
	CurrentIndex int            `json:"current_index"`
}

// AnimaticFrame is what the preview shows for one panel.
type AnimaticFrame struct {
	Index    int     `json:"index"`
	Total    int     `json:"total"`
	PanelID  int64   `json:"panel_id"`
	ImageURL string  `json:"image_url"`
	Prompt   string  `json:"prompt"`
	Duration float64 `json:"duration"`
	// Progress is the share of total runtime elapsed before this panel, 0..1.
	Progress float64 `json:"progress"`
}
