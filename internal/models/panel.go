// internal/models/panel.go
package models

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultPanelDuration is used whenever a panel has no usable duration.
const DefaultPanelDuration = 3.0

// Seconds is a panel duration. It decodes from a JSON number or a numeric string.
type Seconds float64

var leadingNumber = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)

// ParseSeconds reads the numeric prefix of s, the way a form field is usually read.
// Anything without a numeric prefix yields DefaultPanelDuration.
func ParseSeconds(s string) Seconds {
	m := leadingNumber.FindString(strings.TrimSpace(s))
	if m == "" {
		return DefaultPanelDuration
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return DefaultPanelDuration
	}
	return Seconds(f)
}

// Value returns the duration used for timing, normalizing unusable values to the default.
func (s Seconds) Value() float64 {
	f := float64(s)
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return DefaultPanelDuration
	}
	return f
}

// Duration converts the normalized value to a time.Duration.
func (s Seconds) Duration() time.Duration {
	return time.Duration(s.Value() * float64(time.Second))
}

func (s *Seconds) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*s = Seconds(f)
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = ParseSeconds(str)
		return nil
	}
	*s = DefaultPanelDuration
	return nil
}

// Panel is one storyboard shot.
type Panel struct {
	ID          int64     `json:"id"`
	Prompt      string    `json:"prompt"`
	ImageURL    string    `json:"image_url,omitempty"`
	IsLoading   bool      `json:"is_loading"`
	RefPrev     bool      `json:"ref_prev"`
	Duration    Seconds   `json:"duration"`
	Suggestions []string  `json:"suggestions"`
	Motion      string    `json:"motion,omitempty"`
	Audio       string    `json:"audio,omitempty"`
	Text        string    `json:"text,omitempty"`
	Lens        string    `json:"lens,omitempty"`
	Lighting    string    `json:"lighting,omitempty"`
	Composition string    `json:"composition,omitempty"`
	Movement    string    `json:"movement,omitempty"`
	CreatedAt   time.Time `json:"created_at"`

	// GenerationToken identifies the latest generation request; older responses are dropped.
	GenerationToken uint64 `json:"-"`
}

// HasImage reports whether the panel has a generated image.
func (p *Panel) HasImage() bool {
	return p != nil && p.ImageURL != ""
}

// Cinematography returns the non-empty camera tags keyed the way the backend expects.
func (p *Panel) Cinematography() map[string]string {
	out := map[string]string{}
	for k, v := range map[string]string{
		"lens":        p.Lens,
		"lighting":    p.Lighting,
		"composition": p.Composition,
		"movement":    p.Movement,
	} {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// Clone returns a deep copy.
func (p *Panel) Clone() *Panel {
	c := *p
	c.Suggestions = append([]string{}, p.Suggestions...)
	return &c
}

// PanelPatch carries the fields of a panel that callers may set.
// Nil pointers leave the field untouched. It also decodes storyboard panels returned by the backend.
type PanelPatch struct {
	Prompt      *string  `json:"prompt,omitempty"`
	RefPrev     *bool    `json:"ref_prev,omitempty"`
	Duration    *Seconds `json:"duration,omitempty"`
	Motion      *string  `json:"motion,omitempty"`
	Audio       *string  `json:"audio,omitempty"`
	Text        *string  `json:"text,omitempty"`
	Lens        *string  `json:"lens,omitempty"`
	Lighting    *string  `json:"lighting,omitempty"`
	Composition *string  `json:"composition,omitempty"`
	Movement    *string  `json:"movement,omitempty"`
}

// HasCinematography reports whether any camera tag is set.
func (pp PanelPatch) HasCinematography() bool {
	return pp.Lens != nil || pp.Lighting != nil || pp.Composition != nil || pp.Movement != nil
}

// WithoutCinematography returns the patch with the camera tags dropped.
func (pp PanelPatch) WithoutCinematography() PanelPatch {
	pp.Lens, pp.Lighting, pp.Composition, pp.Movement = nil, nil, nil, nil
	return pp
}

// ApplyTo copies every set field onto p.
func (pp PanelPatch) ApplyTo(p *Panel) {
	if pp.Prompt != nil {
		p.Prompt = *pp.Prompt
	}
	if pp.RefPrev != nil {
		p.RefPrev = *pp.RefPrev
	}
	if pp.Duration != nil {
		p.Duration = *pp.Duration
	}
	if pp.Motion != nil {
		p.Motion = *pp.Motion
	}
	if pp.Audio != nil {
		p.Audio = *pp.Audio
	}
	if pp.Text != nil {
		p.Text = *pp.Text
	}
	if pp.Lens != nil {
		p.Lens = *pp.Lens
	}
	if pp.Lighting != nil {
		p.Lighting = *pp.Lighting
	}
	if pp.Composition != nil {
		p.Composition = *pp.Composition
	}
	if pp.Movement != nil {
		p.Movement = *pp.Movement
	}
}
