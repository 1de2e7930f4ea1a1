// internal/services/style_session.go
package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/Corphon/StoryboardStudio/internal/errors"
	"github.com/Corphon/StoryboardStudio/internal/gateway"
	"github.com/Corphon/StoryboardStudio/internal/models"
)

// StyleSessionManager edits the style state of one project.
//
// Operations that change what the backend should know return the upsert to send,
// or nil when nothing needs to go out. The studio sends it after releasing the
// project lock and only logs failures.
type StyleSessionManager struct {
	session *models.StyleSession
	now     func() time.Time
	suffix  func() string
}

// NewStyleSessionManager wraps the style state of p.
func NewStyleSessionManager(p *models.Project) *StyleSessionManager {
	return &StyleSessionManager{
		session: &p.Style,
		now:     time.Now,
		suffix:  randomSuffix,
	}
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
}

// NewProjectStyleID mints a style session id of the form project_<unix-ms>_<9 chars>.
func NewProjectStyleID(now time.Time, suffix string) string {
	return fmt.Sprintf("project_%d_%s", now.UnixMilli(), suffix)
}

// Session returns the managed state.
func (m *StyleSessionManager) Session() *models.StyleSession {
	return m.session
}

// BaseStyle is the style name the backend session is created with.
func (m *StyleSessionManager) BaseStyle() string {
	s := m.session
	if s.Preset == models.CustomStylePreset {
		return strings.TrimSpace(s.CustomDescription)
	}
	return s.Preset
}

// EffectiveStyle is the style sent with each image request.
func (m *StyleSessionManager) EffectiveStyle() string {
	s := m.session
	if s.Preset == models.CustomStylePreset {
		if desc := strings.TrimSpace(s.CustomDescription); desc != "" {
			return desc
		}
		return models.DefaultStylePreset
	}
	if s.Preset == "" {
		return models.DefaultStylePreset
	}
	return s.Preset
}

func (m *StyleSessionManager) upsert() *gateway.StyleSessionRequest {
	req := &gateway.StyleSessionRequest{
		ProjectID: m.session.ProjectStyleID,
		BaseStyle: m.BaseStyle(),
	}
	if img := m.session.Image; img != nil {
		req.StyleImage = &gateway.StyleSessionImage{Base64: img.Base64, MimeType: img.MimeType}
	}
	return req
}

// Initialize mints the session id if needed and returns the first upsert.
// It runs once per project; later calls return nil.
func (m *StyleSessionManager) Initialize() *gateway.StyleSessionRequest {
	if m.session.Initialized {
		return nil
	}
	if m.session.ProjectStyleID == "" {
		m.session.ProjectStyleID = NewProjectStyleID(m.now(), m.suffix())
	}
	m.session.Initialized = true
	return m.upsert()
}

// Update re-sends the current style under the same id. No-op before Initialize.
func (m *StyleSessionManager) Update() *gateway.StyleSessionRequest {
	if !m.session.Initialized || m.session.ProjectStyleID == "" {
		return nil
	}
	return m.upsert()
}

// SelectPreset switches to a named preset. Leaving Custom drops the custom description.
func (m *StyleSessionManager) SelectPreset(name string) (*gateway.StyleSessionRequest, error) {
	if !IsStylePreset(name) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown style preset %q", name), nil)
	}
	m.session.Preset = name
	if name != models.CustomStylePreset {
		m.session.CustomDescription = ""
		m.session.DescriptionFromAnalysis = false
	}
	return m.Update(), nil
}

// SetCustomDescription switches to Custom with a user-written description.
func (m *StyleSessionManager) SetCustomDescription(text string) *gateway.StyleSessionRequest {
	m.session.Preset = models.CustomStylePreset
	m.session.CustomDescription = text
	m.session.DescriptionFromAnalysis = false
	return m.Update()
}

// SetMaintainConsistency toggles the consistency hint sent with image requests.
func (m *StyleSessionManager) SetMaintainConsistency(on bool) {
	m.session.MaintainConsistency = on
}

// SetStyleImage attaches a reference image.
func (m *StyleSessionManager) SetStyleImage(img models.ImageData) *gateway.StyleSessionRequest {
	m.session.Image = &img
	return m.Update()
}

// ApplyAnalysis stores an image analysis as the custom description.
func (m *StyleSessionManager) ApplyAnalysis(a *models.StyleAnalysis) *gateway.StyleSessionRequest {
	m.session.Preset = models.CustomStylePreset
	m.session.CustomDescription = a.StyleDescription
	m.session.DescriptionFromAnalysis = true
	m.session.LastAnalysis = a
	return m.Update()
}

// RemoveStyleImage drops the reference image. A description that only came
// from analyzing that image goes with it and the default preset comes back.
func (m *StyleSessionManager) RemoveStyleImage() *gateway.StyleSessionRequest {
	s := m.session
	s.Image = nil
	if s.Preset == models.CustomStylePreset && s.DescriptionFromAnalysis {
		s.Preset = models.DefaultStylePreset
		s.CustomDescription = ""
		s.DescriptionFromAnalysis = false
		s.LastAnalysis = nil
	}
	return m.Update()
}

// IsStylePreset reports whether name is one of the offered presets.
func IsStylePreset(name string) bool {
	for _, p := range models.StylePresets {
		if p == name {
			return true
		}
	}
	return false
}
