// internal/gateway/types.go
package gateway

import (
	"encoding/json"

	"github.com/Corphon/StoryboardStudio/internal/models"
)

// Endpoint paths, relative to the configured base URL.
const (
	EndpointGenerateImage       = "/generate-image"
	EndpointGenerateSuggestions = "/generate-suggestions"
	EndpointGenerateStyle       = "/generate-style"
	EndpointAnalyzeStyle        = "/analyze-style"
	EndpointCreateStyleSession  = "/create-style-session"
	EndpointStyleSession        = "/style-session/"
	EndpointRefineScript        = "/refine-script"
	EndpointGenerateStoryboard  = "/generate-storyboard"
	EndpointAnalyzeStory        = "/analyze-story"
	EndpointGenerateAudio       = "/generate-audio"
)

type ImageRequest struct {
	Prompt              string              `json:"prompt"`
	Style               string              `json:"style"`
	Cinematography      map[string]string   `json:"cinematography"`
	RefPrev             bool                `json:"refPrev"`
	PreviousImageURL    *string             `json:"previousImageUrl"`
	StyleImageBase64    *string             `json:"styleImageBase64"`
	StyleImageMimeType  *string             `json:"styleImageMimeType"`
	AssetImages         []models.AssetImage `json:"assetImages"`
	ProjectStyleID      string              `json:"projectStyleId,omitempty"`
	MaintainConsistency bool                `json:"maintainConsistency"`
}

type ImageResponse struct {
	ImageURL string `json:"imageUrl"`
}

type SuggestionsRequest struct {
	Prompt string `json:"prompt"`
}

type SuggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

type StyleRequest struct {
	Style string `json:"style"`
}

type StyleResponse struct {
	Base64   string `json:"base64"`
	MimeType string `json:"mimeType"`
	DataURL  string `json:"dataUrl"`
}

type AnalyzeStyleRequest struct {
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// StyleSessionImage is the optional reference image attached to a style session.
type StyleSessionImage struct {
	Base64   string `json:"base64"`
	MimeType string `json:"mimeType"`
}

type StyleSessionRequest struct {
	ProjectID  string             `json:"projectId"`
	BaseStyle  string             `json:"baseStyle"`
	StyleImage *StyleSessionImage `json:"styleImage"`
}

type StyleSessionResponse struct {
	SessionID string `json:"sessionId"`
	Status    string `json:"status"`
}

type RefineScriptRequest struct {
	NaturalLanguage string `json:"natural_language"`
}

type RefineScriptResponse struct {
	RefinedScript string `json:"refined_script"`
}

type StoryboardRequest struct {
	Script       string  `json:"script"`
	TemplateType *string `json:"templateType"`
	PanelCount   int     `json:"panelCount"`
}

type StoryboardResponse struct {
	Panels []models.PanelPatch `json:"panels"`
}

// StoryPanel is the per-panel excerpt sent for story analysis.
type StoryPanel struct {
	Prompt string `json:"prompt"`
	Audio  string `json:"audio"`
}

type AnalyzeStoryRequest struct {
	Panels []StoryPanel `json:"panels"`
}

type AnalyzeStoryResponse struct {
	Analysis string `json:"analysis"`
}

type AudioRequest struct {
	Text string `json:"text"`
}

// Audio is a binary clip returned by generate-audio.
type Audio struct {
	Data     []byte
	MimeType string
}

// StyleSessionDocument is the backend-held session state, passed through unchanged.
type StyleSessionDocument = json.RawMessage
