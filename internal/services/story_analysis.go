// internal/services/story_analysis.go
package services

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"

	apperrors "github.com/Corphon/StoryboardStudio/internal/errors"
	"github.com/Corphon/StoryboardStudio/internal/gateway"
	"github.com/Corphon/StoryboardStudio/internal/models"
)

// analysisMarkdown renders the analyst's markup (### headings, **bold**, * bullets).
// Raw HTML in the text is dropped by the renderer, and single newlines become <br>.
var analysisMarkdown = goldmark.New(
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// FormatStoryAnalysis turns raw analysis text into HTML.
func FormatStoryAnalysis(raw string) (*models.StoryAnalysis, error) {
	var buf bytes.Buffer
	if err := analysisMarkdown.Convert([]byte(raw), &buf); err != nil {
		return nil, apperrors.NewProcessingError("failed to format story analysis", err)
	}
	return &models.StoryAnalysis{Raw: raw, HTML: strings.TrimSpace(buf.String())}, nil
}

// StoryPanels builds the analyze-story payload. At least MinPanelsForAnalysis panels are required.
func StoryPanels(panels []*models.Panel) ([]gateway.StoryPanel, error) {
	if len(panels) < models.MinPanelsForAnalysis {
		return nil, apperrors.NewValidationError("Need at least 3 panels to perform a story analysis.", nil)
	}
	out := make([]gateway.StoryPanel, 0, len(panels))
	for _, p := range panels {
		out = append(out, gateway.StoryPanel{Prompt: p.Prompt, Audio: p.Audio})
	}
	return out, nil
}
