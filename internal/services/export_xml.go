// internal/services/export_xml.go
package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/Corphon/StoryboardStudio/internal/errors"
	"github.com/Corphon/StoryboardStudio/internal/models"
)

// XMLFrameRate is the fixed timebase of exported timelines.
const XMLFrameRate = 30

var xmlEscaper = strings.NewReplacer(
	"<", "&lt;",
	">", "&gt;",
	"&", "&amp;",
	"'", "&apos;",
	`"`, "&quot;",
)

// EscapeXML escapes the five XML special characters.
func EscapeXML(s string) string {
	return xmlEscaper.Replace(s)
}

func formatFrames(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func clipMarkers(p *models.Panel) string {
	var b strings.Builder
	marker := func(comment string) {
		b.WriteString("<marker><comment>")
		b.WriteString(EscapeXML(comment))
		b.WriteString("</comment></marker>")
	}
	if p.Motion != "" {
		marker("Motion: " + p.Motion)
	}
	if p.Audio != "" {
		marker("Audio: " + p.Audio)
	}
	if p.Text != "" {
		marker("On-Screen Text: " + p.Text)
	}
	if p.Movement != "" && p.Movement != "none" {
		marker("Camera: " + strings.ReplaceAll(p.Movement, "_", " "))
	}
	return b.String()
}

// RenderXML writes the panels as a compact xmeml v4 sequence.
func RenderXML(title string, panels []*models.Panel) ([]byte, error) {
	if len(panels) == 0 {
		return nil, apperrors.NewValidationError("Cannot export an empty storyboard.", nil)
	}

	var clips strings.Builder
	total := 0.0
	for i, p := range panels {
		n := i + 1
		frames := p.Duration.Value() * XMLFrameRate
		total += frames

		name := p.Prompt
		if name == "" {
			name = fmt.Sprintf("Panel %d", n)
		}
		fmt.Fprintf(&clips,
			`<clipitem id="clipitem-%d"><name>%s</name><duration>%s</duration><rate><timebase>%d</timebase></rate>`+
				`<file id="file-%d"><name>Panel_%03d.jpg</name><pathurl>file://PANEL_%03d.JPG</pathurl></file>%s</clipitem>`,
			n, EscapeXML(name), formatFrames(frames), XMLFrameRate, n, n, n, clipMarkers(p))
	}

	doc := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?><!DOCTYPE xmeml><xmeml version="4"><sequence>`+
		`<name>%s</name><duration>%s</duration><rate><timebase>%d</timebase></rate>`+
		`<media><video><track>%s</track></video></media></sequence></xmeml>`,
		EscapeXML(title), formatFrames(total), XMLFrameRate, clips.String())
	return []byte(doc), nil
}

// ExportXML renders a project snapshot as an editing timeline.
func (e *StoryboardExporter) ExportXML(p *models.Project) (*models.ExportResult, error) {
	content, err := RenderXML(p.Title, p.Panels)
	if err != nil {
		return nil, err
	}
	return e.result(p, models.ExportFormatXML, "text/xml", content), nil
}

func (e *StoryboardExporter) result(p *models.Project, format, contentType string, content []byte) *models.ExportResult {
	return &models.ExportResult{
		ProjectID:   p.ID,
		Title:       p.Title,
		Format:      format,
		FileName:    models.ExportFileName(p.Title, format),
		ContentType: contentType,
		Content:     content,
		FileSize:    int64(len(content)),
		PanelCount:  len(p.Panels),
		GeneratedAt: time.Now(),
	}
}
