// internal/services/export_pdf.go
package services

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/go-pdf/fpdf"

	apperrors "github.com/Corphon/StoryboardStudio/internal/errors"
	"github.com/Corphon/StoryboardStudio/internal/media"
	"github.com/Corphon/StoryboardStudio/internal/models"
	"github.com/Corphon/StoryboardStudio/internal/utils"
)

// Contact sheet geometry, in points.
const (
	pdfMargin       = 20.0
	pdfLabelIndent  = 25.0
	pdfLineHeight   = 8.0
	pdfFieldSpacing = 5.0
)

// StoryboardExporter renders projects as XML timelines and PDF contact sheets.
type StoryboardExporter struct {
	logger *utils.Logger
}

// NewStoryboardExporter creates an exporter.
func NewStoryboardExporter(logger *utils.Logger) *StoryboardExporter {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &StoryboardExporter{logger: logger}
}

var pdfImageTypes = map[string]string{
	"image/jpeg": "JPG",
	"image/jpg":  "JPG",
	"image/png":  "PNG",
	"image/gif":  "GIF",
}

// pdfImage turns a panel image URL into something fpdf can embed.
// Formats fpdf cannot read are transcoded to JPEG.
func pdfImage(url string) ([]byte, string, error) {
	data, mime, err := media.DecodeDataURL(url)
	if err != nil {
		return nil, "", err
	}
	if kind, ok := pdfImageTypes[mime]; ok {
		return data, kind, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("unsupported image type %s: %w", mime, err)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "JPG", nil
}

// BuildPDF lays the panels out two per landscape A4 page.
func (e *StoryboardExporter) BuildPDF(title string, panels []*models.Panel) (*fpdf.Fpdf, error) {
	if len(panels) == 0 {
		return nil, apperrors.NewValidationError("Cannot export an empty storyboard.", nil)
	}

	pdf := fpdf.New("L", "pt", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pageWidth, _ := pdf.GetPageSize()
	imgWidth := pageWidth/2 - pdfMargin*1.5
	imgHeight := imgWidth * 9 / 16

	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 24)
	pdf.SetTextColor(0, 0, 0)
	t := tr(title)
	pdf.Text(pageWidth/2-pdf.GetStringWidth(t)/2, pdfMargin+10, t)

	for i, panel := range panels {
		left := i%2 == 0
		if i > 0 && left {
			pdf.AddPage()
		}
		x := pdfMargin
		if !left {
			x = pageWidth/2 + pdfMargin/2
		}
		y := pdfMargin * 2

		pdf.SetDrawColor(100, 100, 100)
		pdf.Rect(x, y, imgWidth, imgHeight, "D")
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(150, 150, 150)
		pdf.Text(x, y-5, fmt.Sprintf("Panel %d", i+1))

		if panel.HasImage() {
			e.drawImage(pdf, i, panel.ImageURL, x, y, imgWidth, imgHeight)
		} else {
			pdf.SetTextColor(100, 100, 100)
			const noImage = "No Image"
			pdf.Text(x+imgWidth/2-pdf.GetStringWidth(noImage)/2, y+imgHeight/2, noImage)
		}

		textY := y + imgHeight + 15
		pdf.SetTextColor(0, 0, 0)
		field := func(label, text string) {
			if text == "" {
				return
			}
			pdf.SetFont("Helvetica", "B", 8)
			pdf.Text(x, textY, label)
			pdf.SetFont("Helvetica", "", 8)
			lines := pdf.SplitText(tr(text), imgWidth-pdfLabelIndent)
			for k, line := range lines {
				pdf.Text(x+pdfLabelIndent, textY+float64(k)*pdfLineHeight, line)
			}
			textY += float64(len(lines))*pdfLineHeight + pdfFieldSpacing
		}
		field("Prompt:", panel.Prompt)
		field("Motion:", panel.Motion)
		field("Audio:", panel.Audio)
		field("Text:", panel.Text)
	}

	if err := pdf.Error(); err != nil {
		return nil, apperrors.NewProcessingError("failed to render PDF", err)
	}
	return pdf, nil
}

func (e *StoryboardExporter) drawImage(pdf *fpdf.Fpdf, index int, url string, x, y, w, h float64) {
	data, kind, err := pdfImage(url)
	if err != nil {
		e.logger.Warn("PDF export skipped panel image", map[string]interface{}{
			"panel": index + 1,
			"error": err,
		})
		return
	}
	name := fmt.Sprintf("panel-%d", index+1)
	opts := fpdf.ImageOptions{ImageType: kind}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	if err := pdf.Error(); err != nil {
		pdf.ClearError()
		e.logger.Warn("PDF export could not embed panel image", map[string]interface{}{
			"panel": index + 1,
			"error": err,
		})
		return
	}
	pdf.ImageOptions(name, x, y, w, h, false, opts, 0, "")
}

// ExportPDF renders a project snapshot as a contact sheet.
func (e *StoryboardExporter) ExportPDF(p *models.Project) (*models.ExportResult, error) {
	pdf, err := e.BuildPDF(p.Title, p.Panels)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, apperrors.NewProcessingError("failed to write PDF", err)
	}
	return e.result(p, models.ExportFormatPDF, "application/pdf", buf.Bytes()), nil
}
