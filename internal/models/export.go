// internal/models/export.go
package models

import (
	"strings"
	"time"
)

// Export formats
const (
	ExportFormatXML = "xml"
	ExportFormatPDF = "pdf"
)

// ExportResult is a rendered export ready for download.
type ExportResult struct {
	ProjectID   string    `json:"project_id"`
	Title       string    `json:"title"`
	Format      string    `json:"format"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Content     []byte    `json:"-"`
	FileSize    int64     `json:"file_size"`
	PanelCount  int       `json:"panel_count"`
	GeneratedAt time.Time `json:"generated_at"`
	FilePath    string    `json:"file_path,omitempty"`
}

// ExportFileName derives a download name from the project title.
func ExportFileName(title, ext string) string {
	return strings.ReplaceAll(title, " ", "_") + "." + ext
}

// ArtifactInfo describes an export saved on disk.
type ArtifactInfo struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}
