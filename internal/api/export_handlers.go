// internal/api/export_handlers.go
package api

import (
	"mime"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/StoryboardStudio/internal/models"
)

// ========================================
// animatic
// ========================================

// GetAnimatic returns the playback cursor.
func (h *Handler) GetAnimatic(c *gin.Context) {
	state, err := h.Studio.AnimaticState(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.Response.Success(c, state)
}

// AnimaticControl runs a playback command: start, pause, next, prev or stop.
func (h *Handler) AnimaticControl(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID := c.Param("id")
		var (
			data interface{}
			err  error
		)
		switch action {
		case "start":
			data, err = h.Studio.StartAnimatic(projectID)
		case "pause":
			data, err = h.Studio.PauseAnimatic(projectID)
		case "next":
			data, err = h.Studio.NextFrame(projectID)
		case "prev":
			data, err = h.Studio.PrevFrame(projectID)
		case "stop":
			data, err = h.Studio.StopAnimatic(projectID)
		default:
			h.Response.NotFound(c, "unknown animatic action "+action)
			return
		}
		if err != nil {
			h.respondError(c, err)
			return
		}
		h.Response.Success(c, data)
	}
}

// ========================================
// exports
// ========================================

// Export renders xml or pdf as a download. ?save=true also stores it.
func (h *Handler) Export(format string) gin.HandlerFunc {
	return func(c *gin.Context) {
		save, _ := strconv.ParseBool(c.DefaultQuery("save", "false"))
		result, err := h.Studio.Export(c.Param("id"), format, save)
		if err != nil {
			h.respondError(c, err)
			return
		}
		h.Response.ExportResponse(c, result)
	}
}

// ListExports lists the saved files of a project.
func (h *Handler) ListExports(c *gin.Context) {
	list, err := h.Studio.ListExports(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.Response.Success(c, list)
}

// DownloadExport sends a saved file.
func (h *Handler) DownloadExport(c *gin.Context) {
	if h.Storage == nil {
		h.Response.Error(c, 404, ErrorFileNotFound, "saved exports are not available")
		return
	}
	projectID, name := c.Param("id"), c.Param("name")
	if _, err := h.Studio.GetProject(projectID); err != nil {
		h.respondError(c, err)
		return
	}
	data, err := h.Storage.Load(projectID, name)
	if err != nil {
		h.respondError(c, err)
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(name))
	switch {
	case contentType != "":
	case filepath.Ext(name) == "."+models.ExportFormatXML:
		contentType = "application/xml"
	default:
		contentType = "application/octet-stream"
	}
	h.Response.FileResponse(c, data, filepath.Base(name), contentType)
}
