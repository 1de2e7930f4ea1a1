// internal/api/generation_handlers.go
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GeneratePanelImage renders a panel. The response arrives after the backend answers;
// progress is also pushed over the project's WebSocket.
func (h *Handler) GeneratePanelImage(c *gin.Context) {
	panelID, ok := h.panelIDParam(c)
	if !ok {
		return
	}
	panel, err := h.Studio.GeneratePanelImage(c.Request.Context(), c.Param("id"), panelID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.Response.Success(c, panel)
}

type refineRequest struct {
	NaturalLanguage string `json:"natural_language"`
}

// RefineScript turns a description into a script.
func (h *Handler) RefineScript(c *gin.Context) {
	var req refineRequest
	if !h.bindJSON(c, &req, false) {
		return
	}
	script, err := h.Studio.RefineScript(c.Request.Context(), c.Param("id"), req.NaturalLanguage)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.Response.Success(c, gin.H{"script": script})
}

type storyboardRequest struct {
	Script       string `json:"script"`
	TemplateType string `json:"template_type"`
	PanelCount   int    `json:"panel_count"`
}

// GenerateStoryboard replaces the panels with a generated storyboard.
func (h *Handler) GenerateStoryboard(c *gin.Context) {
	var req storyboardRequest
	if !h.bindJSON(c, &req, false) {
		return
	}
	project, err := h.Studio.GenerateStoryboard(c.Request.Context(), c.Param("id"), req.Script, req.TemplateType, req.PanelCount)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.Response.Success(c, project)
}

// AnalyzeStory critiques the storyboard.
func (h *Handler) AnalyzeStory(c *gin.Context) {
	analysis, err := h.Studio.AnalyzeStory(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.Response.Success(c, analysis)
}

type audioRequest struct {
	Text string `json:"text"`
}

// GenerateAudio voices text and answers with the clip itself.
func (h *Handler) GenerateAudio(c *gin.Context) {
	var req audioRequest
	if !h.bindJSON(c, &req, false) {
		return
	}
	clip, err := h.Studio.GenerateAudio(c.Request.Context(), c.Param("id"), req.Text)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, clip.MimeType, clip.Data)
}

// CurrentAudio replays the project's current clip.
func (h *Handler) CurrentAudio(c *gin.Context) {
	clip, err := h.Studio.CurrentAudio(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, clip.MimeType, clip.Data)
}
