// internal/api/asset_handlers.go
package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/StoryboardStudio/internal/models"
)

func readFormFile(fh *multipart.FileHeader) (models.AssetUpload, error) {
	f, err := fh.Open()
	if err != nil {
		return models.AssetUpload{}, fmt.Errorf("failed to open %q: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return models.AssetUpload{}, fmt.Errorf("failed to read %q: %w", fh.Filename, err)
	}
	return models.AssetUpload{
		FileName: fh.Filename,
		Data:     data,
		MimeType: fh.Header.Get("Content-Type"),
	}, nil
}

// formFiles reads the files posted under any of keys.
func (h *Handler) formFiles(c *gin.Context, keys ...string) ([]models.AssetUpload, bool) {
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respondError(c, err)
		} else {
			h.Response.BadRequest(c, ErrorFileInvalid, "expected a multipart form", err.Error())
		}
		return nil, false
	}

	var headers []*multipart.FileHeader
	for _, key := range keys {
		headers = append(headers, form.File[key]...)
	}
	if len(headers) == 0 {
		h.Response.BadRequest(c, ErrorFileMissing, "no files uploaded")
		return nil, false
	}

	uploads := make([]models.AssetUpload, 0, len(headers))
	for _, fh := range headers {
		u, err := readFormFile(fh)
		if err != nil {
			h.Response.BadRequest(c, ErrorFileInvalid, err.Error())
			return nil, false
		}
		uploads = append(uploads, u)
	}
	return uploads, true
}

// ListAssets returns the asset library.
func (h *Handler) ListAssets(c *gin.Context) {
	lib, err := h.Studio.ListAssets(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.Response.Success(c, lib)
}

// UploadAssets stores the files of a multipart upload. The optional "category"
// field picks the list; without it, or with categories disabled, files go to legacy.
func (h *Handler) UploadAssets(c *gin.Context) {
	uploads, ok := h.formFiles(c, "files", "file")
	if !ok {
		return
	}
	category := models.AssetCategory(c.PostForm("category"))

	added, err := h.Studio.UploadAssets(c.Request.Context(), c.Param("id"), category, uploads)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.Response.Created(c, added, fmt.Sprintf("%d asset(s) uploaded", len(added)))
}

type assetUpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// UpdateAsset renames and/or redescribes an asset.
func (h *Handler) UpdateAsset(c *gin.Context) {
	var req assetUpdateRequest
	if !h.bindJSON(c, &req, false) {
		return
	}
	if req.Name == nil && req.Description == nil {
		h.Response.BadRequest(c, ErrorBadRequest, "nothing to update")
		return
	}

	projectID := c.Param("id")
	category := models.AssetCategory(c.Param("category"))
	assetID := c.Param("assetId")

	var (
		asset *models.Asset
		err   error
	)
	if req.Name != nil {
		if asset, err = h.Studio.RenameAsset(projectID, category, assetID, *req.Name); err != nil {
			h.respondError(c, err)
			return
		}
	}
	if req.Description != nil {
		if asset, err = h.Studio.DescribeAsset(projectID, category, assetID, *req.Description); err != nil {
			h.respondError(c, err)
			return
		}
	}
	h.Response.Success(c, asset)
}

// DeleteAsset removes an asset.
func (h *Handler) DeleteAsset(c *gin.Context) {
	err := h.Studio.DeleteAsset(c.Param("id"), models.AssetCategory(c.Param("category")), c.Param("assetId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.Response.Success(c, gin.H{"asset_id": c.Param("assetId")}, "asset deleted")
}

type resolveRequest struct {
	Prompt string `json:"prompt"`
}

// ResolvePrompt previews reference resolution. An empty prompt uses the active panel.
func (h *Handler) ResolvePrompt(c *gin.Context) {
	var req resolveRequest
	if !h.bindJSON(c, &req, true) {
		return
	}
	res, err := h.Studio.ResolvePrompt(c.Param("id"), req.Prompt)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.Response.Success(c, res)
}

// ========================================
// style
// ========================================

// GetStyle returns the style session and the style string that generation would use.
func (h *Handler) GetStyle(c *gin.Context) {
	style, effective, err := h.Studio.GetStyle(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.Response.Success(c, gin.H{"style": style, "effective_style": effective})
}

type presetRequest struct {
	Preset string `json:"preset" binding:"required"`
}

// SelectStylePreset switches preset.
func (h *Handler) SelectStylePreset(c *gin.Context) {
	var req presetRequest
	if !h.bindJSON(c, &req, false) {
		return
	}
	style, err := h.Studio.SelectStylePreset(c.Request.Context(), c.Param("id"), req.Preset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.Response.Success(c, style)
}

type customStyleRequest struct {
	Description string `json:"description"`
}

// SetCustomStyle switches to the Custom preset.
func (h *Handler) SetCustomStyle(c *gin.Context) {
	var req customStyleRequest
	if !h.bindJSON(c, &req, false) {
		return
	}
	style, err := h.Studio.SetCustomStyle(c.Request.Context(), c.Param("id"), req.Description)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.Response.Success(c, style)
}

type consistencyRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// SetMaintainConsistency toggles the consistency hint.
func (h *Handler) SetMaintainConsistency(c *gin.Context) {
	var req consistencyRequest
	if !h.bindJSON(c, &req, false) {
		return
	}
	style, err := h.Studio.SetMaintainConsistency(c.Param("id"), *req.Enabled)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.Response.Success(c, style)
}

// UploadStyleImage sets the reference image from a multipart "file".
func (h *Handler) UploadStyleImage(c *gin.Context) {
	uploads, ok := h.formFiles(c, "file")
	if !ok {
		return
	}
	style, err := h.Studio.UploadStyleImage(c.Request.Context(), c.Param("id"), uploads[0])
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.Response.Success(c, style)
}

// RemoveStyleImage drops the reference image.
func (h *Handler) RemoveStyleImage(c *gin.Context) {
	style, err := h.Studio.RemoveStyleImage(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.Response.Success(c, style)
}

type styleGenerateRequest struct {
	Description string `json:"description"`
}

// GenerateStyleReference renders a reference image for a description.
func (h *Handler) GenerateStyleReference(c *gin.Context) {
	var req styleGenerateRequest
	if !h.bindJSON(c, &req, false) {
		return
	}
	style, err := h.Studio.GenerateStyleReference(c.Request.Context(), c.Param("id"), req.Description)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.Response.Success(c, style)
}

// GetStyleSession passes through the backend's session document.
func (h *Handler) GetStyleSession(c *gin.Context) {
	doc, err := h.Studio.StyleSessionDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.Response.Success(c, doc)
}
