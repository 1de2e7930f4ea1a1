package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/StoryboardStudio/internal/models"
	"github.com/Corphon/StoryboardStudio/internal/services"
)

func TestProjectCRUD(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProject(t, "Pilot")
	assert.Equal(t, "Pilot", p.Title)
	assert.NotEmpty(t, p.ID)

	w, resp := env.do(t, http.MethodPost, "/api/projects", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, models.DefaultProjectTitle, decode[*models.Project](t, resp.Data).Title)

	w, resp = env.do(t, http.MethodGet, "/api/projects", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.ProjectSummary](t, resp.Data), 2)

	w, resp = env.do(t, http.MethodPatch, "/api/projects/"+p.ID, map[string]string{"title": "Season 2"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Season 2", decode[*models.Project](t, resp.Data).Title)

	w, _ = env.do(t, http.MethodDelete, "/api/projects/"+p.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp = env.do(t, http.MethodGet, "/api/projects/"+p.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
	assert.False(t, resp.Success)
}

func TestResponseCarriesRequestID(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(requestIDHeader, "req-42")
	w, _ := env.serve(t, req)
	assert.Equal(t, "req-42", w.Header().Get(requestIDHeader))
	assert.Contains(t, w.Body.String(), `"request_id":"req-42"`)
}

func TestPanelFlow(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProject(t, "Pilot")
	base := "/api/projects/" + p.ID

	w, resp := env.do(t, http.MethodPost, base+"/panels", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := decode[*models.Panel](t, resp.Data)
	assert.Equal(t, int64(1), first.ID)

	w, resp = env.do(t, http.MethodPost, base+"/panels", map[string]interface{}{"prompt": "Harbor at dawn", "duration": 5})
	require.Equal(t, http.StatusCreated, w.Code)
	second := decode[*models.Panel](t, resp.Data)
	assert.Equal(t, "Harbor at dawn", second.Prompt)
	assert.Equal(t, 5.0, second.Duration.Value())

	w, resp = env.do(t, http.MethodPatch, base+"/panels/1", map[string]string{"prompt": "Hero enters"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Hero enters", decode[*models.Panel](t, resp.Data).Prompt)

	w, resp = env.do(t, http.MethodPut, base+"/active-panel", map[string]int64{"panel_id": 1})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), decode[*models.Project](t, resp.Data).ActivePanelID)

	w, resp = env.do(t, http.MethodPost, base+"/panels/1/generate", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	generated := decode[*models.Panel](t, resp.Data)
	assert.Equal(t, "data:image/png;base64,AAAA", generated.ImageURL)
	assert.False(t, generated.IsLoading)

	w, resp = env.do(t, http.MethodDelete, base+"/panels/2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[*models.Project](t, resp.Data).Panels, 1)

	w, resp = env.do(t, http.MethodPost, base+"/panels/suggestion", map[string]string{"text": "Close-up on the hero"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Close-up on the hero", decode[*models.Panel](t, resp.Data).Prompt)
}

func TestErrorMapping(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProject(t, "Pilot")
	base := "/api/projects/" + p.ID

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
		code   string
	}{
		{"bad panel id", http.MethodPatch, base + "/panels/abc", map[string]string{}, http.StatusBadRequest, ErrorInvalidPanelID},
		{"malformed json", http.MethodPatch, base, "{", http.StatusBadRequest, ErrorInvalidJSON},
		{"missing body", http.MethodPost, base + "/panels/suggestion", nil, http.StatusBadRequest, ErrorInvalidJSON},
		{"unknown panel", http.MethodPatch, base + "/panels/99", map[string]string{"prompt": "x"}, http.StatusNotFound, "NOT_FOUND"},
		{"unknown active panel", http.MethodPut, base + "/active-panel", map[string]int64{"panel_id": 7}, http.StatusNotFound, "NOT_FOUND"},
		{"empty export", http.MethodGet, base + "/export/xml", nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"analysis needs panels", http.MethodPost, base + "/analysis", nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown route", http.MethodGet, "/api/nope", nil, http.StatusNotFound, ErrorNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := env.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestBodyLimit(t *testing.T) {
	env := newTestEnv(t, withBodyLimit(64))
	big := `{"title":"` + strings.Repeat("x", 200) + `"}`
	w, resp := env.do(t, http.MethodPost, "/api/projects/import", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrorPayloadTooLarge, resp.Error.Code)
}

func TestImportProject(t *testing.T) {
	env := newTestEnv(t)
	snapshot := map[string]interface{}{
		"id":    "imported",
		"title": "Imported",
		"panels": []map[string]interface{}{
			{"id": 7, "prompt": "one", "is_loading": true, "duration": "2"},
		},
		"next_panel_id": 2,
	}
	w, resp := env.do(t, http.MethodPost, "/api/projects/import", snapshot)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	p := decode[*models.Project](t, resp.Data)
	assert.Equal(t, int64(8), p.NextPanelID)
	assert.False(t, p.Panels[0].IsLoading)

	w, _ = env.do(t, http.MethodPost, "/api/projects/import", snapshot)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAssetsAndResolve(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProject(t, "Pilot")
	base := "/api/projects/" + p.ID

	req := multipartRequest(t, base+"/assets", map[string]string{"category": "characters"},
		formFile{field: "files", name: "maya.png", mimeType: "image/png", data: pngBytes(t)})
	w, resp := env.serve(t, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	added := decode[[]*models.Asset](t, resp.Data)
	require.Len(t, added, 1)
	assert.Equal(t, models.CategoryCharacters, added[0].Category)

	w, resp = env.do(t, http.MethodPatch, base+"/assets/characters/"+added[0].ID, map[string]string{"name": "Maya"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Maya", decode[*models.Asset](t, resp.Data).Name)

	w, resp = env.do(t, http.MethodPost, base+"/resolve", map[string]string{"prompt": "[Maya] waves at [Ghost]"})
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[services.Resolution](t, resp.Data)
	assert.Len(t, res.AssetImages, 1)
	assert.Equal(t, []string{"Ghost"}, res.Unmatched)

	w, resp = env.do(t, http.MethodGet, base+"/assets", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[models.AssetLibrary](t, resp.Data).Characters, 1)

	w, _ = env.do(t, http.MethodDelete, base+"/assets/characters/"+added[0].ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp = env.serve(t, multipartRequest(t, base+"/assets", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, ErrorFileMissing, resp.Error.Code)
}

func TestStyleEndpoints(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProject(t, "Pilot")
	base := "/api/projects/" + p.ID + "/style"

	w, resp := env.do(t, http.MethodPut, base+"/preset", map[string]string{"preset": "Anime"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Anime", decode[models.StyleSession](t, resp.Data).Preset)

	w, resp = env.do(t, http.MethodPut, base+"/consistency", map[string]bool{"enabled": false})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[models.StyleSession](t, resp.Data).MaintainConsistency)

	w, _ = env.do(t, http.MethodPut, base+"/consistency", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = env.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[map[string]interface{}](t, resp.Data)
	assert.Contains(t, view, "effective_style")

	w, resp = env.do(t, http.MethodGet, base+"/session", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), "project_id")
}

func TestAudio(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProject(t, "Pilot")
	base := "/api/projects/" + p.ID

	w, _ := env.do(t, http.MethodGet, base+"/audio/current", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = env.do(t, http.MethodPost, base+"/audio", map[string]string{"text": "hello"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "audio/wav", w.Header().Get("Content-Type"))
	assert.Equal(t, "RIFFhello", w.Body.String())

	w, _ = env.do(t, http.MethodGet, base+"/audio/current", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "RIFFhello", w.Body.String())
}

func TestScriptRefine(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProject(t, "Pilot")

	w, resp := env.do(t, http.MethodPost, "/api/projects/"+p.ID+"/script/refine", map[string]string{"natural_language": "a chase"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, decode[map[string]string](t, resp.Data)["script"], "a chase")
}

func TestExportSaveListDownload(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProject(t, "Pilot Cut")
	base := "/api/projects/" + p.ID
	for i := 0; i < 2; i++ {
		w, _ := env.do(t, http.MethodPost, base+"/panels", map[string]string{"prompt": "shot"})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w, _ := env.do(t, http.MethodGet, base+"/export/xml", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "Pilot_Cut.xml")
	assert.Contains(t, w.Body.String(), "<xmeml")
	assert.Empty(t, w.Header().Get("X-Export-Path"))

	w, _ = env.do(t, http.MethodGet, base+"/export/pdf?save=true", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Export-Path"))

	w, resp := env.do(t, http.MethodGet, base+"/exports", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]models.ArtifactInfo](t, resp.Data)
	require.Len(t, list, 1)
	assert.Equal(t, "Pilot_Cut.pdf", list[0].Name)

	w, _ = env.do(t, http.MethodGet, base+"/exports/Pilot_Cut.pdf", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF"))

	w, _ = env.do(t, http.MethodGet, base+"/exports/missing.pdf", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAnimaticControls(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProject(t, "Pilot")
	base := "/api/projects/" + p.ID

	w, _ := env.do(t, http.MethodPost, base+"/animatic/start", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	for i := 0; i < 2; i++ {
		w, _ := env.do(t, http.MethodPost, base+"/panels", map[string]interface{}{"prompt": "shot", "duration": 30})
		require.Equal(t, http.StatusCreated, w.Code)
	}
	w, _ = env.do(t, http.MethodPost, base+"/animatic/start", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = env.do(t, http.MethodPost, base+"/panels/1/generate", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := env.do(t, http.MethodPost, base+"/animatic/start", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	frame := decode[models.AnimaticFrame](t, resp.Data)
	assert.Equal(t, 0, frame.Index)
	assert.Equal(t, 2, frame.Total)

	w, resp = env.do(t, http.MethodPost, base+"/animatic/next", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[models.AnimaticFrame](t, resp.Data).Index)

	w, resp = env.do(t, http.MethodPost, base+"/animatic/pause", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[models.AnimaticState](t, resp.Data).IsPlaying)

	w, resp = env.do(t, http.MethodPost, base+"/animatic/stop", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[models.AnimaticState](t, resp.Data).CurrentIndex)
}

func TestCatalogsAndHealth(t *testing.T) {
	env := newTestEnv(t)

	w, resp := env.do(t, http.MethodGet, "/api/styles/presets", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), models.DefaultStylePreset)

	w, resp = env.do(t, http.MethodGet, "/api/storyboard/templates", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(resp.Data), `"max_panel_count":24`)

	w, resp = env.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[map[string]interface{}](t, resp.Data)["status"])

	w, resp = env.do(t, http.MethodGet, "/api/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
}
