package api

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/StoryboardStudio/internal/config"
)

func TestRateLimiter(t *testing.T) {
	env := newTestEnv(t, withRateLimit(2))

	for i := 0; i < 2; i++ {
		w, _ := env.do(t, http.MethodGet, "/api/health", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	w, resp := env.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrorRateLimited, resp.Error.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimiter_PerKey(t *testing.T) {
	rl := NewRateLimiter(1)
	ok, _ := rl.Allow("a")
	assert.True(t, ok)
	ok, _ = rl.Allow("a")
	assert.False(t, ok)
	ok, _ = rl.Allow("b")
	assert.True(t, ok)
}

func TestBodyLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(BodyLimit(4))
	h := &Handler{Response: NewResponseHelper()}
	r.POST("/", func(c *gin.Context) {
		var v struct {
			A string `json:"a"`
		}
		if !h.bindJSON(c, &v, false) {
			return
		}
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":"long"}`)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/projects", nil)
	req.Header.Set("Origin", "http://studio.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w, _ := env.serve(t, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSConfig(t *testing.T) {
	open := corsConfig([]string{"*"})
	assert.True(t, open.AllowAllOrigins)
	assert.False(t, open.AllowCredentials)
	require.NoError(t, open.Validate())

	strict := corsConfig([]string{"http://studio.example"})
	assert.False(t, strict.AllowAllOrigins)
	assert.True(t, strict.AllowCredentials)
	assert.Equal(t, []string{"http://studio.example"}, strict.AllowOrigins)
	require.NoError(t, strict.Validate())
}

func TestSanitizeErrorMessage(t *testing.T) {
	assert.Equal(t, "An internal error occurred", sanitizeErrorMessage("bad API_KEY value"))
	assert.Equal(t, "An internal error occurred", sanitizeErrorMessage("Bearer abc rejected"))
	assert.Equal(t, "panel 3 not found", sanitizeErrorMessage("panel 3 not found"))
}

func TestSettings(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("LOG_DIR", filepath.Join(dir, "logs"))
	t.Setenv("GATEWAY_API_KEY", "")
	require.NoError(t, config.InitConfig(filepath.Join(dir, "data")))

	env := newTestEnv(t)

	w, resp := env.do(t, http.MethodPut, "/api/settings/gateway", map[string]string{"base_url": "ftp://gw"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, ErrorConfigInvalid, resp.Error.Code)

	w, resp = env.do(t, http.MethodPut, "/api/settings/gateway", map[string]interface{}{
		"base_url":        "https://gw.example/api",
		"api_key":         "k-123",
		"timeout_seconds": 30,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view := decode[SettingsResponse](t, resp.Data)
	assert.Equal(t, "https://gw.example/api", view.Gateway.BaseURL)
	assert.True(t, view.Gateway.HasAPIKey)
	assert.Equal(t, 30.0, view.Gateway.TimeoutSeconds)
	assert.NotContains(t, w.Body.String(), "k-123")

	w, resp = env.do(t, http.MethodPut, "/api/settings/features", config.Features{Cinematography: true})
	require.Equal(t, http.StatusOK, w.Code)
	view = decode[SettingsResponse](t, resp.Data)
	assert.False(t, view.Features.AssetCategories)
	assert.True(t, view.Features.Cinematography)

	w, resp = env.do(t, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://gw.example/api", decode[SettingsResponse](t, resp.Data).Gateway.BaseURL)
}
