package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/StoryboardStudio/internal/config"
	"github.com/Corphon/StoryboardStudio/internal/gateway"
	"github.com/Corphon/StoryboardStudio/internal/models"
	"github.com/Corphon/StoryboardStudio/internal/services"
	"github.com/Corphon/StoryboardStudio/internal/storage"
	"github.com/Corphon/StoryboardStudio/internal/utils"
)

// fakeGateway answers every backend call with canned data.
type fakeGateway struct{}

func (fakeGateway) GenerateImage(ctx context.Context, req gateway.ImageRequest) (*gateway.ImageResponse, error) {
	return &gateway.ImageResponse{ImageURL: "data:image/png;base64,AAAA"}, nil
}

func (fakeGateway) GenerateSuggestions(ctx context.Context, prompt string) ([]string, error) {
	return []string{"Close-up on the hero"}, nil
}

func (fakeGateway) GenerateStyle(ctx context.Context, style string) (*gateway.StyleResponse, error) {
	return &gateway.StyleResponse{Base64: "U1RZTEU=", MimeType: "image/png"}, nil
}

func (fakeGateway) AnalyzeStyle(ctx context.Context, req gateway.AnalyzeStyleRequest) (*models.StyleAnalysis, error) {
	return nil, errors.New("analysis unavailable")
}

func (fakeGateway) CreateStyleSession(ctx context.Context, req gateway.StyleSessionRequest) (*gateway.StyleSessionResponse, error) {
	return &gateway.StyleSessionResponse{SessionID: req.ProjectID, Status: "ok"}, nil
}

func (fakeGateway) GetStyleSession(ctx context.Context, id string) (gateway.StyleSessionDocument, error) {
	return json.RawMessage(`{"project_id":"` + id + `"}`), nil
}

func (fakeGateway) DeleteStyleSession(ctx context.Context, id string) error { return nil }

func (fakeGateway) RefineScript(ctx context.Context, nl string) (string, error) {
	return "INT. ROOM - DAY\n" + nl, nil
}

func (fakeGateway) GenerateStoryboard(ctx context.Context, req gateway.StoryboardRequest) (*gateway.StoryboardResponse, error) {
	return nil, errors.New("storyboard unavailable")
}

func (fakeGateway) AnalyzeStory(ctx context.Context, panels []gateway.StoryPanel) (string, error) {
	return "### Verdict\nSolid", nil
}

func (fakeGateway) GenerateAudio(ctx context.Context, text string) (*gateway.Audio, error) {
	return &gateway.Audio{Data: []byte("RIFF" + text), MimeType: "audio/wav"}, nil
}

type testEnv struct {
	router *gin.Engine
	studio *services.StudioService
	hub    *Hub
	store  *storage.FileStorage
}

type envOption func(cfg *config.AppConfig)

func withBodyLimit(n int64) envOption {
	return func(cfg *config.AppConfig) { cfg.MaxRequestBytes = n }
}

func withRateLimit(perMinute int) envOption {
	return func(cfg *config.AppConfig) { cfg.APIRateLimit = perMinute }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.AppConfig{
		MaxRequestBytes: 8 << 20,
		APIRateLimit:    10000,
		CORSOrigins:     []string{"*"},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	logger := utils.NewNopLogger()
	store, err := storage.NewFileStorage(t.TempDir(), logger)
	require.NoError(t, err)

	hub := NewHub(logger)
	go hub.Run()
	t.Cleanup(hub.Stop)

	studio := services.NewStudioService(services.StudioOptions{
		Gateway:   fakeGateway{},
		Artifacts: store,
		Notifier:  hub,
		Logger:    logger,
		Features: func() config.Features {
			return config.Features{AssetCategories: true, Cinematography: true, ScriptRefinement: true}
		},
	})
	t.Cleanup(studio.Close)

	h := NewHandler(HandlerOptions{
		Studio:      studio,
		Storage:     store,
		Hub:         hub,
		Logger:      logger,
		CORSOrigins: cfg.CORSOrigins,
	})
	return &testEnv{router: NewRouter(h, cfg), studio: studio, hub: hub, store: store}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Message string          `json:"message"`
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.serve(t, req)
}

func (e *testEnv) serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func (e *testEnv) createProject(t *testing.T, title string) *models.Project {
	t.Helper()
	w, env := e.do(t, http.MethodPost, "/api/projects", map[string]string{"title": title})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[*models.Project](t, env.Data)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		img.Set(x, x, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type formFile struct {
	field, name, mimeType string
	data                  []byte
}

func multipartRequest(t *testing.T, path string, fields map[string]string, files ...formFile) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.name+`"`)
		header.Set("Content-Type", f.mimeType)
		part, err := mw.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}
