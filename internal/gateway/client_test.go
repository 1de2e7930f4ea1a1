package gateway_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Corphon/StoryboardStudio/internal/errors"
	"github.com/Corphon/StoryboardStudio/internal/gateway"
	"github.com/Corphon/StoryboardStudio/internal/models"
	"github.com/Corphon/StoryboardStudio/internal/utils"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*gateway.HTTPClient, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client := gateway.NewHTTPClient(gateway.Options{
		BaseURL: srv.URL + "/api",
		Logger:  utils.NewNopLogger(),
		Metrics: utils.NewStudioMetrics(utils.NewMetricsCollector(), utils.NewNopLogger()),
	})
	return client, &calls
}

func TestGenerateImage_SendsContractFields(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate-image", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "A hero", body["prompt"])
		assert.Equal(t, "Anime", body["style"])
		assert.Equal(t, true, body["refPrev"])
		assert.Equal(t, "project_1_abc", body["projectStyleId"])
		assert.Equal(t, true, body["maintainConsistency"])
		assert.Nil(t, body["previousImageUrl"])
		assets := body["assetImages"].([]interface{})
		require.Len(t, assets, 1)
		assert.Equal(t, "characters", assets[0].(map[string]interface{})["type"])

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"imageUrl":"data:image/jpeg;base64,AAAA"}`)
	})

	resp, err := client.GenerateImage(context.Background(), gateway.ImageRequest{
		Prompt:              "A hero",
		Style:               "Anime",
		RefPrev:             true,
		ProjectStyleID:      "project_1_abc",
		MaintainConsistency: true,
		AssetImages:         []models.AssetImage{{Base64: "x", MimeType: "image/png", Type: "characters", Name: "Hero"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "data:image/jpeg;base64,AAAA", resp.ImageURL)
}

func TestRequestOverCapFailsBeforeNetwork(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("transport must not be used")
	})

	huge := strings.Repeat("a", gateway.DefaultMaxRequestBytes+1)
	_, err := client.GenerateImage(context.Background(), gateway.ImageRequest{Prompt: huge})

	require.Error(t, err)
	assert.True(t, apperrors.IsPayloadTooLargeError(err))
	assert.Contains(t, apperrors.Message(err), "Request too large (45.0MB)")
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestErrorNormalization(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"detail field", http.StatusInternalServerError, `{"detail":"Image generation failed: quota"}`, "Image generation failed: quota"},
		{"message field", http.StatusBadRequest, `{"message":"bad prompt"}`, "bad prompt"},
		{"detail wins over message", http.StatusBadRequest, `{"detail":"d","message":"m"}`, "d"},
		{"raw body", http.StatusBadGateway, `upstream exploded`, "upstream exploded"},
		{"status line", http.StatusServiceUnavailable, ``, "HTTP 503: Service Unavailable"},
		{"413 status", http.StatusRequestEntityTooLarge, `anything`, "Request too large. Try reducing image sizes or removing some assets."},
		{"413 in body", http.StatusBadGateway, `<html>413 Request Entity Too Large</html>`, "Request too large. Try compressing images or removing some assets."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			_, err := client.RefineScript(context.Background(), "a story")
			require.Error(t, err)
			assert.True(t, apperrors.IsUpstreamError(err))
			assert.Equal(t, tt.want, apperrors.Message(err))
		})
	}
}

func TestGenerateAudio_ReturnsBinary(t *testing.T) {
	wav := []byte("RIFF....WAVEfmt ")
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate-audio", r.URL.Path)
		w.Header().Set("Content-Type", "audio/wav")
		w.Write(wav)
	})

	audio, err := client.GenerateAudio(context.Background(), "Hello")
	require.NoError(t, err)
	assert.Equal(t, wav, audio.Data)
	assert.Equal(t, "audio/wav", audio.MimeType)
}

func TestStyleSessionLifecycle(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/create-style-session":
			var req gateway.StyleSessionRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "Anime", req.BaseStyle)
			io.WriteString(w, `{"sessionId":"`+req.ProjectID+`","status":"created"}`)
		case r.Method == http.MethodGet && r.URL.Path == "/api/style-session/p1":
			io.WriteString(w, `{"base_style":"Anime","generated_images":[]}`)
		case r.Method == http.MethodDelete && r.URL.Path == "/api/style-session/p1":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	ctx := context.Background()
	resp, err := client.CreateStyleSession(ctx, gateway.StyleSessionRequest{ProjectID: "p1", BaseStyle: "Anime"})
	require.NoError(t, err)
	assert.Equal(t, "p1", resp.SessionID)

	doc, err := client.GetStyleSession(ctx, "p1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"base_style":"Anime","generated_images":[]}`, string(doc))

	require.NoError(t, client.DeleteStyleSession(ctx, "p1"))
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
}

func TestGenerateStoryboard_DecodesPanels(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "social", req["templateType"])
		assert.Equal(t, float64(8), req["panelCount"])
		io.WriteString(w, `{"panels":[{"prompt":"Open on a city","duration":"4"},{"prompt":"Close-up","motion":"pan left"}]}`)
	})

	tmpl := "social"
	resp, err := client.GenerateStoryboard(context.Background(), gateway.StoryboardRequest{
		Script: "script", TemplateType: &tmpl, PanelCount: 8,
	})
	require.NoError(t, err)
	require.Len(t, resp.Panels, 2)
	assert.Equal(t, "Open on a city", *resp.Panels[0].Prompt)
	assert.Equal(t, 4.0, resp.Panels[0].Duration.Value())
	assert.Equal(t, "pan left", *resp.Panels[1].Motion)
}

func TestCancelledContext(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"suggestions":["a"]}`)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.GenerateSuggestions(ctx, "x")
	require.Error(t, err)
}
