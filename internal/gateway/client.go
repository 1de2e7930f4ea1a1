// internal/gateway/client.go
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/Corphon/StoryboardStudio/internal/errors"
	"github.com/Corphon/StoryboardStudio/internal/models"
	"github.com/Corphon/StoryboardStudio/internal/utils"
)

// DefaultMaxRequestBytes is the serialized request cap checked before any network call.
const DefaultMaxRequestBytes = 45 * 1024 * 1024

// Client is the boundary to the external generation backend.
type Client interface {
	GenerateImage(ctx context.Context, req ImageRequest) (*ImageResponse, error)
	GenerateSuggestions(ctx context.Context, prompt string) ([]string, error)
	GenerateStyle(ctx context.Context, style string) (*StyleResponse, error)
	AnalyzeStyle(ctx context.Context, req AnalyzeStyleRequest) (*models.StyleAnalysis, error)
	CreateStyleSession(ctx context.Context, req StyleSessionRequest) (*StyleSessionResponse, error)
	GetStyleSession(ctx context.Context, projectStyleID string) (StyleSessionDocument, error)
	DeleteStyleSession(ctx context.Context, projectStyleID string) error
	RefineScript(ctx context.Context, naturalLanguage string) (string, error)
	GenerateStoryboard(ctx context.Context, req StoryboardRequest) (*StoryboardResponse, error)
	AnalyzeStory(ctx context.Context, panels []StoryPanel) (string, error)
	GenerateAudio(ctx context.Context, text string) (*Audio, error)
}

// Options configures an HTTPClient.
type Options struct {
	BaseURL         string
	APIKey          string
	Timeout         time.Duration
	RatePerSec      float64
	Burst           int
	MaxRequestBytes int64
	Metrics         *utils.StudioMetrics
	Logger          *utils.Logger
	// Transport overrides the HTTP transport, mostly for tests.
	Transport http.RoundTripper
}

// HTTPClient talks JSON to the generation backend.
type HTTPClient struct {
	mu         sync.RWMutex
	baseURL    string
	apiKey     string
	maxBytes   int64
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    *utils.StudioMetrics
	logger     *utils.Logger
}

// NewHTTPClient builds a client from opts, filling defaults.
func NewHTTPClient(opts Options) *HTTPClient {
	if opts.Logger == nil {
		opts.Logger = utils.GetLogger()
	}
	c := &HTTPClient{
		httpClient: &http.Client{Transport: opts.Transport},
		metrics:    opts.Metrics,
		logger:     opts.Logger,
	}
	c.Reconfigure(opts)
	return c
}

// Reconfigure swaps endpoint, credentials and limits at runtime.
func (c *HTTPClient) Reconfigure(opts Options) {
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	if opts.MaxRequestBytes <= 0 {
		opts.MaxRequestBytes = DefaultMaxRequestBytes
	}
	limit := rate.Inf
	if opts.RatePerSec > 0 {
		limit = rate.Limit(opts.RatePerSec)
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = strings.TrimRight(opts.BaseURL, "/")
	c.apiKey = opts.APIKey
	c.maxBytes = opts.MaxRequestBytes
	c.httpClient.Timeout = opts.Timeout
	c.limiter = rate.NewLimiter(limit, opts.Burst)
}

// BaseURL returns the configured backend root.
func (c *HTTPClient) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

func (c *HTTPClient) settings() (string, string, int64, *rate.Limiter) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL, c.apiKey, c.maxBytes, c.limiter
}

// do performs one exchange and returns the success body and its content type.
// payload may be nil for body-less methods.
func (c *HTTPClient) do(ctx context.Context, method, endpoint string, payload interface{}) ([]byte, string, error) {
	baseURL, apiKey, maxBytes, limiter := c.settings()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, "", apperrors.NewProcessingError("failed to encode request", err)
		}
		if int64(len(data)) > maxBytes {
			return nil, "", TooLargeError(len(data))
		}
		body = bytes.NewReader(data)
	}

	if err := limiter.Wait(ctx); err != nil {
		return nil, "", apperrors.NewTimeoutError("request cancelled while waiting for the backend", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, baseURL+endpoint, body)
	if err != nil {
		return nil, "", apperrors.NewProcessingError("failed to create request", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	start := time.Now()
	data, contentType, err := c.exchange(req)
	if c.metrics != nil {
		c.metrics.RecordGatewayCall(metricName(endpoint), time.Since(start), err)
	}
	return data, contentType, err
}

// metricName keeps only the first path segment: "/style-session/x" -> "style-session".
func metricName(endpoint string) string {
	return strings.SplitN(strings.TrimPrefix(endpoint, "/"), "/", 2)[0]
}

func (c *HTTPClient) exchange(req *http.Request) ([]byte, string, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, "", apperrors.NewTimeoutError("backend request cancelled", ctxErr)
		}
		return nil, "", apperrors.NewUpstreamError(0, fmt.Sprintf("failed to reach generation backend: %v", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", apperrors.NewUpstreamError(resp.StatusCode, "failed to read backend response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := NormalizeError(resp.StatusCode, data)
		c.logger.Warn("generation backend returned an error", map[string]interface{}{
			"url":    req.URL.Path,
			"status": resp.StatusCode,
			"error":  err,
		})
		return nil, "", err
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func (c *HTTPClient) postJSON(ctx context.Context, endpoint string, payload, out interface{}) error {
	data, _, err := c.do(ctx, http.MethodPost, endpoint, payload)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperrors.NewUpstreamError(http.StatusOK, fmt.Sprintf("invalid response from %s: %v", endpoint, err))
	}
	return nil
}

func (c *HTTPClient) GenerateImage(ctx context.Context, req ImageRequest) (*ImageResponse, error) {
	if req.Cinematography == nil {
		req.Cinematography = map[string]string{}
	}
	if req.AssetImages == nil {
		req.AssetImages = []models.AssetImage{}
	}
	var out ImageResponse
	if err := c.postJSON(ctx, EndpointGenerateImage, req, &out); err != nil {
		return nil, err
	}
	if out.ImageURL == "" {
		return nil, apperrors.NewUpstreamError(http.StatusOK, "backend returned no image")
	}
	return &out, nil
}

func (c *HTTPClient) GenerateSuggestions(ctx context.Context, prompt string) ([]string, error) {
	var out SuggestionsResponse
	if err := c.postJSON(ctx, EndpointGenerateSuggestions, SuggestionsRequest{Prompt: prompt}, &out); err != nil {
		return nil, err
	}
	if out.Suggestions == nil {
		out.Suggestions = []string{}
	}
	return out.Suggestions, nil
}

func (c *HTTPClient) GenerateStyle(ctx context.Context, style string) (*StyleResponse, error) {
	var out StyleResponse
	if err := c.postJSON(ctx, EndpointGenerateStyle, StyleRequest{Style: style}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) AnalyzeStyle(ctx context.Context, req AnalyzeStyleRequest) (*models.StyleAnalysis, error) {
	var out models.StyleAnalysis
	if err := c.postJSON(ctx, EndpointAnalyzeStyle, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) CreateStyleSession(ctx context.Context, req StyleSessionRequest) (*StyleSessionResponse, error) {
	var out StyleSessionResponse
	if err := c.postJSON(ctx, EndpointCreateStyleSession, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) GetStyleSession(ctx context.Context, projectStyleID string) (StyleSessionDocument, error) {
	data, _, err := c.do(ctx, http.MethodGet, EndpointStyleSession+url.PathEscape(projectStyleID), nil)
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, apperrors.NewUpstreamError(http.StatusOK, "invalid style session document")
	}
	return StyleSessionDocument(data), nil
}

func (c *HTTPClient) DeleteStyleSession(ctx context.Context, projectStyleID string) error {
	_, _, err := c.do(ctx, http.MethodDelete, EndpointStyleSession+url.PathEscape(projectStyleID), nil)
	return err
}

func (c *HTTPClient) RefineScript(ctx context.Context, naturalLanguage string) (string, error) {
	var out RefineScriptResponse
	if err := c.postJSON(ctx, EndpointRefineScript, RefineScriptRequest{NaturalLanguage: naturalLanguage}, &out); err != nil {
		return "", err
	}
	return out.RefinedScript, nil
}

func (c *HTTPClient) GenerateStoryboard(ctx context.Context, req StoryboardRequest) (*StoryboardResponse, error) {
	var out StoryboardResponse
	if err := c.postJSON(ctx, EndpointGenerateStoryboard, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) AnalyzeStory(ctx context.Context, panels []StoryPanel) (string, error) {
	var out AnalyzeStoryResponse
	if err := c.postJSON(ctx, EndpointAnalyzeStory, AnalyzeStoryRequest{Panels: panels}, &out); err != nil {
		return "", err
	}
	return out.Analysis, nil
}

func (c *HTTPClient) GenerateAudio(ctx context.Context, text string) (*Audio, error) {
	data, contentType, err := c.do(ctx, http.MethodPost, EndpointGenerateAudio, AudioRequest{Text: text})
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, apperrors.NewUpstreamError(http.StatusOK, "backend returned no audio")
	}
	if contentType == "" || !strings.HasPrefix(contentType, "audio/") {
		contentType = "audio/wav"
	}
	return &Audio{Data: data, MimeType: contentType}, nil
}
