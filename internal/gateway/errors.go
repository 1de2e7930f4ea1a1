// internal/gateway/errors.go
package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	apperrors "github.com/Corphon/StoryboardStudio/internal/errors"
)

const (
	tooLargeStatusMessage = "Request too large. Try reducing image sizes or removing some assets."
	tooLargeBodyMessage   = "Request too large. Try compressing images or removing some assets."
)

// TooLargeError reports a request body over the local cap with its size in megabytes.
func TooLargeError(size int) error {
	mb := float64(size) / 1024 / 1024
	return apperrors.NewPayloadTooLargeError(
		fmt.Sprintf("Request too large (%.1fMB). Please reduce image sizes or number of assets.", mb))
}

// NormalizeError turns a non-success response into one readable message.
// Preference: 413 hints, then detail, then message, then the raw body, then the status line.
func NormalizeError(status int, body []byte) error {
	return apperrors.NewUpstreamError(status, normalizeMessage(status, body))
}

func normalizeMessage(status int, body []byte) string {
	text := strings.TrimSpace(string(body))

	if status == http.StatusRequestEntityTooLarge {
		return tooLargeStatusMessage
	}
	if strings.Contains(text, "413 Request Entity Too Large") {
		return tooLargeBodyMessage
	}

	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message json.RawMessage `json:"message"`
	}
	if text != "" && json.Unmarshal(body, &payload) == nil {
		if msg := rawText(payload.Detail); msg != "" {
			return msg
		}
		if msg := rawText(payload.Message); msg != "" {
			return msg
		}
	}

	if text != "" {
		return text
	}
	return fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status))
}

// rawText renders a JSON field as text: strings unquoted, anything else compact.
func rawText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return strings.TrimSpace(s)
	}
	return string(raw)
}
