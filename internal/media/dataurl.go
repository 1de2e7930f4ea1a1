// internal/media/dataurl.go
package media

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// BuildDataURL encodes data as a base64 data: URL.
func BuildDataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// SplitDataURL returns the mime type and the base64 payload of a data: URL.
func SplitDataURL(url string) (mimeType, payload string, err error) {
	if !strings.HasPrefix(url, "data:") {
		return "", "", fmt.Errorf("not a data url")
	}
	header, payload, ok := strings.Cut(strings.TrimPrefix(url, "data:"), ",")
	if !ok {
		return "", "", fmt.Errorf("malformed data url")
	}
	if !strings.HasSuffix(header, ";base64") {
		return "", "", fmt.Errorf("data url is not base64 encoded")
	}
	mimeType = strings.TrimSuffix(header, ";base64")
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	return mimeType, payload, nil
}

// DecodeDataURL returns the raw bytes and mime type of a data: URL.
func DecodeDataURL(url string) ([]byte, string, error) {
	mimeType, payload, err := SplitDataURL(url)
	if err != nil {
		return nil, "", err
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode base64 payload: %w", err)
	}
	return data, mimeType, nil
}
