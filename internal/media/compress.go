// internal/media/compress.go
package media

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"net/http"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/Corphon/StoryboardStudio/internal/utils"
)

// Recompression limits for uploaded images.
const (
	CompressThreshold = 2 * 1024 * 1024
	MaxWidth          = 1920
	MaxHeight         = 1080
	JPEGQuality       = 80
)

// Compressor shrinks oversized uploads before they are stored or sent.
type Compressor struct {
	Threshold int
	MaxWidth  int
	MaxHeight int
	Quality   int
	logger    *utils.Logger
}

// NewCompressor returns a compressor with the standard limits.
func NewCompressor(logger *utils.Logger) *Compressor {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &Compressor{
		Threshold: CompressThreshold,
		MaxWidth:  MaxWidth,
		MaxHeight: MaxHeight,
		Quality:   JPEGQuality,
		logger:    logger,
	}
}

// FitWithin scales w×h down to fit maxW×maxH keeping the aspect ratio. It never upscales.
func FitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}
	scale := float64(maxW) / float64(w)
	if s := float64(maxH) / float64(h); s < scale {
		scale = s
	}
	nw := int(float64(w)*scale + 0.5)
	nh := int(float64(h)*scale + 0.5)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return nw, nh
}

// DetectMimeType falls back to content sniffing when the declared type is empty.
func DetectMimeType(declared string, data []byte) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	return http.DetectContentType(data)
}

// Compress returns data unchanged when it is at or under the threshold. Larger images are
// resized to fit the limits and re-encoded as JPEG. Any failure falls back to the original.
func (c *Compressor) Compress(data []byte, mimeType string) ([]byte, string) {
	if len(data) <= c.Threshold {
		return data, mimeType
	}

	out, err := c.recompress(data)
	if err != nil {
		c.logger.Warn("image compression failed, using original", map[string]interface{}{
			"size":      len(data),
			"mime_type": mimeType,
			"error":     err,
		})
		return data, mimeType
	}

	c.logger.Debug("image compressed", map[string]interface{}{
		"before": len(data),
		"after":  len(out),
	})
	return out, "image/jpeg"
}

func (c *Compressor) recompress(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	b := src.Bounds()
	w, h := FitWithin(b.Dx(), b.Dy(), c.MaxWidth, c.MaxHeight)

	// JPEG has no alpha; flatten onto white first.
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: c.Quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
