// internal/media/uploads.go
package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Corphon/StoryboardStudio/internal/models"
)

// PreparedImage is an upload after compression, ready to be stored as base64.
type PreparedImage struct {
	FileName string
	Name     string
	Base64   string
	MimeType string
	Size     int
}

// Prepare compresses one upload and encodes it.
func (c *Compressor) Prepare(u models.AssetUpload) (PreparedImage, error) {
	if len(u.Data) == 0 {
		return PreparedImage{}, fmt.Errorf("file %q is empty", u.FileName)
	}
	mimeType := DetectMimeType(u.MimeType, u.Data)
	if !strings.HasPrefix(mimeType, "image/") {
		return PreparedImage{}, fmt.Errorf("file %q is not an image (%s)", u.FileName, mimeType)
	}

	data, mimeType := c.Compress(u.Data, mimeType)
	return PreparedImage{
		FileName: u.FileName,
		Name:     u.Name,
		Base64:   base64.StdEncoding.EncodeToString(data),
		MimeType: mimeType,
		Size:     len(data),
	}, nil
}

// PrepareAll prepares uploads concurrently with at most limit in flight.
// Results keep the input order; the first failure cancels the rest.
func (c *Compressor) PrepareAll(ctx context.Context, uploads []models.AssetUpload, limit int) ([]PreparedImage, error) {
	out := make([]PreparedImage, len(uploads))
	if limit <= 0 {
		limit = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range uploads {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := c.Prepare(uploads[i])
			if err != nil {
				return err
			}
			out[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
