// internal/services/asset_store.go
package services

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/Corphon/StoryboardStudio/internal/errors"
	"github.com/Corphon/StoryboardStudio/internal/media"
	"github.com/Corphon/StoryboardStudio/internal/models"
)

var nameSeparators = regexp.MustCompile(`[\s_-]`)

// AssetNameFromFile derives a default asset name from an upload's file name:
// the part before the first dot with whitespace, '_' and '-' turned into '_'.
func AssetNameFromFile(fileName string) string {
	stem, _, _ := strings.Cut(fileName, ".")
	return nameSeparators.ReplaceAllString(stem, "_")
}

// AssetStore manages the reference images of one project.
// Like PanelSequence it relies on the caller's project lock.
type AssetStore struct {
	library *models.AssetLibrary
	now     func() time.Time
}

// NewAssetStore wraps the library of p.
func NewAssetStore(p *models.Project) *AssetStore {
	return &AssetStore{library: &p.Assets, now: time.Now}
}

func (s *AssetStore) collection(c models.AssetCategory) (*[]*models.Asset, error) {
	col := s.library.Collection(c)
	if col == nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown asset category %q", c), nil)
	}
	return col, nil
}

// Add stores a prepared image under category and returns the new asset.
func (s *AssetStore) Add(c models.AssetCategory, img media.PreparedImage) (*models.Asset, error) {
	col, err := s.collection(c)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(img.Name)
	if name == "" {
		name = AssetNameFromFile(img.FileName)
	}

	asset := &models.Asset{
		ID:          uuid.NewString(),
		Category:    c,
		Name:        name,
		Description: c.DefaultDescription(),
		FileName:    img.FileName,
		Base64:      img.Base64,
		MimeType:    img.MimeType,
		CreatedAt:   s.now(),
	}
	*col = append(*col, asset)
	return asset, nil
}

// Get returns an asset by category and id.
func (s *AssetStore) Get(c models.AssetCategory, id string) (*models.Asset, int, error) {
	col, err := s.collection(c)
	if err != nil {
		return nil, -1, err
	}
	for i, a := range *col {
		if a.ID == id {
			return a, i, nil
		}
	}
	return nil, -1, apperrors.NewNotFoundError(fmt.Sprintf("asset %s not found in %s", id, c), nil)
}

// Rename changes an asset name. Names need not be unique.
func (s *AssetStore) Rename(c models.AssetCategory, id, name string) (*models.Asset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("asset name cannot be empty", nil)
	}
	asset, _, err := s.Get(c, id)
	if err != nil {
		return nil, err
	}
	asset.Name = name
	return asset, nil
}

// SetDescription changes the description used by heuristic matching.
func (s *AssetStore) SetDescription(c models.AssetCategory, id, description string) (*models.Asset, error) {
	asset, _, err := s.Get(c, id)
	if err != nil {
		return nil, err
	}
	asset.Description = strings.TrimSpace(description)
	return asset, nil
}

// Delete removes an asset.
func (s *AssetStore) Delete(c models.AssetCategory, id string) error {
	_, i, err := s.Get(c, id)
	if err != nil {
		return err
	}
	col, _ := s.collection(c)
	*col = append((*col)[:i:i], (*col)[i+1:]...)
	return nil
}

// Find looks a name up exactly (case-sensitive) in the fixed search order
// legacy, characters, scenes, props, and returns the first match with its category.
func (s *AssetStore) Find(name string) (*models.Asset, models.AssetCategory) {
	for _, c := range models.SearchOrder {
		for _, a := range *s.library.Collection(c) {
			if a.Name == name {
				return a, c
			}
		}
	}
	return nil, ""
}

// List returns the assets of one category.
func (s *AssetStore) List(c models.AssetCategory) ([]*models.Asset, error) {
	col, err := s.collection(c)
	if err != nil {
		return nil, err
	}
	return *col, nil
}
