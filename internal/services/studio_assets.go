// internal/services/studio_assets.go
package services

import (
	"context"
	"strings"

	apperrors "github.com/Corphon/StoryboardStudio/internal/errors"
	"github.com/Corphon/StoryboardStudio/internal/models"
)

// UploadAssets compresses the files in parallel and stores them in request order.
// Without asset categories every upload lands in the legacy list.
func (s *StudioService) UploadAssets(ctx context.Context, projectID string, category models.AssetCategory, uploads []models.AssetUpload) ([]*models.Asset, error) {
	if len(uploads) == 0 {
		return nil, apperrors.NewValidationError("no files uploaded", nil)
	}
	if !s.features().AssetCategories || category == "" {
		category = models.CategoryLegacy
	}
	if _, err := models.ParseAssetCategory(string(category)); err != nil {
		return nil, apperrors.NewValidationError(err.Error(), nil)
	}
	if _, err := s.registry.Get(projectID); err != nil {
		return nil, err
	}

	prepared, err := s.compressor.PrepareAll(ctx, uploads, s.uploadConcurrency)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error(), err)
	}

	var added []*models.Asset
	_, err = s.mutate(projectID, func(p *models.Project) error {
		store := NewAssetStore(p)
		for _, img := range prepared {
			a, err := store.Add(category, img)
			if err != nil {
				return err
			}
			dup := *a
			added = append(added, &dup)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Assets uploaded", map[string]interface{}{
		"project_id": projectID,
		"category":   string(category),
		"count":      len(added),
	})
	return added, nil
}

func (s *StudioService) assetMutation(projectID string, fn func(store *AssetStore) (*models.Asset, error)) (*models.Asset, error) {
	var out *models.Asset
	_, err := s.mutate(projectID, func(p *models.Project) error {
		a, err := fn(NewAssetStore(p))
		if err != nil {
			return err
		}
		if a != nil {
			dup := *a
			out = &dup
		}
		return nil
	})
	return out, err
}

// RenameAsset changes an asset's name.
func (s *StudioService) RenameAsset(projectID string, category models.AssetCategory, assetID, name string) (*models.Asset, error) {
	return s.assetMutation(projectID, func(store *AssetStore) (*models.Asset, error) {
		return store.Rename(category, assetID, name)
	})
}

// DescribeAsset changes an asset's description.
func (s *StudioService) DescribeAsset(projectID string, category models.AssetCategory, assetID, description string) (*models.Asset, error) {
	return s.assetMutation(projectID, func(store *AssetStore) (*models.Asset, error) {
		return store.SetDescription(category, assetID, description)
	})
}

// DeleteAsset removes an asset.
func (s *StudioService) DeleteAsset(projectID string, category models.AssetCategory, assetID string) error {
	_, err := s.assetMutation(projectID, func(store *AssetStore) (*models.Asset, error) {
		return nil, store.Delete(category, assetID)
	})
	return err
}

// ListAssets returns a copy of the asset library.
func (s *StudioService) ListAssets(projectID string) (*models.AssetLibrary, error) {
	var lib models.AssetLibrary
	err := s.read(projectID, func(p *models.Project) error {
		lib = p.Assets.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &lib, nil
}

// ResolvePrompt previews what a prompt would send, without marking assets as used.
// An empty prompt previews the active panel.
func (s *StudioService) ResolvePrompt(projectID, prompt string) (*Resolution, error) {
	categories := s.features().AssetCategories
	var res Resolution
	err := s.read(projectID, func(p *models.Project) error {
		if strings.TrimSpace(prompt) == "" {
			if active := NewPanelSequence(p).Active(); active != nil {
				prompt = active.Prompt
			}
		}
		if strings.TrimSpace(prompt) == "" {
			return apperrors.NewValidationError("prompt cannot be empty", nil)
		}
		res = s.resolver.Resolve(prompt, &p.Assets, categories, false)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}
