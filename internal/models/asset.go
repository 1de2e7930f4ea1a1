// internal/models/asset.go
package models

import (
	"fmt"
	"time"
)

// AssetCategory names one asset collection.
type AssetCategory string

const (
	CategoryLegacy     AssetCategory = "legacy"
	CategoryCharacters AssetCategory = "characters"
	CategoryScenes     AssetCategory = "scenes"
	CategoryProps      AssetCategory = "props"
)

// SearchOrder is the fixed order used when resolving a name across collections.
var SearchOrder = []AssetCategory{CategoryLegacy, CategoryCharacters, CategoryScenes, CategoryProps}

// ParseAssetCategory validates a category name.
func ParseAssetCategory(s string) (AssetCategory, error) {
	for _, c := range SearchOrder {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown asset category %q", s)
}

// DefaultDescription is the description given to new uploads of a category.
func (c AssetCategory) DefaultDescription() string {
	switch c {
	case CategoryCharacters:
		return "Character appearance reference"
	case CategoryScenes:
		return "Scene/location reference"
	default:
		return ""
	}
}

// Asset is a named reference image usable in prompts as [name].
type Asset struct {
	ID           string        `json:"id"`
	Category     AssetCategory `json:"category"`
	Name         string        `json:"name"`
	Description  string        `json:"description,omitempty"`
	FileName     string        `json:"file_name,omitempty"`
	Base64       string        `json:"base64"`
	MimeType     string        `json:"mime_type"`
	IsConsistent bool          `json:"is_consistent"`
	CreatedAt    time.Time     `json:"created_at"`
}

// AssetLibrary holds the flat legacy list and the three categorized lists.
type AssetLibrary struct {
	Legacy     []*Asset `json:"legacy"`
	Characters []*Asset `json:"characters"`
	Scenes     []*Asset `json:"scenes"`
	Props      []*Asset `json:"props"`
}

// Collection returns a pointer to the slice backing category c.
func (l *AssetLibrary) Collection(c AssetCategory) *[]*Asset {
	switch c {
	case CategoryLegacy:
		return &l.Legacy
	case CategoryCharacters:
		return &l.Characters
	case CategoryScenes:
		return &l.Scenes
	case CategoryProps:
		return &l.Props
	default:
		return nil
	}
}

// Names lists asset names per category, mostly for diagnostics.
func (l *AssetLibrary) Names() map[AssetCategory][]string {
	out := make(map[AssetCategory][]string, len(SearchOrder))
	for _, c := range SearchOrder {
		names := []string{}
		for _, a := range *l.Collection(c) {
			names = append(names, a.Name)
		}
		out[c] = names
	}
	return out
}

// AssetImage is an asset reference as sent to the generation backend.
type AssetImage struct {
	Base64   string `json:"base64"`
	MimeType string `json:"mimeType"`
	Type     string `json:"type"`
	Name     string `json:"name"`
}

// AssetUpload is one file offered to the asset store.
type AssetUpload struct {
	FileName string
	Name     string
	Data     []byte
	MimeType string
}

// Clone copies the library and every asset in it.
func (l AssetLibrary) Clone() AssetLibrary {
	copyList := func(in []*Asset) []*Asset {
		out := make([]*Asset, len(in))
		for i, a := range in {
			dup := *a
			out[i] = &dup
		}
		return out
	}
	return AssetLibrary{
		Legacy:     copyList(l.Legacy),
		Characters: copyList(l.Characters),
		Scenes:     copyList(l.Scenes),
		Props:      copyList(l.Props),
	}
}
