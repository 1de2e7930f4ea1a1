package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/StoryboardStudio/internal/models"
	"github.com/Corphon/StoryboardStudio/internal/utils"
)

func asset(id string, c models.AssetCategory, name string) *models.Asset {
	return &models.Asset{ID: id, Category: c, Name: name, Description: c.DefaultDescription(), Base64: "b64-" + id, MimeType: "image/png"}
}

func TestDetectCharacters(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"Maya walks into the room", []string{"Maya"}},
		{"Captain Reyes says hello", []string{"Captain Reyes"}},
		{"Tom is tired and Tom has a hat", []string{"Tom"}},
		{"Lena WEARS a coat", []string{"Lena"}},
		{"There is a boat", []string{}},
		{"the dog runs away", []string{}},
		{"Maya walks, then Maya smiles.", []string{"Maya"}},
		{"Maya standing by the door", []string{"Maya"}},
		{"Sam looking at the sea", []string{"Sam"}},
		{"Old Tom walking home", []string{"Old Tom"}},
		{"Maya walkway", []string{"Maya"}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectCharacters(tt.text))
		})
	}
}

func TestDetectScenes(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"Maya stands in the harbor, looking at the boats.", []string{"harbor", "boats"}},
		{"A fight near the old mill where nobody goes", []string{"old mill"}},
		{"INT. KITCHEN - NIGHT", []string{"kitchen"}},
		{"location: Old Lighthouse, dusk", []string{"old lighthouse"}},
		{"sitting in a car.", []string{"a car"}},
		{"in it.", []string{}},
		{"nothing to see here", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectScenes(tt.text))
		})
	}
}

func TestResolve_BracketTokens(t *testing.T) {
	lib := &models.AssetLibrary{
		Legacy:     []*models.Asset{asset("l1", models.CategoryLegacy, "Hero")},
		Characters: []*models.Asset{asset("c1", models.CategoryCharacters, "Hero")},
		Props:      []*models.Asset{asset("p1", models.CategoryProps, "Sword")},
	}
	r := NewReferenceResolver(utils.NewNopLogger())

	res := r.Resolve("[Hero] raises the [Sword] at [Ghost]", lib, false, true)
	require.Len(t, res.AssetImages, 2)
	assert.Equal(t, models.AssetImage{Base64: "b64-l1", MimeType: "image/png", Type: "legacy", Name: "Hero"}, res.AssetImages[0])
	assert.Equal(t, "props", res.AssetImages[1].Type)
	assert.Equal(t, []string{"Ghost"}, res.Unmatched)
	assert.Equal(t, "[Hero] raises the [Sword] at [Ghost]", res.EnhancedPrompt)

	assert.True(t, lib.Legacy[0].IsConsistent)
	assert.True(t, lib.Props[0].IsConsistent)
	assert.False(t, lib.Characters[0].IsConsistent)
}

func TestResolve_HeuristicsAppendClauses(t *testing.T) {
	lib := &models.AssetLibrary{
		Characters: []*models.Asset{asset("c1", models.CategoryCharacters, "maya_ref")},
		Scenes:     []*models.Asset{asset("s1", models.CategoryScenes, "Harbor")},
	}
	r := NewReferenceResolver(utils.NewNopLogger())

	prompt := "Maya stands in the harbor, looking at the boats."
	res := r.Resolve(prompt, lib, true, true)

	assert.Equal(t, prompt+
		" Include the characters: maya_ref. Maintain their appearance as shown in the reference images."+
		" Set in the environment/scene: Harbor. Use the scene reference for visual consistency.",
		res.EnhancedPrompt)
	require.Len(t, res.AssetImages, 2)
	assert.Equal(t, "characters", res.AssetImages[0].Type)
	assert.Equal(t, "scenes", res.AssetImages[1].Type)
	assert.True(t, lib.Characters[0].IsConsistent)
}

func TestResolve_DeduplicatesByAssetID(t *testing.T) {
	lib := &models.AssetLibrary{
		Characters: []*models.Asset{asset("c1", models.CategoryCharacters, "Maya")},
	}
	r := NewReferenceResolver(utils.NewNopLogger())

	res := r.Resolve("[Maya] at dawn. Maya smiles", lib, true, false)
	require.Len(t, res.AssetImages, 1)
	assert.Equal(t, "characters", res.AssetImages[0].Type)
	assert.Equal(t, []string{"Maya"}, res.Characters)
	assert.False(t, lib.Characters[0].IsConsistent, "dry run leaves assets unmarked")
}

func TestResolve_CategoriesOffSkipsHeuristics(t *testing.T) {
	lib := &models.AssetLibrary{
		Characters: []*models.Asset{asset("c1", models.CategoryCharacters, "Maya")},
	}
	r := NewReferenceResolver(utils.NewNopLogger())

	res := r.Resolve("Maya smiles", lib, false, true)
	assert.Empty(t, res.AssetImages)
	assert.Equal(t, "Maya smiles", res.EnhancedPrompt)
}

func TestResolve_NoMatchLeavesPromptUnchanged(t *testing.T) {
	r := NewReferenceResolver(utils.NewNopLogger())
	res := r.Resolve("a quiet empty street", &models.AssetLibrary{}, true, true)
	assert.Equal(t, "a quiet empty street", res.EnhancedPrompt)
	assert.NotNil(t, res.AssetImages)
	assert.Empty(t, res.AssetImages)
}

// Any asset named in brackets resolves, regardless of category or flags.
func TestResolve_BracketAlwaysResolves(t *testing.T) {
	r := NewReferenceResolver(utils.NewNopLogger())
	for _, c := range models.SearchOrder {
		for _, categories := range []bool{true, false} {
			lib := &models.AssetLibrary{}
			col := lib.Collection(c)
			*col = append(*col, asset("x", c, "Hero"))

			res := r.Resolve("[Hero] waits", lib, categories, true)
			require.Len(t, res.AssetImages, 1, "category %s", c)
			assert.Equal(t, string(c), res.AssetImages[0].Type)
			assert.True(t, (*col)[0].IsConsistent)
		}
	}
}
