// internal/services/reference_resolver.go
package services

import (
	"regexp"
	"strings"

	"github.com/Corphon/StoryboardStudio/internal/models"
	"github.com/Corphon/StoryboardStudio/internal/utils"
)

var bracketToken = regexp.MustCompile(`\[(.*?)\]`)

const capitalizedName = `\b([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`

var characterPatterns = []*regexp.Regexp{
	regexp.MustCompile(capitalizedName + `\s+(?i:says?|walks?|runs?|stands?|sits?|looks?|smiles?|frowns?)`),
	regexp.MustCompile(capitalizedName + `\s+(?i:is)\s+`),
	regexp.MustCompile(capitalizedName + `\s+(?i:has|wears?)\s+`),
}

var scenePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:at|in|inside|outside|near)\s+(?:the\s+)?([a-z\s]+?)(?:\s*[,.;]|\s+(?:where|with|and))`),
	regexp.MustCompile(`(?i)\b(?:INT\.|EXT\.)\s+([A-Z\s]+?)(?:\s*-|\s*$)`),
	regexp.MustCompile(`(?i)\blocation:\s*([^,.\n]+)`),
}

var notCharacters = map[string]bool{
	"The": true, "A": true, "An": true, "This": true, "That": true, "There": true, "Here": true,
}

// Resolution is a prompt ready for the wire plus the reference images it pulled in.
type Resolution struct {
	EnhancedPrompt string              `json:"enhanced_prompt"`
	AssetImages    []models.AssetImage `json:"asset_images"`
	Characters     []string            `json:"characters"`
	Scenes         []string            `json:"scenes"`
	Unmatched      []string            `json:"unmatched"`
}

// ReferenceResolver expands [name] tokens and, when categories are enabled,
// guesses characters and scenes from prose.
type ReferenceResolver struct {
	logger *utils.Logger
}

// NewReferenceResolver creates a resolver.
func NewReferenceResolver(logger *utils.Logger) *ReferenceResolver {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &ReferenceResolver{logger: logger}
}

type resolution struct {
	out  Resolution
	seen map[string]bool
	mark bool
}

func (r *resolution) add(a *models.Asset, tag string) {
	if r.mark {
		a.IsConsistent = true
	}
	if r.seen[a.ID] {
		return
	}
	r.seen[a.ID] = true
	r.out.AssetImages = append(r.out.AssetImages, models.AssetImage{
		Base64:   a.Base64,
		MimeType: a.MimeType,
		Type:     tag,
		Name:     a.Name,
	})
}

// Resolve builds the outgoing prompt. With mark set, every matched asset is
// flagged as used for consistency. The library is read under the caller's lock.
func (rr *ReferenceResolver) Resolve(prompt string, library *models.AssetLibrary, categories, mark bool) Resolution {
	r := &resolution{
		out: Resolution{
			EnhancedPrompt: prompt,
			AssetImages:    []models.AssetImage{},
			Characters:     []string{},
			Scenes:         []string{},
			Unmatched:      []string{},
		},
		seen: make(map[string]bool),
		mark: mark,
	}

	store := &AssetStore{library: library}
	for _, m := range bracketToken.FindAllStringSubmatch(prompt, -1) {
		token := m[1]
		asset, category := store.Find(token)
		if asset == nil {
			r.out.Unmatched = append(r.out.Unmatched, token)
			rr.logger.Warn("Asset reference not found", map[string]interface{}{
				"token":     token,
				"available": library.Names(),
			})
			continue
		}
		r.add(asset, string(category))
	}

	if !categories {
		return r.out
	}

	characters := matchAssets(DetectCharacters(prompt), library.Characters)
	for _, a := range characters {
		r.add(a, string(models.CategoryCharacters))
		r.out.Characters = append(r.out.Characters, a.Name)
	}
	scenes := matchAssets(DetectScenes(prompt), library.Scenes)
	for _, a := range scenes {
		r.add(a, string(models.CategoryScenes))
		r.out.Scenes = append(r.out.Scenes, a.Name)
	}

	if len(r.out.Characters) > 0 {
		r.out.EnhancedPrompt += " Include the characters: " + strings.Join(r.out.Characters, ", ") +
			". Maintain their appearance as shown in the reference images."
	}
	if len(r.out.Scenes) > 0 {
		r.out.EnhancedPrompt += " Set in the environment/scene: " + strings.Join(r.out.Scenes, ", ") +
			". Use the scene reference for visual consistency."
	}
	return r.out
}

// DetectCharacters guesses character names such as "Maya walks" or "Old Tom has".
func DetectCharacters(text string) []string {
	set := newOrderedSet()
	for _, p := range characterPatterns {
		for _, m := range p.FindAllStringSubmatch(text, -1) {
			name := strings.TrimSpace(m[1])
			if len(name) > 1 && !notCharacters[name] {
				set.add(name)
			}
		}
	}
	return set.items
}

// DetectScenes guesses locations from "in the harbor,", "INT. KITCHEN -" or "location: ...".
// Results are lowercase.
func DetectScenes(text string) []string {
	set := newOrderedSet()
	for _, p := range scenePatterns {
		for _, m := range p.FindAllStringSubmatch(text, -1) {
			scene := strings.ToLower(strings.TrimSpace(m[1]))
			if len(scene) > 2 {
				set.add(scene)
			}
		}
	}
	return set.items
}

// matchAssets keeps, in library order, the assets whose name or description
// relates to any guess.
func matchAssets(guesses []string, assets []*models.Asset) []*models.Asset {
	if len(guesses) == 0 {
		return nil
	}
	var out []*models.Asset
	for _, a := range assets {
		name := strings.ToLower(a.Name)
		desc := strings.ToLower(a.Description)
		for _, g := range guesses {
			g = strings.ToLower(g)
			if strings.Contains(name, g) || (name != "" && strings.Contains(g, name)) || strings.Contains(desc, g) {
				out = append(out, a)
				break
			}
		}
	}
	return out
}

type orderedSet struct {
	seen  map[string]bool
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]bool), items: []string{}}
}

// add keeps the first spelling of a case-insensitive duplicate.
func (s *orderedSet) add(value string) {
	key := strings.ToLower(value)
	if s.seen[key] {
		return
	}
	s.seen[key] = true
	s.items = append(s.items, value)
}
