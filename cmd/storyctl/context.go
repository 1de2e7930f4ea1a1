// cmd/storyctl/context.go
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Corphon/StoryboardStudio/internal/config"
	"github.com/Corphon/StoryboardStudio/internal/models"
	"github.com/Corphon/StoryboardStudio/internal/services"
	"github.com/Corphon/StoryboardStudio/internal/utils"
)

type commandContext struct {
	verbose *bool
}

func (c *commandContext) logger() *utils.Logger {
	if c.verbose != nil && *c.verbose {
		return utils.GetLogger()
	}
	return utils.NewNopLogger()
}

// openSnapshot loads a snapshot file into an offline studio with no backend.
// The caller must Close the studio.
func (c *commandContext) openSnapshot(path string) (*services.StudioService, *models.Project, error) {
	if path == "" {
		return nil, nil, fmt.Errorf("--snapshot is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read snapshot: %w", err)
	}
	var snapshot models.Project
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}

	studio := services.NewStudioService(services.StudioOptions{
		Logger: c.logger(),
		Features: func() config.Features {
			return config.Features{AssetCategories: true, Cinematography: true, ScriptRefinement: true}
		},
	})
	project, err := studio.ImportSnapshot(&snapshot)
	if err != nil {
		studio.Close()
		return nil, nil, err
	}
	return studio, project, nil
}
