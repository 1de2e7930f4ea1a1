// internal/services/project_registry.go
package services

import (
	"fmt"
	"sort"
	"time"

	"github.com/patrickmn/go-cache"

	apperrors "github.com/Corphon/StoryboardStudio/internal/errors"
	"github.com/Corphon/StoryboardStudio/internal/models"
)

// ProjectRegistry keeps projects in memory. Projects idle for longer than the
// TTL are evicted; a zero TTL keeps them until deleted.
type ProjectRegistry struct {
	items *cache.Cache
}

// NewProjectRegistry creates a registry. onEvict runs for expired and deleted projects.
func NewProjectRegistry(ttl time.Duration, onEvict func(*models.Project)) *ProjectRegistry {
	expiration := ttl
	cleanup := ttl / 2
	if ttl <= 0 {
		expiration = cache.NoExpiration
		cleanup = 0
	} else if cleanup < time.Minute {
		cleanup = time.Minute
	}

	c := cache.New(expiration, cleanup)
	if onEvict != nil {
		c.OnEvicted(func(_ string, v interface{}) {
			if p, ok := v.(*models.Project); ok {
				onEvict(p)
			}
		})
	}
	return &ProjectRegistry{items: c}
}

// Add registers a project. An existing id is a conflict.
func (r *ProjectRegistry) Add(p *models.Project) error {
	if err := r.items.Add(p.ID, p, cache.DefaultExpiration); err != nil {
		return apperrors.NewConflictError(fmt.Sprintf("project %s already exists", p.ID), err)
	}
	return nil
}

// Get returns a project and pushes its expiry back. The refresh uses Replace
// so a concurrent Delete is never undone.
func (r *ProjectRegistry) Get(id string) (*models.Project, error) {
	v, ok := r.items.Get(id)
	if !ok {
		return nil, notFoundProject(id)
	}
	p := v.(*models.Project)
	if err := r.items.Replace(id, p, cache.DefaultExpiration); err != nil {
		return nil, notFoundProject(id)
	}
	return p, nil
}

func notFoundProject(id string) error {
	return apperrors.NewNotFoundError(fmt.Sprintf("project %s not found", id), nil)
}

// Delete removes a project, running the eviction hook.
func (r *ProjectRegistry) Delete(id string) error {
	if _, ok := r.items.Get(id); !ok {
		return notFoundProject(id)
	}
	r.items.Delete(id)
	return nil
}

// List returns all live projects ordered by id. Callers read them under the project lock.
func (r *ProjectRegistry) List() []*models.Project {
	items := r.items.Items()
	out := make([]*models.Project, 0, len(items))
	for _, item := range items {
		out = append(out, item.Object.(*models.Project))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Count returns the number of live projects.
func (r *ProjectRegistry) Count() int {
	return r.items.ItemCount()
}
