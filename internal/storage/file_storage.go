// internal/storage/file_storage.go
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	apperrors "github.com/Corphon/StoryboardStudio/internal/errors"
	"github.com/Corphon/StoryboardStudio/internal/models"
	"github.com/Corphon/StoryboardStudio/internal/utils"
)

// ExportsDir is the directory under BaseDir holding saved exports, one subdirectory per project.
const ExportsDir = "exports"

var projectDirPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// FileStorage saves rendered exports and snapshots under BaseDir.
type FileStorage struct {
	BaseDir string

	fileLocks sync.Map // path -> *sync.RWMutex

	// listings per project, dropped on every write
	index  *cache.Cache
	logger *utils.Logger
}

// NewFileStorage creates the storage root if needed.
func NewFileStorage(baseDir string, logger *utils.Logger) (*FileStorage, error) {
	if logger == nil {
		logger = utils.GetLogger()
	}
	if err := os.MkdirAll(filepath.Join(baseDir, ExportsDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileStorage{
		BaseDir: baseDir,
		index:   cache.New(5*time.Minute, 10*time.Minute),
		logger:  logger,
	}, nil
}

func (fs *FileStorage) getFileLock(fullPath string) *sync.RWMutex {
	value, _ := fs.fileLocks.LoadOrStore(fullPath, &sync.RWMutex{})
	return value.(*sync.RWMutex)
}

// SafeFileName strips path separators and control characters from name.
func SafeFileName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == ':':
			return '_'
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, strings.TrimSpace(name))
	return strings.TrimLeft(name, ".")
}

func (fs *FileStorage) projectDir(projectID string) (string, error) {
	if !projectDirPattern.MatchString(projectID) {
		return "", apperrors.NewValidationError(fmt.Sprintf("invalid project id %q", projectID), nil)
	}
	return filepath.Join(fs.BaseDir, ExportsDir, projectID), nil
}

func (fs *FileStorage) resolve(projectID, name string) (dir, fullPath, safe string, err error) {
	dir, err = fs.projectDir(projectID)
	if err != nil {
		return "", "", "", err
	}
	safe = SafeFileName(name)
	if safe == "" {
		return "", "", "", apperrors.NewValidationError("file name cannot be empty", nil)
	}
	return dir, filepath.Join(dir, safe), safe, nil
}

// Save writes data atomically to exports/<projectID>/<name>, replacing any previous file.
func (fs *FileStorage) Save(projectID, name string, data []byte) (*models.ArtifactInfo, error) {
	dir, fullPath, safe, err := fs.resolve(projectID, name)
	if err != nil {
		return nil, err
	}

	lock := fs.getFileLock(fullPath)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	tempPath := fullPath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := os.Rename(tempPath, fullPath); err != nil {
		if removeErr := os.Remove(tempPath); removeErr != nil {
			fs.logger.Warn("Failed to clean up temporary file", map[string]interface{}{
				"path":  tempPath,
				"error": removeErr,
			})
		}
		return nil, fmt.Errorf("failed to save file: %w", err)
	}
	fs.index.Delete(projectID)

	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat saved file: %w", err)
	}
	return &models.ArtifactInfo{
		Name:      safe,
		Path:      fullPath,
		Size:      info.Size(),
		CreatedAt: info.ModTime(),
	}, nil
}

// SaveJSON encodes v with indentation and saves it.
func (fs *FileStorage) SaveJSON(projectID, name string, v interface{}) (*models.ArtifactInfo, error) {
	content, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return fs.Save(projectID, name, content)
}

// Load reads a saved file.
func (fs *FileStorage) Load(projectID, name string) ([]byte, error) {
	_, fullPath, safe, err := fs.resolve(projectID, name)
	if err != nil {
		return nil, err
	}

	lock := fs.getFileLock(fullPath)
	lock.RLock()
	defer lock.RUnlock()

	content, err := os.ReadFile(fullPath)
	if os.IsNotExist(err) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("export %q not found", safe), err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return content, nil
}

// List returns the saved files of a project, newest first.
func (fs *FileStorage) List(projectID string) ([]models.ArtifactInfo, error) {
	if cached, ok := fs.index.Get(projectID); ok {
		return append([]models.ArtifactInfo(nil), cached.([]models.ArtifactInfo)...), nil
	}
	dir, err := fs.projectDir(projectID)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return []models.ArtifactInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	out := make([]models.ArtifactInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), ".tmp") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		out = append(out, models.ArtifactInfo{
			Name:      entry.Name(),
			Path:      filepath.Join(dir, entry.Name()),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	fs.index.SetDefault(projectID, out)
	return append([]models.ArtifactInfo(nil), out...), nil
}

// DeleteProject removes every saved file of a project.
func (fs *FileStorage) DeleteProject(projectID string) error {
	dir, err := fs.projectDir(projectID)
	if err != nil {
		return err
	}
	lock := fs.getFileLock(dir)
	lock.Lock()
	defer lock.Unlock()

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to delete directory: %w", err)
	}
	fs.index.Delete(projectID)
	return nil
}
