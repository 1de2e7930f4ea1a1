package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Corphon/StoryboardStudio/internal/errors"
	"github.com/Corphon/StoryboardStudio/internal/utils"
)

func newStorage(t *testing.T) *FileStorage {
	t.Helper()
	fs, err := NewFileStorage(t.TempDir(), utils.NewNopLogger())
	require.NoError(t, err)
	return fs
}

func TestSaveLoadAndList(t *testing.T) {
	fs := newStorage(t)

	info, err := fs.Save("p1", "My_Film.xml", []byte("<xmeml/>"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fs.BaseDir, ExportsDir, "p1", "My_Film.xml"), info.Path)
	assert.Equal(t, int64(8), info.Size)

	data, err := fs.Load("p1", "My_Film.xml")
	require.NoError(t, err)
	assert.Equal(t, "<xmeml/>", string(data))

	list, err := fs.List("p1")
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = fs.SaveJSON("p1", "My_Film.json", map[string]string{"title": "My Film"})
	require.NoError(t, err)
	list, err = fs.List("p1")
	require.NoError(t, err)
	assert.Len(t, list, 2, "writes invalidate the cached listing")

	_, err = os.Stat(info.Path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestListUnknownProjectIsEmpty(t *testing.T) {
	fs := newStorage(t)
	list, err := fs.List("nothing-here")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPathsStayInsideProjectDir(t *testing.T) {
	fs := newStorage(t)

	_, err := fs.Save("../escape", "x.pdf", []byte("x"))
	assert.True(t, apperrors.IsValidationError(err))

	info, err := fs.Save("p1", "../../etc/passwd", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fs.BaseDir, ExportsDir, "p1"), filepath.Dir(info.Path))

	_, err = fs.Save("p1", "...", []byte("x"))
	assert.True(t, apperrors.IsValidationError(err))
}

func TestLoadMissing(t *testing.T) {
	fs := newStorage(t)
	_, err := fs.Load("p1", "gone.pdf")
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestDeleteProject(t *testing.T) {
	fs := newStorage(t)
	_, err := fs.Save("p1", "a.xml", []byte("a"))
	require.NoError(t, err)
	_, _ = fs.List("p1")

	require.NoError(t, fs.DeleteProject("p1"))
	list, err := fs.List("p1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSafeFileName(t *testing.T) {
	assert.Equal(t, "a_b.pdf", SafeFileName("a/b.pdf"))
	assert.Equal(t, "_passwd", SafeFileName("../passwd"))
	assert.Equal(t, "", SafeFileName(".."))
	assert.Equal(t, "Film.pdf", SafeFileName(" Film.pdf\n"))
}
