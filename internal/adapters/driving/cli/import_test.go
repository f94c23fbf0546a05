package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/threadsearch/internal/core/domain"
)

func TestImportCmd_File(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := filepath.Join(t.TempDir(), "threads.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0o600))

	out, err := runRoot(t, "import", path)

	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 threads from "+path)
	assert.Equal(t, []string{path}, threadImporter.(*mockImporter).files)
}

func TestImportCmd_Dir(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	dir := t.TempDir()

	out, err := runRoot(t, "import", dir)

	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 threads from "+dir)
	mock := threadImporter.(*mockImporter)
	assert.Equal(t, []string{dir}, mock.dirs)
	assert.Empty(t, mock.watched)
}

func TestImportCmd_Watch(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	dir := t.TempDir()
	mock := threadImporter.(*mockImporter)
	mock.watchRes = []domain.ImportResult{
		{Path: filepath.Join(dir, "a.json"), Count: 3},
		{Path: filepath.Join(dir, "b.json"), Err: errors.New("bad json")},
	}

	out, err := runRoot(t, "import", "--watch", dir)

	require.NoError(t, err)
	assert.Equal(t, []string{dir}, mock.watched)
	assert.Contains(t, out, "Watching "+dir)
	assert.Contains(t, out, "Imported 3 threads from "+filepath.Join(dir, "a.json"))
	assert.Contains(t, out, "Failed to import "+filepath.Join(dir, "b.json")+": bad json")
}

func TestImportCmd_WatchRequiresDir(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := filepath.Join(t.TempDir(), "threads.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0o600))

	_, err := runRoot(t, "import", "-w", path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "--watch requires a directory")
}

func TestImportCmd_MissingPath(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := runRoot(t, "import", filepath.Join(t.TempDir(), "nope.json"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "import failed")
}

func TestImportCmd_ImporterError(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	threadImporter.(*mockImporter).err = errors.New("locked")

	_, err := runRoot(t, "import", t.TempDir())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked")
}

func TestImportCmd_NotConfigured(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	threadImporter = nil

	_, err := runRoot(t, "import", t.TempDir())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "importer not configured")
}
