package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	dir, err := Default()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(dir))
	assert.Equal(t, "mcp", filepath.Base(dir))
}

func TestEnsure(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "mcp")
	require.NoError(t, Ensure(dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	info, err = os.Stat(filepath.Join(dir, "logs"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// Idempotent on an existing workspace.
	require.NoError(t, Ensure(dir))

	assert.Equal(t, filepath.Join(dir, "logs", "terminal.log"), LogFile(dir))
}
