package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveAndEnsureDBPath_CreatesParent(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "deeper", "omo.db")

	got, err := ResolveAndEnsureDBPath(target)
	require.NoError(t, err)
	assert.Equal(t, target, got)

	info, err := os.Stat(filepath.Dir(target))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := ExpandHome("~/dreams/omo.db")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "dreams", "omo.db"), got)

	got, err = ExpandHome("/tmp/omo.db")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/omo.db", got)
}

func TestGetDefaultDBPathOnly(t *testing.T) {
	assert.Equal(t, "omo.db", filepath.Base(GetDefaultDBPathOnly()))
}
