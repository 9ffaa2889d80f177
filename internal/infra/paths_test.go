package infra

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPaths_Layout verifies the on-disk layout under the home directory
func TestPaths_Layout(t *testing.T) {
	p := NewPathsWithHome("/home/frank")

	assert.Equal(t, "/home/frank/.auramon", p.DataDir())
	assert.Equal(t, "/home/frank/.auramon/config.yaml", p.ConfigPath())
	assert.Equal(t, "/home/frank/.auramon/rules.json", p.RulesPath())
	assert.Equal(t, "/home/frank/.auramon/state.json", p.StatePath())
	assert.Equal(t, "/home/frank/.auramon/logs/auramon.log", p.LogPath())
}

// TestPaths_ExpandHome verifies tilde expansion
func TestPaths_ExpandHome(t *testing.T) {
	p := NewPathsWithHome("/home/frank")

	assert.Equal(t, "/home/frank/notes.txt", p.ExpandHome("~/notes.txt"))
	assert.Equal(t, "/home/frank", p.ExpandHome("~"))
	assert.Equal(t, "/etc/config", p.ExpandHome("/etc/config"))
	assert.Equal(t, "relative/path", p.ExpandHome("relative/path"))
}

// TestPaths_EnsureDataDir verifies creation with owner-only permissions
func TestPaths_EnsureDataDir(t *testing.T) {
	home := t.TempDir()
	p := NewPathsWithHome(home)

	require.NoError(t, p.EnsureDataDir())

	info, err := os.Stat(p.DataDir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())

	// Idempotent.
	assert.NoError(t, p.EnsureDataDir())
}

// TestPaths_Exists verifies existence checks expand tildes
func TestPaths_Exists(t *testing.T) {
	home := t.TempDir()
	p := NewPathsWithHome(home)
	require.NoError(t, os.WriteFile(filepath.Join(home, "present.txt"), []byte("x"), 0644))

	assert.True(t, p.Exists("~/present.txt"))
	assert.False(t, p.Exists("~/absent.txt"))
}
