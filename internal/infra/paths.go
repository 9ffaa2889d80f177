package infra

import (
	"os"
	"path/filepath"
	"strings"
)

const dataDirName = ".auramon"

// Paths resolves the application's on-disk layout under the user's home.
type Paths struct {
	homeDir string
}

// NewPaths creates a path resolver rooted at the user's home directory.
func NewPaths() *Paths {
	home, _ := os.UserHomeDir()
	return &Paths{homeDir: home}
}

// NewPathsWithHome creates a path resolver with a custom home (for testing).
func NewPathsWithHome(home string) *Paths {
	return &Paths{homeDir: home}
}

// ExpandHome expands ~ to the user's home directory.
func (p *Paths) ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(p.homeDir, path[2:])
	}
	if path == "~" {
		return p.homeDir
	}
	return path
}

// Exists checks if a path exists.
func (p *Paths) Exists(path string) bool {
	_, err := os.Stat(p.ExpandHome(path))
	return err == nil
}

// DataDir returns the application data directory.
func (p *Paths) DataDir() string {
	return filepath.Join(p.homeDir, dataDirName)
}

// EnsureDataDir creates the data directory with restricted permissions.
func (p *Paths) EnsureDataDir() error {
	return os.MkdirAll(p.DataDir(), 0700)
}

// ConfigPath returns the default config file location.
func (p *Paths) ConfigPath() string {
	return filepath.Join(p.DataDir(), "config.yaml")
}

// RulesPath returns the distraction rules file location.
func (p *Paths) RulesPath() string {
	return filepath.Join(p.DataDir(), "rules.json")
}

// StatePath returns the run-state snapshot location.
func (p *Paths) StatePath() string {
	return filepath.Join(p.DataDir(), "state.json")
}

// LogsDir returns the directory log files are written to.
func (p *Paths) LogsDir() string {
	return filepath.Join(p.DataDir(), "logs")
}

// LogPath returns the rotating log file location.
func (p *Paths) LogPath() string {
	return filepath.Join(p.LogsDir(), "auramon.log")
}
