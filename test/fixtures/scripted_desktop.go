// Package fixtures provides test helpers for integration tests.
package fixtures

import (
	"sync"

	"github.com/eliteGoblin/focusd/aura_mon/internal/domain"
)

// ScriptedDesktop is a SignalSource whose readings the test script controls.
// It stands in for the platform probes: tests switch windows, idle the user
// or move the cursor and the estimator reacts as it would on a real desktop.
type ScriptedDesktop struct {
	mu    sync.Mutex
	title string
	app   string
	idle  float64
	x, y  int
	hash  string
}

// NewScriptedDesktop creates a desktop showing a work-looking window.
func NewScriptedDesktop() *ScriptedDesktop {
	return &ScriptedDesktop{
		title: "main.go - Code",
		app:   "code.exe",
		hash:  "frame-0",
	}
}

// SwitchWindow brings another window to the foreground.
func (d *ScriptedDesktop) SwitchWindow(title, app string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.title = title
	d.app = app
}

// SetIdle sets the seconds since the last user input.
func (d *ScriptedDesktop) SetIdle(seconds float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.idle = seconds
}

// MoveCursor places the pointer.
func (d *ScriptedDesktop) MoveCursor(x, y int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.x, d.y = x, y
}

// SetScreenHash sets the screen fingerprint the next sample returns.
func (d *ScriptedDesktop) SetScreenHash(hash string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hash = hash
}

func (d *ScriptedDesktop) ForegroundWindow() (string, string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.title, d.app, nil
}

func (d *ScriptedDesktop) IdleSeconds() (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.idle, nil
}

func (d *ScriptedDesktop) CursorPosition() (int, int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.x, d.y, nil
}

func (d *ScriptedDesktop) ScreenFingerprint(downscale int) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hash, nil
}

// Ensure ScriptedDesktop implements domain.SignalSource.
var _ domain.SignalSource = (*ScriptedDesktop)(nil)
