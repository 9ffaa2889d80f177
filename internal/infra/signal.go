package infra

import "github.com/eliteGoblin/focusd/aura_mon/internal/domain"

// CallbackSource adapts plain functions into a domain.SignalSource.
// Nil callbacks degrade to zero values, so platforms wire only the probes
// they actually have.
type CallbackSource struct {
	Foreground  func() (title, app string, err error)
	Idle        func() (float64, error)
	Cursor      func() (x, y int, err error)
	Fingerprint func(downscale int) (string, error)
}

// ForegroundWindow returns the active window title and app name.
func (s *CallbackSource) ForegroundWindow() (string, string, error) {
	if s.Foreground == nil {
		return "", "", nil
	}
	return s.Foreground()
}

// IdleSeconds returns seconds since the last user input.
func (s *CallbackSource) IdleSeconds() (float64, error) {
	if s.Idle == nil {
		return 0, nil
	}
	return s.Idle()
}

// CursorPosition returns the pointer coordinates.
func (s *CallbackSource) CursorPosition() (int, int, error) {
	if s.Cursor == nil {
		return 0, 0, nil
	}
	return s.Cursor()
}

// ScreenFingerprint returns a content hash of the current screen.
func (s *CallbackSource) ScreenFingerprint(downscale int) (string, error) {
	if s.Fingerprint == nil {
		return "", nil
	}
	return s.Fingerprint(downscale)
}

// Ensure CallbackSource implements domain.SignalSource.
var _ domain.SignalSource = (*CallbackSource)(nil)
