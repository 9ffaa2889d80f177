package infra

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCallbackSource_NilCallbacksDegrade verifies an empty source returns
// zero samples instead of panicking
func TestCallbackSource_NilCallbacksDegrade(t *testing.T) {
	src := &CallbackSource{}

	title, app, err := src.ForegroundWindow()
	assert.NoError(t, err)
	assert.Empty(t, title)
	assert.Empty(t, app)

	idle, err := src.IdleSeconds()
	assert.NoError(t, err)
	assert.Zero(t, idle)

	x, y, err := src.CursorPosition()
	assert.NoError(t, err)
	assert.Zero(t, x)
	assert.Zero(t, y)

	hash, err := src.ScreenFingerprint(4)
	assert.NoError(t, err)
	assert.Empty(t, hash)
}

// TestCallbackSource_WiredCallbacks verifies values and errors pass through
func TestCallbackSource_WiredCallbacks(t *testing.T) {
	idleErr := errors.New("probe gone")
	src := &CallbackSource{
		Foreground: func() (string, string, error) {
			return "inbox - Mail", "mail.exe", nil
		},
		Idle: func() (float64, error) {
			return 0, idleErr
		},
		Cursor: func() (int, int, error) {
			return 640, 480, nil
		},
		Fingerprint: func(downscale int) (string, error) {
			return "abc123", nil
		},
	}

	title, app, err := src.ForegroundWindow()
	require.NoError(t, err)
	assert.Equal(t, "inbox - Mail", title)
	assert.Equal(t, "mail.exe", app)

	_, err = src.IdleSeconds()
	assert.ErrorIs(t, err, idleErr)

	x, y, err := src.CursorPosition()
	require.NoError(t, err)
	assert.Equal(t, 640, x)
	assert.Equal(t, 480, y)

	hash, err := src.ScreenFingerprint(4)
	require.NoError(t, err)
	assert.Equal(t, "abc123", hash)
}
