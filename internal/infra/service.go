package infra

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"text/template"
)

// ServiceLabel identifies the auramon login service to launchd.
const ServiceLabel = "com.focusd.auramon"

// loginAgentTemplate renders the per-user LaunchAgent plist: start the
// monitor at login, restart it after crashes, log into the data directory.
const loginAgentTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>

    <key>ProgramArguments</key>
    <array>
        <string>{{.ExecutablePath}}</string>
        <string>run</string>
    </array>

    <key>RunAtLoad</key>
    <true/>

    <key>KeepAlive</key>
    <dict>
        <key>Crashed</key>
        <true/>
    </dict>

    <key>StandardOutPath</key>
    <string>{{.LogPath}}</string>

    <key>StandardErrorPath</key>
    <string>{{.ErrorLogPath}}</string>

    <key>ProcessType</key>
    <string>Background</string>

    <key>ThrottleInterval</key>
    <integer>10</integer>
</dict>
</plist>`

type agentPlist struct {
	Label          string
	ExecutablePath string
	LogPath        string
	ErrorLogPath   string
}

// LoginService installs auramon as a per-user launchd agent so monitoring
// starts at login. macOS only; Install/Uninstall shell out to launchctl.
type LoginService struct {
	plistPath string
	logDir    string
}

// NewLoginService creates a manager over the user's LaunchAgents directory,
// pointing agent stdout/stderr into the given log directory.
func NewLoginService(logDir string) *LoginService {
	home, _ := os.UserHomeDir()
	return &LoginService{
		plistPath: filepath.Join(home, "Library", "LaunchAgents", ServiceLabel+".plist"),
		logDir:    logDir,
	}
}

// NewLoginServiceWithPlistPath creates a manager writing the plist at an
// explicit path (for testing).
func NewLoginServiceWithPlistPath(plistPath, logDir string) *LoginService {
	return &LoginService{plistPath: plistPath, logDir: logDir}
}

// PlistPath returns where the agent plist lives.
func (s *LoginService) PlistPath() string {
	return s.plistPath
}

// PlistContent renders the agent plist for the given executable.
func (s *LoginService) PlistContent(execPath string) ([]byte, error) {
	tmpl, err := template.New("agent").Parse(loginAgentTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse agent template: %w", err)
	}
	var buf bytes.Buffer
	err = tmpl.Execute(&buf, agentPlist{
		Label:          ServiceLabel,
		ExecutablePath: execPath,
		LogPath:        filepath.Join(s.logDir, "agent.log"),
		ErrorLogPath:   filepath.Join(s.logDir, "agent.error.log"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render agent plist: %w", err)
	}
	return buf.Bytes(), nil
}

// Install writes the plist and loads it with launchctl.
func (s *LoginService) Install(execPath string) error {
	if runtime.GOOS != "darwin" {
		return fmt.Errorf("login service requires launchd; only macOS is supported")
	}
	content, err := s.PlistContent(execPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.plistPath), 0755); err != nil {
		return err
	}
	if err := os.MkdirAll(s.logDir, 0700); err != nil {
		return err
	}
	if err := os.WriteFile(s.plistPath, content, 0644); err != nil {
		return err
	}
	return s.load()
}

// Update rewrites the plist for a moved or upgraded binary and reloads the
// agent.
func (s *LoginService) Update(execPath string) error {
	if runtime.GOOS != "darwin" {
		return fmt.Errorf("login service requires launchd; only macOS is supported")
	}
	_ = s.unload()
	content, err := s.PlistContent(execPath)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.plistPath, content, 0644); err != nil {
		return err
	}
	return s.load()
}

// Uninstall unloads the agent and removes the plist. Removing an agent that
// was never installed is not an error.
func (s *LoginService) Uninstall() error {
	_ = s.unload()
	err := os.Remove(s.plistPath)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// IsInstalled reports whether the agent plist exists.
func (s *LoginService) IsInstalled() bool {
	_, err := os.Stat(s.plistPath)
	return err == nil
}

// NeedsUpdate reports whether the installed plist differs from what
// PlistContent renders for execPath.
func (s *LoginService) NeedsUpdate(execPath string) bool {
	if !s.IsInstalled() {
		return false
	}
	current, err := os.ReadFile(s.plistPath)
	if err != nil {
		return true
	}
	expected, err := s.PlistContent(execPath)
	if err != nil {
		return true
	}
	return !bytes.Equal(current, expected)
}

// launchctl load is deprecated but still works; bootstrap needs the gui
// domain id and buys nothing here.
func (s *LoginService) load() error {
	return exec.Command("launchctl", "load", s.plistPath).Run()
}

func (s *LoginService) unload() error {
	return exec.Command("launchctl", "unload", s.plistPath).Run()
}
