package infra

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/aura_mon/internal/domain"
)

const (
	notifyAppName     = "auramon"
	notifyExecTimeout = 3 * time.Second
)

// CommandNotifier delivers desktop notifications through the platform
// notifier command: osascript on darwin, notify-send elsewhere.
// Delivery failures are returned, never fatal; the policy logs and moves on.
type CommandNotifier struct {
	logger *zap.Logger
}

// NewCommandNotifier creates a desktop notifier.
func NewCommandNotifier(logger *zap.Logger) *CommandNotifier {
	return &CommandNotifier{logger: logger}
}

// Notify shows a desktop notification with the given display timeout.
func (n *CommandNotifier) Notify(title, message string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), notifyExecTimeout)
	defer cancel()

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf("display notification %q with title %q", message, title)
		cmd = exec.CommandContext(ctx, "osascript", "-e", script)
	default:
		expireMS := strconv.FormatInt(timeout.Milliseconds(), 10)
		cmd = exec.CommandContext(ctx, "notify-send", "-a", notifyAppName, "-t", expireMS, title, message)
	}

	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("notifier command failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	n.logger.Debug("notification sent", zap.String("title", title))
	return nil
}

// LogNotifier writes notifications to the log instead of the desktop.
// Used with --no-notify and in tests.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a log-only notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify records the notification in the log.
func (n *LogNotifier) Notify(title, message string, timeout time.Duration) error {
	n.logger.Info("notification",
		zap.String("title", title),
		zap.String("message", message),
		zap.Duration("timeout", timeout))
	return nil
}

// Ensure both notifiers implement domain.Notifier.
var (
	_ domain.Notifier = (*CommandNotifier)(nil)
	_ domain.Notifier = (*LogNotifier)(nil)
)
