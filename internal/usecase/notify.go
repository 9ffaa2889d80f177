package usecase

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/aura_mon/internal/domain"
)

// NotifySettings configures the notification policy timers.
type NotifySettings struct {
	Enabled bool

	// Timing (seconds)
	DistractionDelayS int   // wait before first alert on a new distraction
	MinIntervalS      int   // minimum time between notifications
	RefocusQuietS     int   // grace period after refocus where we stay quiet
	EscalateAfterS    []int // escalation thresholds, ascending

	SuppressDuringBreak bool
}

// DefaultNotifySettings returns the stock policy timers.
func DefaultNotifySettings() NotifySettings {
	return NotifySettings{
		Enabled:             true,
		DistractionDelayS:   10,
		MinIntervalS:        60,
		RefocusQuietS:       20,
		EscalateAfterS:      []int{45, 120, 300},
		SuppressDuringBreak: true,
	}
}

// NotifyPolicy implements domain.NotificationPolicy: a per-episode state
// machine applying first-notice delay, frequency throttling, escalation and
// break suppression to a stream of focus reports. One mutex covers the whole
// of OnFocusEvent; it is safe to call from any goroutine.
type NotifyPolicy struct {
	mu  sync.Mutex
	cfg NotifySettings

	notifier domain.Notifier
	logger   *zap.Logger

	breakUntilMS     int64
	lastNotifyS      float64
	lastFocusChangeS float64
	currentCategory  string // current category if distracted
	currentStartedS  float64
}

// NewNotifyPolicy creates a policy delivering through the given notifier.
func NewNotifyPolicy(cfg NotifySettings, notifier domain.Notifier, logger *zap.Logger) *NotifyPolicy {
	if len(cfg.EscalateAfterS) == 0 {
		cfg.EscalateAfterS = []int{45, 120, 300}
	}
	return &NotifyPolicy{
		cfg:      cfg,
		notifier: notifier,
		logger:   logger,
	}
}

// OnFocusEvent feeds one focus report. Call it on every focus change and on
// a steady tick so the delay and escalation timers progress between events.
func (p *NotifyPolicy) OnFocusEvent(focused bool, category, reason string, tsMS int64, title, app string) {
	if !p.cfg.Enabled {
		return
	}
	if tsMS == 0 {
		tsMS = time.Now().UnixMilli()
	}
	nowS := float64(tsMS) / 1000.0

	p.mu.Lock()
	defer p.mu.Unlock()

	if focused {
		// Returning to focus clears tracking and opens the quiet window.
		p.currentCategory = ""
		p.currentStartedS = 0
		p.lastFocusChangeS = nowS
		return
	}

	if p.cfg.SuppressDuringBreak && p.onBreak(tsMS) {
		return
	}

	// If just refocused recently, avoid immediate notification.
	if nowS-p.lastFocusChangeS < float64(p.cfg.RefocusQuietS) {
		return
	}

	// Track or continue the current distraction category.
	if category == "" {
		category = domain.CategoryOther
	}
	if p.currentCategory != category {
		p.currentCategory = category
		p.currentStartedS = nowS
	}

	distractedDuration := math.Max(0, nowS-p.currentStartedS)

	if distractedDuration < float64(p.cfg.DistractionDelayS) {
		return
	}
	if nowS-p.lastNotifyS < float64(p.cfg.MinIntervalS) {
		return
	}

	level := 0
	for i, t := range p.cfg.EscalateAfterS {
		if distractedDuration >= float64(t) {
			level = i + 1
		}
	}
	severity := severityForCategory(p.currentCategory)

	n := composeNudge(p.currentCategory, title, app, int(distractedDuration), level, severity)
	if err := p.notifier.Notify(n.Title, n.Message, n.Timeout); err != nil {
		p.logger.Warn("notification delivery failed", zap.Error(err))
	}
	p.lastNotifyS = nowS

	p.logger.Debug("nudge sent",
		zap.String("category", p.currentCategory),
		zap.String("reason", reason),
		zap.Int("level", level),
		zap.Int("severity", severity),
		zap.Float64("distracted_s", distractedDuration))
}

// SetBreak starts a break suppression window of the given length from now.
func (p *NotifyPolicy) SetBreak(seconds int) {
	if seconds < 0 {
		seconds = 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.breakUntilMS = time.Now().UnixMilli() + int64(seconds)*1000
}

// SetBreakActive enables or disables break suppression. durationS 0 falls
// back to five minutes.
func (p *NotifyPolicy) SetBreakActive(active bool, durationS int) {
	if !active {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.breakUntilMS = 0
		return
	}
	if durationS <= 0 {
		durationS = 300
	}
	p.SetBreak(durationS)
}

func (p *NotifyPolicy) onBreak(nowMS int64) bool {
	return p.breakUntilMS != 0 && nowMS < p.breakUntilMS
}

// severityForCategory maps a category to 1=low, 2=medium, 3=high.
func severityForCategory(category string) int {
	switch strings.ToLower(category) {
	case domain.CategoryYouTubeShorts, domain.CategoryGaming:
		return 3
	case domain.CategorySocial, domain.CategoryEntertainment, domain.CategoryCommunicationPersonal:
		return 2
	case domain.CategoryNews:
		return 1
	default:
		return 1
	}
}

// composeNudge builds the user-facing message. Tone and timeout scale with
// the higher of escalation level and category severity.
func composeNudge(category, title, app string, durationS, level, severity int) domain.Notification {
	catTxt := strings.ReplaceAll(category, "_", " ")
	if catTxt == "" {
		catTxt = "distraction"
	}
	where := title
	if where == "" {
		where = app
	}
	if where == "" {
		where = "this app"
	}

	var nTitle, sugg string
	var timeout time.Duration
	switch {
	case level >= 3 || severity >= 3:
		nTitle = "auramon: Let's refocus"
		sugg = "Quick reset: close the tab, 3 deep breaths, then return to your task."
		timeout = 7 * time.Second
	case level == 2 || severity == 2:
		nTitle = "auramon: Nudge to refocus"
		sugg = "Try a 2-minute pause, then get back to your main goal."
		timeout = 6 * time.Second
	default:
		nTitle = "auramon: Gentle reminder"
		sugg = "Small nudge: switch back to your task when ready."
		timeout = 5 * time.Second
	}

	msg := fmt.Sprintf("You drifted to %s in %s.\n%ds away. %s", catTxt, where, durationS, sugg)
	return domain.Notification{Title: nTitle, Message: msg, Timeout: timeout}
}

// Ensure NotifyPolicy implements domain.NotificationPolicy.
var _ domain.NotificationPolicy = (*NotifyPolicy)(nil)
