// Package daemon implements the background loops: the activity estimator
// poll loop and the pipeline that fans its events into the classifier,
// notification policy and session ledger.
package daemon

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/aura_mon/internal/domain"
)

// AppTimeout overrides the idle/think timeouts for a single app.
type AppTimeout struct {
	IdleTimeoutS  int
	ThinkTimeoutS int
}

// EstimatorConfig holds poll cadence, focus timeouts and the allow-list.
type EstimatorConfig struct {
	PollInterval    time.Duration // default 500ms, floor 100ms
	ScreenSample    time.Duration // minimum gap between screen fingerprints
	ScreenDownscale int           // downscale factor passed to the signal source
	IdleTimeoutS    int           // idle threshold before reason "idle"
	ThinkTimeoutS   int           // upper idle bound for the reading heuristic
	AppTimeouts     map[string]AppTimeout
	AllowedKeywords []string // substring match against title/app, case-insensitive
	StopJoin        time.Duration
}

// DefaultEstimatorConfig returns the stock estimator cadence and timeouts.
func DefaultEstimatorConfig() EstimatorConfig {
	return EstimatorConfig{
		PollInterval:    500 * time.Millisecond,
		ScreenSample:    time.Second,
		ScreenDownscale: 4,
		IdleTimeoutS:    300,
		ThinkTimeoutS:   90,
		StopJoin:        2 * time.Second,
	}
}

// Estimator polls a SignalSource at fixed cadence, derives discrete activity
// events and a focus verdict, and fans events out to registered listeners.
// The loop runs on its own goroutine; Stop joins it with a bounded wait.
type Estimator struct {
	cfg    EstimatorConfig
	source domain.SignalSource
	logger *zap.Logger

	mu        sync.Mutex
	listeners []domain.Listener
	state     domain.FocusState
	hasState  bool
	running   bool
	stopCh    chan struct{}
	doneCh    chan struct{}

	// poll-tick history, touched only by the loop goroutine
	lastTitle    string
	lastApp      string
	lastHash     string
	lastSampleMS int64
	lastIdleS    float64
	hasLastIdle  bool
	lastCursorX  int
	lastCursorY  int
	hasCursor    bool
}

// NewEstimator creates an estimator over the given signal source.
func NewEstimator(cfg EstimatorConfig, source domain.SignalSource, logger *zap.Logger) *Estimator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.PollInterval < 100*time.Millisecond {
		cfg.PollInterval = 100 * time.Millisecond
	}
	if cfg.ScreenSample <= 0 {
		cfg.ScreenSample = time.Second
	}
	if cfg.ScreenDownscale <= 0 {
		cfg.ScreenDownscale = 4
	}
	if cfg.IdleTimeoutS <= 0 {
		cfg.IdleTimeoutS = 300
	}
	if cfg.ThinkTimeoutS <= 0 {
		cfg.ThinkTimeoutS = 90
	}
	if cfg.StopJoin <= 0 {
		cfg.StopJoin = 2 * time.Second
	}

	keywords := make([]string, 0, len(cfg.AllowedKeywords))
	for _, k := range cfg.AllowedKeywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			keywords = append(keywords, k)
		}
	}
	cfg.AllowedKeywords = keywords

	timeouts := make(map[string]AppTimeout, len(cfg.AppTimeouts))
	for app, t := range cfg.AppTimeouts {
		timeouts[strings.ToLower(app)] = t
	}
	cfg.AppTimeouts = timeouts

	return &Estimator{
		cfg:    cfg,
		source: source,
		logger: logger,
	}
}

// AddListener registers a listener for all emitted events. Listeners run on
// the estimator goroutine and cannot be removed.
func (e *Estimator) AddListener(fn domain.Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// State returns the verdict from the last focus change.
func (e *Estimator) State() domain.FocusState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Start launches the poll loop. Returns an error if already running.
func (e *Estimator) Start() error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return fmt.Errorf("estimator already running")
	}
	e.running = true
	e.stopCh = make(chan struct{})
	e.doneCh = make(chan struct{})
	e.mu.Unlock()

	go e.run()
	e.logger.Info("estimator started",
		zap.Duration("poll_interval", e.cfg.PollInterval),
		zap.Int("idle_timeout_s", e.cfg.IdleTimeoutS))
	return nil
}

// Stop signals the loop and waits for it with a bounded join. An in-flight
// signal read is abandoned after the timeout, not force-killed.
func (e *Estimator) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	stop := e.stopCh
	done := e.doneCh
	e.mu.Unlock()

	close(stop)
	select {
	case <-done:
	case <-time.After(e.cfg.StopJoin):
		e.logger.Warn("estimator loop did not stop in time")
	}
}

func (e *Estimator) run() {
	defer close(e.doneCh)

	// Ticker wake-ups stay anchored to the loop start, so a slow tick never
	// skews the cadence.
	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	e.pollOnce(time.Now().UnixMilli())
	for {
		select {
		case <-e.stopCh:
			e.logger.Info("estimator stopped")
			return
		case <-ticker.C:
			e.pollOnce(time.Now().UnixMilli())
		}
	}
}

// pollOnce runs one estimation tick at the given timestamp.
func (e *Estimator) pollOnce(nowMS int64) {
	title, app := e.safeForeground()
	if title != e.lastTitle || app != e.lastApp {
		e.emit(nowMS, domain.EventAppSwitch, map[string]any{
			"title":      title,
			"app":        app,
			"prev_title": e.lastTitle,
			"prev_app":   e.lastApp,
		})
		e.lastTitle, e.lastApp = title, app
	}

	idleS := e.safeIdle()
	e.emit(nowMS, domain.EventIdleState, map[string]any{"idle_seconds": idleS})

	// Input detection via idle reset, with cursor movement magnitude.
	cx, cy := e.safeCursor()
	movePx := 0
	if e.hasCursor {
		movePx = abs(cx-e.lastCursorX) + abs(cy-e.lastCursorY)
	}
	e.lastCursorX, e.lastCursorY = cx, cy
	e.hasCursor = true

	if e.hasLastIdle && idleS < e.lastIdleS {
		e.emit(nowMS, domain.EventInput, map[string]any{
			"delta_idle":     e.lastIdleS - idleS,
			"cursor_move_px": movePx,
		})
	}
	e.lastIdleS = idleS
	e.hasLastIdle = true

	// Screen change detection, sampled at most once per ScreenSample.
	changed := false
	if nowMS-e.lastSampleMS >= e.cfg.ScreenSample.Milliseconds() {
		hashNow := e.safeFingerprint()
		if hashNow != "" && e.lastHash != "" && hashNow != e.lastHash {
			changed = true
			e.emit(nowMS, domain.EventScreenChange, map[string]any{"hash": hashNow})
		}
		e.lastHash = hashNow
		e.lastSampleMS = nowMS
	}

	state := e.estimateFocus(title, app, idleS, changed, movePx)

	e.mu.Lock()
	newVerdict := !e.hasState || !state.Same(e.state)
	if newVerdict {
		e.state = state
		e.hasState = true
	}
	e.mu.Unlock()

	if newVerdict {
		e.emit(nowMS, domain.EventFocusChange, map[string]any{
			"focused": state.Focused,
			"reason":  string(state.Reason),
			"title":   state.WindowTitle,
			"app":     state.AppName,
		})
	}
}

// estimateFocus applies the ordered heuristic; first match wins.
func (e *Estimator) estimateFocus(title, app string, idleS float64, hashChanged bool, cursorMovePx int) domain.FocusState {
	idleT, thinkT := e.timeouts(app)
	titleL := strings.ToLower(title)
	appL := strings.ToLower(app)

	allowed := len(e.cfg.AllowedKeywords) == 0
	if !allowed {
		for _, k := range e.cfg.AllowedKeywords {
			if strings.Contains(titleL, k) || strings.Contains(appL, k) {
				allowed = true
				break
			}
		}
	}

	// Lock screen / no foreground window.
	if title == "" && app == "" && idleS > 5 {
		return domain.FocusState{Reason: domain.ReasonSystem, WindowTitle: title, AppName: app}
	}

	if idleS >= float64(idleT) {
		return domain.FocusState{Reason: domain.ReasonIdle, WindowTitle: title, AppName: app}
	}

	// Reading: little input, an occasional screen change, still cursor.
	if idleS >= 3 && idleS < float64(thinkT) && hashChanged && cursorMovePx < 5 {
		return domain.FocusState{Focused: true, Reason: domain.ReasonReading, WindowTitle: title, AppName: app}
	}

	if allowed || cursorMovePx >= 20 {
		return domain.FocusState{Focused: true, Reason: domain.ReasonFocused, WindowTitle: title, AppName: app}
	}

	return domain.FocusState{Reason: domain.ReasonDistracted, WindowTitle: title, AppName: app}
}

func (e *Estimator) timeouts(app string) (idleT, thinkT int) {
	idleT = e.cfg.IdleTimeoutS
	thinkT = e.cfg.ThinkTimeoutS
	if t, ok := e.cfg.AppTimeouts[strings.ToLower(app)]; ok {
		if t.IdleTimeoutS > 0 {
			idleT = t.IdleTimeoutS
		}
		if t.ThinkTimeoutS > 0 {
			thinkT = t.ThinkTimeoutS
		}
	}
	return idleT, thinkT
}

func (e *Estimator) emit(tsMS int64, kind domain.EventKind, payload map[string]any) {
	e.mu.Lock()
	listeners := make([]domain.Listener, len(e.listeners))
	copy(listeners, e.listeners)
	e.mu.Unlock()

	evt := domain.ActivityEvent{TS: tsMS, Kind: kind, Payload: payload}
	for _, fn := range listeners {
		e.deliver(fn, evt)
	}
}

// deliver isolates one listener call: a panic must not stop the loop or the
// remaining listeners.
func (e *Estimator) deliver(fn domain.Listener, evt domain.ActivityEvent) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("listener panicked",
				zap.String("event", string(evt.Kind)),
				zap.Any("panic", r))
		}
	}()
	fn(evt)
}

// Signal reads degrade to zero values; a failed read never aborts the tick.

func (e *Estimator) safeForeground() (string, string) {
	title, app, err := e.source.ForegroundWindow()
	if err != nil {
		e.logger.Debug("foreground window read failed", zap.Error(err))
		return "", ""
	}
	return title, app
}

func (e *Estimator) safeIdle() float64 {
	idle, err := e.source.IdleSeconds()
	if err != nil {
		e.logger.Debug("idle read failed", zap.Error(err))
		return 0
	}
	return idle
}

func (e *Estimator) safeCursor() (int, int) {
	x, y, err := e.source.CursorPosition()
	if err != nil {
		e.logger.Debug("cursor read failed", zap.Error(err))
		return 0, 0
	}
	return x, y
}

func (e *Estimator) safeFingerprint() string {
	hash, err := e.source.ScreenFingerprint(e.cfg.ScreenDownscale)
	if err != nil {
		e.logger.Debug("screen fingerprint failed", zap.Error(err))
		return ""
	}
	return hash
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
