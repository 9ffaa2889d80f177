package usecase

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/aura_mon/internal/domain"
)

// Ledger implements domain.Ledger: a step function sampled at event
// boundaries. Elapsed time is always attributed to the state (and app) that
// was current before the sample, never interpolated. Out-of-order timestamps
// are clamped forward so deltas are never negative; paused gaps advance the
// anchor without accruing.
type Ledger struct {
	mu sync.Mutex

	timeline  []domain.TimelineEvent
	apps      map[string]domain.UsageBucket
	focused   time.Duration
	unfocused time.Duration

	startMS   int64
	lastMS    int64
	lastState domain.SessionState
	lastApp   string
	lastTitle string
	paused    bool

	logger *zap.Logger
}

// NewLedger creates a ledger anchored at now, starting unfocused.
func NewLedger(logger *zap.Logger) *Ledger {
	now := time.Now().UnixMilli()
	return &Ledger{
		apps:      make(map[string]domain.UsageBucket),
		startMS:   now,
		lastMS:    now,
		lastState: domain.StateUnfocused,
		logger:    logger,
	}
}

// AddActivity records a state sample at tsMS (0 means now), accruing elapsed
// time to the previous state first, then appends a timeline entry. While
// paused the entry is still recorded but no time accrues.
func (l *Ledger) AddActivity(focused bool, app, title string, tsMS int64) {
	if tsMS == 0 {
		tsMS = time.Now().UnixMilli()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if tsMS < l.lastMS {
		tsMS = l.lastMS
	}
	l.accrueUntil(tsMS)

	state := domain.StateUnfocused
	if focused {
		state = domain.StateFocused
	}
	l.lastState = state
	l.lastApp = app
	l.lastTitle = title
	l.lastMS = tsMS
	l.timeline = append(l.timeline, domain.TimelineEvent{
		At:    time.UnixMilli(tsMS),
		State: state,
		App:   app,
		Title: title,
	})
}

// Tick advances accumulation up to nowMS (0 means now) using the last known
// state, without adding a timeline entry. Calling it twice with the same
// timestamp changes nothing on the second call.
func (l *Ledger) Tick(nowMS int64) {
	if nowMS == 0 {
		nowMS = time.Now().UnixMilli()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accrueUntil(nowMS)
}

// Pause flushes pending accrual up to nowMS (0 means now) and freezes the
// ledger. Idempotent while already paused.
func (l *Ledger) Pause(nowMS int64) {
	if nowMS == 0 {
		nowMS = time.Now().UnixMilli()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.paused {
		return
	}
	l.accrueUntil(nowMS)
	l.paused = true
	l.logger.Debug("ledger paused")
}

// Resume re-anchors the ledger at nowMS (0 means now); the paused gap is
// never charged to either bucket.
func (l *Ledger) Resume(nowMS int64) {
	if nowMS == 0 {
		nowMS = time.Now().UnixMilli()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.paused {
		return
	}
	if nowMS > l.lastMS {
		l.lastMS = nowMS
	}
	l.paused = false
	l.logger.Debug("ledger resumed")
}

// Reset clears timeline, buckets and totals atomically and re-anchors the
// clock at nowMS (0 means now).
func (l *Ledger) Reset(nowMS int64) {
	if nowMS == 0 {
		nowMS = time.Now().UnixMilli()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.timeline = nil
	l.apps = make(map[string]domain.UsageBucket)
	l.focused = 0
	l.unfocused = 0
	l.startMS = nowMS
	l.lastMS = nowMS
	l.lastState = domain.StateUnfocused
	l.lastApp = ""
	l.lastTitle = ""
	l.paused = false
	l.logger.Debug("ledger reset")
}

// Stats returns a copy of the current totals and per-app usage.
func (l *Ledger) Stats() domain.SessionSummary {
	l.mu.Lock()
	defer l.mu.Unlock()
	apps := make(map[string]domain.UsageBucket, len(l.apps))
	for k, v := range l.apps {
		apps[k] = v
	}
	return domain.SessionSummary{
		StartedAt: time.UnixMilli(l.startMS),
		Focused:   l.focused,
		Unfocused: l.unfocused,
		Total:     l.focused + l.unfocused,
		Paused:    l.paused,
		Apps:      apps,
	}
}

// Timeline returns a copy of the recorded transitions.
func (l *Ledger) Timeline() []domain.TimelineEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.TimelineEvent, len(l.timeline))
	copy(out, l.timeline)
	return out
}

func (l *Ledger) accrueUntil(nowMS int64) {
	if nowMS <= l.lastMS {
		return
	}
	delta := time.Duration(nowMS-l.lastMS) * time.Millisecond

	if l.paused {
		// Move the anchor without accruing so unpausing has no backlog.
		l.lastMS = nowMS
		return
	}

	if l.lastState == domain.StateFocused {
		l.focused += delta
	} else {
		l.unfocused += delta
	}

	if l.lastApp != "" {
		b := l.apps[l.lastApp]
		if l.lastState == domain.StateFocused {
			b.Focused += delta
		} else {
			b.Unfocused += delta
		}
		l.apps[l.lastApp] = b
	}

	l.lastMS = nowMS
}

// Ensure Ledger implements domain.Ledger.
var _ domain.Ledger = (*Ledger)(nil)
