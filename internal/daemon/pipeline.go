package daemon

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/aura_mon/internal/domain"
)

// StateWriter persists run-state snapshots for external status readers.
type StateWriter interface {
	Write(state domain.RunState) error
}

// PipelineConfig holds the pump and persistence cadences.
type PipelineConfig struct {
	TickInterval  time.Duration // session/notification pump (default 500ms)
	StateInterval time.Duration // run-state snapshot cadence (default 5s)
	FlushInterval time.Duration // history flush cadence (default 30s)
	AppVersion    string
}

// DefaultPipelineConfig returns default pipeline cadences.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		TickInterval:  500 * time.Millisecond,
		StateInterval: 5 * time.Second,
		FlushInterval: 30 * time.Second,
	}
}

// Pipeline wires estimator events into the classifier, notification policy
// and session ledger, pumps time forward on a fixed tick, and persists
// history and run-state snapshots.
// The classifier and the persistence sinks are optional; with a nil
// classifier focus verdicts pass through unrefined (basic mode).
type Pipeline struct {
	config     PipelineConfig
	estimator  *Estimator
	classifier domain.Classifier
	policy     domain.NotificationPolicy
	ledger     domain.Ledger
	history    domain.HistoryStore
	states     StateWriter
	logger     *zap.Logger

	startedAt time.Time

	mu         sync.Mutex
	base       domain.FocusState // estimator's latest heuristic verdict
	hasBase    bool
	last       domain.FocusState // refined verdict, after the classifier
	hasLast    bool
	lastTitle  string
	lastApp    string
	breakOn    bool
	flushedIdx int
}

// NewPipeline creates the pipeline and subscribes it to the estimator.
func NewPipeline(
	config PipelineConfig,
	estimator *Estimator,
	classifier domain.Classifier,
	policy domain.NotificationPolicy,
	ledger domain.Ledger,
	history domain.HistoryStore,
	states StateWriter,
	logger *zap.Logger,
) *Pipeline {
	if config.TickInterval <= 0 {
		config.TickInterval = 500 * time.Millisecond
	}
	if config.StateInterval <= 0 {
		config.StateInterval = 5 * time.Second
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = 30 * time.Second
	}

	p := &Pipeline{
		config:     config,
		estimator:  estimator,
		classifier: classifier,
		policy:     policy,
		ledger:     ledger,
		history:    history,
		states:     states,
		logger:     logger,
		startedAt:  time.Now(),
	}
	estimator.AddListener(p.onEvent)
	return p
}

// Run starts the estimator and the pump loop.
// This blocks until context is canceled.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.estimator.Start(); err != nil {
		p.logger.Error("failed to start estimator", zap.Error(err))
		return err
	}
	defer p.estimator.Stop()

	p.logger.Info("pipeline started",
		zap.Duration("tick_interval", p.config.TickInterval),
		zap.Bool("classifier", p.classifier != nil))

	// Snapshot immediately so status readers see the fresh PID.
	p.writeRunState()

	tickTicker := time.NewTicker(p.config.TickInterval)
	stateTicker := time.NewTicker(p.config.StateInterval)
	flushTicker := time.NewTicker(p.config.FlushInterval)

	defer func() {
		tickTicker.Stop()
		stateTicker.Stop()
		flushTicker.Stop()
	}()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping")
			p.finalize()
			return ctx.Err()

		case <-tickTicker.C:
			p.tick(time.Now().UnixMilli())

		case <-stateTicker.C:
			p.writeRunState()

		case <-flushTicker.C:
			p.flushHistory()
		}
	}
}

// StartBreak pauses accounting and relaxes classification and nudges.
func (p *Pipeline) StartBreak(seconds int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.breakOn = true
	if p.classifier != nil {
		p.classifier.SetBreak(seconds)
	}
	p.policy.SetBreak(seconds)
	p.ledger.Pause(0)
	p.logger.Info("break started", zap.Int("seconds", seconds))
}

// StopBreak ends a break early and resumes accounting.
func (p *Pipeline) StopBreak() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.breakOn = false
	if p.classifier != nil {
		p.classifier.SetBreakActive(false, 0)
	}
	p.policy.SetBreakActive(false, 0)
	p.ledger.Resume(0)
	p.logger.Info("break stopped")
}

// onEvent runs on the estimator goroutine; the pipeline mutex serializes it
// against the pump loop.
func (p *Pipeline) onEvent(evt domain.ActivityEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch evt.Kind {
	case domain.EventAppSwitch:
		title := evt.Str("title")
		app := evt.Str("app")
		p.lastTitle = title
		p.lastApp = app

		if p.classifier == nil || !p.hasBase {
			p.ledger.AddActivity(p.last.Focused, app, title, evt.TS)
			return
		}

		// A window change is a transition even when the estimator's verdict
		// holds, so the classifier sees the new window right away.
		focused, reason := p.refine(evt.TS, title, app)
		p.report(focused, reason, title, app, evt.TS)

	case domain.EventFocusChange:
		focused := evt.Bool("focused")
		reason := evt.Str("reason")
		if reason == "" {
			reason = string(domain.ReasonFocused)
		}
		title := evt.Str("title")
		if title == "" {
			title = p.lastTitle
		}
		app := evt.Str("app")
		if app == "" {
			app = p.lastApp
		}

		p.base = domain.FocusState{
			Focused:     focused,
			Reason:      domain.FocusReason(reason),
			WindowTitle: title,
			AppName:     app,
		}
		p.hasBase = true

		if p.classifier != nil {
			focused, reason = p.refine(evt.TS, title, app)
		}
		p.report(focused, reason, title, app, evt.TS)
	}
}

// refine runs the classifier on top of the estimator's verdict: a
// focused-looking window on a distracting site flips to unfocused under the
// matched category. The estimator's own idle/system/distracted verdicts are
// never overturned.
func (p *Pipeline) refine(tsMS int64, title, app string) (bool, string) {
	focused := p.base.Focused
	reason := string(p.base.Reason)
	res := p.classifier.Observe(title, app, tsMS, "")
	if res.Distracted {
		focused = false
		reason = res.Category
	}
	return focused, reason
}

// report feeds one refined verdict to the policy and the ledger and stores
// it as the pipeline's current state.
func (p *Pipeline) report(focused bool, reason, title, app string, tsMS int64) {
	category := ""
	if !focused {
		category = reason
	}
	p.policy.OnFocusEvent(focused, category, reason, tsMS, title, app)

	p.last = domain.FocusState{
		Focused:     focused,
		Reason:      domain.FocusReason(reason),
		WindowTitle: title,
		AppName:     app,
	}
	p.hasLast = true
	p.ledger.AddActivity(focused, app, title, tsMS)
}

// tick advances the ledger, re-observes the current window so classifier
// dwell matures between events, and re-feeds the policy so its delay and
// escalation timers progress.
func (p *Pipeline) tick(nowMS int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	focused := false
	reason := string(domain.ReasonFocused)
	title, app := p.lastTitle, p.lastApp
	if p.hasLast {
		focused = p.last.Focused
		reason = string(p.last.Reason)
		title = p.last.WindowTitle
		app = p.last.AppName

		// A brief check matures into a distraction purely by dwell; only a
		// fresh observation can flip the verdict without a window change.
		if p.classifier != nil {
			focused, reason = p.refine(nowMS, title, app)
		}
	}

	p.ledger.Tick(nowMS)

	if p.hasLast && (focused != p.last.Focused || reason != string(p.last.Reason)) {
		p.report(focused, reason, title, app, nowMS)
		return
	}

	category := ""
	if !focused {
		category = reason
	}
	p.policy.OnFocusEvent(focused, category, reason, nowMS, title, app)
}

// flushHistory appends ledger timeline entries past the high-water mark.
func (p *Pipeline) flushHistory() {
	if p.history == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	timeline := p.ledger.Timeline()
	start := p.flushedIdx
	if start > len(timeline) {
		// Ledger was reset under us; start over.
		start = 0
	}
	fresh := timeline[start:]
	if len(fresh) == 0 {
		return
	}

	if err := p.history.AppendTimeline(fresh); err != nil {
		p.logger.Warn("history flush failed", zap.Error(err))
		return
	}
	p.flushedIdx = start + len(fresh)
}

// writeRunState snapshots PID, focus state and session counters.
func (p *Pipeline) writeRunState() {
	if p.states == nil {
		return
	}

	stats := p.ledger.Stats()

	p.mu.Lock()
	focus := p.last
	if p.breakOn {
		focus.Focused = false
		focus.Reason = domain.ReasonBreak
	}
	p.mu.Unlock()

	state := domain.RunState{
		PID:        os.Getpid(),
		StartedAt:  p.startedAt,
		UpdatedAt:  time.Now(),
		AppVersion: p.config.AppVersion,
		Focus:      focus,
		FocusedS:   stats.Focused.Seconds(),
		UnfocusedS: stats.Unfocused.Seconds(),
	}
	if err := p.states.Write(state); err != nil {
		p.logger.Warn("failed to write run state", zap.Error(err))
	}
}

// finalize flushes accounting and persistence on shutdown.
func (p *Pipeline) finalize() {
	now := time.Now()
	p.ledger.Tick(now.UnixMilli())
	p.flushHistory()

	if p.history != nil {
		if err := p.history.SaveSummary(now, p.ledger.Stats()); err != nil {
			p.logger.Warn("failed to save session summary", zap.Error(err))
		}
	}
	p.writeRunState()
}
