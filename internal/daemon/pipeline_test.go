package daemon

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/aura_mon/internal/domain"
)

// mockClassifier implements domain.Classifier for testing
type mockClassifier struct {
	mu       sync.Mutex
	result   domain.ClassificationResult
	observed []string
	breaks   []int
	cleared  bool
}

func (m *mockClassifier) Observe(title, app string, nowMS int64, url string) domain.ClassificationResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observed = append(m.observed, title)
	return m.result
}

func (m *mockClassifier) SetBreak(seconds int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.breaks = append(m.breaks, seconds)
}

func (m *mockClassifier) SetBreakActive(active bool, durationS int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !active {
		m.cleared = true
		return
	}
	m.breaks = append(m.breaks, durationS)
}

// focusCall captures one policy OnFocusEvent invocation
type focusCall struct {
	focused  bool
	category string
	reason   string
	tsMS     int64
	title    string
	app      string
}

// mockPolicy implements domain.NotificationPolicy for testing
type mockPolicy struct {
	mu      sync.Mutex
	calls   []focusCall
	breaks  []int
	cleared bool
}

func (m *mockPolicy) OnFocusEvent(focused bool, category, reason string, tsMS int64, title, app string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, focusCall{focused, category, reason, tsMS, title, app})
}

func (m *mockPolicy) SetBreak(seconds int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.breaks = append(m.breaks, seconds)
}

func (m *mockPolicy) SetBreakActive(active bool, durationS int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !active {
		m.cleared = true
		return
	}
	m.breaks = append(m.breaks, durationS)
}

func (m *mockPolicy) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockPolicy) call(i int) focusCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[i]
}

// activityCall captures one ledger AddActivity invocation
type activityCall struct {
	focused bool
	app     string
	title   string
	tsMS    int64
}

// mockLedger implements domain.Ledger for testing
type mockLedger struct {
	mu         sync.Mutex
	activities []activityCall
	ticks      []int64
	paused     bool
	resumed    bool
	timeline   []domain.TimelineEvent
	stats      domain.SessionSummary
}

func (m *mockLedger) AddActivity(focused bool, app, title string, tsMS int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activities = append(m.activities, activityCall{focused, app, title, tsMS})
}

func (m *mockLedger) Tick(nowMS int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ticks = append(m.ticks, nowMS)
}

func (m *mockLedger) Pause(nowMS int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = true
}

func (m *mockLedger) Resume(nowMS int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resumed = true
}

func (m *mockLedger) Reset(nowMS int64) {}

func (m *mockLedger) Stats() domain.SessionSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

func (m *mockLedger) Timeline() []domain.TimelineEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.TimelineEvent, len(m.timeline))
	copy(out, m.timeline)
	return out
}

// mockHistory implements domain.HistoryStore for testing
type mockHistory struct {
	mu        sync.Mutex
	batches   [][]domain.TimelineEvent
	summaries []domain.SessionSummary
	appendErr error
}

func (m *mockHistory) AppendTimeline(events []domain.TimelineEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	batch := make([]domain.TimelineEvent, len(events))
	copy(batch, events)
	m.batches = append(m.batches, batch)
	return nil
}

func (m *mockHistory) SaveSummary(at time.Time, summary domain.SessionSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries = append(m.summaries, summary)
	return nil
}

func (m *mockHistory) RecentSummaries(since time.Time, limit int) ([]domain.SummaryRecord, error) {
	return nil, nil
}

func (m *mockHistory) RecentTimeline(since time.Time, limit int) ([]domain.TimelineEvent, error) {
	return nil, nil
}

func (m *mockHistory) Prune(olderThan time.Time) error { return nil }

func (m *mockHistory) Close() error { return nil }

// mockStateWriter implements StateWriter for testing
type mockStateWriter struct {
	mu     sync.Mutex
	states []domain.RunState
}

func (m *mockStateWriter) Write(state domain.RunState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = append(m.states, state)
	return nil
}

func (m *mockStateWriter) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.states)
}

func (m *mockStateWriter) last() domain.RunState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[len(m.states)-1]
}

type pipelineFixture struct {
	pipeline   *Pipeline
	estimator  *Estimator
	source     *scriptedSource
	classifier *mockClassifier
	policy     *mockPolicy
	ledger     *mockLedger
	history    *mockHistory
	states     *mockStateWriter
}

func newPipelineFixture(withClassifier bool) *pipelineFixture {
	f := &pipelineFixture{
		source:  &scriptedSource{title: "main.go - Code", app: "code.exe"},
		policy:  &mockPolicy{},
		ledger:  &mockLedger{},
		history: &mockHistory{},
		states:  &mockStateWriter{},
	}
	f.estimator = NewEstimator(DefaultEstimatorConfig(), f.source, zap.NewNop())

	var cls domain.Classifier
	if withClassifier {
		f.classifier = &mockClassifier{}
		cls = f.classifier
	}
	f.pipeline = NewPipeline(DefaultPipelineConfig(), f.estimator, cls,
		f.policy, f.ledger, f.history, f.states, zap.NewNop())
	return f
}

func focusEvent(focused bool, reason, title, app string, tsMS int64) domain.ActivityEvent {
	return domain.ActivityEvent{
		TS:   tsMS,
		Kind: domain.EventFocusChange,
		Payload: map[string]any{
			"focused": focused,
			"reason":  reason,
			"title":   title,
			"app":     app,
		},
	}
}

func switchEvent(title, app string, tsMS int64) domain.ActivityEvent {
	return domain.ActivityEvent{
		TS:   tsMS,
		Kind: domain.EventAppSwitch,
		Payload: map[string]any{
			"title": title, "app": app, "prev_title": "", "prev_app": "",
		},
	}
}

// TestOnEvent_FocusChangeFeedsPolicyAndLedger verifies a focus change reaches
// both the policy and the ledger with matching arguments
func TestOnEvent_FocusChangeFeedsPolicyAndLedger(t *testing.T) {
	f := newPipelineFixture(false)

	f.pipeline.onEvent(focusEvent(false, "idle", "doc", "word.exe", t0))

	require.Equal(t, 1, f.policy.callCount())
	call := f.policy.call(0)
	assert.False(t, call.focused)
	assert.Equal(t, "idle", call.category)
	assert.Equal(t, "idle", call.reason)
	assert.Equal(t, t0, call.tsMS)

	require.Len(t, f.ledger.activities, 1)
	assert.Equal(t, activityCall{false, "word.exe", "doc", t0}, f.ledger.activities[0])
}

// TestOnEvent_ClassifierOverride verifies a distracted classifier verdict
// flips an otherwise focused event
func TestOnEvent_ClassifierOverride(t *testing.T) {
	f := newPipelineFixture(true)
	f.classifier.result = domain.ClassificationResult{
		Distracted: true,
		Category:   domain.CategorySocial,
		Confidence: 0.95,
	}

	f.pipeline.onEvent(focusEvent(true, "focused", "Instagram", "chrome.exe", t0))

	require.Equal(t, 1, f.policy.callCount())
	call := f.policy.call(0)
	assert.False(t, call.focused)
	assert.Equal(t, domain.CategorySocial, call.category)
	assert.Equal(t, domain.CategorySocial, call.reason)

	require.Len(t, f.ledger.activities, 1)
	assert.False(t, f.ledger.activities[0].focused)
}

// TestOnEvent_ClassifierBenign verifies a benign classifier verdict leaves
// the estimator's focused verdict intact
func TestOnEvent_ClassifierBenign(t *testing.T) {
	f := newPipelineFixture(true)
	f.classifier.result = domain.ClassificationResult{
		Distracted: false,
		Category:   domain.CategoryWork,
	}

	f.pipeline.onEvent(focusEvent(true, "focused", "main.go - Code", "code.exe", t0))

	call := f.policy.call(0)
	assert.True(t, call.focused)
	assert.Equal(t, "", call.category)
	assert.Equal(t, "focused", call.reason)
	assert.Equal(t, []string{"main.go - Code"}, f.classifier.observed)
}

// TestOnEvent_AppSwitchBasicMode verifies window switches without a
// classifier are recorded under the current focus verdict without consulting
// the policy
func TestOnEvent_AppSwitchBasicMode(t *testing.T) {
	f := newPipelineFixture(false)

	f.pipeline.onEvent(focusEvent(true, "focused", "main.go - Code", "code.exe", t0))
	f.pipeline.onEvent(switchEvent("notes.md - Code", "code.exe", t0+500))

	require.Len(t, f.ledger.activities, 2)
	assert.Equal(t, activityCall{true, "code.exe", "notes.md - Code", t0 + 500}, f.ledger.activities[1])
	assert.Equal(t, 1, f.policy.callCount(), "no new verdict, nothing for the policy")
}

// TestOnEvent_AppSwitchClassifies verifies a window change is classified even
// when the estimator's verdict holds
func TestOnEvent_AppSwitchClassifies(t *testing.T) {
	f := newPipelineFixture(true)

	f.pipeline.onEvent(focusEvent(true, "focused", "main.go - Code", "code.exe", t0))
	require.Equal(t, 1, f.policy.callCount())

	f.classifier.result = domain.ClassificationResult{
		Distracted: true,
		Category:   domain.CategorySocial,
	}
	f.pipeline.onEvent(switchEvent("Feed / Instagram", "chrome.exe", t0+500))

	assert.Equal(t, []string{"main.go - Code", "Feed / Instagram"}, f.classifier.observed)
	require.Equal(t, 2, f.policy.callCount())
	call := f.policy.call(1)
	assert.False(t, call.focused)
	assert.Equal(t, domain.CategorySocial, call.category)
	assert.Equal(t, "Feed / Instagram", call.title)

	require.Len(t, f.ledger.activities, 2)
	assert.Equal(t, activityCall{false, "chrome.exe", "Feed / Instagram", t0 + 500}, f.ledger.activities[1])
}

// TestOnEvent_AppSwitchBeforeVerdict verifies switches ahead of the first
// focus verdict are recorded without classification
func TestOnEvent_AppSwitchBeforeVerdict(t *testing.T) {
	f := newPipelineFixture(true)

	f.pipeline.onEvent(switchEvent("doc", "word.exe", t0))

	assert.Empty(t, f.classifier.observed)
	assert.Equal(t, 0, f.policy.callCount())
	require.Len(t, f.ledger.activities, 1)
	assert.False(t, f.ledger.activities[0].focused)
}

// TestOnEvent_FocusChangeFallbacks verifies empty title/app/reason fall back
// to the last seen window and the focused reason
func TestOnEvent_FocusChangeFallbacks(t *testing.T) {
	f := newPipelineFixture(false)

	f.pipeline.onEvent(switchEvent("doc", "word.exe", t0))
	f.pipeline.onEvent(focusEvent(false, "", "", "", t0+500))

	call := f.policy.call(0)
	assert.Equal(t, "doc", call.title)
	assert.Equal(t, "word.exe", call.app)
	assert.Equal(t, "focused", call.reason)
}

// TestTick_DefaultsUnfocused verifies the pump reports unfocused with the
// focused reason until a verdict arrives, then echoes the verdict
func TestTick_DefaultsUnfocused(t *testing.T) {
	f := newPipelineFixture(false)

	f.pipeline.tick(t0)

	require.Equal(t, []int64{t0}, f.ledger.ticks)
	call := f.policy.call(0)
	assert.False(t, call.focused)
	assert.Equal(t, "focused", call.category)
	assert.Equal(t, "focused", call.reason)

	f.pipeline.onEvent(focusEvent(true, "focused", "doc", "word.exe", t0+500))
	f.pipeline.tick(t0 + 1_000)

	call = f.policy.call(2)
	assert.True(t, call.focused)
	assert.Equal(t, "", call.category)
	assert.Equal(t, "doc", call.title)
}

// TestTick_MaturesBriefCheck verifies the pump re-observes the current window
// so a dwell-based distraction flips without a window change
func TestTick_MaturesBriefCheck(t *testing.T) {
	f := newPipelineFixture(true)

	f.pipeline.onEvent(focusEvent(true, "focused", "Feed / Instagram", "chrome.exe", t0))
	require.Equal(t, 1, f.policy.callCount())
	assert.True(t, f.policy.call(0).focused, "brief check still benign")

	// Dwell passed the brief-check threshold; the next observation reports
	// the distraction.
	f.classifier.result = domain.ClassificationResult{
		Distracted: true,
		Category:   domain.CategorySocial,
	}
	f.pipeline.tick(t0 + 16_000)

	require.Equal(t, 2, f.policy.callCount())
	call := f.policy.call(1)
	assert.False(t, call.focused)
	assert.Equal(t, domain.CategorySocial, call.category)
	require.Len(t, f.ledger.activities, 2, "verdict flip lands in the timeline")
	assert.Equal(t, activityCall{false, "chrome.exe", "Feed / Instagram", t0 + 16_000}, f.ledger.activities[1])

	// Steady state: a further tick re-feeds the policy but adds no timeline row.
	f.pipeline.tick(t0 + 16_500)
	assert.Equal(t, 3, f.policy.callCount())
	assert.Len(t, f.ledger.activities, 2)
	assert.Equal(t, 3, len(f.classifier.observed), "every tick advances the classifier clock")
}

// TestBreakLifecycle verifies break start/stop reach the classifier, policy
// and ledger and tint the run state
func TestBreakLifecycle(t *testing.T) {
	f := newPipelineFixture(true)

	f.pipeline.StartBreak(600)

	assert.Equal(t, []int{600}, f.classifier.breaks)
	assert.Equal(t, []int{600}, f.policy.breaks)
	assert.True(t, f.ledger.paused)

	f.pipeline.writeRunState()
	st := f.states.last()
	assert.False(t, st.Focus.Focused)
	assert.Equal(t, domain.ReasonBreak, st.Focus.Reason)

	f.pipeline.StopBreak()

	assert.True(t, f.classifier.cleared)
	assert.True(t, f.policy.cleared)
	assert.True(t, f.ledger.resumed)
}

// TestFlushHistory_HighWaterMark verifies only fresh timeline entries are
// appended on each flush
func TestFlushHistory_HighWaterMark(t *testing.T) {
	f := newPipelineFixture(false)
	f.ledger.timeline = []domain.TimelineEvent{
		{At: time.UnixMilli(t0), State: domain.StateFocused},
		{At: time.UnixMilli(t0 + 1_000), State: domain.StateUnfocused},
	}

	f.pipeline.flushHistory()
	require.Len(t, f.history.batches, 1)
	assert.Len(t, f.history.batches[0], 2)

	f.ledger.timeline = append(f.ledger.timeline,
		domain.TimelineEvent{At: time.UnixMilli(t0 + 2_000), State: domain.StateFocused})

	f.pipeline.flushHistory()
	require.Len(t, f.history.batches, 2)
	assert.Len(t, f.history.batches[1], 1)

	// Nothing new: no extra batch.
	f.pipeline.flushHistory()
	assert.Len(t, f.history.batches, 2)
}

// TestFlushHistory_ResetDetection verifies a shrunken timeline restarts the
// high-water mark instead of slicing out of range
func TestFlushHistory_ResetDetection(t *testing.T) {
	f := newPipelineFixture(false)
	f.ledger.timeline = []domain.TimelineEvent{
		{At: time.UnixMilli(t0), State: domain.StateFocused},
		{At: time.UnixMilli(t0 + 1_000), State: domain.StateUnfocused},
	}
	f.pipeline.flushHistory()
	require.Len(t, f.history.batches, 1)

	// Simulate a ledger reset followed by one new entry.
	f.ledger.timeline = []domain.TimelineEvent{
		{At: time.UnixMilli(t0 + 5_000), State: domain.StateUnfocused},
	}

	f.pipeline.flushHistory()
	require.Len(t, f.history.batches, 2)
	assert.Len(t, f.history.batches[1], 1)
}

// TestFlushHistory_FailureKeepsMark verifies a failed append leaves the mark
// so the entries are retried next flush
func TestFlushHistory_FailureKeepsMark(t *testing.T) {
	f := newPipelineFixture(false)
	f.ledger.timeline = []domain.TimelineEvent{
		{At: time.UnixMilli(t0), State: domain.StateFocused},
		{At: time.UnixMilli(t0 + 1_000), State: domain.StateUnfocused},
	}
	f.history.appendErr = errors.New("db locked")

	f.pipeline.flushHistory()
	assert.Empty(t, f.history.batches)

	f.history.appendErr = nil
	f.pipeline.flushHistory()

	require.Len(t, f.history.batches, 1)
	assert.Len(t, f.history.batches[0], 2)
}

// TestWriteRunState_Snapshot verifies the snapshot carries PID, verdict and
// ledger counters
func TestWriteRunState_Snapshot(t *testing.T) {
	f := newPipelineFixture(false)
	f.ledger.stats = domain.SessionSummary{
		Focused:   90 * time.Second,
		Unfocused: 30 * time.Second,
	}

	f.pipeline.onEvent(focusEvent(true, "focused", "doc", "word.exe", t0))
	f.pipeline.writeRunState()

	require.Equal(t, 1, f.states.count())
	st := f.states.last()
	assert.Equal(t, os.Getpid(), st.PID)
	assert.True(t, st.Focus.Focused)
	assert.Equal(t, "doc", st.Focus.WindowTitle)
	assert.InDelta(t, 90.0, st.FocusedS, 0.001)
	assert.InDelta(t, 30.0, st.UnfocusedS, 0.001)
}

// TestRun_Lifecycle verifies the full loop: estimator feeding events, state
// snapshots, and a final summary on cancellation
func TestRun_Lifecycle(t *testing.T) {
	f := newPipelineFixture(false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.pipeline.Run(ctx) }()

	time.Sleep(300 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("pipeline did not stop")
	}

	assert.GreaterOrEqual(t, f.states.count(), 2, "initial and final snapshots")
	require.Len(t, f.history.summaries, 1, "summary saved on shutdown")
	assert.NotEmpty(t, f.ledger.ticks, "pump ticked the ledger")
	assert.NotEmpty(t, f.ledger.activities, "estimator events reached the ledger")
}
