package domain

import "time"

// SignalSource abstracts the raw OS signal getters the estimator polls.
// Implementations wrap platform hooks (X11, AppKit, Win32) or test scripts;
// the estimator treats every error as "signal unavailable" and substitutes
// zero values, so implementations never need to retry or mask failures.
type SignalSource interface {
	// ForegroundWindow returns the focused window title and owning app name.
	ForegroundWindow() (title, app string, err error)

	// IdleSeconds returns seconds since the last user input.
	IdleSeconds() (float64, error)

	// CursorPosition returns the pointer position in screen pixels.
	CursorPosition() (x, y int, err error)

	// ScreenFingerprint returns a short stable hash of the current screen
	// content, downscaled by the given factor before hashing. "" means no
	// sample could be taken.
	ScreenFingerprint(downscale int) (string, error)
}

// Listener receives activity events from the estimator.
// Listeners run on the estimator goroutine; a panicking listener is
// recovered and logged without stopping the loop or other listeners.
type Listener func(ActivityEvent)

// Classifier turns a focus observation into a distraction verdict.
type Classifier interface {
	// Observe classifies one observation. nowMS 0 means time.Now; url may
	// be empty when no browser integration is present.
	Observe(title, app string, nowMS int64, url string) ClassificationResult

	// SetBreak starts a break window of the given length from now.
	SetBreak(seconds int)

	// SetBreakActive enables or disables break mode explicitly.
	SetBreakActive(active bool, durationS int)
}

// NotificationPolicy decides when a distraction report becomes a nudge.
type NotificationPolicy interface {
	// OnFocusEvent feeds one focus report. category carries the distraction
	// category when unfocused ("" when focused); reason is the estimator or
	// classifier reason tag. Safe for concurrent callers.
	OnFocusEvent(focused bool, category, reason string, tsMS int64, title, app string)

	// SetBreak starts a break suppression window of the given length.
	SetBreak(seconds int)

	// SetBreakActive enables or disables break suppression explicitly.
	SetBreakActive(active bool, durationS int)
}

// Ledger accounts session time against the focused/unfocused split.
type Ledger interface {
	// AddActivity records a state change at tsMS (0 means now), accruing
	// elapsed time to the previous state first.
	AddActivity(focused bool, app, title string, tsMS int64)

	// Tick accrues elapsed time without recording a timeline entry.
	Tick(nowMS int64)

	// Pause flushes accrual up to nowMS and freezes the ledger.
	Pause(nowMS int64)

	// Resume re-anchors the ledger at nowMS; the paused gap is not accrued.
	Resume(nowMS int64)

	// Reset clears all totals, buckets and the timeline atomically.
	Reset(nowMS int64)

	// Stats returns a copy of the current totals.
	Stats() SessionSummary

	// Timeline returns a copy of the recorded transitions.
	Timeline() []TimelineEvent
}

// Notifier delivers a composed notification to the user.
// Implementations: desktop notify commands, log-only fallback, test doubles.
type Notifier interface {
	Notify(title, message string, timeout time.Duration) error
}

// RuleTarget is what a rule set pushes classification material into.
// The classifier implements it; updates take effect between observations.
type RuleTarget interface {
	// AddCategoryDomain registers a domain under a distraction category.
	AddCategoryDomain(category, domain string)

	// AddCategoryApp registers an app name pattern under a category.
	AddCategoryApp(category, app string)

	// AddWhitelistDomain marks a domain as always-work.
	AddWhitelistDomain(domain string)

	// AddWhitelistApp marks an app as always-work.
	AddWhitelistApp(app string)
}

// HistoryStore persists a bounded recent window of session history.
// Implementation: encrypted SQLite (SQLCipher) in the data directory.
type HistoryStore interface {
	// AppendTimeline stores timeline events.
	AppendTimeline(events []TimelineEvent) error

	// SaveSummary stores a summary snapshot taken at the given time.
	SaveSummary(at time.Time, summary SessionSummary) error

	// RecentSummaries returns snapshots taken after the cutoff, newest first.
	RecentSummaries(since time.Time, limit int) ([]SummaryRecord, error)

	// RecentTimeline returns timeline events after the cutoff, oldest first.
	RecentTimeline(since time.Time, limit int) ([]TimelineEvent, error)

	// Prune deletes rows older than the cutoff.
	Prune(olderThan time.Time) error

	// Close releases the database handle.
	Close() error
}

// SummaryRecord is a stored summary snapshot with its capture time.
type SummaryRecord struct {
	At      time.Time
	Summary SessionSummary
}

// KeyProvider abstracts the source of encryption keys.
// Phase 1: file-based key. Phase 2: can move behind a keychain.
type KeyProvider interface {
	// GetKey returns the encryption key bytes.
	GetKey() ([]byte, error)

	// StoreKey persists a new encryption key.
	StoreKey(key []byte) error

	// KeyExists checks if a key has been generated.
	KeyExists() bool
}
