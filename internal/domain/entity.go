// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import "time"

// EventKind identifies the type of activity event emitted by the estimator.
type EventKind string

const (
	EventAppSwitch    EventKind = "app_switch"
	EventIdleState    EventKind = "idle_state"
	EventInput        EventKind = "input"
	EventScreenChange EventKind = "screen_change"
	EventFocusChange  EventKind = "focus_change"
)

// FocusReason explains why the estimator settled on a focus verdict.
type FocusReason string

const (
	ReasonFocused    FocusReason = "focused"
	ReasonIdle       FocusReason = "idle"
	ReasonDistracted FocusReason = "distracted"
	ReasonReading    FocusReason = "reading"
	ReasonSystem     FocusReason = "system"
	ReasonBreak      FocusReason = "break"
)

// ActivityEvent is a single observation from the estimator loop.
// TS is unix milliseconds; every event on the pipeline carries one.
type ActivityEvent struct {
	TS      int64
	Kind    EventKind
	Payload map[string]any
}

// Str returns a string payload field, or "" when absent or mistyped.
func (e ActivityEvent) Str(key string) string {
	if v, ok := e.Payload[key].(string); ok {
		return v
	}
	return ""
}

// Bool returns a bool payload field, or false when absent or mistyped.
func (e ActivityEvent) Bool(key string) bool {
	if v, ok := e.Payload[key].(bool); ok {
		return v
	}
	return false
}

// Float returns a numeric payload field, or 0 when absent or mistyped.
func (e ActivityEvent) Float(key string) float64 {
	switch v := e.Payload[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// FocusState is the estimator's current verdict plus the window it was made on.
type FocusState struct {
	Focused     bool        `json:"focused"`
	Reason      FocusReason `json:"reason"`
	WindowTitle string      `json:"window_title,omitempty"`
	AppName     string      `json:"app_name,omitempty"`
}

// Same reports whether two states are the same verdict.
// Only (Focused, Reason) participate; title/app churn alone is not a focus change.
func (s FocusState) Same(other FocusState) bool {
	return s.Focused == other.Focused && s.Reason == other.Reason
}

// Distraction categories assigned by the classifier.
const (
	CategoryWork                  = "work"
	CategorySocial                = "social"
	CategoryEntertainment         = "entertainment"
	CategoryNews                  = "news"
	CategoryGaming                = "gaming"
	CategoryCommunicationPersonal = "communication_personal"
	CategoryYouTubeShorts         = "youtube_shorts"
	CategoryOther                 = "other"
	CategoryBreak                 = "break"
)

// Subcategories refine a category verdict (e.g. work/communication_work).
const (
	SubcatCommunicationWork = "communication_work"
	SubcatEducationalVideo  = "educational_video"
	SubcatVideo             = "video"
	SubcatWorkBrowsing      = "work_browsing"
	SubcatYouTubeShorts     = "youtube_shorts"
)

// DistractingCategories is the closed set of categories counted as distractions.
// Everything else (work, other, break) is benign by default.
var DistractingCategories = map[string]bool{
	CategorySocial:                true,
	CategoryEntertainment:         true,
	CategoryNews:                  true,
	CategoryGaming:                true,
	CategoryCommunicationPersonal: true,
	CategoryYouTubeShorts:         true,
}

// ClassificationResult is the outcome of one classifier observation.
// Produced fresh per Observe call; DurationS is dwell time in Category,
// not wall-clock session time.
type ClassificationResult struct {
	Distracted    bool
	Category      string
	Confidence    float64  // rounded to 2 decimals
	Reasons       []string // ordered tags explaining the verdict
	MatchedApp    string
	MatchedDomain string
	Subcategory   string
	DurationS     float64 // 0.0 on the call that switches category
}

// HasReason reports whether a reason tag was attached to the result.
func (r ClassificationResult) HasReason(tag string) bool {
	for _, t := range r.Reasons {
		if t == tag {
			return true
		}
	}
	return false
}

// SessionState is the binary state the ledger accounts time against.
type SessionState string

const (
	StateFocused   SessionState = "focused"
	StateUnfocused SessionState = "unfocused"
)

// TimelineEvent records one state transition in the session timeline.
type TimelineEvent struct {
	At    time.Time    `json:"at"`
	State SessionState `json:"state"`
	App   string       `json:"app,omitempty"`
	Title string       `json:"title,omitempty"`
}

// UsageBucket accumulates per-app focused/unfocused durations.
type UsageBucket struct {
	Focused   time.Duration `json:"focused"`
	Unfocused time.Duration `json:"unfocused"`
}

// SessionSummary is a point-in-time copy of the ledger totals.
type SessionSummary struct {
	StartedAt time.Time              `json:"started_at"`
	Focused   time.Duration          `json:"focused"`
	Unfocused time.Duration          `json:"unfocused"`
	Total     time.Duration          `json:"total"`
	Paused    bool                   `json:"paused"`
	Apps      map[string]UsageBucket `json:"apps,omitempty"`
}

// Notification is a composed user-facing nudge, delivery left to a Notifier.
type Notification struct {
	Title   string
	Message string
	Timeout time.Duration
}

// RunState is the daemon's status snapshot, written atomically to a small file
// so the status command (or an external indicator) can read it without IPC.
type RunState struct {
	PID        int        `json:"pid"`
	StartedAt  time.Time  `json:"started_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	AppVersion string     `json:"app_version,omitempty"`
	Focus      FocusState `json:"focus"`
	FocusedS   float64    `json:"focused_s"`
	UnfocusedS float64    `json:"unfocused_s"`
}
