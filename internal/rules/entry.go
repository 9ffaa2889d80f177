// Package rules manages the user-editable distraction rule list: typed
// entries bound to categories, persisted as JSON and pushed into the
// classifier at session start.
package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// EntryType says what kind of thing an entry's value names.
type EntryType string

const (
	TypeApp     EntryType = "app"
	TypeWebsite EntryType = "website"
	TypeKeyword EntryType = "keyword"
)

// MatchMode selects how an entry's value is compared against text.
type MatchMode string

const (
	MatchExact    MatchMode = "exact"
	MatchContains MatchMode = "contains"
	MatchRegex    MatchMode = "regex"
)

// Priority orders entries when several could match.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

var (
	// ErrDuplicateEntry means an entry with the same type and value already exists.
	ErrDuplicateEntry = errors.New("entry already exists")

	// ErrEntryNotFound means no entry carries the requested id.
	ErrEntryNotFound = errors.New("entry not found")

	// ErrInvalidEntry means an entry field failed validation.
	ErrInvalidEntry = errors.New("invalid entry")

	// ErrInvalidPattern means a regex value does not compile.
	ErrInvalidPattern = errors.New("invalid pattern")
)

// Entry is one user rule: an app name, website domain or title keyword
// bound to a category.
type Entry struct {
	ID       string    `json:"id"`
	Type     EntryType `json:"type"`
	Value    string    `json:"value"`
	Category string    `json:"category"`
	Match    MatchMode `json:"match"`
	Enabled  bool      `json:"enabled"`
	Priority Priority  `json:"priority"`
	Notes    string    `json:"notes"`

	re *regexp.Regexp
}

// Validate normalizes defaults, checks the fields and compiles the pattern
// for regex mode.
func (e *Entry) Validate() error {
	switch e.Type {
	case TypeApp, TypeWebsite, TypeKeyword:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEntry, e.Type)
	}

	e.Value = strings.TrimSpace(e.Value)
	if e.Value == "" {
		return fmt.Errorf("%w: value is required", ErrInvalidEntry)
	}

	switch e.Match {
	case "":
		e.Match = MatchExact
	case MatchExact, MatchContains, MatchRegex:
	default:
		return fmt.Errorf("%w: unknown match mode %q", ErrInvalidEntry, e.Match)
	}

	switch e.Priority {
	case "":
		e.Priority = PriorityNormal
	case PriorityHigh, PriorityNormal, PriorityLow:
	default:
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidEntry, e.Priority)
	}

	if e.Type == TypeApp && e.Match == MatchExact && !strings.HasSuffix(strings.ToLower(e.Value), ".exe") {
		return fmt.Errorf("%w: app name should end with .exe for exact match", ErrInvalidEntry)
	}
	if e.Type == TypeWebsite && e.Match != MatchRegex && !strings.Contains(e.Value, ".") {
		return fmt.Errorf("%w: website should be a domain like example.com", ErrInvalidEntry)
	}

	if e.Match == MatchRegex {
		re, err := regexp.Compile("(?i)" + e.Value)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPattern, err)
		}
		e.re = re
	}
	return nil
}

// Matches reports whether text satisfies this rule. Disabled entries never
// match, and a regex that fails to compile matches nothing.
func (e *Entry) Matches(text string) bool {
	if !e.Enabled {
		return false
	}
	switch e.Match {
	case MatchExact:
		return strings.EqualFold(text, e.Value)
	case MatchContains:
		return strings.Contains(strings.ToLower(text), strings.ToLower(e.Value))
	case MatchRegex:
		if e.re == nil {
			re, err := regexp.Compile("(?i)" + e.Value)
			if err != nil {
				return false
			}
			e.re = re
		}
		return e.re.MatchString(text)
	}
	return false
}
