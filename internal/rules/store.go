package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/aura_mon/internal/domain"
)

// Category names as they appear in the rules file.
const (
	CategorySocialMedia   = "Social Media"
	CategoryEntertainment = "Entertainment"
	CategoryGames         = "Games"
	CategoryNews          = "News"
	CategoryCommunication = "Communication"
	CategoryWorkWhitelist = "Work Whitelist"
)

// DefaultCategories returns the stock category list for new rule files.
func DefaultCategories() []string {
	return []string{
		CategorySocialMedia,
		CategoryEntertainment,
		CategoryGames,
		CategoryNews,
		CategoryCommunication,
		CategoryWorkWhitelist,
	}
}

const (
	fileVersion = 1
	timeLayout  = "2006-01-02T15:04:05Z"
)

type ruleFile struct {
	Version    int         `json:"version"`
	Categories []string    `json:"categories"`
	Entries    []fileEntry `json:"entries"`
	UpdatedAt  string      `json:"updated_at"`
}

type fileEntry struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Value    string `json:"value"`
	Category string `json:"category"`
	Match    string `json:"match"`
	Enabled  *bool  `json:"enabled"`
	Priority string `json:"priority"`
	Notes    string `json:"notes"`
}

// toEntry sanitizes a raw file entry. Entries without a type or value are
// dropped rather than failing the whole load.
func (fe fileEntry) toEntry() (Entry, bool) {
	if strings.TrimSpace(fe.Type) == "" || strings.TrimSpace(fe.Value) == "" {
		return Entry{}, false
	}
	e := Entry{
		ID:       fe.ID,
		Type:     EntryType(strings.ToLower(fe.Type)),
		Value:    strings.TrimSpace(fe.Value),
		Category: fe.Category,
		Match:    MatchMode(fe.Match),
		Enabled:  fe.Enabled == nil || *fe.Enabled,
		Priority: Priority(fe.Priority),
		Notes:    fe.Notes,
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Category == "" {
		e.Category = CategoryEntertainment
	}
	if e.Match == "" {
		e.Match = MatchExact
	}
	if e.Priority == "" {
		e.Priority = PriorityNormal
	}
	return e, true
}

// Store manages the persisted rule list with atomic writes.
type Store struct {
	mu         sync.Mutex
	path       string
	version    int
	categories []string
	entries    []Entry
	updatedAt  time.Time
	logger     *zap.Logger
}

// NewStore loads the rule list at path, seeding the stock rule set when the
// file is missing or unreadable.
func NewStore(path string, logger *zap.Logger) *Store {
	s := &Store{
		path:       path,
		version:    fileVersion,
		categories: DefaultCategories(),
		logger:     logger,
	}
	if _, err := os.Stat(path); err == nil {
		if err := s.loadFrom(path); err != nil {
			logger.Warn("failed to load rules, using defaults",
				zap.String("path", path), zap.Error(err))
			s.seedDefaults()
		}
	} else {
		s.seedDefaults()
	}
	return s
}

// Path returns the store's backing file path.
func (s *Store) Path() string {
	return s.path
}

// Categories returns the known category names.
func (s *Store) Categories() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.categories))
	copy(out, s.categories)
	return out
}

// List returns a sorted copy: by type, then priority, category and value.
func (s *Store) List() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if pa, pb := priorityRank(a.Priority), priorityRank(b.Priority); pa != pb {
			return pa < pb
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return strings.ToLower(a.Value) < strings.ToLower(b.Value)
	})
	return out
}

// Add validates and appends a new entry, filling the id when empty. An entry
// with the same type and value (case-insensitive) is rejected as a duplicate.
func (s *Store) Add(e Entry) (Entry, error) {
	if err := e.Validate(); err != nil {
		return Entry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.entries {
		if existing.Type == e.Type && strings.EqualFold(existing.Value, e.Value) {
			return Entry{}, fmt.Errorf("%w: %s %q", ErrDuplicateEntry, e.Type, e.Value)
		}
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	s.entries = append(s.entries, e)
	s.touch()
	return e, nil
}

// Update replaces the entry with the given id, preserving the id.
func (s *Store) Update(id string, e Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].ID == id {
			e.ID = id
			s.entries[i] = e
			s.touch()
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
}

// Delete removes the entry with the given id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			s.touch()
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
}

// MatchText finds the first website or keyword entry matching the text.
// Candidates rank high before normal before low priority, and exact before
// contains before regex within a rank.
func (s *Store) MatchText(text string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := make([]int, 0, len(s.entries))
	for i := range s.entries {
		e := &s.entries[i]
		if e.Enabled && (e.Type == TypeKeyword || e.Type == TypeWebsite) {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ea, eb := &s.entries[idx[a]], &s.entries[idx[b]]
		if pa, pb := priorityRank(ea.Priority), priorityRank(eb.Priority); pa != pb {
			return pa < pb
		}
		if ma, mb := matchRank(ea.Match), matchRank(eb.Match); ma != mb {
			return ma < mb
		}
		return ea.Value < eb.Value
	})

	for _, i := range idx {
		if s.entries[i].Matches(text) {
			return s.entries[i], true
		}
	}
	return Entry{}, false
}

// MatchApp finds an app entry matching the name, exact matches first.
func (s *Store) MatchApp(app string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		e := &s.entries[i]
		if e.Enabled && e.Type == TypeApp && e.Match == MatchExact && e.Matches(app) {
			return *e, true
		}
	}
	for i := range s.entries {
		e := &s.entries[i]
		if e.Enabled && e.Type == TypeApp && e.Match != MatchExact && e.Matches(app) {
			return *e, true
		}
	}
	return Entry{}, false
}

// ApplyTo pushes enabled website and app entries into the rule target.
// Keyword entries stay in the store; callers consult MatchText for those.
func (s *Store) ApplyTo(target domain.RuleTarget) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if !e.Enabled {
			continue
		}
		switch e.Type {
		case TypeWebsite:
			switch e.Category {
			case CategorySocialMedia:
				target.AddCategoryDomain(domain.CategorySocial, e.Value)
			case CategoryEntertainment:
				target.AddCategoryDomain(domain.CategoryEntertainment, e.Value)
			case CategoryNews:
				target.AddCategoryDomain(domain.CategoryNews, e.Value)
			case CategoryCommunication:
				target.AddCategoryDomain(domain.CategoryCommunicationPersonal, e.Value)
			case CategoryWorkWhitelist:
				target.AddWhitelistDomain(e.Value)
			}
		case TypeApp:
			switch e.Category {
			case CategoryGames:
				target.AddCategoryApp(domain.CategoryGaming, e.Value)
			case CategoryCommunication:
				target.AddCategoryApp(domain.CategoryCommunicationPersonal, e.Value)
			case CategoryWorkWhitelist:
				target.AddWhitelistApp(e.Value)
			}
		}
	}
	s.logger.Debug("applied rules", zap.Int("entries", len(s.entries)))
}

// Save writes the rule list atomically to the store's path.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveTo(s.path)
}

// Export writes a copy of the rule list to path.
func (s *Store) Export(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveTo(path)
}

// Import replaces the in-memory rule list with the contents of path.
// The store keeps writing to its own path.
func (s *Store) Import(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadFrom(path); err != nil {
		return err
	}
	s.touch()
	return nil
}

func (s *Store) loadFrom(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read rules file: %w", err)
	}

	var raw ruleFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse rules file: %w", err)
	}

	entries := make([]Entry, 0, len(raw.Entries))
	for _, fe := range raw.Entries {
		if e, ok := fe.toEntry(); ok {
			entries = append(entries, e)
		}
	}

	s.version = raw.Version
	if s.version == 0 {
		s.version = fileVersion
	}
	if len(raw.Categories) > 0 {
		s.categories = raw.Categories
	} else {
		s.categories = DefaultCategories()
	}
	s.entries = entries
	if t, err := time.Parse(timeLayout, raw.UpdatedAt); err == nil {
		s.updatedAt = t
	} else {
		s.updatedAt = time.Now().UTC()
	}
	return nil
}

func (s *Store) saveTo(path string) error {
	s.touch()
	raw := ruleFile{
		Version:    s.version,
		Categories: s.categories,
		Entries:    make([]fileEntry, 0, len(s.entries)),
		UpdatedAt:  s.updatedAt.Format(timeLayout),
	}
	for _, e := range s.entries {
		enabled := e.Enabled
		raw.Entries = append(raw.Entries, fileEntry{
			ID:       e.ID,
			Type:     string(e.Type),
			Value:    e.Value,
			Category: e.Category,
			Match:    string(e.Match),
			Enabled:  &enabled,
			Priority: string(e.Priority),
			Notes:    e.Notes,
		})
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal rules: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create rules directory: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write rules file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace rules file: %w", err)
	}
	return nil
}

// seedDefaults installs the stock rule set for first runs.
func (s *Store) seedDefaults() {
	type seed struct {
		typ      EntryType
		value    string
		category string
	}
	seeds := []seed{
		{TypeWebsite, "instagram.com", CategorySocialMedia},
		{TypeWebsite, "facebook.com", CategorySocialMedia},
		{TypeWebsite, "twitter.com", CategorySocialMedia},
		{TypeWebsite, "x.com", CategorySocialMedia},
		{TypeWebsite, "reddit.com", CategorySocialMedia},
		{TypeWebsite, "youtube.com", CategoryEntertainment},
		{TypeWebsite, "tiktok.com", CategoryEntertainment},
		{TypeWebsite, "netflix.com", CategoryEntertainment},
		{TypeWebsite, "primevideo.com", CategoryEntertainment},
		{TypeApp, "steam.exe", CategoryGames},
		{TypeApp, "valorant.exe", CategoryGames},
		{TypeApp, "discord.exe", CategoryCommunication},
	}

	entries := make([]Entry, 0, len(seeds))
	for _, sd := range seeds {
		match := MatchExact
		if sd.typ == TypeWebsite {
			match = MatchContains
		}
		entries = append(entries, Entry{
			ID:       uuid.NewString(),
			Type:     sd.typ,
			Value:    sd.value,
			Category: sd.category,
			Match:    match,
			Enabled:  true,
			Priority: PriorityNormal,
		})
	}
	s.entries = entries
	s.touch()
}

func (s *Store) touch() {
	s.updatedAt = time.Now().UTC()
}

func priorityRank(p Priority) int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityLow:
		return 2
	default:
		return 1
	}
}

func matchRank(m MatchMode) int {
	switch m {
	case MatchExact:
		return 0
	case MatchRegex:
		return 2
	default:
		return 1
	}
}
