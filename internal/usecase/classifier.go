// Package usecase contains application business logic.
package usecase

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/aura_mon/internal/domain"
)

// ClassifierConfig holds the rule sets and time constants the classifier
// consults. All entries are lowercase. Sets may be mutated live through the
// RuleTarget methods while observations run on another goroutine.
type ClassifierConfig struct {
	SocialDomains        []string
	EntertainmentDomains []string
	NewsDomains          []string
	CommunicationDomains []string
	CommunicationApps    []string
	BrowserApps          []string
	GamingApps           []string

	YouTubeEduKeywords []string
	WorkKeywords       []string
	WorkDomains        []string

	WhitelistDomains []string
	WhitelistApps    []string

	// Time heuristics (seconds)
	BriefCheckS            int
	RepeatedVisitWindowS   int
	RepeatedVisitThreshold int
}

// DefaultClassifierConfig returns the built-in rule sets.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		SocialDomains: []string{
			"instagram.com", "facebook.com", "fb.com", "twitter.com", "x.com",
			"reddit.com", "snapchat.com", "threads.net",
		},
		EntertainmentDomains: []string{
			"youtube.com", "youtu.be", "tiktok.com", "netflix.com",
			"primevideo.com", "hotstar.com", "disneyplus.com",
			"disneyplus.hotstar.com", "twitch.tv", "spotify.com", "soundcloud.com",
		},
		NewsDomains: []string{
			"cnn.com", "bbc.com", "nytimes.com", "theguardian.com",
			"indiatimes.com", "hindustantimes.com", "indianexpress.com",
			"washingtonpost.com", "wsj.com", "reuters.com",
		},
		CommunicationDomains: []string{
			"slack.com", "teams.microsoft.com", "outlook.office.com",
			"outlook.live.com", "mail.google.com", "discord.com",
			"web.telegram.org", "web.whatsapp.com", "zoom.us",
		},
		CommunicationApps: []string{
			"slack.exe", "ms-teams.exe", "teams.exe", "outlook.exe", "zoom.exe",
			"discord.exe", "telegram.exe", "whatsapp.exe", "skype.exe",
		},
		BrowserApps: []string{
			"chrome.exe", "msedge.exe", "firefox.exe", "brave.exe", "opera.exe",
			"opera_gx.exe", "vivaldi.exe",
		},
		GamingApps: []string{
			"steam.exe", "epicgameslauncher.exe", "valorant.exe", "cs2.exe",
			"csgo.exe", "minecraft.exe",
		},
		YouTubeEduKeywords: []string{
			"tutorial", "course", "lecture", "how to", "explained",
			"crash course", "walkthrough", "guide", "documentation",
			"khan academy", "freecodecamp", "mit", "stanford", "coursera", "edx",
		},
		WorkKeywords: []string{
			"standup", "sprint", "retro", "review", "planning", "design",
			"spec", "meeting", "client", "jira", "asana", "trello", "github",
			"gitlab", "bitbucket", "ticket", "project",
		},
		BriefCheckS:            15,
		RepeatedVisitWindowS:   10 * 60,
		RepeatedVisitThreshold: 3,
	}
}

var (
	urlDomainRe    = regexp.MustCompile(`^[a-zA-Z]+://([^/]+)/?`)
	domainShapedRe = regexp.MustCompile(`([a-z0-9.-]+\.(com|net|org|io|ai|edu|gov|tv|in|co))`)
)

// titleHints are last-resort entertainment markers scanned in window titles.
var titleHints = []string{
	"facebook", "instagram", "twitter", "tiktok", "reddit", "netflix",
	"prime video", "disney+", "hotstar",
}

// Classifier implements domain.Classifier: a stateful per-observation
// categorizer with dwell accounting, repeated-visit detection, brief-check
// downgrade and break-mode short-circuit. Calling Observe is how its internal
// clock advances; all state sits behind one mutex so rule pushes and
// observations may interleave from different goroutines.
type Classifier struct {
	mu  sync.Mutex
	cfg ClassifierConfig

	breakUntilMS int64

	// dwell tracking: category currently being visited and when it started
	currentCategory string
	currentStartMS  int64
	// per-category visit-start history, pruned to the repetition window
	history map[string][]int64

	logger *zap.Logger
}

// NewClassifier creates a classifier with the given rule sets.
func NewClassifier(cfg ClassifierConfig, logger *zap.Logger) *Classifier {
	if cfg.BriefCheckS <= 0 {
		cfg.BriefCheckS = 15
	}
	if cfg.RepeatedVisitWindowS <= 0 {
		cfg.RepeatedVisitWindowS = 10 * 60
	}
	if cfg.RepeatedVisitThreshold <= 0 {
		cfg.RepeatedVisitThreshold = 3
	}
	return &Classifier{
		cfg:     cfg,
		history: make(map[string][]int64),
		logger:  logger,
	}
}

// Observe classifies one observation and updates dwell/history state.
// nowMS 0 means time.Now; url may be empty when no browser integration
// supplies one.
func (c *Classifier) Observe(title, app string, nowMS int64, url string) domain.ClassificationResult {
	if nowMS == 0 {
		nowMS = time.Now().UnixMilli()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.onBreak(nowMS) {
		return domain.ClassificationResult{
			Category:   domain.CategoryBreak,
			Confidence: 0.99,
			Reasons:    []string{"break_active"},
			MatchedApp: app,
		}
	}

	titleL := strings.ToLower(title)
	appL := strings.ToLower(app)

	var dom string
	if url != "" {
		dom = extractDomain(url)
	} else {
		dom = c.matchKnownDomainInTitle(titleL)
	}

	if c.isWhitelisted(appL, dom) {
		return domain.ClassificationResult{
			Category:      domain.CategoryWork,
			Confidence:    0.98,
			Reasons:       []string{"whitelist"},
			MatchedApp:    app,
			MatchedDomain: dom,
		}
	}

	category, subcat, conf, reasons := c.detectCategory(titleL, appL, dom)

	durationS := c.updateDuration(category, nowMS)
	repeated := c.isRepeated(category, nowMS)

	distracted := domain.DistractingCategories[category]
	if distracted && durationS < float64(c.cfg.BriefCheckS) && !repeated {
		// Treat brief first checks as not distracted.
		distracted = false
		reasons = append(reasons, fmt.Sprintf("brief_check<%ds", c.cfg.BriefCheckS))
		conf = math.Max(0.6, conf-0.2)
	}
	if domain.DistractingCategories[category] && repeated {
		reasons = append(reasons, "repeated_pattern")
		conf = math.Min(0.99, conf+0.05)
	}

	return domain.ClassificationResult{
		Distracted:    distracted,
		Category:      category,
		Confidence:    round2(conf),
		Reasons:       reasons,
		MatchedApp:    app,
		MatchedDomain: dom,
		Subcategory:   subcat,
		DurationS:     durationS,
	}
}

// SetBreak starts a break window of the given length from now.
func (c *Classifier) SetBreak(seconds int) {
	if seconds < 0 {
		seconds = 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.breakUntilMS = time.Now().UnixMilli() + int64(seconds)*1000
}

// SetBreakActive enables or disables break mode. durationS 0 falls back to
// the repetition window length.
func (c *Classifier) SetBreakActive(active bool, durationS int) {
	if !active {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.breakUntilMS = 0
		return
	}
	if durationS <= 0 {
		durationS = c.cfg.RepeatedVisitWindowS
	}
	c.SetBreak(durationS)
}

// AddWhitelistApp marks an app as always-work. Append-only.
func (c *Classifier) AddWhitelistApp(app string) {
	v := strings.ToLower(strings.TrimSpace(app))
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.WhitelistApps = appendUnique(c.cfg.WhitelistApps, v)
}

// AddWhitelistDomain marks a domain as always-work. Append-only.
func (c *Classifier) AddWhitelistDomain(dom string) {
	v := strings.ToLower(strings.TrimSpace(dom))
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.WhitelistDomains = appendUnique(c.cfg.WhitelistDomains, v)
}

// AddCategoryDomain registers a domain under a distraction category.
// Unknown categories are logged and dropped rather than guessed at.
func (c *Classifier) AddCategoryDomain(category, dom string) {
	v := strings.ToLower(strings.TrimSpace(dom))
	if v == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	switch category {
	case domain.CategorySocial:
		c.cfg.SocialDomains = appendUnique(c.cfg.SocialDomains, v)
	case domain.CategoryEntertainment:
		c.cfg.EntertainmentDomains = appendUnique(c.cfg.EntertainmentDomains, v)
	case domain.CategoryNews:
		c.cfg.NewsDomains = appendUnique(c.cfg.NewsDomains, v)
	case "communication", domain.CategoryCommunicationPersonal:
		c.cfg.CommunicationDomains = appendUnique(c.cfg.CommunicationDomains, v)
	case domain.CategoryWork:
		c.cfg.WorkDomains = appendUnique(c.cfg.WorkDomains, v)
	default:
		c.logger.Debug("ignoring domain rule for unknown category",
			zap.String("category", category), zap.String("domain", v))
	}
}

// AddCategoryApp registers an app name under a distraction category.
func (c *Classifier) AddCategoryApp(category, app string) {
	v := strings.ToLower(strings.TrimSpace(app))
	if v == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	switch category {
	case domain.CategoryGaming:
		c.cfg.GamingApps = appendUnique(c.cfg.GamingApps, v)
	case "communication", domain.CategoryCommunicationPersonal:
		c.cfg.CommunicationApps = appendUnique(c.cfg.CommunicationApps, v)
	default:
		c.logger.Debug("ignoring app rule for unknown category",
			zap.String("category", category), zap.String("app", v))
	}
}

// ---------- internals ----------

func (c *Classifier) onBreak(nowMS int64) bool {
	return c.breakUntilMS != 0 && nowMS < c.breakUntilMS
}

func extractDomain(url string) string {
	if m := urlDomainRe.FindStringSubmatch(url); len(m) > 1 {
		return strings.ToLower(m[1])
	}
	return ""
}

// matchKnownDomainInTitle scans the title for any configured domain, then
// falls back to anything that looks like a domain.
func (c *Classifier) matchKnownDomainInTitle(titleL string) string {
	for _, set := range [][]string{
		c.cfg.SocialDomains,
		c.cfg.EntertainmentDomains,
		c.cfg.NewsDomains,
		c.cfg.CommunicationDomains,
	} {
		for _, d := range set {
			if d != "" && strings.Contains(titleL, d) {
				return d
			}
		}
	}
	if m := domainShapedRe.FindStringSubmatch(titleL); len(m) > 1 {
		return m[1]
	}
	return ""
}

func (c *Classifier) isWhitelisted(appL, dom string) bool {
	if containsString(c.cfg.WhitelistApps, appL) {
		return true
	}
	return dom != "" && containsString(c.cfg.WhitelistDomains, dom)
}

func (c *Classifier) detectCategory(titleL, appL, dom string) (category, subcat string, conf float64, reasons []string) {
	if containsString(c.cfg.GamingApps, appL) {
		return domain.CategoryGaming, "", 0.95, []string{"gaming_app"}
	}

	if containsString(c.cfg.CommunicationApps, appL) ||
		(dom != "" && containsString(c.cfg.CommunicationDomains, dom)) {
		if c.looksWorkRelated(titleL, dom) {
			return domain.CategoryWork, domain.SubcatCommunicationWork, 0.85, []string{"communication_work"}
		}
		return domain.CategoryCommunicationPersonal, "", 0.9, []string{"communication_personal"}
	}

	isBrowser := containsString(c.cfg.BrowserApps, appL)

	// YouTube special-casing: shorts vs educational vs plain video.
	if (dom != "" && strings.HasSuffix(dom, "youtube.com")) ||
		(isBrowser && strings.Contains(titleL, "youtube")) {
		sub, bump, reason := c.youtubeSubclass(titleL)
		switch sub {
		case domain.SubcatYouTubeShorts:
			return domain.CategoryYouTubeShorts, sub, 0.95 + bump, []string{reason}
		case domain.SubcatEducationalVideo:
			return domain.CategoryWork, sub, 0.85 + bump, []string{reason}
		default:
			return domain.CategoryEntertainment, sub, 0.9 + bump, []string{reason}
		}
	}

	if dom != "" && containsString(c.cfg.SocialDomains, dom) {
		return domain.CategorySocial, "", 0.95, []string{"social_domain"}
	}
	if dom != "" && containsString(c.cfg.EntertainmentDomains, dom) {
		return domain.CategoryEntertainment, "", 0.9, []string{"entertainment_domain"}
	}
	if dom != "" && containsString(c.cfg.NewsDomains, dom) {
		return domain.CategoryNews, "", 0.9, []string{"news_domain"}
	}

	// Title-based hints as a last resort.
	if containsAny(titleL, titleHints) {
		return domain.CategoryEntertainment, "", 0.75, []string{"title_hint"}
	}

	if isBrowser {
		// Unknown browsing gets the benefit of the doubt.
		return domain.CategoryWork, domain.SubcatWorkBrowsing, 0.7, []string{"browser_unknown"}
	}

	return domain.CategoryOther, "", 0.6, []string{"uncategorized"}
}

func (c *Classifier) youtubeSubclass(titleL string) (sub string, bump float64, reason string) {
	if strings.Contains(titleL, "shorts") {
		return domain.SubcatYouTubeShorts, 0.02, "youtube_shorts"
	}
	if containsAny(titleL, c.cfg.YouTubeEduKeywords) {
		return domain.SubcatEducationalVideo, 0.03, "youtube_educational"
	}
	return domain.SubcatVideo, 0.0, "youtube_video"
}

func (c *Classifier) looksWorkRelated(titleL, dom string) bool {
	if dom != "" && containsAny(dom, c.cfg.WorkDomains) {
		return true
	}
	return containsAny(titleL, c.cfg.WorkKeywords)
}

// updateDuration tracks the dwell clock. On a category switch the old
// visit's start timestamp goes into that category's history and the clock
// resets; within the same category it returns elapsed dwell.
func (c *Classifier) updateDuration(category string, tsMS int64) float64 {
	if c.currentCategory != category {
		if c.currentCategory != "" {
			c.recordVisit(c.currentCategory, c.currentStartMS, tsMS)
		}
		c.currentCategory = category
		c.currentStartMS = tsMS
		return 0.0
	}
	return math.Max(0, float64(tsMS-c.currentStartMS)/1000.0)
}

func (c *Classifier) recordVisit(category string, startMS, nowMS int64) {
	visits := append(c.history[category], startMS)
	cutoff := nowMS - int64(c.cfg.RepeatedVisitWindowS)*1000
	kept := visits[:0]
	for _, t := range visits {
		if t >= cutoff {
			kept = append(kept, t)
		}
	}
	c.history[category] = kept
}

// isRepeated counts in-window visits to the category. The visit currently
// in progress counts toward the pattern.
func (c *Classifier) isRepeated(category string, nowMS int64) bool {
	cutoff := nowMS - int64(c.cfg.RepeatedVisitWindowS)*1000
	count := 0
	for _, t := range c.history[category] {
		if t >= cutoff {
			count++
		}
	}
	if c.currentCategory == category {
		count++
	}
	return count >= c.cfg.RepeatedVisitThreshold
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func appendUnique(set []string, v string) []string {
	if v == "" || containsString(set, v) {
		return set
	}
	return append(set, v)
}

// Ensure Classifier implements the domain interfaces.
var (
	_ domain.Classifier = (*Classifier)(nil)
	_ domain.RuleTarget = (*Classifier)(nil)
)
