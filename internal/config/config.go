// Package config loads and validates the application configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full application configuration, loaded from YAML and
// layered over defaults. Sections map one-to-one onto the components.
type Config struct {
	Estimator  EstimatorSection  `yaml:"estimator"`
	Classifier ClassifierSection `yaml:"classifier"`
	Notify     NotifySection     `yaml:"notify"`
	Session    SessionSection    `yaml:"session"`
	History    HistorySection    `yaml:"history"`
	Logging    LoggingSection    `yaml:"logging"`
}

// EstimatorSection tunes the activity poll loop.
type EstimatorSection struct {
	PollIntervalMS  int                          `yaml:"poll_interval_ms"`
	ScreenSampleMS  int                          `yaml:"screen_sample_ms"`
	ScreenDownscale int                          `yaml:"screen_downscale"`
	IdleTimeoutS    int                          `yaml:"idle_timeout_s"`
	ThinkTimeoutS   int                          `yaml:"think_timeout_s"`
	AllowedKeywords []string                     `yaml:"allowed_keywords"`
	AppTimeouts     map[string]AppTimeoutSection `yaml:"app_timeouts"`
}

// AppTimeoutSection overrides timeouts for a single app.
type AppTimeoutSection struct {
	IdleTimeoutS  int `yaml:"idle_timeout_s"`
	ThinkTimeoutS int `yaml:"think_timeout_s"`
}

// ClassifierSection tunes the distraction classifier.
type ClassifierSection struct {
	Enabled                bool `yaml:"enabled"`
	BriefCheckS            int  `yaml:"brief_check_s"`
	RepeatedVisitWindowS   int  `yaml:"repeated_visit_window_s"`
	RepeatedVisitThreshold int  `yaml:"repeated_visit_threshold"`
}

// NotifySection tunes nudge timing and delivery.
type NotifySection struct {
	Enabled             bool  `yaml:"enabled"`
	Desktop             bool  `yaml:"desktop"`
	DistractionDelayS   int   `yaml:"distraction_delay_s"`
	MinIntervalS        int   `yaml:"min_interval_s"`
	RefocusQuietS       int   `yaml:"refocus_quiet_s"`
	EscalateAfterS      []int `yaml:"escalate_after_s"`
	SuppressDuringBreak bool  `yaml:"suppress_during_break"`
}

// SessionSection tunes the pump and persistence cadences.
type SessionSection struct {
	TickIntervalMS int `yaml:"tick_interval_ms"`
	StateIntervalS int `yaml:"state_interval_s"`
	FlushIntervalS int `yaml:"flush_interval_s"`
}

// HistorySection controls the encrypted history database.
type HistorySection struct {
	Enabled       bool   `yaml:"enabled"`
	DataDir       string `yaml:"data_dir"`
	RetentionDays int    `yaml:"retention_days"`
}

// LoggingSection controls log level and rotation.
type LoggingSection struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Estimator: EstimatorSection{
			PollIntervalMS:  500,
			ScreenSampleMS:  1000,
			ScreenDownscale: 4,
			IdleTimeoutS:    300,
			ThinkTimeoutS:   90,
		},
		Classifier: ClassifierSection{
			Enabled:                true,
			BriefCheckS:            15,
			RepeatedVisitWindowS:   600,
			RepeatedVisitThreshold: 3,
		},
		Notify: NotifySection{
			Enabled:             true,
			Desktop:             true,
			DistractionDelayS:   10,
			MinIntervalS:        60,
			RefocusQuietS:       20,
			EscalateAfterS:      []int{45, 120, 300},
			SuppressDuringBreak: true,
		},
		Session: SessionSection{
			TickIntervalMS: 500,
			StateIntervalS: 5,
			FlushIntervalS: 30,
		},
		History: HistorySection{
			Enabled:       true,
			RetentionDays: 30,
		},
		Logging: LoggingSection{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 14,
			Compress:   true,
		},
	}
}

// Load reads the config at path layered over defaults. A missing file is
// not an error; it just yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects values the components cannot clamp into shape.
func (c *Config) Validate() error {
	if c.Estimator.PollIntervalMS < 0 {
		return fmt.Errorf("estimator.poll_interval_ms must not be negative")
	}
	if c.Estimator.ScreenSampleMS < 0 {
		return fmt.Errorf("estimator.screen_sample_ms must not be negative")
	}
	if c.Estimator.IdleTimeoutS < 0 || c.Estimator.ThinkTimeoutS < 0 {
		return fmt.Errorf("estimator timeouts must not be negative")
	}
	if c.Classifier.RepeatedVisitThreshold < 0 {
		return fmt.Errorf("classifier.repeated_visit_threshold must not be negative")
	}
	if c.Notify.DistractionDelayS < 0 || c.Notify.MinIntervalS < 0 || c.Notify.RefocusQuietS < 0 {
		return fmt.Errorf("notify intervals must not be negative")
	}
	for i := 1; i < len(c.Notify.EscalateAfterS); i++ {
		if c.Notify.EscalateAfterS[i] <= c.Notify.EscalateAfterS[i-1] {
			return fmt.Errorf("notify.escalate_after_s must be strictly ascending")
		}
	}
	if c.History.RetentionDays < 0 {
		return fmt.Errorf("history.retention_days must not be negative")
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	return nil
}
