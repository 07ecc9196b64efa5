package config

import "strings"

type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Logging   LoggingConfig   `json:"logging"`
	Source    SourceConfig    `json:"source"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Broadcast BroadcastConfig `json:"broadcast"`
	Storage   StorageConfig   `json:"storage"`
}

type TelegramConfig struct {
	Token        string  `json:"token"`
	OwnerUserIDs []int64 `json:"owner_user_ids"`
	// GroupLog is "chat_id" or "chat_id:thread_id" for the log sink.
	GroupLog string `json:"group_log"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ThreadID   int    `json:"thread_id"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// SourceConfig describes the page that is scraped.
//
// Example:
//
//	"source": {
//	  "url": "https://example.org/index.php",
//	  "base_url": "https://example.org/",
//	  "timeout": "20s"
//	}
type SourceConfig struct {
	URL string `json:"url"`
	// BaseURL resolves "../" links. Defaults to URL's scheme and host.
	BaseURL       string `json:"base_url,omitempty"`
	Selector      string `json:"selector,omitempty"`
	ItemSelector  string `json:"item_selector,omitempty"`
	Timeout       string `json:"timeout,omitempty"`
	RetryAttempts int    `json:"retry_attempts,omitempty"`
	RetryDelay    string `json:"retry_delay,omitempty"`
	UserAgent     string `json:"user_agent,omitempty"`
}

type SchedulerConfig struct {
	// Interval accepts a Go duration, HH:MM, "@every 1h" or a cron expression.
	Interval string `json:"interval"`
	// Timezone decides the calendar date of ingested notices (IANA name).
	Timezone string `json:"timezone,omitempty"`
	// RunOnStart runs a cycle immediately at startup. Defaults to true.
	RunOnStart   *bool  `json:"run_on_start,omitempty"`
	CycleTimeout string `json:"cycle_timeout,omitempty"`
}

type BroadcastConfig struct {
	RatePerSec     int    `json:"rate_per_sec"`
	DisablePreview bool   `json:"disable_preview"`
	// Welcome is plain text; markup characters are escaped before sending.
	Welcome        string `json:"welcome,omitempty"`
}

// StorageConfig selects the persistence driver.
//
//	"storage": { "driver": "file", "path": "./data" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
}

const DefaultWelcome = "You have subscribed to notice updates. Today's notices follow."

// DefaultInterval is the poll schedule when scheduler.interval is omitted.
const DefaultInterval = "1h"

// IntervalOrDefault returns the trimmed interval, or DefaultInterval when empty.
func (s SchedulerConfig) IntervalOrDefault() string {
	if v := strings.TrimSpace(s.Interval); v != "" {
		return v
	}
	return DefaultInterval
}

// RunOnStartOrDefault reports the effective run_on_start setting.
func (s SchedulerConfig) RunOnStartOrDefault() bool {
	if s.RunOnStart == nil {
		return true
	}
	return *s.RunOnStart
}
