package app

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"noticebot/internal/config"
	"noticebot/internal/services/fetcher"
	"noticebot/internal/storage"
	"noticebot/internal/task/scheduler"
	logx "noticebot/pkg/logx"
)

const (
	defaultPollTimeout  = 10 * time.Second
	defaultBusyTimeout  = time.Second
	defaultCycleTimeout = 5 * time.Minute
	defaultSendRate     = 20
)

func logConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			ThreadID:   cfg.Logging.Telegram.ThreadID,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

// logTarget resolves the chat and thread of the Telegram log sink. A thread
// in group_log wins over logging.telegram.thread_id.
func logTarget(cfg *config.Config) (chatID int64, threadID int, ok bool) {
	gl := strings.TrimSpace(cfg.Telegram.GroupLog)
	if gl == "" {
		return 0, 0, false
	}
	chatID, threadID, err := config.ParseGroupLog(gl)
	if err != nil {
		return 0, 0, false
	}
	if threadID == 0 {
		threadID = cfg.Logging.Telegram.ThreadID
	}
	return chatID, threadID, true
}

func storageConfig(cfg *config.Config) (storage.Config, error) {
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	if driver == "" {
		driver = "file"
	}
	out := storage.Config{Driver: driver, Path: strings.TrimSpace(sc.Path)}
	if out.Path == "" {
		return storage.Config{}, fmt.Errorf("storage.path is required")
	}
	if driver == "sqlite" || driver == "sqlite3" {
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, defaultBusyTimeout)
		if err != nil {
			return storage.Config{}, err
		}
		out.BusyTimeout = busy
	}
	return out, nil
}

func fetcherConfig(cfg *config.Config) (fetcher.Config, error) {
	src := cfg.Source
	timeout, err := config.ParseDurationField("source.timeout", src.Timeout)
	if err != nil {
		return fetcher.Config{}, err
	}
	delay, err := config.ParseDurationField("source.retry_delay", src.RetryDelay)
	if err != nil {
		return fetcher.Config{}, err
	}
	// zero values fall back to fetcher defaults
	return fetcher.Config{
		URL:             strings.TrimSpace(src.URL),
		SectionSelector: src.Selector,
		ItemSelector:    src.ItemSelector,
		UserAgent:       src.UserAgent,
		Timeout:         timeout,
		Attempts:        src.RetryAttempts,
		RetryDelay:      delay,
	}, nil
}

// baseURL is where "../" links are resolved: source.base_url, or the
// scheme and host of source.url.
func baseURL(cfg *config.Config) (string, error) {
	if b := strings.TrimSpace(cfg.Source.BaseURL); b != "" {
		return b, nil
	}
	u, err := url.Parse(strings.TrimSpace(cfg.Source.URL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("source.url: invalid absolute url %q", cfg.Source.URL)
	}
	return u.Scheme + "://" + u.Host + "/", nil
}

func schedulerConfig(cfg *config.Config) (scheduler.Config, error) {
	loc, err := config.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		return scheduler.Config{}, fmt.Errorf("scheduler.timezone: %w", err)
	}
	timeout, err := config.ParseDurationOrDefault("scheduler.cycle_timeout", cfg.Scheduler.CycleTimeout, defaultCycleTimeout)
	if err != nil {
		return scheduler.Config{}, err
	}
	return scheduler.Config{
		Schedule:     cfg.Scheduler.IntervalOrDefault(),
		Location:     loc,
		RunOnStart:   cfg.Scheduler.RunOnStartOrDefault(),
		CycleTimeout: timeout,
	}, nil
}

func sendRate(cfg *config.Config) int {
	if cfg.Broadcast.RatePerSec > 0 {
		return cfg.Broadcast.RatePerSec
	}
	return defaultSendRate
}

func welcomeText(cfg *config.Config) string {
	if w := strings.TrimSpace(cfg.Broadcast.Welcome); w != "" {
		return w
	}
	return config.DefaultWelcome
}

// checkDerived rejects a reloaded config whose component settings would
// fail to build on the next restart.
func checkDerived(cfg *config.Config) error {
	_, serr := storageConfig(cfg)
	_, ferr := fetcherConfig(cfg)
	_, berr := baseURL(cfg)
	_, cerr := schedulerConfig(cfg)
	return errors.Join(serr, ferr, berr, cerr)
}
