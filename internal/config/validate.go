package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"noticebot/internal/task/scheduler"
)

// Validate checks required fields and that every duration, timezone and
// schedule parses. It returns all problems joined.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		add(errors.New("telegram.token is required"))
	}
	_, err := ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout)
	add(err)
	if gl := strings.TrimSpace(cfg.Telegram.GroupLog); gl != "" {
		if _, _, err := ParseGroupLog(gl); err != nil {
			add(fmt.Errorf("telegram.group_log: %w", err))
		}
	}

	if strings.TrimSpace(cfg.Source.URL) == "" {
		add(errors.New("source.url is required"))
	} else if u, err := url.Parse(cfg.Source.URL); err != nil || u.Scheme == "" || u.Host == "" {
		add(fmt.Errorf("source.url: invalid absolute url %q", cfg.Source.URL))
	}
	_, err = ParseDurationField("source.timeout", cfg.Source.Timeout)
	add(err)
	_, err = ParseDurationField("source.retry_delay", cfg.Source.RetryDelay)
	add(err)
	if cfg.Source.RetryAttempts < 0 {
		add(errors.New("source.retry_attempts must be >= 0"))
	}

	if ps, err := scheduler.ParseSchedule(cfg.Scheduler.IntervalOrDefault()); err != nil {
		add(fmt.Errorf("scheduler.interval: %w", err))
	} else if _, err := ps.Build(); err != nil {
		add(fmt.Errorf("scheduler.interval: %w", err))
	}
	if _, err := LoadLocation(cfg.Scheduler.Timezone); err != nil {
		add(fmt.Errorf("scheduler.timezone: %w", err))
	}
	_, err = ParseDurationField("scheduler.cycle_timeout", cfg.Scheduler.CycleTimeout)
	add(err)

	if cfg.Broadcast.RatePerSec < 0 {
		add(errors.New("broadcast.rate_per_sec must be >= 0"))
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case "", "file", "json", "sqlite", "sqlite3":
	default:
		add(fmt.Errorf("storage.driver: unknown driver %q", cfg.Storage.Driver))
	}
	if strings.TrimSpace(cfg.Storage.Path) == "" {
		add(errors.New("storage.path is required"))
	}
	_, err = ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	add(err)

	return errors.Join(errs...)
}

// LoadLocation resolves an IANA timezone name. Empty means the local zone.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}

// ParseGroupLog parses "chat_id" or "chat_id:thread_id".
func ParseGroupLog(s string) (int64, int, error) {
	s = strings.TrimSpace(s)
	chatPart, threadPart, hasThread := strings.Cut(s, ":")
	chatID, err := strconv.ParseInt(strings.TrimSpace(chatPart), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid chat id %q", chatPart)
	}
	if !hasThread {
		return chatID, 0, nil
	}
	threadID, err := strconv.Atoi(strings.TrimSpace(threadPart))
	if err != nil || threadID < 0 {
		return 0, 0, fmt.Errorf("invalid thread id %q", threadPart)
	}
	return chatID, threadID, nil
}
