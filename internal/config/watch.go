package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/fsnotify/fsnotify"

	logx "noticebot/pkg/logx"
)

// Validator is an extra check a reloaded config must pass before commit.
type Validator func(ctx context.Context, cfg *Config) error

const (
	watchDebounce   = 250 * time.Millisecond
	watchRetryDelay = 250 * time.Millisecond
	watchRetryMax   = 5 * time.Second
	validateTimeout = 5 * time.Second
)

// SetValidator installs fn as the extra reload check.
func (m *ConfigManager) SetValidator(fn Validator) { m.validator = fn }

// Watch reloads the file after it changes until ctx ends. Bursts of events
// are debounced. A failing watcher is recreated with backoff.
func (m *ConfigManager) Watch(ctx context.Context) error {
	dir, file := filepath.Split(m.path)
	if dir == "" {
		dir = "."
	}
	log := m.log.With(logx.String("dir", dir))

	for ctx.Err() == nil {
		var w *fsnotify.Watcher
		err := retry.Do(
			func() error {
				nw, err := fsnotify.NewWatcher()
				if err != nil {
					return err
				}
				if err := nw.Add(dir); err != nil {
					_ = nw.Close()
					return err
				}
				w = nw
				return nil
			},
			retry.Attempts(10),
			retry.Delay(watchRetryDelay),
			retry.MaxDelay(watchRetryMax),
			retry.MaxJitter(watchRetryDelay),
			retry.Context(ctx),
			retry.LastErrorOnly(true),
			retry.OnRetry(func(n uint, err error) {
				log.Warn("config watch setup failed; retrying", logx.Uint64("attempt", uint64(n)+1), logx.Err(err))
			}),
		)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error("config watch unavailable", logx.Err(err))
			continue
		}

		log.Debug("config watcher started", logx.String("file", file))
		err = m.watchEvents(ctx, w, file)
		_ = w.Close()
		if ctx.Err() != nil {
			return nil
		}
		log.Warn("config watcher stopped; restarting", logx.Err(err))
	}
	return nil
}

// watchEvents reloads once the file has been quiet for watchDebounce. It
// returns when ctx ends or the watcher breaks.
func (m *ConfigManager) watchEvents(ctx context.Context, w *fsnotify.Watcher, file string) error {
	quiet := time.NewTimer(watchDebounce)
	quiet.Stop()
	defer quiet.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-quiet.C:
			m.reload(ctx)
		case ev, ok := <-w.Events:
			if !ok {
				return errors.New("events channel closed")
			}
			if strings.EqualFold(filepath.Base(ev.Name), file) {
				quiet.Reset(watchDebounce)
			}
		case err, ok := <-w.Errors:
			switch {
			case !ok:
				return errors.New("errors channel closed")
			case errors.Is(err, fsnotify.ErrEventOverflow):
				m.log.Warn("config watch overflow; forcing reload", logx.Err(err))
				quiet.Reset(watchDebounce)
			case err != nil:
				m.log.Warn("config watch error", logx.Err(err))
			}
		}
	}
}

// reload commits and publishes the file if it changed and passes both
// Validate and the installed Validator. Failures keep the old config.
func (m *ConfigManager) reload(ctx context.Context) {
	log := m.log.With(logx.String("path", m.path))
	cfg, err := m.Parse()
	if err != nil {
		log.Warn("config parse failed", logx.Err(err))
		return
	}
	h := fingerprint(cfg)
	if m.isCommitted(h) {
		log.Debug("config unchanged")
		return
	}
	if err := m.check(ctx, cfg); err != nil {
		log.Warn("config rejected", logx.Err(err))
		return
	}
	m.Commit(cfg)
	m.publish(cfg)
	log.Debug("config published", logx.String("hash", fmt.Sprintf("%016x", h)))
}

func (m *ConfigManager) check(ctx context.Context, cfg *Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	if m.validator == nil {
		return nil
	}
	vctx, cancel := context.WithTimeout(ctx, validateTimeout)
	defer cancel()
	return m.validator(vctx, cfg)
}
