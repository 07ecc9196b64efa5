package config

import (
	"reflect"
	"sort"
	"strings"

	logx "noticebot/pkg/logx"
)

// Sections applied in place on reload. Everything else needs a restart.
var hotSections = map[string]bool{
	"logging":  true,
	"telegram": true, // owners and group_log only; token and poll_timeout need a restart
}

// SummarizeConfigChange returns the changed sections (sorted) and safe
// structured attrs for logging. Secrets such as the token are never included.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 16)
	trim := strings.TrimSpace

	ot, nt := oldCfg.Telegram, newCfg.Telegram
	if trim(ot.Token) != trim(nt.Token) ||
		trim(ot.PollTimeout) != trim(nt.PollTimeout) ||
		!reflect.DeepEqual(ot.OwnerUserIDs, nt.OwnerUserIDs) ||
		trim(ot.GroupLog) != trim(nt.GroupLog) {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.Bool("telegram.token_changed", trim(ot.Token) != trim(nt.Token)),
			logx.String("telegram.poll_timeout", trim(nt.PollTimeout)),
			logx.Int("telegram.owner_count", len(nt.OwnerUserIDs)),
			logx.Bool("telegram.group_log_set", trim(nt.GroupLog) != ""),
		)
	}

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logging.telegram_enabled", newCfg.Logging.Telegram.Enabled),
		)
	}

	if oldCfg.Source != newCfg.Source {
		changed = append(changed, "source")
		attrs = append(attrs,
			logx.String("source.url", trim(newCfg.Source.URL)),
			logx.String("source.timeout", trim(newCfg.Source.Timeout)),
			logx.Int("source.retry_attempts", newCfg.Source.RetryAttempts),
		)
	}

	osch, nsch := oldCfg.Scheduler, newCfg.Scheduler
	if osch.IntervalOrDefault() != nsch.IntervalOrDefault() ||
		trim(osch.Timezone) != trim(nsch.Timezone) ||
		trim(osch.CycleTimeout) != trim(nsch.CycleTimeout) ||
		osch.RunOnStartOrDefault() != nsch.RunOnStartOrDefault() {
		changed = append(changed, "scheduler")
		attrs = append(attrs,
			logx.String("scheduler.interval", nsch.IntervalOrDefault()),
			logx.String("scheduler.timezone", trim(nsch.Timezone)),
			logx.Bool("scheduler.run_on_start", nsch.RunOnStartOrDefault()),
		)
	}

	if oldCfg.Broadcast != newCfg.Broadcast {
		changed = append(changed, "broadcast")
		attrs = append(attrs,
			logx.Int("broadcast.rate_per_sec", newCfg.Broadcast.RatePerSec),
			logx.Bool("broadcast.disable_preview", newCfg.Broadcast.DisablePreview),
			logx.Bool("broadcast.welcome_set", trim(newCfg.Broadcast.Welcome) != ""),
		)
	}

	if trim(oldCfg.Storage.Driver) != trim(newCfg.Storage.Driver) ||
		trim(oldCfg.Storage.Path) != trim(newCfg.Storage.Path) ||
		trim(oldCfg.Storage.BusyTimeout) != trim(newCfg.Storage.BusyTimeout) {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", trim(newCfg.Storage.Driver)),
			logx.String("storage.busy_timeout", trim(newCfg.Storage.BusyTimeout)),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}

// RestartRequired lists the changes that a running process cannot apply.
func RestartRequired(oldCfg, newCfg *Config, changed []string) []string {
	var out []string
	for _, sec := range changed {
		if !hotSections[sec] {
			out = append(out, sec)
			continue
		}
		if sec == "telegram" && oldCfg != nil && newCfg != nil {
			ot, nt := oldCfg.Telegram, newCfg.Telegram
			if strings.TrimSpace(ot.Token) != strings.TrimSpace(nt.Token) ||
				strings.TrimSpace(ot.PollTimeout) != strings.TrimSpace(nt.PollTimeout) {
				out = append(out, "telegram.token/poll_timeout")
			}
		}
	}
	return out
}
