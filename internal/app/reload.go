package app

import (
	"context"
	"strings"

	"noticebot/internal/config"
	logx "noticebot/pkg/logx"
)

// reloadLoop applies hot-reloaded configs. Only logging and owner ids change
// at runtime; other sections are reported as needing a restart.
func (a *App) reloadLoop(ctx context.Context, sub <-chan *config.Config) {
	applied := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case next, ok := <-sub:
			if !ok {
				return
			}
			// keep only the newest of a burst
			for drained := false; !drained; {
				select {
				case newer := <-sub:
					if newer != nil {
						next = newer
					}
				default:
					drained = true
				}
			}
			a.applyConfig(applied, next)
			applied = next
		}
	}
}

func (a *App) applyConfig(prev, next *config.Config) {
	sections, attrs := config.SummarizeConfigChange(prev, next)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}

	// target first so Apply does not warn about a missing chat
	if chatID, threadID, ok := logTarget(next); ok {
		a.logs.SetTelegramTarget(chatID, threadID)
	} else {
		a.logs.SetTelegramTarget(0, 0)
	}
	a.logs.Apply(logConfig(next))
	a.cmdm.SetOwners(next.Telegram.OwnerUserIDs)

	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)

	if pending := config.RestartRequired(prev, next, sections); len(pending) > 0 {
		a.log.Warn("config changed; restart required for changes to take effect",
			logx.String("sections", strings.Join(pending, ",")))
	}
}
