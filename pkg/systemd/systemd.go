// Package systemd speaks the sd_notify protocol so the bot can run as a
// Type=notify unit with an optional watchdog. Outside systemd every call is
// a no-op.
package systemd

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Notifier reports lifecycle state to the service manager.
type Notifier struct {
	notify func(unsetEnv bool, state string) (bool, error)
	wd     func(unsetEnv bool) (time.Duration, error)
}

func New() *Notifier {
	return &Notifier{notify: daemon.SdNotify, wd: daemon.SdWatchdogEnabled}
}

// Ready tells systemd startup has finished. The bool is false when no
// notify socket is configured.
func (n *Notifier) Ready() (bool, error) { return n.notify(false, daemon.SdNotifyReady) }

func (n *Notifier) Stopping() (bool, error) { return n.notify(false, daemon.SdNotifyStopping) }

// Status sets the free-form status line shown by systemctl status.
func (n *Notifier) Status(s string) (bool, error) { return n.notify(false, "STATUS="+s) }

// Watchdog pings WATCHDOG=1 at half the configured interval until ctx ends.
// It returns immediately when the unit has no WatchdogSec.
func (n *Notifier) Watchdog(ctx context.Context) error {
	interval, err := n.wd(false)
	if err != nil || interval <= 0 {
		return err
	}
	t := time.NewTicker(interval / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if _, err := n.notify(false, daemon.SdNotifyWatchdog); err != nil {
				return err
			}
		}
	}
}
