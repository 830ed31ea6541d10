// Package systemd reports daemon state to the service manager through
// sd_notify. Every call is a no-op when the process is not started by
// systemd with Type=notify (NOTIFY_SOCKET unset).
package systemd

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Ready reports READY=1. It returns false when no notification was sent.
func Ready() bool { return notify(daemon.SdNotifyReady) }

// Stopping reports STOPPING=1.
func Stopping() bool { return notify(daemon.SdNotifyStopping) }

// Status sets the one-line status shown by systemctl status.
func Status(s string) bool { return notify("STATUS=" + s) }

func notify(state string) bool {
	ok, err := daemon.SdNotify(false, state)
	return ok && err == nil
}

// WatchdogInterval returns the configured WatchdogSec, or 0 when the
// watchdog is not enabled for this process.
func WatchdogInterval() time.Duration {
	d, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		return 0
	}
	return d
}

// RunWatchdog pings the watchdog at half the configured interval while
// healthy reports true. It returns immediately when the watchdog is off.
func RunWatchdog(ctx context.Context, healthy func() bool) {
	interval := WatchdogInterval()
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if healthy == nil || healthy() {
				notify(daemon.SdNotifyWatchdog)
			}
		}
	}
}
