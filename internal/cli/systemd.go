package cli

import (
	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/GabrielNunesIT/go-libs/logger"
)

// notifySystemd reports a state change to the service manager.
// Outside of a Type=notify unit it does nothing.
func notifySystemd(log logger.ILogger, state string) {
	if _, err := daemon.SdNotify(false, state); err != nil {
		log.Debugf("systemd notify failed: state=%s, error=%v", state, err)
	}
}

// watchdogHeartbeat returns a function that pets the systemd watchdog, or nil
// when the unit has no WatchdogSec.
func watchdogHeartbeat(log logger.ILogger) func() {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		log.Warningf("reading systemd watchdog settings: %v", err)
		return nil
	}
	if interval == 0 {
		return nil
	}

	log.Debugf("systemd watchdog enabled: interval=%v", interval)
	return func() {
		notifySystemd(log, daemon.SdNotifyWatchdog)
	}
}
