package cli

import (
	"os"
	"strings"

	"github.com/GabrielNunesIT/go-libs/logger"
)

// SetupLogging builds the process logger at level and installs it as the
// default and context fallback logger. An unrecognised level falls back to
// info with a warning.
func SetupLogging(level string) logger.ILogger {
	log := logger.NewConsoleLogger(os.Stderr)

	known := true
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		log.SetLevel(logger.LevelTrace)
	case "debug":
		log.SetLevel(logger.LevelDebug)
	case "warn", "warning":
		log.SetLevel(logger.LevelWarning)
	case "error":
		log.SetLevel(logger.LevelError)
	case "info", "":
		log.SetLevel(logger.LevelInfo)
	default:
		log.SetLevel(logger.LevelInfo)
		known = false
	}

	logger.SetDefaultLogger(log)
	logger.SetCtxFallbackLogger(log)

	if !known {
		log.Warningf("unknown log level %q, using info", level)
	}
	return log
}

// effectiveLogLevel picks the --log-level flag over the configured level.
func effectiveLogLevel(flag, configured string) string {
	if strings.TrimSpace(flag) != "" {
		return flag
	}
	return configured
}
