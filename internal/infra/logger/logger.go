// internal/infra/logger/logger.go
package logger

import (
	"os"
	"strings"

	"press_distributor/internal/infra/config"

	"github.com/sirupsen/logrus"
)

// Log is the process-wide logger. Components derive their entries from it
// via Get().WithField("component", ...).
var Log = logrus.New()

// Init applies level and format from the loaded configuration. Deployed
// environments emit JSON for the log pipeline; anything else gets readable
// text for a terminal.
func Init(cfg *config.AppConfig) {
	Log.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		level = logrus.InfoLevel
		Log.Warnf("Unknown LOG_LEVEL %q, falling back to info", cfg.LogLevel)
	}
	Log.SetLevel(level)

	switch strings.ToLower(cfg.Environment) {
	case "production", "staging":
		Log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	default:
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			ForceColors:     true,
		})
	}

	Log.WithFields(logrus.Fields{
		"level":       Log.GetLevel().String(),
		"environment": cfg.Environment,
	}).Debug("Logger configured")
}

// Get returns the configured global logger.
func Get() *logrus.Logger {
	return Log
}
