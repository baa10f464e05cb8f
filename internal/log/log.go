// Package log adds logging utilities.
package log

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-session/api"
)

// Levels lists the accepted --log-level values.
var Levels = []string{"trace", "debug", "info", "warn", "error"}

// ParseLevel maps a level name to a logrus level. Unknown names yield
// ErrCodeConfig.
func ParseLevel(level string) (logrus.Level, error) {
	switch strings.ToLower(level) {
	case "trace":
		return logrus.TraceLevel, nil
	case "debug":
		return logrus.DebugLevel, nil
	case "info":
		return logrus.InfoLevel, nil
	case "warn":
		return logrus.WarnLevel, nil
	case "error", "":
		return logrus.ErrorLevel, nil
	default:
		return logrus.ErrorLevel, api.Errorf(api.ErrCodeConfig, "unknown log level %q", level)
	}
}

// SetLogger sets the default logger's level and formatter.
func SetLogger(level string) {
	customFormatter := new(logrus.TextFormatter)
	customFormatter.TimestampFormat = time.RFC3339
	customFormatter.FullTimestamp = true
	logrus.SetFormatter(customFormatter)
	lvl, _ := ParseLevel(level)
	logrus.SetLevel(lvl)
}

// EventToFields describes a session event.
func EventToFields(sess api.Session, ev api.SessionEvent) logrus.Fields {
	f := logrus.Fields{
		"event":  ev.Kind().String(),
		"reason": api.StrError(ev.Reason()),
	}
	if sess != nil {
		f["session"] = sess.ID()
	}
	if c := ev.Connection(); c != nil {
		f["connection"] = c.ID()
	}
	return f
}

// PoolStatsToFields describes message pool accounting.
func PoolStatsToFields(s api.MessagePoolStats) logrus.Fields {
	return logrus.Fields{
		"capacity":   s.Capacity,
		"in_use":     s.InUse,
		"acquired":   s.Acquired,
		"released":   s.Released,
		"exhausted":  s.Exhausted,
		"high_water": s.HighWater,
	}
}
