package log

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-session/api"
)

func TestParseLevel(t *testing.T) {
	for _, name := range Levels {
		_, err := ParseLevel(name)
		require.NoError(t, err, name)
	}
	lvl, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, lvl)

	_, err = ParseLevel("loud")
	assert.True(t, api.IsConfigError(err))
}

func TestSetLoggerFallsBackToError(t *testing.T) {
	defer logrus.SetLevel(logrus.InfoLevel)
	SetLogger("debug")
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	SetLogger("nonsense")
	assert.Equal(t, logrus.ErrorLevel, logrus.GetLevel())
}

func TestEventToFields(t *testing.T) {
	f := EventToFields(nil, api.SessionTeardown{SessEvent: api.SessEvent{Cause: api.ErrCodeRefused}})
	assert.Equal(t, "session teardown", f["event"])
	assert.Equal(t, "Connection refused", f["reason"])
	assert.NotContains(t, f, "session")
	assert.NotContains(t, f, "connection")
}

func TestPoolStatsToFields(t *testing.T) {
	f := PoolStatsToFields(api.MessagePoolStats{Capacity: 4, InUse: 1, HighWater: 2})
	assert.Equal(t, 4, f["capacity"])
	assert.Equal(t, 1, f["in_use"])
	assert.Equal(t, 2, f["high_water"])
}
