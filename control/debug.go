// control/debug.go
// Author: momentics <momentics@gmail.com>
//
// Probe registry for internal inspection at shutdown.

package control

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// DebugProbes holds registered probe functions.
type DebugProbes struct {
	mu     sync.RWMutex
	probes map[string]func() any
}

// NewDebugProbes creates a probe registry.
func NewDebugProbes() *DebugProbes {
	return &DebugProbes{
		probes: make(map[string]func() any),
	}
}

// RegisterProbe inserts a named debug hook. A later registration under the
// same name replaces the earlier one.
func (dp *DebugProbes) RegisterProbe(name string, fn func() any) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.probes[name] = fn
}

// DumpState returns output of all probes.
func (dp *DebugProbes) DumpState() map[string]any {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	out := make(map[string]any, len(dp.probes))
	for k, fn := range dp.probes {
		out[k] = fn()
	}
	return out
}

// Log writes every probe result to l at debug level. Probes are not
// evaluated when debug logging is off.
func (dp *DebugProbes) Log(l *logrus.Logger, msg string) {
	if !l.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	l.WithFields(logrus.Fields(dp.DumpState())).Debug(msg)
}
