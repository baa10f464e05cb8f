// File: messaging/registry.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package messaging

import (
	"sort"
	"sync"

	"github.com/momentics/hioload-session/api"
	"github.com/momentics/hioload-session/transport/tcp"
)

var (
	transportsMu sync.RWMutex
	transports   = map[string]api.Dialer{
		tcp.Scheme: tcp.NewDialer(),
	}
)

// RegisterTransport makes a dialer available to every Runtime created
// afterwards under scheme.
func RegisterTransport(scheme string, d api.Dialer) {
	transportsMu.Lock()
	defer transportsMu.Unlock()
	transports[scheme] = d
}

// AvailableTransports returns the registered schemes, sorted.
func AvailableTransports() []string {
	transportsMu.RLock()
	defer transportsMu.RUnlock()
	out := make([]string, 0, len(transports))
	for s := range transports {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func registeredTransports() map[string]api.Dialer {
	transportsMu.RLock()
	defer transportsMu.RUnlock()
	out := make(map[string]api.Dialer, len(transports))
	for s, d := range transports {
		out[s] = d
	}
	return out
}
