// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared lifecycle states.

package api

// SessionState enumerates the lifecycle of a Session.
type SessionState int

const (
	SessionCreated SessionState = iota
	SessionConnecting
	SessionEstablished
	SessionRejected
	SessionStateTeardown
	SessionDestroyed
)

func (s SessionState) String() string {
	switch s {
	case SessionCreated:
		return "created"
	case SessionConnecting:
		return "connecting"
	case SessionEstablished:
		return "established"
	case SessionRejected:
		return "rejected"
	case SessionStateTeardown:
		return "teardown"
	case SessionDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// ConnectionState enumerates the lifecycle of a Connection.
type ConnectionState int

const (
	ConnCreated ConnectionState = iota
	ConnConnected
	ConnTeardown
	ConnDestroyed
)

func (s ConnectionState) String() string {
	switch s {
	case ConnCreated:
		return "created"
	case ConnConnected:
		return "connected"
	case ConnTeardown:
		return "teardown"
	case ConnDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}
