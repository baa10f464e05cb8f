// File: api/events.go
// Package api defines core event types for hioload-session.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import "fmt"

// EventKind enumerates the session events a runtime can deliver.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventSessionReject
	EventSessionTeardown
	EventSessionError
	EventConnectionEstablished
	EventConnectionTeardown
	EventConnectionClosed
	EventConnectionDisconnected
	EventConnectionRefused
	EventConnectionError
)

var eventStrings = map[EventKind]string{
	EventUnknown:                "unknown",
	EventSessionReject:          "session reject",
	EventSessionTeardown:        "session teardown",
	EventSessionError:           "session error",
	EventConnectionEstablished:  "connection established",
	EventConnectionTeardown:     "connection teardown",
	EventConnectionClosed:       "connection closed",
	EventConnectionDisconnected: "connection disconnected",
	EventConnectionRefused:      "connection refused",
	EventConnectionError:        "connection error",
}

// EventString returns the human-readable description of an event kind.
func EventString(k EventKind) string {
	if s, ok := eventStrings[k]; ok {
		return s
	}
	return fmt.Sprintf("unknown event %d", int(k))
}

// String implements fmt.Stringer.
func (k EventKind) String() string { return EventString(k) }

// SessionEvent is a closed set of lifecycle notifications. Only types declared
// in this package implement it, so a type switch over the concrete types below
// plus a default branch is exhaustive.
type SessionEvent interface {
	Kind() EventKind
	// Reason is the error code explaining the event, ErrCodeOK when none.
	Reason() ErrorCode
	// Connection is the connection the event refers to, nil for
	// session-level events.
	Connection() Connection
	sessionEvent()
}

// ConnEvent carries the payload shared by connection-level events.
type ConnEvent struct {
	Conn  Connection
	Cause ErrorCode
}

func (e ConnEvent) Reason() ErrorCode      { return e.Cause }
func (e ConnEvent) Connection() Connection { return e.Conn }
func (ConnEvent) sessionEvent()            {}

// SessEvent carries the payload shared by session-level events.
type SessEvent struct {
	Cause ErrorCode
}

func (e SessEvent) Reason() ErrorCode    { return e.Cause }
func (SessEvent) Connection() Connection { return nil }
func (SessEvent) sessionEvent()          {}

// SessionReject is delivered when the peer refuses the session. Data holds the
// optional reject payload sent by the peer.
type SessionReject struct {
	SessEvent
	Data []byte
}

// SessionTeardown is delivered once the last connection of a session has been
// destroyed. It is always the final event of a conversation.
type SessionTeardown struct{ SessEvent }

// SessionError reports a session-level failure that does not end the session.
type SessionError struct{ SessEvent }

// ConnectionEstablished is delivered when the peer accepts the session.
type ConnectionEstablished struct{ ConnEvent }

// ConnectionTeardown asks the owner to destroy Conn.
type ConnectionTeardown struct{ ConnEvent }

// ConnectionClosed follows a local Disconnect.
type ConnectionClosed struct{ ConnEvent }

// ConnectionDisconnected follows an orderly close by the peer.
type ConnectionDisconnected struct{ ConnEvent }

// ConnectionRefused follows a dial that nobody answered.
type ConnectionRefused struct{ ConnEvent }

// ConnectionError follows an I/O failure on an established connection.
type ConnectionError struct{ ConnEvent }

// UnknownEvent wraps a kind this package version does not model.
type UnknownEvent struct {
	SessEvent
	Raw EventKind
}

func (SessionReject) Kind() EventKind          { return EventSessionReject }
func (SessionTeardown) Kind() EventKind        { return EventSessionTeardown }
func (SessionError) Kind() EventKind           { return EventSessionError }
func (ConnectionEstablished) Kind() EventKind  { return EventConnectionEstablished }
func (ConnectionTeardown) Kind() EventKind     { return EventConnectionTeardown }
func (ConnectionClosed) Kind() EventKind       { return EventConnectionClosed }
func (ConnectionDisconnected) Kind() EventKind { return EventConnectionDisconnected }
func (ConnectionRefused) Kind() EventKind      { return EventConnectionRefused }
func (ConnectionError) Kind() EventKind        { return EventConnectionError }
func (e UnknownEvent) Kind() EventKind         { return e.Raw }
