// File: api/context.go
// Package api
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Messaging Runtime boundary: execution context, session and connection
// contracts consumed by the harness. Not compatible with context.Context.

package api

import "time"

// Infinite tells Context.Run to wait without a deadline.
const Infinite time.Duration = -1

// Runtime creates the lifecycle objects of one messaging runtime.
type Runtime interface {
	// NewContext allocates an execution context and its event loop.
	NewContext(opts ContextOptions) (Context, error)

	// NewSession creates a client session against params.URI.
	NewSession(ctx Context, params SessionParams) (Session, error)

	// Connect starts connecting sess through ctx. It does not block; the
	// outcome is reported through the session event callback.
	Connect(sess Session, ctx Context) (Connection, error)
}

// ContextOptions tunes the event loop of a Context.
type ContextOptions struct {
	// InboxSize bounds the number of cross-goroutine notifications queued
	// for the loop.
	InboxSize int
	// BatchSize bounds how many notifications are moved from the inbox per
	// loop iteration.
	BatchSize int
}

// Context owns a single-goroutine cooperative event loop.
type Context interface {
	// Run processes events on the calling goroutine until Stop is called
	// from a callback or timeout elapses (ErrCodeTimeout).
	Run(timeout time.Duration) error

	// Stop ends Run once the current callback returns. It must be called from
	// a callback running on the loop; any other caller gets
	// ErrCodePrecondition.
	Stop() error

	// Close releases the loop. It is rejected with ErrCodeBusy while any
	// session created against the context is alive.
	Close() error
}

// SessionParams describes a client session.
type SessionParams struct {
	URI       string
	Callbacks SessionCallbacks
}

// SessionCallbacks is the callback table of a session. Callbacks run on the
// loop goroutine and must not block.
type SessionCallbacks struct {
	// OnSessionEvent receives every lifecycle event in causal order.
	OnSessionEvent func(sess Session, ev SessionEvent)

	// OnMessageComplete fires exactly once for every message accepted by
	// Connection.Send. Reason ErrCodeOK means the response is in msg.In.
	OnMessageComplete func(sess Session, msg *Message, reason ErrorCode)
}

// Session is a logical conversation with one endpoint.
type Session interface {
	ID() string
	URI() string
	State() SessionState

	// Close destroys the session. Connections still attached are closed
	// and their unfinished messages flushed first.
	Close() error
}

// Connection is a transport channel bound to one Session and one Context.
type Connection interface {
	ID() string
	State() ConnectionState
	Session() Session

	// Send queues msg as a request. It does not block.
	Send(msg *Message) error

	// Disconnect starts a graceful local close.
	Disconnect() error

	// Close destroys the connection. Only valid once teardown was delivered.
	Close() error
}
