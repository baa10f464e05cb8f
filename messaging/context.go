// File: messaging/context.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package messaging

import (
	"context"
	"time"

	"github.com/momentics/hioload-session/api"
	"github.com/momentics/hioload-session/internal/concurrency"
)

// Context owns the event loop and every session created against it.
type Context struct {
	loop     *concurrency.EventLoop
	sessions map[*Session]struct{}
	inflight map[*api.Message]*Connection
	nextSN   uint32
	closed   bool

	dialCtx    context.Context
	cancelDial context.CancelFunc
}

var _ api.Context = (*Context)(nil)

// NewContext allocates a context. Loop allocation failures are reported as
// ErrCodeResource.
func NewContext(opts api.ContextOptions) (*Context, error) {
	loop, err := concurrency.NewEventLoop(opts.BatchSize, opts.InboxSize)
	if err != nil {
		return nil, err
	}
	dctx, cancel := context.WithCancel(context.Background())
	return &Context{
		loop:       loop,
		sessions:   make(map[*Session]struct{}),
		inflight:   make(map[*api.Message]*Connection),
		dialCtx:    dctx,
		cancelDial: cancel,
	}, nil
}

// Run processes events until Stop or timeout. See api.Context.
func (c *Context) Run(timeout time.Duration) error {
	if c.closed {
		return api.NewError(api.ErrCodePrecondition, "context is closed")
	}
	return c.loop.Run(timeout)
}

// Stop ends Run. Only valid from a callback running on the loop.
func (c *Context) Stop() error {
	return c.loop.Stop()
}

// Close destroys the context. It is rejected while sessions are alive.
func (c *Context) Close() error {
	if c.closed {
		return api.NewError(api.ErrCodePrecondition, "context already closed")
	}
	if n := len(c.sessions); n > 0 {
		return api.Errorf(api.ErrCodeBusy, "context has %d live sessions", n).
			WithContext("live_sessions", n)
	}
	c.closed = true
	c.cancelDial()
	return c.loop.Close()
}

// LiveSessions returns the number of sessions not yet destroyed.
func (c *Context) LiveSessions() int { return len(c.sessions) }

// Inflight returns the number of messages sent but not completed.
func (c *Context) Inflight() int { return len(c.inflight) }

func (c *Context) addSession(uri string, ep Endpoint, d api.Dialer, cb api.SessionCallbacks) (*Session, error) {
	if c.closed {
		return nil, api.NewError(api.ErrCodePrecondition, "context is closed")
	}
	s := newSession(c, uri, ep, d, cb)
	c.sessions[s] = struct{}{}
	return s, nil
}

func (c *Context) removeSession(s *Session) {
	delete(c.sessions, s)
}

func (c *Context) allocSN() uint32 {
	c.nextSN++
	return c.nextSN
}

// post runs t on the loop from any goroutine.
func (c *Context) post(t concurrency.Task) bool {
	return c.loop.Post(t)
}

// later runs t on the loop behind everything already queued.
func (c *Context) later(t concurrency.Task) {
	if c.loop.InLoop() {
		c.loop.Defer(t)
		return
	}
	c.loop.Post(t)
}
