// File: messaging/session.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package messaging

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-session/api"
)

// Session is a client conversation with one endpoint.
type Session struct {
	id       string
	uri      string
	endpoint Endpoint
	dialer   api.Dialer
	cb       api.SessionCallbacks
	ctx      *Context
	state    api.SessionState
	conns    map[*Connection]struct{}
	nconns   int
}

var _ api.Session = (*Session)(nil)

func newSession(ctx *Context, uri string, ep Endpoint, d api.Dialer, cb api.SessionCallbacks) *Session {
	return &Session{
		id:       uuid.NewString(),
		uri:      uri,
		endpoint: ep,
		dialer:   d,
		cb:       cb,
		ctx:      ctx,
		state:    api.SessionCreated,
		conns:    make(map[*Connection]struct{}),
	}
}

func (s *Session) ID() string              { return s.id }
func (s *Session) URI() string             { return s.uri }
func (s *Session) Endpoint() Endpoint      { return s.endpoint }
func (s *Session) State() api.SessionState { return s.state }
func (s *Session) String() string          { return s.id }
func (s *Session) Connections() int        { return len(s.conns) }

// Close destroys the session. Attached connections are closed without
// further events and their messages are flushed with ErrCodeFlushed.
func (s *Session) Close() error {
	if s.state == api.SessionDestroyed {
		return api.NewError(api.ErrCodePrecondition, "session already destroyed")
	}
	for c := range s.conns {
		logger.WithFields(logrus.Fields{
			"session":    s.id,
			"connection": c.id,
			"state":      c.state.String(),
		}).Debug("closing connection left open at session destroy")
		c.abort(api.ErrCodeFlushed)
		c.state = api.ConnDestroyed
		delete(s.conns, c)
	}
	s.state = api.SessionDestroyed
	s.ctx.removeSession(s)
	return nil
}

func (s *Session) connect(ctx *Context) (*Connection, error) {
	if ctx != s.ctx {
		return nil, api.NewError(api.ErrCodePrecondition, "session belongs to another context")
	}
	if s.state != api.SessionCreated {
		return nil, api.Errorf(api.ErrCodePrecondition, "connect in session state %s", s.state)
	}
	s.nconns++
	c := newConnection(s, s.nconns)
	s.conns[c] = struct{}{}
	s.state = api.SessionConnecting
	c.dial()
	return c, nil
}

// emit delivers ev to the session callback on the loop goroutine.
func (s *Session) emit(ev api.SessionEvent) {
	if s.state == api.SessionDestroyed {
		return
	}
	if s.cb.OnSessionEvent != nil {
		s.cb.OnSessionEvent(s, ev)
	}
}

// complete hands msg back to the owner exactly once.
func (s *Session) complete(msg *api.Message, reason api.ErrorCode) {
	delete(s.ctx.inflight, msg)
	if s.cb.OnMessageComplete != nil {
		s.cb.OnMessageComplete(s, msg, reason)
	}
}

// connectionDestroyed schedules session teardown once the last connection
// is gone.
func (s *Session) connectionDestroyed(c *Connection) {
	delete(s.conns, c)
	if len(s.conns) > 0 || s.state == api.SessionDestroyed {
		return
	}
	reason := c.reason
	s.ctx.later(func() {
		if s.state == api.SessionDestroyed || s.state == api.SessionStateTeardown {
			return
		}
		s.state = api.SessionStateTeardown
		s.emit(api.SessionTeardown{SessEvent: api.SessEvent{Cause: reason}})
	})
}
