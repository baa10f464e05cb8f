// File: messaging/connection.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package messaging

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-session/api"
)

// MaxMessageBytes bounds the request size accepted by Send.
const MaxMessageBytes = 1 << 20

// Connection is a link-backed channel of a Session.
type Connection struct {
	id    string
	sess  *Session
	ctx   *Context
	state api.ConnectionState
	link  api.Link

	accepted   bool
	localClose bool
	reason     api.ErrorCode

	pending  []*api.Message          // sent before the peer accepted
	inflight map[uint32]*api.Message // awaiting a response, by SN
}

var _ api.Connection = (*Connection)(nil)

func newConnection(s *Session, n int) *Connection {
	return &Connection{
		id:       fmt.Sprintf("%s/%d", s.id, n),
		sess:     s,
		ctx:      s.ctx,
		state:    api.ConnCreated,
		inflight: make(map[uint32]*api.Message),
	}
}

func (c *Connection) ID() string                 { return c.id }
func (c *Connection) State() api.ConnectionState { return c.state }
func (c *Connection) Session() api.Session       { return c.sess }
func (c *Connection) String() string             { return c.id }

// Send queues msg as a request. Completion is reported through
// OnMessageComplete; a message may not be sent again before that.
func (c *Connection) Send(msg *api.Message) error {
	switch {
	case msg == nil:
		return api.NewError(api.ErrCodePrecondition, "nil message")
	case msg.Released():
		return api.NewError(api.ErrCodePrecondition, "message was released to its pool")
	case c.state == api.ConnTeardown || c.state == api.ConnDestroyed || c.localClose:
		return api.Errorf(api.ErrCodeClosed, "send on connection in state %s", c.state)
	}
	if _, busy := c.ctx.inflight[msg]; busy {
		return api.NewError(api.ErrCodePrecondition, "message already in flight")
	}
	if err := msg.Out.Validate(); err != nil {
		return err
	}
	if n := msg.Out.Len(); n > MaxMessageBytes {
		return api.Errorf(api.ErrCodePrecondition, "message of %d bytes exceeds %d", n, MaxMessageBytes)
	}
	if n := len(msg.Out.Header); n > api.MaxFrameHeader {
		return api.Errorf(api.ErrCodePrecondition, "header of %d bytes exceeds %d", n, api.MaxFrameHeader)
	}
	if n := msg.Out.Nents(); n > api.MaxFrameEntries {
		return api.Errorf(api.ErrCodePrecondition, "%d scatter-gather entries exceed %d", n, api.MaxFrameEntries)
	}

	msg.SN = c.ctx.allocSN()
	c.ctx.inflight[msg] = c
	if !c.accepted {
		c.pending = append(c.pending, msg)
		return nil
	}
	c.transmit(msg)
	return nil
}

// Disconnect closes the link gracefully. The teardown events follow on the
// loop.
func (c *Connection) Disconnect() error {
	if c.state == api.ConnTeardown || c.state == api.ConnDestroyed || c.localClose {
		return api.Errorf(api.ErrCodePrecondition, "disconnect in state %s", c.state)
	}
	c.localClose = true
	if c.link != nil {
		_ = c.link.WriteFrame(&api.Frame{Type: api.FrameFin})
		_ = c.link.Close()
	}
	return nil
}

// Close destroys the connection. It is only valid after connection-teardown
// was delivered.
func (c *Connection) Close() error {
	switch c.state {
	case api.ConnDestroyed:
		return api.NewError(api.ErrCodePrecondition, "connection already destroyed")
	case api.ConnTeardown:
	default:
		return api.Errorf(api.ErrCodePrecondition, "connection destroyed in state %s before teardown", c.state)
	}
	c.state = api.ConnDestroyed
	c.sess.connectionDestroyed(c)
	return nil
}

func (c *Connection) log() logrus.FieldLogger {
	return logger.WithFields(logrus.Fields{"session": c.sess.id, "connection": c.id})
}

// dial runs the blocking dial on its own goroutine and reports back on the
// loop. The reader is started only after the dial result is queued so frames
// can never overtake it.
func (c *Connection) dial() {
	addr := c.sess.endpoint.Addr()
	d := c.sess.dialer
	events := &linkEvents{c: c}
	go func() {
		link, err := d.Dial(c.ctx.dialCtx, addr, events)
		if !c.ctx.post(func() { c.onDialed(link, err) }) {
			if link != nil {
				_ = link.Close()
			}
			return
		}
		if link != nil {
			link.Start()
		}
	}()
}

func (c *Connection) onDialed(link api.Link, err error) {
	if c.state != api.ConnCreated {
		// The session was destroyed while dialing.
		if link != nil {
			_ = link.Close()
		}
		return
	}
	if err != nil {
		reason := api.CodeOf(err)
		c.log().WithError(err).Debug("dial failed")
		base := api.ConnEvent{Conn: c, Cause: reason}
		if reason == api.ErrCodeRefused {
			c.teardown(api.ConnectionRefused{ConnEvent: base}, reason)
		} else {
			c.teardown(api.ConnectionError{ConnEvent: base}, reason)
		}
		return
	}
	c.link = link
	if c.localClose {
		_ = link.WriteFrame(&api.Frame{Type: api.FrameFin})
		_ = link.Close()
		c.teardown(api.ConnectionClosed{ConnEvent: api.ConnEvent{Conn: c}}, api.ErrCodeOK)
		return
	}
	if err := link.WriteFrame(&api.Frame{Type: api.FrameSetup, Header: []byte(c.sess.uri)}); err != nil {
		c.fail(err)
	}
}

func (c *Connection) onFrame(f *api.Frame) {
	if c.state == api.ConnTeardown || c.state == api.ConnDestroyed {
		return
	}
	switch f.Type {
	case api.FrameAccept:
		if c.accepted {
			return
		}
		c.accepted = true
		c.state = api.ConnConnected
		c.sess.state = api.SessionEstablished
		c.sess.emit(api.ConnectionEstablished{ConnEvent: api.ConnEvent{Conn: c}})
		for len(c.pending) > 0 && c.state == api.ConnConnected {
			m := c.pending[0]
			c.pending = c.pending[1:]
			c.transmit(m)
		}
	case api.FrameReject:
		c.state = api.ConnTeardown
		c.reason = api.ErrCodeRejected
		c.sess.state = api.SessionRejected
		c.abort(api.ErrCodeRejected)
		c.sess.emit(api.SessionReject{SessEvent: api.SessEvent{Cause: api.ErrCodeRejected}, Data: f.Header})
	case api.FrameResponse:
		msg, ok := c.inflight[f.SN]
		if !ok {
			c.log().WithField("sn", f.SN).Warn("response for unknown request")
			return
		}
		delete(c.inflight, f.SN)
		fillResponse(msg, f)
		c.sess.complete(msg, api.ErrCodeOK)
	case api.FrameFin:
		c.teardown(api.ConnectionDisconnected{ConnEvent: api.ConnEvent{Conn: c}}, api.ErrCodeOK)
	default:
		c.log().WithField("frame", f.Type.String()).Debug("ignoring frame")
	}
}

func (c *Connection) onLinkClosed(err error) {
	if c.state == api.ConnTeardown || c.state == api.ConnDestroyed {
		return
	}
	switch {
	case c.localClose:
		c.teardown(api.ConnectionClosed{ConnEvent: api.ConnEvent{Conn: c}}, api.ErrCodeOK)
	case err == nil:
		c.teardown(api.ConnectionDisconnected{ConnEvent: api.ConnEvent{Conn: c}}, api.ErrCodeOK)
	default:
		c.log().WithError(err).Debug("link failed")
		c.fail(err)
	}
}

// transmit writes msg as a request frame. A write failure tears the
// connection down, which flushes msg with the rest. A link that already
// reports closed has OnLinkClosed queued, so msg stays in flight and is
// flushed by that teardown.
func (c *Connection) transmit(msg *api.Message) {
	c.inflight[msg.SN] = msg
	f := &api.Frame{
		Type:   api.FrameRequest,
		SN:     msg.SN,
		Header: msg.Out.Header,
		Body:   msg.Out.Entries(),
	}
	if err := c.link.WriteFrame(f); err != nil {
		if api.CodeOf(err) == api.ErrCodeClosed {
			c.log().WithField("sn", msg.SN).Debug("link closing, request left in flight")
			return
		}
		c.fail(err)
	}
}

func (c *Connection) fail(err error) {
	if c.state == api.ConnTeardown || c.state == api.ConnDestroyed {
		return
	}
	c.log().WithError(err).Debug("connection failed")
	c.teardown(api.ConnectionError{ConnEvent: api.ConnEvent{Conn: c, Cause: api.ErrCodeConnReset}}, api.ErrCodeConnReset)
}

// teardown moves the connection to TEARDOWN, flushes its messages and
// delivers ev followed by connection-teardown.
func (c *Connection) teardown(ev api.SessionEvent, reason api.ErrorCode) {
	c.state = api.ConnTeardown
	c.reason = reason
	if !c.accepted && c.sess.state == api.SessionConnecting {
		c.sess.state = api.SessionRejected
	}
	c.abort(api.ErrCodeFlushed)
	c.sess.emit(ev)
	c.sess.emit(api.ConnectionTeardown{ConnEvent: api.ConnEvent{Conn: c, Cause: reason}})
}

// abort closes the link and completes every unfinished message with reason.
func (c *Connection) abort(reason api.ErrorCode) {
	if c.link != nil {
		_ = c.link.Close()
	}
	pending := c.pending
	c.pending = nil
	for _, m := range pending {
		c.sess.complete(m, reason)
	}
	for sn, m := range c.inflight {
		delete(c.inflight, sn)
		c.sess.complete(m, reason)
	}
}

func fillResponse(msg *api.Message, f *api.Frame) {
	msg.In.Reset()
	msg.In.Header = f.Header
	n := len(f.Body)
	if limit := msg.In.MaxEntries(); n > limit {
		logger.WithFields(logrus.Fields{"entries": n, "max": limit}).Warn("response truncated to scatter-gather capacity")
		n = limit
	}
	for i := 0; i < n; i++ {
		_ = msg.In.SetEntry(i, f.Body[i])
	}
	_ = msg.In.SetNents(n)
}

// linkEvents marshals link callbacks from the reader goroutine onto the loop.
type linkEvents struct {
	c *Connection
}

func (e *linkEvents) OnFrame(f *api.Frame) {
	e.c.ctx.post(func() { e.c.onFrame(f) })
}

func (e *linkEvents) OnLinkClosed(err error) {
	e.c.ctx.post(func() { e.c.onLinkClosed(err) })
}
