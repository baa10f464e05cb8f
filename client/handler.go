// File: client/handler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Session event dispatch and message completion.

package client

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-session/api"
	"github.com/momentics/hioload-session/control"
	"github.com/momentics/hioload-session/internal/log"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// State is everything the driver and the handler share for one run.
type State struct {
	Ctx     api.Context
	Pool    api.MessagePool
	Session api.Session
	Conn    api.Connection
	Metrics *control.MetricsRegistry
	Linger  bool

	// Terminal is the event that stopped the loop, nil while running.
	Terminal api.SessionEvent
	// Replies counts successful responses.
	Replies int
}

// Handler reacts to session events and message completions. It runs on the
// loop goroutine only.
type Handler struct {
	st  *State
	out io.Writer
}

// NewHandler binds a handler to st. Event lines are written to out.
func NewHandler(st *State, out io.Writer) *Handler {
	if st.Metrics == nil {
		st.Metrics = control.NewMetricsRegistry()
	}
	if out == nil {
		out = io.Discard
	}
	return &Handler{st: st, out: out}
}

// Callbacks returns the session callback table routed to h.
func (h *Handler) Callbacks() api.SessionCallbacks {
	return api.SessionCallbacks{
		OnSessionEvent:    h.OnSessionEvent,
		OnMessageComplete: h.OnMessageComplete,
	}
}

// OnSessionEvent logs ev and applies its reaction. Connection teardown
// destroys the connection; reject and session teardown stop the loop; every
// other kind, including ones unknown to this build, is only logged.
func (h *Handler) OnSessionEvent(sess api.Session, ev api.SessionEvent) {
	fmt.Fprintf(h.out, "session event: %s. session:%s, connection:%s, reason: %s\n",
		api.EventString(ev.Kind()), idOf(sess), connIDOf(ev.Connection()), api.StrError(ev.Reason()))
	logger.WithFields(log.EventToFields(sess, ev)).Debug("session event")
	h.st.Metrics.Inc(control.MetricEventsPrefix + ev.Kind().String())

	switch e := ev.(type) {
	case api.ConnectionTeardown:
		h.destroyConnection(e.Conn)
	case api.SessionReject:
		h.terminate(ev)
	case api.SessionTeardown:
		h.terminate(ev)
	case api.ConnectionEstablished, api.ConnectionClosed, api.ConnectionDisconnected,
		api.ConnectionRefused, api.ConnectionError, api.SessionError, api.UnknownEvent:
	default:
		logger.WithField("event", fmt.Sprintf("%T", ev)).Debug("ignoring unrecognized event")
	}
}

// OnMessageComplete returns msg to the pool. A successful reply ends the
// conversation with a local disconnect unless Linger is set.
func (h *Handler) OnMessageComplete(sess api.Session, msg *api.Message, reason api.ErrorCode) {
	fields := logrus.Fields{"session": idOf(sess), "sn": msg.SN, "reason": api.StrError(reason)}
	if reason == api.ErrCodeOK {
		h.st.Replies++
		h.st.Metrics.Inc(control.MetricMessagesCompleted)
		fields["reply_len"] = msg.In.Len()
		logger.WithFields(fields).Debug("response received")
	} else {
		h.st.Metrics.Inc(control.MetricMessagesFailed)
		logger.WithFields(fields).Debug("message completed without response")
	}

	if err := h.st.Pool.Release(msg); err != nil {
		h.st.Metrics.Inc(control.MetricReleaseErrors)
		logger.WithFields(fields).WithError(err).Error("release message failed")
	}

	if reason == api.ErrCodeOK && !h.st.Linger && h.st.Conn != nil {
		if err := h.st.Conn.Disconnect(); err != nil {
			logger.WithFields(fields).WithError(err).Debug("disconnect after reply failed")
		}
	}
}

func (h *Handler) destroyConnection(c api.Connection) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		logger.WithField("connection", c.ID()).WithError(err).Error("destroy connection failed")
		return
	}
	h.st.Metrics.Inc(control.MetricConnectionsDestroyed)
	if h.st.Conn == c {
		h.st.Conn = nil
	}
}

func (h *Handler) terminate(ev api.SessionEvent) {
	h.st.Terminal = ev
	if err := h.st.Ctx.Stop(); err != nil {
		logger.WithError(err).Error("stop event loop failed")
		return
	}
	h.st.Metrics.Inc(control.MetricLoopStops)
}

func idOf(s api.Session) string {
	if s == nil {
		return "-"
	}
	return s.ID()
}

func connIDOf(c api.Connection) string {
	if c == nil {
		return "-"
	}
	return c.ID()
}
