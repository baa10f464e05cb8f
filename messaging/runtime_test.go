package messaging

import (
	"net"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-session/api"
	"github.com/momentics/hioload-session/fake"
	"github.com/momentics/hioload-session/internal/peer"
	"github.com/momentics/hioload-session/pool"
)

const runBound = 5 * time.Second

// recorder collects events and completions the way a well-behaved owner
// reacts to them.
type recorder struct {
	ctx         *Context
	kinds       []api.EventKind
	reasons     []api.ErrorCode
	completions []api.ErrorCode
	rejectData  []byte

	onEvent    func(api.SessionEvent)
	onComplete func(*api.Message, api.ErrorCode)
}

func (r *recorder) callbacks() api.SessionCallbacks {
	return api.SessionCallbacks{
		OnSessionEvent: func(_ api.Session, ev api.SessionEvent) {
			r.kinds = append(r.kinds, ev.Kind())
			r.reasons = append(r.reasons, ev.Reason())
			if r.onEvent != nil {
				r.onEvent(ev)
			}
			switch e := ev.(type) {
			case api.ConnectionTeardown:
				_ = e.Conn.Close()
			case api.SessionReject:
				r.rejectData = e.Data
				_ = r.ctx.Stop()
			case api.SessionTeardown:
				_ = r.ctx.Stop()
			}
		},
		OnMessageComplete: func(_ api.Session, m *api.Message, reason api.ErrorCode) {
			r.completions = append(r.completions, reason)
			if r.onComplete != nil {
				r.onComplete(m, reason)
			}
		},
	}
}

func newFakeSession(t *testing.T, tr *fake.Transport) (*Runtime, *Context, *Session, *recorder) {
	t.Helper()
	rt := New(WithTransport(fake.Scheme, tr))
	ctx, err := NewContext(api.ContextOptions{})
	require.NoError(t, err)
	rec := &recorder{ctx: ctx}
	sess, err := rt.newSession(ctx, api.SessionParams{URI: "fake://127.0.0.1:2061", Callbacks: rec.callbacks()})
	require.NoError(t, err)
	return rt, ctx, sess, rec
}

func helloMessage() *api.Message {
	m := api.NewMessage(api.DefaultMaxSGE)
	m.Out.Header = []byte("hello\x00")
	return m
}

func shutdown(t *testing.T, ctx *Context, sess *Session) {
	t.Helper()
	require.NoError(t, sess.Close())
	require.NoError(t, ctx.Close())
}

func TestUnknownScheme(t *testing.T) {
	rt := New()
	ctx, err := rt.NewContext(api.ContextOptions{})
	require.NoError(t, err)
	_, err = rt.NewSession(ctx, api.SessionParams{URI: "nope://127.0.0.1:1"})
	assert.True(t, api.IsConfigError(err))
	require.NoError(t, ctx.Close())
}

func TestForeignHandlesRejected(t *testing.T) {
	rt := New()
	_, err := rt.NewSession(nil, api.SessionParams{URI: "tcp://127.0.0.1:1"})
	assert.Equal(t, api.ErrCodePrecondition, api.CodeOf(err))
	_, err = rt.Connect(nil, nil)
	assert.Equal(t, api.ErrCodePrecondition, api.CodeOf(err))
}

func TestRefusedSequence(t *testing.T) {
	rt, ctx, sess, rec := newFakeSession(t, fake.NewTransport(fake.Refuse))
	conn, err := rt.Connect(sess, ctx)
	require.NoError(t, err)
	require.NoError(t, conn.Send(helloMessage()))

	require.NoError(t, ctx.Run(runBound))
	assert.Equal(t, []api.EventKind{
		api.EventConnectionRefused,
		api.EventConnectionTeardown,
		api.EventSessionTeardown,
	}, rec.kinds)
	assert.Equal(t, api.ErrCodeRefused, rec.reasons[0])
	assert.Equal(t, []api.ErrorCode{api.ErrCodeFlushed}, rec.completions)
	assert.Equal(t, api.ConnDestroyed, conn.State())
	assert.Equal(t, api.SessionStateTeardown, sess.State())
	assert.Zero(t, ctx.Inflight())
	shutdown(t, ctx, sess)
}

func TestDialErrorIsConnectionError(t *testing.T) {
	tr := fake.NewTransport(fake.Accept)
	tr.SetDialError(errors.New("no route"))
	rt, ctx, sess, rec := newFakeSession(t, tr)
	_, err := rt.Connect(sess, ctx)
	require.NoError(t, err)

	require.NoError(t, ctx.Run(runBound))
	assert.Equal(t, []api.EventKind{
		api.EventConnectionError,
		api.EventConnectionTeardown,
		api.EventSessionTeardown,
	}, rec.kinds)
	assert.Equal(t, api.ErrCodeInternal, rec.reasons[0])
	shutdown(t, ctx, sess)
}

func TestRoundTripThenDisconnect(t *testing.T) {
	tr := fake.NewTransport(fake.Accept)
	tr.SetAutoRespond(true)
	rt, ctx, sess, rec := newFakeSession(t, tr)
	conn, err := rt.Connect(sess, ctx)
	require.NoError(t, err)

	var reply []byte
	rec.onComplete = func(m *api.Message, reason api.ErrorCode) {
		if reason == api.ErrCodeOK {
			reply = append([]byte(nil), m.In.Header...)
			require.NoError(t, conn.Disconnect())
		}
	}
	msg := helloMessage()
	require.NoError(t, msg.Out.SetEntry(0, []byte("body")))
	require.NoError(t, msg.Out.SetNents(1))
	require.NoError(t, conn.Send(msg))

	require.NoError(t, ctx.Run(runBound))
	assert.Equal(t, []api.EventKind{
		api.EventConnectionEstablished,
		api.EventConnectionClosed,
		api.EventConnectionTeardown,
		api.EventSessionTeardown,
	}, rec.kinds)
	assert.Equal(t, []api.ErrorCode{api.ErrCodeOK}, rec.completions)
	assert.Equal(t, []byte("hello\x00"), reply)
	assert.Equal(t, [][]byte{[]byte("body")}, msg.In.Entries())

	link := tr.Links()[0]
	setup := link.SentOfType(api.FrameSetup)
	require.Len(t, setup, 1)
	assert.Equal(t, "fake://127.0.0.1:2061", string(setup[0].Header))
	assert.Len(t, link.SentOfType(api.FrameRequest), 1)
	assert.Len(t, link.SentOfType(api.FrameFin), 1)
	shutdown(t, ctx, sess)
}

func TestPeerDisconnectFlushesInflight(t *testing.T) {
	tr := fake.NewTransport(fake.Accept)
	rt, ctx, sess, rec := newFakeSession(t, tr)
	conn, err := rt.Connect(sess, ctx)
	require.NoError(t, err)
	rec.onEvent = func(ev api.SessionEvent) {
		if ev.Kind() == api.EventConnectionEstablished {
			tr.Links()[0].PeerClose()
		}
	}
	require.NoError(t, conn.Send(helloMessage()))

	require.NoError(t, ctx.Run(runBound))
	assert.Equal(t, []api.EventKind{
		api.EventConnectionEstablished,
		api.EventConnectionDisconnected,
		api.EventConnectionTeardown,
		api.EventSessionTeardown,
	}, rec.kinds)
	assert.Equal(t, []api.ErrorCode{api.ErrCodeFlushed}, rec.completions)
	shutdown(t, ctx, sess)
}

func TestLinkFailureIsConnectionError(t *testing.T) {
	tr := fake.NewTransport(fake.Accept)
	rt, ctx, sess, rec := newFakeSession(t, tr)
	_, err := rt.Connect(sess, ctx)
	require.NoError(t, err)
	rec.onEvent = func(ev api.SessionEvent) {
		if ev.Kind() == api.EventConnectionEstablished {
			tr.Links()[0].Break(errors.New("reset"))
		}
	}

	require.NoError(t, ctx.Run(runBound))
	assert.Equal(t, []api.EventKind{
		api.EventConnectionEstablished,
		api.EventConnectionError,
		api.EventConnectionTeardown,
		api.EventSessionTeardown,
	}, rec.kinds)
	assert.Equal(t, api.ErrCodeConnReset, rec.reasons[1])
	shutdown(t, ctx, sess)
}

func TestRejectDeliversSessionRejectOnly(t *testing.T) {
	tr := fake.NewTransport(fake.Reject)
	tr.SetRejectData([]byte("busy"))
	rt, ctx, sess, rec := newFakeSession(t, tr)
	conn, err := rt.Connect(sess, ctx)
	require.NoError(t, err)
	require.NoError(t, conn.Send(helloMessage()))

	require.NoError(t, ctx.Run(runBound))
	assert.Equal(t, []api.EventKind{api.EventSessionReject}, rec.kinds)
	assert.Equal(t, []byte("busy"), rec.rejectData)
	assert.Equal(t, []api.ErrorCode{api.ErrCodeRejected}, rec.completions)
	assert.Equal(t, api.SessionRejected, sess.State())
	shutdown(t, ctx, sess)
	assert.Equal(t, api.ConnDestroyed, conn.State())
}

func TestContextCloseWithLiveSessionRejected(t *testing.T) {
	_, ctx, sess, _ := newFakeSession(t, fake.NewTransport(fake.Silent))
	err := ctx.Close()
	require.Error(t, err)
	assert.Equal(t, api.ErrCodeBusy, api.CodeOf(err))
	assert.Equal(t, 1, ctx.LiveSessions())
	shutdown(t, ctx, sess)
}

func TestConnectionCloseBeforeTeardownRejected(t *testing.T) {
	rt, ctx, sess, _ := newFakeSession(t, fake.NewTransport(fake.Silent))
	conn, err := rt.Connect(sess, ctx)
	require.NoError(t, err)
	assert.Equal(t, api.ErrCodePrecondition, api.CodeOf(conn.Close()))

	_, err = rt.Connect(sess, ctx)
	assert.Equal(t, api.ErrCodePrecondition, api.CodeOf(err))
	shutdown(t, ctx, sess)
}

func TestSendValidation(t *testing.T) {
	rt, ctx, sess, rec := newFakeSession(t, fake.NewTransport(fake.Silent))
	conn, err := rt.Connect(sess, ctx)
	require.NoError(t, err)

	assert.Equal(t, api.ErrCodePrecondition, api.CodeOf(conn.Send(nil)))

	bad := helloMessage()
	require.NoError(t, bad.Out.SetNents(2))
	assert.Equal(t, api.ErrCodePrecondition, api.CodeOf(conn.Send(bad)))

	msg := helloMessage()
	require.NoError(t, conn.Send(msg))
	assert.Equal(t, api.ErrCodePrecondition, api.CodeOf(conn.Send(msg)))
	assert.Equal(t, 1, ctx.Inflight())

	// Destroying the session flushes the message synchronously.
	require.NoError(t, sess.Close())
	assert.Equal(t, []api.ErrorCode{api.ErrCodeFlushed}, rec.completions)
	assert.Zero(t, ctx.Inflight())
	assert.Equal(t, api.ErrCodeClosed, api.CodeOf(conn.Send(helloMessage())))
	require.NoError(t, ctx.Close())
}

func TestSendRejectsReleasedMessage(t *testing.T) {
	tr := fake.NewTransport(fake.Accept)
	tr.SetAutoRespond(true)
	rt, ctx, sess, rec := newFakeSession(t, tr)
	conn, err := rt.Connect(sess, ctx)
	require.NoError(t, err)

	mp := pool.NewMessagePool(1)
	msg, err := mp.Acquire()
	require.NoError(t, err)
	msg.Out.Header = []byte("hello\x00")

	var resendErr error
	rec.onComplete = func(m *api.Message, reason api.ErrorCode) {
		require.NoError(t, mp.Release(m))
		resendErr = conn.Send(m)
		require.NoError(t, conn.Disconnect())
	}
	require.NoError(t, conn.Send(msg))

	require.NoError(t, ctx.Run(runBound))
	assert.Equal(t, api.ErrCodePrecondition, api.CodeOf(resendErr))
	assert.Equal(t, []api.ErrorCode{api.ErrCodeOK}, rec.completions)
	assert.Len(t, tr.Links()[0].SentOfType(api.FrameRequest), 1)
	assert.Zero(t, mp.Stats().InUse)
	require.NoError(t, mp.Close())
	shutdown(t, ctx, sess)
}

func TestSendRejectsFrameLimits(t *testing.T) {
	rt, ctx, sess, rec := newFakeSession(t, fake.NewTransport(fake.Silent))
	conn, err := rt.Connect(sess, ctx)
	require.NoError(t, err)

	big := helloMessage()
	big.Out.Header = make([]byte, api.MaxFrameHeader+1)
	assert.Equal(t, api.ErrCodePrecondition, api.CodeOf(conn.Send(big)))

	wide := api.NewMessage(api.MaxFrameEntries + 1)
	for i := 0; i <= api.MaxFrameEntries; i++ {
		require.NoError(t, wide.Out.SetEntry(i, []byte{byte(i)}))
	}
	require.NoError(t, wide.Out.SetNents(api.MaxFrameEntries+1))
	assert.Equal(t, api.ErrCodePrecondition, api.CodeOf(conn.Send(wide)))

	edge := helloMessage()
	edge.Out.Header = make([]byte, api.MaxFrameHeader)
	require.NoError(t, conn.Send(edge))
	assert.Equal(t, 1, ctx.Inflight())

	require.NoError(t, sess.Close())
	assert.Equal(t, []api.ErrorCode{api.ErrCodeFlushed}, rec.completions)
	require.NoError(t, ctx.Close())
}

func TestRunTimesOutWithoutEvents(t *testing.T) {
	rt, ctx, sess, rec := newFakeSession(t, fake.NewTransport(fake.Silent))
	_, err := rt.Connect(sess, ctx)
	require.NoError(t, err)

	err = ctx.Run(50 * time.Millisecond)
	assert.Equal(t, api.ErrCodeTimeout, api.CodeOf(err))
	assert.Empty(t, rec.kinds)
	assert.Equal(t, api.ErrCodePrecondition, api.CodeOf(ctx.Stop()))
	shutdown(t, ctx, sess)
}

func TestTCPRoundTrip(t *testing.T) {
	p, err := peer.Start("127.0.0.1:0", peer.Options{})
	require.NoError(t, err)
	defer p.Close()

	rt := New()
	ctx, err := NewContext(api.ContextOptions{})
	require.NoError(t, err)
	rec := &recorder{ctx: ctx}
	s, err := rt.NewSession(ctx, api.SessionParams{URI: p.URI(), Callbacks: rec.callbacks()})
	require.NoError(t, err)
	sess := s.(*Session)
	conn, err := rt.Connect(sess, ctx)
	require.NoError(t, err)
	rec.onComplete = func(_ *api.Message, reason api.ErrorCode) {
		if reason == api.ErrCodeOK {
			require.NoError(t, conn.Disconnect())
		}
	}
	msg := helloMessage()
	require.NoError(t, conn.Send(msg))

	require.NoError(t, ctx.Run(runBound))
	assert.Equal(t, []api.EventKind{
		api.EventConnectionEstablished,
		api.EventConnectionClosed,
		api.EventConnectionTeardown,
		api.EventSessionTeardown,
	}, rec.kinds)
	assert.Equal(t, []api.ErrorCode{api.ErrCodeOK}, rec.completions)
	assert.Equal(t, []byte("hello\x00"), msg.In.Header)
	assert.EqualValues(t, 1, p.Setups())
	assert.EqualValues(t, 1, p.Requests())
	shutdown(t, ctx, sess)
}

func TestTCPRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	rt := New()
	ctx, err := NewContext(api.ContextOptions{})
	require.NoError(t, err)
	rec := &recorder{ctx: ctx}
	s, err := rt.NewSession(ctx, api.SessionParams{URI: "tcp://" + addr, Callbacks: rec.callbacks()})
	require.NoError(t, err)
	_, err = rt.Connect(s, ctx)
	require.NoError(t, err)

	require.NoError(t, ctx.Run(runBound))
	require.NotEmpty(t, rec.kinds)
	assert.Equal(t, api.EventConnectionRefused, rec.kinds[0])
	assert.Equal(t, api.EventSessionTeardown, rec.kinds[len(rec.kinds)-1])
	shutdown(t, ctx, s.(*Session))
}

func TestAvailableTransports(t *testing.T) {
	RegisterTransport(fake.Scheme, fake.NewTransport(fake.Accept))
	assert.Contains(t, AvailableTransports(), "tcp")
	assert.Contains(t, AvailableTransports(), fake.Scheme)
}
