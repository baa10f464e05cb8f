// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations for testing and development.
// Provides a scriptable in-memory link transport for the messaging runtime.

package fake

import (
	"context"
	"sync"

	"github.com/momentics/hioload-session/api"
)

// Scheme is the URI scheme tests register the fake transport under.
const Scheme = "fake"

// Mode selects how the fake peer answers a session setup.
type Mode int

const (
	// Accept answers setup with an accept frame.
	Accept Mode = iota
	// Refuse fails the dial with ErrCodeRefused.
	Refuse
	// Reject answers setup with a reject frame.
	Reject
	// Silent never answers setup.
	Silent
)

// Transport is a fake implementation of api.Dialer.
type Transport struct {
	mu          sync.Mutex
	mode        Mode
	autoRespond bool
	rejectData  []byte
	dialErr     error
	links       []*Link
	linkCh      chan *Link
}

var _ api.Dialer = (*Transport)(nil)

// NewTransport creates a fake transport answering setups with mode.
func NewTransport(mode Mode) *Transport {
	return &Transport{mode: mode, linkCh: make(chan *Link, 16)}
}

// SetAutoRespond makes every link echo requests back as responses.
func (t *Transport) SetAutoRespond(on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.autoRespond = on
}

// SetRejectData sets the payload carried by reject frames.
func (t *Transport) SetRejectData(b []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rejectData = b
}

// SetDialError makes Dial fail with err regardless of mode.
func (t *Transport) SetDialError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dialErr = err
}

// Dial implements api.Dialer.
func (t *Transport) Dial(_ context.Context, addr string, h api.LinkHandler) (api.Link, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.dialErr != nil {
		return nil, t.dialErr
	}
	if t.mode == Refuse {
		return nil, api.Errorf(api.ErrCodeRefused, "dial %s: connection refused", addr)
	}
	l := newLink(h, t.mode, t.autoRespond, t.rejectData)
	t.links = append(t.links, l)
	select {
	case t.linkCh <- l:
	default:
	}
	return l, nil
}

// Links returns every link dialed so far.
func (t *Transport) Links() []*Link {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Link, len(t.links))
	copy(out, t.links)
	return out
}

// NextLink returns a channel yielding links as they are dialed.
func (t *Transport) NextLink() <-chan *Link {
	return t.linkCh
}

// Link is an in-memory api.Link. Deliveries to the handler happen on one
// goroutine, in the order they were scheduled.
type Link struct {
	h           api.LinkHandler
	mode        Mode
	autoRespond bool
	rejectData  []byte

	mu     sync.Mutex
	sent   []*api.Frame
	events chan func()
	done   bool
	start  sync.Once
	closed chan struct{}
}

var _ api.Link = (*Link)(nil)

func newLink(h api.LinkHandler, mode Mode, autoRespond bool, rejectData []byte) *Link {
	return &Link{
		h:           h,
		mode:        mode,
		autoRespond: autoRespond,
		rejectData:  rejectData,
		events:      make(chan func(), 64),
		closed:      make(chan struct{}),
	}
}

// Start implements api.Link.
func (l *Link) Start() {
	l.start.Do(func() {
		go func() {
			for fn := range l.events {
				fn()
			}
		}()
	})
}

// WriteFrame records f and plays the scripted peer.
func (l *Link) WriteFrame(f *api.Frame) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done {
		return api.NewError(api.ErrCodeClosed, "link is closed")
	}
	l.sent = append(l.sent, f)
	switch f.Type {
	case api.FrameSetup:
		switch l.mode {
		case Accept:
			l.pushLocked(&api.Frame{Type: api.FrameAccept})
		case Reject:
			l.pushLocked(&api.Frame{Type: api.FrameReject, Header: l.rejectData})
		}
	case api.FrameRequest:
		if l.autoRespond {
			l.pushLocked(&api.Frame{Type: api.FrameResponse, SN: f.SN, Header: f.Header, Body: f.Body})
		}
	}
	return nil
}

// Close implements api.Link; the handler sees OnLinkClosed(nil).
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.finishLocked(nil)
	return nil
}

// Respond delivers a response for request sn.
func (l *Link) Respond(sn uint32, header []byte, body ...[]byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pushLocked(&api.Frame{Type: api.FrameResponse, SN: sn, Header: header, Body: body})
}

// PeerClose simulates an orderly close by the peer.
func (l *Link) PeerClose() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.finishLocked(nil)
}

// Break simulates an I/O failure.
func (l *Link) Break(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.finishLocked(err)
}

// Sent returns a copy of every frame written to the link.
func (l *Link) Sent() []*api.Frame {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*api.Frame, len(l.sent))
	copy(out, l.sent)
	return out
}

// SentOfType returns the written frames of type ft.
func (l *Link) SentOfType(ft api.FrameType) []*api.Frame {
	var out []*api.Frame
	for _, f := range l.Sent() {
		if f.Type == ft {
			out = append(out, f)
		}
	}
	return out
}

// Closed is closed once the link has shut down.
func (l *Link) Closed() <-chan struct{} { return l.closed }

func (l *Link) pushLocked(f *api.Frame) {
	if l.done {
		return
	}
	l.events <- func() { l.h.OnFrame(f) }
}

func (l *Link) finishLocked(err error) {
	if l.done {
		return
	}
	l.done = true
	l.events <- func() { l.h.OnLinkClosed(err) }
	close(l.events)
	close(l.closed)
}
