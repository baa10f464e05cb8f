// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package tcp

import (
	"bufio"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-session/api"
)

// Link is a framed full-duplex channel over a net.Conn.
type Link struct {
	conn    net.Conn
	h       api.LinkHandler
	writeMu sync.Mutex
	start   sync.Once
	closed  atomic.Bool
}

var _ api.Link = (*Link)(nil)

// NewLink wraps an established connection. Frames are delivered to h once
// Start is called.
func NewLink(conn net.Conn, h api.LinkHandler) *Link {
	return &Link{conn: conn, h: h}
}

// Start launches the reader goroutine; subsequent calls are no-ops.
func (l *Link) Start() {
	l.start.Do(func() { go l.readLoop() })
}

// WriteFrame encodes and writes f with one writev.
func (l *Link) WriteFrame(f *api.Frame) error {
	if l.closed.Load() {
		return api.NewError(api.ErrCodeClosed, "link is closed")
	}
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	return WriteFrame(l.conn, f)
}

// Close closes the socket; the reader reports OnLinkClosed(nil).
func (l *Link) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	return l.conn.Close()
}

// RemoteAddr returns the peer address.
func (l *Link) RemoteAddr() net.Addr { return l.conn.RemoteAddr() }

func (l *Link) readLoop() {
	br := bufio.NewReader(l.conn)
	for {
		f, err := ReadFrame(br)
		if err != nil {
			if err == io.EOF || l.closed.Load() {
				err = nil
			}
			_ = l.Close()
			l.h.OnLinkClosed(err)
			return
		}
		l.h.OnFrame(f)
	}
}
