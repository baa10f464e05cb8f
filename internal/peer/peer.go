// File: internal/peer/peer.go
// Package peer is a minimal session peer speaking the transport/tcp framing.
// It accepts or rejects session setups and echoes requests back as responses.
// Tests only; it is not a server.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package peer

import (
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-session/api"
	"github.com/momentics/hioload-session/transport/tcp"
)

// Options controls how the peer answers.
type Options struct {
	Reject     bool   // answer every setup with a reject frame
	RejectData []byte // reject payload
	CloseAfter bool   // close the link right after the first response
}

// Peer is a running test peer.
type Peer struct {
	ln   net.Listener
	opts Options

	mu     sync.Mutex
	closed bool
	links  map[*tcp.Link]struct{}
	wg     sync.WaitGroup

	setups   atomic.Int64
	requests atomic.Int64
	fins     atomic.Int64
}

// Start listens on addr ("127.0.0.1:0" picks a free port) and serves in the
// background.
func Start(addr string, opts Options) (*Peer, error) {
	p := &Peer{opts: opts, links: make(map[*tcp.Link]struct{})}
	cfg := &tcp.ListenerConfig{Addr: addr, ConnHandler: p.serveConn}
	ln, err := tcp.Listen(cfg)
	if err != nil {
		return nil, err
	}
	p.ln = ln
	go tcp.Serve(ln, cfg)
	return p, nil
}

// Host returns the bound IP address.
func (p *Peer) Host() string {
	return p.ln.Addr().(*net.TCPAddr).IP.String()
}

// Port returns the bound port.
func (p *Peer) Port() uint16 {
	return uint16(p.ln.Addr().(*net.TCPAddr).Port)
}

// URI returns the tcp URI of the peer.
func (p *Peer) URI() string {
	return tcp.Scheme + "://" + net.JoinHostPort(p.Host(), strconv.Itoa(int(p.Port())))
}

// Setups returns the number of session setups seen.
func (p *Peer) Setups() int64 { return p.setups.Load() }

// Requests returns the number of requests answered.
func (p *Peer) Requests() int64 { return p.requests.Load() }

// Fins returns the number of orderly closes received.
func (p *Peer) Fins() int64 { return p.fins.Load() }

// Close stops accepting, drops every link and waits for readers to exit.
func (p *Peer) Close() error {
	err := p.ln.Close()
	p.mu.Lock()
	p.closed = true
	for l := range p.links {
		_ = l.Close()
	}
	p.mu.Unlock()
	p.wg.Wait()
	return err
}

func (p *Peer) serveConn(conn net.Conn) {
	pc := &peerConn{p: p}
	l := tcp.NewLink(conn, pc)
	pc.link = l
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		_ = conn.Close()
		return
	}
	p.links[l] = struct{}{}
	p.wg.Add(1)
	p.mu.Unlock()
	l.Start()
}

type peerConn struct {
	p    *Peer
	link *tcp.Link
}

func (c *peerConn) OnFrame(f *api.Frame) {
	switch f.Type {
	case api.FrameSetup:
		c.p.setups.Add(1)
		if c.p.opts.Reject {
			_ = c.link.WriteFrame(&api.Frame{Type: api.FrameReject, Header: c.p.opts.RejectData})
			return
		}
		_ = c.link.WriteFrame(&api.Frame{Type: api.FrameAccept})
	case api.FrameRequest:
		c.p.requests.Add(1)
		_ = c.link.WriteFrame(&api.Frame{Type: api.FrameResponse, SN: f.SN, Header: f.Header, Body: f.Body})
		if c.p.opts.CloseAfter {
			_ = c.link.WriteFrame(&api.Frame{Type: api.FrameFin})
			_ = c.link.Close()
		}
	case api.FrameFin:
		c.p.fins.Add(1)
		_ = c.link.Close()
	}
}

func (c *peerConn) OnLinkClosed(error) {
	c.p.mu.Lock()
	delete(c.p.links, c.link)
	c.p.mu.Unlock()
	c.p.wg.Done()
}
