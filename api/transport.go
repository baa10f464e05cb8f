// File: api/transport.go
// Author: momentics <momentics@gmail.com>
//
// Defines the framed link abstraction a runtime drives its sessions over.

package api

import "context"

// FrameType identifies link frames.
type FrameType uint8

const (
	FrameSetup    FrameType = 0x01
	FrameAccept   FrameType = 0x02
	FrameReject   FrameType = 0x03
	FrameRequest  FrameType = 0x04
	FrameResponse FrameType = 0x05
	FrameFin      FrameType = 0x06
)

func (t FrameType) String() string {
	switch t {
	case FrameSetup:
		return "setup"
	case FrameAccept:
		return "accept"
	case FrameReject:
		return "reject"
	case FrameRequest:
		return "request"
	case FrameResponse:
		return "response"
	case FrameFin:
		return "fin"
	default:
		return "invalid"
	}
}

// Frame limits every Link implementation honours.
const (
	MaxFrameHeader  = 0xffff
	MaxFrameEntries = 255
)

// Frame is one unit on a link.
type Frame struct {
	Type   FrameType
	SN     uint32
	Header []byte
	Body   [][]byte
}

// Link is a full-duplex framed channel to a peer.
type Link interface {
	// Start begins delivering inbound frames to the LinkHandler given to
	// Dial. Nothing is delivered before Start.
	Start()

	// WriteFrame sends f; safe for one writer at a time.
	WriteFrame(f *Frame) error

	// Close shuts the link down. OnLinkClosed is still delivered.
	Close() error
}

// LinkHandler receives inbound traffic. Calls come from one goroutine per
// link, in wire order.
type LinkHandler interface {
	OnFrame(f *Frame)
	// OnLinkClosed is the last call for a link. A nil err means the peer
	// closed in order.
	OnLinkClosed(err error)
}

// Dialer opens links for one URI scheme. Dial may block; refusals should be
// reported as *Error with ErrCodeRefused.
type Dialer interface {
	Dial(ctx context.Context, addr string, h LinkHandler) (Link, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, addr string, h LinkHandler) (Link, error)

// Dial implements Dialer.
func (f DialerFunc) Dial(ctx context.Context, addr string, h LinkHandler) (Link, error) {
	return f(ctx, addr, h)
}
