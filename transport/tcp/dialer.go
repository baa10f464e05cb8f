// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package tcp

import (
	"context"
	"net"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"github.com/momentics/hioload-session/api"
)

// Scheme is the URI scheme served by this package.
const Scheme = "tcp"

// DefaultDialTimeout bounds a dial when the caller context has no deadline.
const DefaultDialTimeout = 10 * time.Second

// Dialer opens tuned TCP links.
type Dialer struct {
	Timeout   time.Duration
	KeepAlive time.Duration
}

var _ api.Dialer = (*Dialer)(nil)

// NewDialer returns a dialer with default timeouts.
func NewDialer() *Dialer {
	return &Dialer{Timeout: DefaultDialTimeout, KeepAlive: 15 * time.Second}
}

// Dial connects to addr. Refusals map to ErrCodeRefused and timeouts to
// ErrCodeTimeout.
func (d *Dialer) Dial(ctx context.Context, addr string, h api.LinkHandler) (api.Link, error) {
	nd := net.Dialer{
		Timeout:   d.Timeout,
		KeepAlive: d.KeepAlive,
		Control:   controlSocket,
	}
	conn, err := nd.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, classifyDialError(addr, err)
	}
	return NewLink(conn, h), nil
}

func classifyDialError(addr string, err error) error {
	var ne net.Error
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return api.Errorf(api.ErrCodeRefused, "dial %s: %v", addr, err)
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &ne) && ne.Timeout():
		return api.Errorf(api.ErrCodeTimeout, "dial %s: %v", addr, err)
	default:
		return api.Errorf(api.ErrCodeInternal, "dial %s: %v", addr, err)
	}
}
