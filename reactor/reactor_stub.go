//go:build !linux
// +build !linux

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>
//
// Portable channel-based waker for platforms without epoll.

package reactor

import "time"

type chanWaker struct {
	ch chan struct{}
}

// NewWaker constructs the portable waker.
func NewWaker() (Waker, error) {
	return &chanWaker{ch: make(chan struct{}, 1)}, nil
}

func (w *chanWaker) Wake() error {
	select {
	case w.ch <- struct{}{}:
	default:
	}
	return nil
}

func (w *chanWaker) Wait(timeout time.Duration) (bool, error) {
	if timeout < 0 {
		<-w.ch
		return true, nil
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-w.ch:
		return true, nil
	case <-t.C:
		return false, nil
	}
}

func (w *chanWaker) Close() error { return nil }
