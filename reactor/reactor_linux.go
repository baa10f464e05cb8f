//go:build linux
// +build linux

// File: reactor/reactor_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux epoll(7) + eventfd(2) waker.

package reactor

import (
	"encoding/binary"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// epollWaker parks in epoll_wait on a single eventfd.
type epollWaker struct {
	epfd   int
	efd    int
	events [1]unix.EpollEvent
}

// NewWaker constructs the Linux waker.
func NewWaker() (Waker, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, errors.Wrap(err, "epoll create")
	}
	efd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, errors.Wrap(err, "eventfd")
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(efd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, efd, &ev); err != nil {
		_ = unix.Close(efd)
		_ = unix.Close(epfd)
		return nil, errors.Wrap(err, "epoll ctl add")
	}
	return &epollWaker{epfd: epfd, efd: efd}, nil
}

// Wake bumps the eventfd counter.
func (w *epollWaker) Wake() error {
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	if _, err := unix.Write(w.efd, buf[:]); err != nil && err != unix.EAGAIN {
		// EAGAIN means the counter is saturated, the loop is awake anyway.
		return errors.Wrap(err, "eventfd write")
	}
	return nil
}

// Wait blocks in epoll_wait and drains the eventfd counter.
func (w *epollWaker) Wait(timeout time.Duration) (bool, error) {
	n, err := unix.EpollWait(w.epfd, w.events[:], timeoutMillis(timeout))
	if err != nil {
		if err == unix.EINTR {
			return false, nil
		}
		return false, errors.Wrap(err, "epoll wait")
	}
	if n == 0 {
		return false, nil
	}
	var buf [8]byte
	if _, err := unix.Read(w.efd, buf[:]); err != nil && err != unix.EAGAIN {
		return false, errors.Wrap(err, "eventfd read")
	}
	return true, nil
}

// Close closes both descriptors.
func (w *epollWaker) Close() error {
	err1 := unix.Close(w.efd)
	err2 := unix.Close(w.epfd)
	if err1 != nil {
		return err1
	}
	return err2
}
