// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral wakeup primitive for the single-goroutine event loop.

package reactor

import (
	"math"
	"time"
)

// Waker parks the loop goroutine until another goroutine has new work for it.
// Wakeups are level-triggered: a Wake that happens before Wait is not lost.
type Waker interface {
	// Wake makes the current or next Wait return. Safe from any goroutine.
	Wake() error

	// Wait blocks until woken or until timeout elapses. A negative timeout
	// blocks indefinitely. It reports whether a wakeup was consumed; an
	// interrupted wait returns (false, nil) so the caller can recompute its
	// deadline.
	Wait(timeout time.Duration) (bool, error)

	// Close releases OS resources.
	Close() error
}

// timeoutMillis converts timeout to epoll/poll milliseconds, rounding up so
// a short positive timeout never turns into a busy poll. The result is
// clamped to what epoll_wait accepts; callers recompute their deadline after
// an early return.
func timeoutMillis(timeout time.Duration) int {
	if timeout < 0 {
		return -1
	}
	ms := timeout / time.Millisecond
	if timeout%time.Millisecond != 0 {
		ms++
	}
	if ms > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(ms)
}
