// File: internal/concurrency/eventloop.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// EventLoop runs tasks on the goroutine that calls Run. It supports a run
// timeout, cooperative Stop from inside a task, and deferred tasks that are
// appended behind everything already queued.

package concurrency

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-session/api"
	"github.com/momentics/hioload-session/reactor"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// Task is a unit of work executed on the loop goroutine.
type Task func()

const (
	defaultBatchSize = 16
	defaultInboxSize = 256
)

// EventLoop is a batched, single-consumer task loop.
type EventLoop struct {
	inbox     chan Task    // cross-goroutine producers
	ready     *queue.Queue // loop-confined FIFO of Task
	waker     reactor.Waker
	batchSize int

	quitCh      chan struct{} // closed on Close
	wakeMu      sync.RWMutex  // keeps the waker open while a Post is waking it
	closed      atomic.Bool
	running     atomic.Bool
	dispatching atomic.Bool
	stopReq     bool
	fault       error // set when a task panicked
}

// NewEventLoop creates a loop. Non-positive sizes fall back to defaults.
func NewEventLoop(batchSize, inboxSize int) (*EventLoop, error) {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if inboxSize <= 0 {
		inboxSize = defaultInboxSize
	}
	w, err := reactor.NewWaker()
	if err != nil {
		return nil, api.Errorf(api.ErrCodeResource, "allocate loop waker: %v", err)
	}
	return &EventLoop{
		inbox:     make(chan Task, inboxSize),
		ready:     queue.New(),
		waker:     w,
		batchSize: batchSize,
		quitCh:    make(chan struct{}),
	}, nil
}

// Post hands t to the loop from any goroutine. It blocks while the inbox is
// full and returns false once the loop is closed.
func (el *EventLoop) Post(t Task) bool {
	el.wakeMu.RLock()
	defer el.wakeMu.RUnlock()
	if el.closed.Load() {
		return false
	}
	select {
	case el.inbox <- t:
	case <-el.quitCh:
		return false
	}
	if err := el.waker.Wake(); err != nil {
		logger.WithError(err).Error("event loop wake failed")
	}
	return true
}

// Defer queues t behind every task already known to the loop. Loop goroutine
// only.
func (el *EventLoop) Defer(t Task) {
	el.ready.Add(t)
}

// InLoop reports whether a task is currently executing.
func (el *EventLoop) InLoop() bool {
	return el.dispatching.Load()
}

// Pending returns the approximate number of queued tasks.
func (el *EventLoop) Pending() int {
	return len(el.inbox) + el.ready.Length()
}

// Run executes tasks until Stop is called from a task or timeout elapses.
// A negative timeout waits forever. A task that panics stops the loop and
// Run returns an ErrCodeInternal error.
func (el *EventLoop) Run(timeout time.Duration) error {
	if el.closed.Load() {
		return api.NewError(api.ErrCodePrecondition, "event loop is closed")
	}
	if !el.running.CompareAndSwap(false, true) {
		return api.NewError(api.ErrCodePrecondition, "event loop is already running")
	}
	defer el.running.Store(false)
	el.stopReq = false
	el.fault = nil

	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		el.drainInbox()
		for el.ready.Length() > 0 && !el.stopReq {
			el.dispatch(el.ready.Remove().(Task))
		}
		if el.stopReq {
			return el.fault
		}
		if len(el.inbox) > 0 {
			continue
		}
		wait := api.Infinite
		if !deadline.IsZero() {
			wait = time.Until(deadline)
			if wait <= 0 {
				return api.Errorf(api.ErrCodeTimeout, "event loop timed out after %s", timeout)
			}
		}
		if _, err := el.waker.Wait(wait); err != nil {
			return errors.Wrap(api.NewError(api.ErrCodeInternal, err.Error()), "event loop wait failed")
		}
	}
}

// Stop asks Run to return after the current task. It is only valid from a
// task running on the loop; calls from other goroutines are not supported
// and calls outside a task are rejected.
func (el *EventLoop) Stop() error {
	if !el.dispatching.Load() {
		return api.NewError(api.ErrCodePrecondition, "stop called outside of a loop callback")
	}
	el.stopReq = true
	return nil
}

// Close releases the waker. Queued tasks are dropped.
func (el *EventLoop) Close() error {
	if !el.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(el.quitCh)
	el.wakeMu.Lock()
	defer el.wakeMu.Unlock()
	if dropped := el.Pending(); dropped > 0 {
		logger.WithField("dropped", dropped).Warn("event loop closed with pending tasks")
	}
	return el.waker.Close()
}

func (el *EventLoop) drainInbox() {
	for i := 0; i < el.batchSize; i++ {
		select {
		case t := <-el.inbox:
			el.ready.Add(t)
		default:
			return
		}
	}
}

func (el *EventLoop) dispatch(t Task) {
	el.dispatching.Store(true)
	defer func() {
		el.dispatching.Store(false)
		if r := recover(); r != nil {
			logger.WithField("panic", r).Error("event loop task panicked")
			el.fault = api.Errorf(api.ErrCodeInternal, "event loop task panicked: %v", r)
			el.stopReq = true
		}
	}()
	t()
}
