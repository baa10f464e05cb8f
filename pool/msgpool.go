// File: pool/msgpool.go
// Package pool implements the fixed-capacity message pool.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import (
	"sync"

	"github.com/momentics/hioload-session/api"
)

// DefaultCapacity is used when NewMessagePool gets a non-positive capacity.
const DefaultCapacity = 4

// messagePool preallocates every message up front and never grows.
// Exhaustion fails fast, it never blocks.
type messagePool struct {
	mu       sync.Mutex
	free     []*api.Message // LIFO stack of available messages
	acquired map[*api.Message]bool
	capacity int
	closed   bool

	totalAcquired uint64
	totalReleased uint64
	exhausted     uint64
	highWater     int
}

var _ api.MessagePool = (*messagePool)(nil)

// Option customizes a message pool.
type Option func(*messagePool, *int)

// WithMaxSGE sets the scatter-gather capacity of every pooled message.
func WithMaxSGE(n int) Option {
	return func(_ *messagePool, maxSGE *int) { *maxSGE = n }
}

// NewMessagePool allocates capacity messages.
func NewMessagePool(capacity int, opts ...Option) api.MessagePool {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	p := &messagePool{
		free:     make([]*api.Message, 0, capacity),
		acquired: make(map[*api.Message]bool, capacity),
		capacity: capacity,
	}
	maxSGE := api.DefaultMaxSGE
	for _, o := range opts {
		o(p, &maxSGE)
	}
	for i := 0; i < capacity; i++ {
		m := api.NewMessage(maxSGE)
		m.MarkReleased(true)
		p.free = append(p.free, m)
		p.acquired[m] = false
	}
	return p
}

// Acquire pops a free message and resets it.
func (p *messagePool) Acquire() (*api.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, api.NewError(api.ErrCodePrecondition, "message pool is closed")
	}
	n := len(p.free)
	if n == 0 {
		p.exhausted++
		return nil, api.Errorf(api.ErrCodeResourceExhausted, "message pool exhausted").
			WithContext("capacity", p.capacity)
	}
	m := p.free[n-1]
	p.free[n-1] = nil
	p.free = p.free[:n-1]
	p.acquired[m] = true
	m.Reset()
	m.MarkReleased(false)

	p.totalAcquired++
	if inUse := p.capacity - len(p.free); inUse > p.highWater {
		p.highWater = inUse
	}
	return m, nil
}

// Release pushes msg back. Foreign messages and double releases are rejected.
func (p *messagePool) Release(msg *api.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	out, ok := p.acquired[msg]
	if !ok {
		return api.NewError(api.ErrCodePrecondition, "message does not belong to this pool")
	}
	if !out {
		return api.NewError(api.ErrCodePrecondition, "message released twice")
	}
	p.acquired[msg] = false
	msg.MarkReleased(true)
	p.free = append(p.free, msg)
	p.totalReleased++
	return nil
}

// Stats snapshots the accounting counters.
func (p *messagePool) Stats() api.MessagePoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return api.MessagePoolStats{
		Capacity:  p.capacity,
		InUse:     p.capacity - len(p.free),
		Acquired:  p.totalAcquired,
		Released:  p.totalReleased,
		Exhausted: p.exhausted,
		HighWater: p.highWater,
	}
}

// Close finalizes the pool. It fails with ErrCodeBusy while messages are
// outstanding so the caller can report the leak; the pool stays usable.
func (p *messagePool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	if inUse := p.capacity - len(p.free); inUse > 0 {
		return api.Errorf(api.ErrCodeBusy, "message pool has %d outstanding messages", inUse).
			WithContext("outstanding", inUse)
	}
	p.closed = true
	return nil
}
