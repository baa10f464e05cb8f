// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package pool

import "sync"

// ObjectPool is a generic object pool.
type ObjectPool[T any] interface {
	Get() T
	Put(T)
}

// SyncPool wraps sync.Pool for generic usage. Objects may be dropped by the
// garbage collector at any time, so it only suits scratch values whose loss
// costs an allocation, never correctness.
type SyncPool[T any] struct {
	pool  *sync.Pool
	reset func(T)
}

var _ ObjectPool[[]byte] = (*SyncPool[[]byte])(nil)

// NewSyncPool creates a new SyncPool with a creator function. reset, when
// non-nil, runs on every object handed back through Put.
func NewSyncPool[T any](creator func() T, reset func(T)) *SyncPool[T] {
	return &SyncPool[T]{
		pool:  &sync.Pool{New: func() any { return creator() }},
		reset: reset,
	}
}

// Get returns a pooled object or a fresh one.
func (sp *SyncPool[T]) Get() T {
	return sp.pool.Get().(T)
}

// Put hands obj back for reuse.
func (sp *SyncPool[T]) Put(obj T) {
	if sp.reset != nil {
		sp.reset(obj)
	}
	sp.pool.Put(obj)
}
