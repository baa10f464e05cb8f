// File: api/pool.go
// Author: momentics <momentics@gmail.com>
//
// Defines the fixed-capacity message pool contract.

package api

// MessagePool hands out preallocated Messages.
//
// Acquire never blocks: when every message is outstanding it fails with
// ErrCodeResourceExhausted. Release must be called exactly once per Acquire.
type MessagePool interface {
	// Acquire returns a reset message or an exhaustion error.
	Acquire() (*Message, error)

	// Release returns a message; releasing twice is an error.
	Release(msg *Message) error

	// Stats exposes accounting for observability and leak checks.
	Stats() MessagePoolStats

	// Close finalizes the pool; it fails while messages are outstanding.
	Close() error
}

// MessagePoolStats aggregates pool accounting.
type MessagePoolStats struct {
	Capacity  int
	InUse     int
	Acquired  uint64
	Released  uint64
	Exhausted uint64
	HighWater int
}
