// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Single-goroutine cooperative event loop used by the messaging runtime.
// Producers on any goroutine post tasks to a bounded inbox; the loop moves
// them onto an unbounded FIFO ready queue and runs them one at a time, so
// tasks from one producer run in the order they were posted.
package concurrency
