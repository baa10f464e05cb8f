// Package pool
// Author: momentics <momentics@gmail.com>
//
// Fixed-capacity message pool for request/response messages, plus a generic
// sync.Pool wrapper for transient scratch objects.
package pool
