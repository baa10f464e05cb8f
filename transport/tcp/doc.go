// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package tcp implements the framed link used by the messaging runtime over
// plain TCP: a length-prefixed frame codec with scatter-gather bodies,
// a dialer that tunes sockets for latency, and a minimal acceptor.
package tcp
