// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the wakeup primitive behind the event loop: epoll
// plus eventfd on Linux, a buffered channel elsewhere.
package reactor
