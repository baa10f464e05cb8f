//go:build !linux
// +build !linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package tcp

import "syscall"

// controlSocket is a no-op; the net package already sets TCP_NODELAY.
func controlSocket(_, _ string, _ syscall.RawConn) error { return nil }
