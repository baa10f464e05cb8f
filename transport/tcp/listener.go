// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package tcp

import (
	"net"

	"github.com/sirupsen/logrus"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// ListenerConfig holds configuration for the TCP acceptor.
type ListenerConfig struct {
	Addr        string         // TCP address to bind (e.g., "127.0.0.1:0")
	ConnHandler func(net.Conn) // runs on its own goroutine per connection
}

// Listen binds cfg.Addr and returns the listener without accepting.
func Listen(cfg *ListenerConfig) (net.Listener, error) {
	return net.Listen("tcp", cfg.Addr)
}

// Serve accepts on ln until it is closed and hands each connection to
// cfg.ConnHandler.
func Serve(ln net.Listener, cfg *ListenerConfig) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			logger.WithError(err).Debug("tcp acceptor stopped")
			return
		}
		go func() {
			defer func() {
				if r := recover(); r != nil {
					logger.WithField("panic", r).Error("panic in connection handler")
					_ = conn.Close()
				}
			}()
			cfg.ConnHandler(conn)
		}()
	}
}
