// File: client/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package client

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/momentics/hioload-session/api"
	"github.com/momentics/hioload-session/pool"
	"github.com/momentics/hioload-session/transport/tcp"
)

const (
	DefaultHost    = "127.0.0.1"
	DefaultPort    = 2061
	DefaultTimeout = 30 * time.Second
	Version        = "1.0.0"

	// MaxHostLen bounds the host argument; longer input is a config error.
	MaxHostLen = 255
)

// Config holds harness parameters.
type Config struct {
	Host     string        // peer address, IPv6 with or without brackets
	Port     uint16        // peer port
	Scheme   string        // transport scheme of the endpoint URI
	Timeout  time.Duration // loop bound, 0 = wait forever
	PoolSize int           // message pool capacity
	MaxSGE   int           // scatter-gather entries per message
	Linger   bool          // keep the session open after the reply
}

// DefaultConfig returns the harness defaults.
func DefaultConfig() *Config {
	return &Config{
		Host:     DefaultHost,
		Port:     DefaultPort,
		Scheme:   tcp.Scheme,
		Timeout:  DefaultTimeout,
		PoolSize: pool.DefaultCapacity,
		MaxSGE:   api.DefaultMaxSGE,
	}
}

// Validate rejects configurations the driver cannot run with. Every failure
// is an ErrCodeConfig error.
func (c *Config) Validate() error {
	if err := ValidateHost(c.Host); err != nil {
		return err
	}
	switch {
	case c.Scheme == "" || strings.ContainsAny(c.Scheme, ":/"):
		return api.Errorf(api.ErrCodeConfig, "invalid scheme %q", c.Scheme)
	case c.Timeout < 0:
		return api.Errorf(api.ErrCodeConfig, "negative timeout %s", c.Timeout)
	case c.PoolSize <= 0:
		return api.Errorf(api.ErrCodeConfig, "pool size must be positive, got %d", c.PoolSize)
	case c.MaxSGE < 0:
		return api.Errorf(api.ErrCodeConfig, "negative scatter-gather size %d", c.MaxSGE)
	}
	return nil
}

// ValidateHost checks a host argument. Colons are only allowed inside an IPv6
// literal.
func ValidateHost(host string) error {
	switch {
	case host == "":
		return api.NewError(api.ErrCodeConfig, "empty host")
	case len(host) > MaxHostLen:
		return api.Errorf(api.ErrCodeConfig, "host is %d bytes, limit is %d", len(host), MaxHostLen).
			WithContext("host_len", len(host))
	case strings.ContainsAny(host, " \t\r\n/"):
		return api.Errorf(api.ErrCodeConfig, "invalid host %q", host)
	}
	bracketed := strings.HasPrefix(host, "[") || strings.HasSuffix(host, "]")
	if bracketed && !(len(host) > 2 && host[0] == '[' && host[len(host)-1] == ']') {
		return api.Errorf(api.ErrCodeConfig, "host %q: unbalanced brackets", host)
	}
	if !bracketed && !strings.Contains(host, ":") {
		return nil
	}
	bare := strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	if i := strings.IndexByte(bare, '%'); i > 0 {
		bare = bare[:i]
	}
	if !strings.Contains(bare, ":") || net.ParseIP(bare) == nil {
		return api.Errorf(api.ErrCodeConfig, "host %q: colon or brackets outside an IPv6 address", host)
	}
	return nil
}

// BuildEndpoint composes "<scheme>://<host>:<port>". Bare IPv6 literals are
// bracketed; nothing else is transformed.
func BuildEndpoint(scheme, host string, port uint16) string {
	if strings.Contains(host, ":") && !strings.HasPrefix(host, "[") {
		host = "[" + host + "]"
	}
	return scheme + "://" + host + ":" + strconv.FormatUint(uint64(port), 10)
}
