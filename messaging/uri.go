// File: messaging/uri.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package messaging

import (
	"net"
	"strconv"
	"strings"

	"github.com/momentics/hioload-session/api"
)

// Endpoint is a parsed session URI.
type Endpoint struct {
	Scheme string
	Host   string
	Port   uint16
}

// ParseURI splits "scheme://address:port". IPv6 addresses must be
// bracketed. Malformed input yields ErrCodeConfig.
func ParseURI(uri string) (Endpoint, error) {
	i := strings.Index(uri, "://")
	if i <= 0 {
		return Endpoint{}, api.Errorf(api.ErrCodeConfig, "uri %q: missing scheme", uri)
	}
	host, port, err := net.SplitHostPort(uri[i+3:])
	if err != nil {
		return Endpoint{}, api.Errorf(api.ErrCodeConfig, "uri %q: %v", uri, err)
	}
	if host == "" {
		return Endpoint{}, api.Errorf(api.ErrCodeConfig, "uri %q: empty address", uri)
	}
	p, err := strconv.ParseUint(port, 10, 16)
	if err != nil {
		return Endpoint{}, api.Errorf(api.ErrCodeConfig, "uri %q: invalid port %q", uri, port)
	}
	return Endpoint{Scheme: uri[:i], Host: host, Port: uint16(p)}, nil
}

// Addr returns the dialable host:port form.
func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.FormatUint(uint64(e.Port), 10))
}

// String re-composes the URI.
func (e Endpoint) String() string {
	return e.Scheme + "://" + e.Addr()
}
