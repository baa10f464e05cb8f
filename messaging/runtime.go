// File: messaging/runtime.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package messaging

import (
	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-session/api"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// Runtime implements api.Runtime.
type Runtime struct {
	dialers map[string]api.Dialer
}

var _ api.Runtime = (*Runtime)(nil)

// Option configures a Runtime.
type Option func(*Runtime)

// WithTransport binds scheme to d for this runtime only.
func WithTransport(scheme string, d api.Dialer) Option {
	return func(r *Runtime) { r.dialers[scheme] = d }
}

// New creates a runtime seeded with the globally registered transports.
func New(opts ...Option) *Runtime {
	r := &Runtime{dialers: registeredTransports()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// NewContext implements api.Runtime.
func (r *Runtime) NewContext(opts api.ContextOptions) (api.Context, error) {
	return NewContext(opts)
}

// NewSession implements api.Runtime.
func (r *Runtime) NewSession(ctx api.Context, params api.SessionParams) (api.Session, error) {
	c, ok := ctx.(*Context)
	if !ok || c == nil {
		return nil, api.NewError(api.ErrCodePrecondition, "context was not created by this runtime")
	}
	return r.newSession(c, params)
}

// Connect implements api.Runtime.
func (r *Runtime) Connect(sess api.Session, ctx api.Context) (api.Connection, error) {
	s, ok := sess.(*Session)
	if !ok || s == nil {
		return nil, api.NewError(api.ErrCodePrecondition, "session was not created by this runtime")
	}
	c, ok := ctx.(*Context)
	if !ok || c == nil {
		return nil, api.NewError(api.ErrCodePrecondition, "context was not created by this runtime")
	}
	return s.connect(c)
}

func (r *Runtime) newSession(ctx *Context, params api.SessionParams) (*Session, error) {
	ep, err := ParseURI(params.URI)
	if err != nil {
		return nil, err
	}
	d, ok := r.dialers[ep.Scheme]
	if !ok {
		return nil, api.Errorf(api.ErrCodeConfig, "no transport registered for scheme %q", ep.Scheme)
	}
	return ctx.addSession(params.URI, ep, d, params.Callbacks)
}
