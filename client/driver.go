// File: client/driver.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package client

import (
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/momentics/hioload-session/api"
	"github.com/momentics/hioload-session/control"
	"github.com/momentics/hioload-session/internal/log"
	"github.com/momentics/hioload-session/messaging"
	"github.com/momentics/hioload-session/pool"
)

// RequestHeader is the payload of the single request the harness sends.
var RequestHeader = []byte("hello\x00")

// Result summarizes one run.
type Result struct {
	Terminal  api.EventKind // EventUnknown when the loop did not stop on an event
	Reason    api.ErrorCode
	Replies   int
	Leaked    int
	PoolStats api.MessagePoolStats
}

// Driver runs one session from creation to teardown.
type Driver struct {
	cfg     *Config
	rt      api.Runtime
	out     io.Writer
	metrics *control.MetricsRegistry
	probes  *control.DebugProbes
	ctxOpts api.ContextOptions
}

// DriverOption customizes a Driver.
type DriverOption func(*Driver)

// WithRuntime replaces the default messaging runtime.
func WithRuntime(rt api.Runtime) DriverOption {
	return func(d *Driver) { d.rt = rt }
}

// WithOutput sets where progress and event lines are printed.
func WithOutput(w io.Writer) DriverOption {
	return func(d *Driver) { d.out = w }
}

// WithMetrics records counters into mr.
func WithMetrics(mr *control.MetricsRegistry) DriverOption {
	return func(d *Driver) { d.metrics = mr }
}

// WithContextOptions tunes the event loop.
func WithContextOptions(o api.ContextOptions) DriverOption {
	return func(d *Driver) { d.ctxOpts = o }
}

// NewDriver validates cfg. Nothing is allocated until Run.
func NewDriver(cfg *Config, opts ...DriverOption) (*Driver, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Driver{cfg: cfg, out: io.Discard, probes: control.NewDebugProbes()}
	for _, o := range opts {
		o(d)
	}
	if d.rt == nil {
		d.rt = messaging.New()
	}
	if d.metrics == nil {
		d.metrics = control.NewMetricsRegistry()
	}
	return d, nil
}

// Metrics returns the registry the driver records into.
func (d *Driver) Metrics() *control.MetricsRegistry { return d.metrics }

// Endpoint returns the URI the session is created against.
func (d *Driver) Endpoint() string {
	return BuildEndpoint(d.cfg.Scheme, d.cfg.Host, d.cfg.Port)
}

// Run creates the context, pool, session and connection, sends the request
// and runs the loop. Teardown always happens in reverse creation order.
// A failure before the loop runs releases what was already acquired.
func (d *Driver) Run() (*Result, error) {
	ctx, err := d.rt.NewContext(d.ctxOpts)
	if err != nil {
		return nil, errors.Wrap(err, "create context failed")
	}
	mp := pool.NewMessagePool(d.cfg.PoolSize, pool.WithMaxSGE(d.cfg.MaxSGE))
	st := &State{Ctx: ctx, Pool: mp, Metrics: d.metrics, Linger: d.cfg.Linger}
	h := NewHandler(st, d.out)
	d.registerProbes(st)

	uri := d.Endpoint()
	sess, err := d.rt.NewSession(ctx, api.SessionParams{URI: uri, Callbacks: h.Callbacks()})
	if err != nil {
		d.abort(st)
		return nil, errors.Wrapf(err, "create session %s failed", uri)
	}
	st.Session = sess
	logger.WithFields(logrus.Fields{"session": sess.ID(), "uri": uri}).Debug("session created")

	conn, err := d.rt.Connect(sess, ctx)
	if err != nil {
		d.abort(st)
		return nil, errors.Wrap(err, "connect failed")
	}
	st.Conn = conn

	fmt.Fprintln(d.out, "**** starting ...")
	if err := d.sendRequest(st); err != nil {
		d.abort(st)
		return nil, err
	}

	runErr := ctx.Run(d.loopTimeout())
	fmt.Fprintln(d.out, "exit signaled")

	res := d.finish(st)
	fmt.Fprintln(d.out, "exit complete")
	if runErr != nil {
		return res, errors.Wrap(runErr, "run event loop failed")
	}
	return res, nil
}

func (d *Driver) loopTimeout() time.Duration {
	if d.cfg.Timeout == 0 {
		return api.Infinite
	}
	return d.cfg.Timeout
}

func (d *Driver) sendRequest(st *State) error {
	msg, err := st.Pool.Acquire()
	if err != nil {
		return errors.Wrap(err, "acquire message failed")
	}
	_ = msg.In.SetNents(0)
	_ = msg.Out.SetNents(0)
	msg.Out.Header = RequestHeader
	if err := st.Conn.Send(msg); err != nil {
		_ = st.Pool.Release(msg)
		return errors.Wrap(err, "send request failed")
	}
	d.metrics.Inc(control.MetricMessagesSent)
	return nil
}

// finish destroys session, context and pool in that order and reports leaks.
func (d *Driver) finish(st *State) *Result {
	res := &Result{Replies: st.Replies}
	if st.Terminal != nil {
		res.Terminal = st.Terminal.Kind()
		res.Reason = st.Terminal.Reason()
	}
	d.abort(st)
	res.PoolStats = st.Pool.Stats()
	res.Leaked = res.PoolStats.InUse

	d.metrics.Set("pool.high_water", res.PoolStats.HighWater)
	logger.WithFields(d.metrics.Fields()).Debug("harness counters")
	if l, ok := logger.(*logrus.Logger); ok {
		d.probes.Log(l, "harness probes")
	}
	return res
}

// abort releases whatever st holds, newest first. Errors are logged; the
// pool is finalized even when the context refuses to close.
func (d *Driver) abort(st *State) {
	if st.Session != nil {
		if err := st.Session.Close(); err != nil {
			logger.WithError(err).Error("destroy session failed")
		}
		st.Session = nil
		st.Conn = nil
	}
	if st.Ctx != nil {
		if err := st.Ctx.Close(); err != nil {
			logger.WithError(err).Error("destroy context failed")
		}
		st.Ctx = nil
	}
	if err := st.Pool.Close(); err != nil {
		logger.WithFields(log.PoolStatsToFields(st.Pool.Stats())).WithError(err).
			Error("message pool finalized with outstanding messages")
	}
}

func (d *Driver) registerProbes(st *State) {
	d.probes.RegisterProbe("pool", func() any { return st.Pool.Stats() })
	d.probes.RegisterProbe("replies", func() any { return st.Replies })
	d.probes.RegisterProbe("terminal", func() any {
		if st.Terminal == nil {
			return "none"
		}
		return st.Terminal.Kind().String()
	})
}
