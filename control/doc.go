// Package control
// Author: momentics <momentics@gmail.com>
//
// Harness counters and debug probes. The driver records lifecycle counters
// into a MetricsRegistry and dumps registered probes at debug level on exit.

package control
