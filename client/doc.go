// Package client is the session lifecycle harness.
//
// A Driver creates a context, a message pool, a session and its connection,
// sends one request and runs the event loop until the Handler sees a terminal
// session event. It then tears everything down in reverse order and reports
// messages that were never returned to the pool.
//
// All state lives in a State value owned by the Driver and shared with the
// Handler; there are no package-level handles.
package client
