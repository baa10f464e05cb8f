// Package messaging is the messaging runtime behind the api boundary: an
// execution Context owning a single-goroutine event loop, client Sessions
// addressed by "scheme://address:port" URIs, and Connections carried over a
// framed api.Link chosen by URI scheme.
//
// Everything except Context.Run's internal I/O goroutines is loop-confined:
// create, connect, send and destroy from the goroutine that calls Run, or
// from callbacks running inside it.
//
// Event order for one conversation is fixed. A refused dial yields
// connection-refused, connection-teardown and, once the connection is
// destroyed, session-teardown. An accepted session yields
// connection-established followed by one of connection-closed (local
// Disconnect), connection-disconnected (peer close) or connection-error,
// then connection-teardown and session-teardown. A peer reject yields
// session-reject only. Messages not yet completed are flushed through
// OnMessageComplete before the first event of a teardown.
package messaging
