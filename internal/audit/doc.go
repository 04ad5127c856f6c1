// Package audit carries intake audit events from the Engine to a sink.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, no-op).
//   - [Dispatcher]: buffered async relay. It stamps events with the clock and
//     the request id and client IP found in the context, and counts drops per
//     event type.
//   - [Event]: structured audit record: timestamp, type, case id, request id, IP, metadata.
//   - [WithClientIP], [WithRequestID]: the context values the dispatcher reads.
//
// # Architecture boundaries
//
// This package owns event enrichment, buffering and sink delivery. It does NOT decide which events
// to emit. That belongs to the Engine and flow functions.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import goIntake or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
