// Package middleware adapts goIntake.Engine to net/http.
//
// # Handlers
//
//   - [ClientContext] puts the client IP and request id on the context.
//   - [RateLimit] runs the sliding-window admission check and answers 429.
//   - [SessionGuard] requires the session token issued by credential
//     validation, when session tokens are enabled.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. Admission and
// token decisions are made by the Engine; the middleware only maps them to
// status codes and headers.
package middleware
