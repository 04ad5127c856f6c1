// Package observability builds the zap logger, the HTTP request metrics and
// the OTel meter provider used by the server, and an audit sink that writes
// engine audit events to the log.
package observability
