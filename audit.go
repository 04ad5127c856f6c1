package goIntake

import (
	"io"

	internalaudit "github.com/MrEthical07/goIntake/internal/audit"
)

// AuditEvent is a structured audit record emitted by the engine. It carries
// the case id but never a passcode or its hash.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON object per event to an [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
