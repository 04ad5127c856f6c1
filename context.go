package goIntake

import (
	"context"

	internalaudit "github.com/MrEthical07/goIntake/internal/audit"
)

// WithClientIP attaches the caller's IP address to ctx. The Engine records it
// on audit events.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return internalaudit.WithClientIP(ctx, ip)
}

// WithRequestID attaches a request id that is copied onto audit events.
func WithRequestID(ctx context.Context, id string) context.Context {
	return internalaudit.WithRequestID(ctx, id)
}
