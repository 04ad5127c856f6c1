package observability

import (
	"context"

	goIntake "github.com/MrEthical07/goIntake"
	"go.uber.org/zap"
)

// AuditLogger is a goIntake.AuditSink writing each event as a log line.
type AuditLogger struct {
	logger *zap.Logger
}

func NewAuditLogger(logger *zap.Logger) *AuditLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditLogger{logger: logger.Named("audit")}
}

func (a *AuditLogger) Emit(_ context.Context, ev goIntake.AuditEvent) {
	fields := []zap.Field{
		zap.String("event", ev.EventType),
		zap.Bool("success", ev.Success),
		zap.Time("at", ev.Timestamp),
	}
	if ev.CaseID != "" {
		fields = append(fields, zap.String("case_id", ev.CaseID))
	}
	if ev.RequestID != "" {
		fields = append(fields, zap.String("request_id", ev.RequestID))
	}
	if ev.IP != "" {
		fields = append(fields, zap.String("ip", ev.IP))
	}
	if ev.Error != "" {
		fields = append(fields, zap.String("error_code", ev.Error))
	}
	if len(ev.Metadata) > 0 {
		fields = append(fields, zap.Any("metadata", ev.Metadata))
	}

	if ev.Success {
		a.logger.Info("audit", fields...)
		return
	}
	a.logger.Warn("audit", fields...)
}
