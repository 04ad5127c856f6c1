package goIntake

import (
	"context"
	"errors"

	internalaudit "github.com/MrEthical07/goIntake/internal/audit"
)

const (
	auditEventCredentialIssued      = "credential_issued"
	auditEventIssueThrottled        = "credential_issue_throttled"
	auditEventCredentialValidated   = "credential_validated"
	auditEventCredentialDeactivated = "credential_deactivated"
	auditEventReportFinalized       = "report_finalized"
	auditEventReportDeleted         = "report_deleted"
	auditEventRateLimitTriggered    = "rate_limit_triggered"
)

// AuditErrorCode is the stable string written to AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrValidation         AuditErrorCode = "validation"
	auditErrNotFound           AuditErrorCode = "not_found"
	auditErrExpired            AuditErrorCode = "expired"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrInvalidToken       AuditErrorCode = "invalid_session_token"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrCollision          AuditErrorCode = "case_id_collision"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	caseID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	// the dispatcher stamps time, request id and client IP
	event := internalaudit.Event{
		EventType: eventType,
		CaseID:    caseID,
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(
	ctx context.Context,
	scope string,
	metadataBuilder func() map[string]string,
) {
	e.metricInc(MetricRateLimitHit)
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, "", ErrRateLimited, func() map[string]string {
		base := map[string]string{
			"scope": scope,
		}
		if metadataBuilder == nil {
			return base
		}
		for k, v := range metadataBuilder() {
			base[k] = v
		}
		return base
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrValidation):
		return auditErrValidation
	case errors.Is(err, ErrCredentialNotFound),
		errors.Is(err, ErrReportNotFound):
		return auditErrNotFound
	case errors.Is(err, ErrCredentialExpired):
		return auditErrExpired
	case errors.Is(err, ErrCredentialInvalid):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrSessionTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrRateLimited),
		errors.Is(err, ErrIssueThrottled):
		return auditErrRateLimited
	case errors.Is(err, ErrCaseIDCollision):
		return auditErrCollision
	case errors.Is(err, ErrStoreUnavailable),
		errors.Is(err, ErrUpstreamUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
