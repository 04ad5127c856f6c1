package flows

import (
	"context"
	"errors"
	"strings"
	"time"
)

type DeactivateMetrics struct {
	CredentialDeactivated int
}

type DeactivateEvents struct {
	CredentialDeactivated string
}

type DeactivateErrors struct {
	EngineNotReady     error
	Validation         error
	CredentialNotFound error
	StoreUnavailable   error
}

// DeactivateDeps captures credential deactivation dependencies.
type DeactivateDeps struct {
	Now func() time.Time

	// Deactivate reports whether this call moved the credential from active
	// to used.
	Deactivate    func(ctx context.Context, caseID string, now time.Time) (bool, error)
	IsNotFound    func(error) bool
	MapStoreError func(error) error

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, error, func() map[string]string)

	Metrics DeactivateMetrics
	Events  DeactivateEvents
	Errors  DeactivateErrors
}

// RunDeactivate retires a credential. Deactivating an already used credential
// succeeds without changing it; a missing credential is never created.
func RunDeactivate(ctx context.Context, caseID string, deps DeactivateDeps) error {
	normalizeDeactivateDeps(&deps)

	if deps.Deactivate == nil {
		return deps.Errors.EngineNotReady
	}
	caseID = strings.TrimSpace(caseID)
	if caseID == "" {
		return deps.Errors.Validation
	}

	changed, err := deps.Deactivate(ctx, caseID, deps.Now())
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if deps.IsNotFound(err) {
			deps.EmitAudit(ctx, deps.Events.CredentialDeactivated, false, caseID, deps.Errors.CredentialNotFound, nil)
			return deps.Errors.CredentialNotFound
		}
		mapped := deps.MapStoreError(err)
		deps.EmitAudit(ctx, deps.Events.CredentialDeactivated, false, caseID, mapped, nil)
		return mapped
	}

	if changed {
		deps.MetricInc(deps.Metrics.CredentialDeactivated)
	}
	deps.EmitAudit(ctx, deps.Events.CredentialDeactivated, true, caseID, nil, func() map[string]string {
		if changed {
			return map[string]string{"transition": "active_to_used"}
		}
		return map[string]string{"transition": "none"}
	})
	return nil
}

func normalizeDeactivateDeps(deps *DeactivateDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.IsNotFound == nil {
		deps.IsNotFound = func(error) bool { return false }
	}
	if deps.MapStoreError == nil {
		deps.MapStoreError = func(error) error { return deps.Errors.StoreUnavailable }
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
}
