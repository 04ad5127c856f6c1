package flows

import (
	"context"
	"errors"
	"strings"
	"time"
)

// CredentialView is the flow-local read model of a stored credential.
type CredentialView struct {
	CaseID       string
	PasscodeHash string
	Active       bool
}

// ValidateResult is returned when a credential authenticates.
type ValidateResult struct {
	CaseID       string
	SessionToken string
}

type ValidateMetrics struct {
	ValidateSuccess  int
	ValidateNotFound int
	ValidateExpired  int
	ValidateMismatch int
	ValidateLatency  int
}

type ValidateEvents struct {
	CredentialValidated string
}

type ValidateErrors struct {
	EngineNotReady     error
	Validation         error
	CredentialNotFound error
	CredentialExpired  error
	CredentialInvalid  error
	StoreUnavailable   error
}

// ValidateDeps captures credential verification dependencies.
type ValidateDeps struct {
	Now func() time.Time

	LoadCredential    func(ctx context.Context, caseID string) (CredentialView, error)
	IsNotFound        func(error) bool
	MapStoreError     func(error) error
	VerifyPasscode    func(passcode, hash string) (bool, error)
	IssueSessionToken func(caseID string) (string, error)

	MetricInc      func(int)
	ObserveLatency func(int, time.Duration)
	EmitAudit      func(context.Context, string, bool, string, error, func() map[string]string)

	Metrics ValidateMetrics
	Events  ValidateEvents
	Errors  ValidateErrors
}

// RunValidate checks a case id and passcode pair. The stored credential is
// only read; validating an active credential any number of times leaves it
// active.
func RunValidate(ctx context.Context, caseID, passcode string, deps ValidateDeps) (*ValidateResult, error) {
	normalizeValidateDeps(&deps)

	if deps.LoadCredential == nil || deps.VerifyPasscode == nil {
		return nil, deps.Errors.EngineNotReady
	}

	start := deps.Now()
	defer func() {
		deps.ObserveLatency(deps.Metrics.ValidateLatency, deps.Now().Sub(start))
	}()

	caseID = strings.TrimSpace(caseID)
	passcode = strings.TrimSpace(passcode)
	if caseID == "" || passcode == "" {
		return nil, deps.Errors.Validation
	}

	cred, err := deps.LoadCredential(ctx, caseID)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if deps.IsNotFound(err) {
			// Returns without a hash compare. The 404 already tells the
			// caller the case id is unknown, so the timing gap reveals nothing more.
			deps.MetricInc(deps.Metrics.ValidateNotFound)
			deps.EmitAudit(ctx, deps.Events.CredentialValidated, false, caseID, deps.Errors.CredentialNotFound, nil)
			return nil, deps.Errors.CredentialNotFound
		}
		return nil, deps.MapStoreError(err)
	}

	if !cred.Active {
		deps.MetricInc(deps.Metrics.ValidateExpired)
		deps.EmitAudit(ctx, deps.Events.CredentialValidated, false, caseID, deps.Errors.CredentialExpired, nil)
		return nil, deps.Errors.CredentialExpired
	}

	ok, err := deps.VerifyPasscode(passcode, cred.PasscodeHash)
	if err != nil {
		// A hash we cannot parse is a server-side problem, not a bad passcode.
		deps.EmitAudit(ctx, deps.Events.CredentialValidated, false, caseID, err, func() map[string]string {
			return map[string]string{"reason": "hash_unreadable"}
		})
		return nil, deps.Errors.StoreUnavailable
	}
	if !ok {
		deps.MetricInc(deps.Metrics.ValidateMismatch)
		deps.EmitAudit(ctx, deps.Events.CredentialValidated, false, caseID, deps.Errors.CredentialInvalid, nil)
		return nil, deps.Errors.CredentialInvalid
	}

	result := &ValidateResult{CaseID: caseID}
	if deps.IssueSessionToken != nil {
		token, err := deps.IssueSessionToken(caseID)
		if err != nil {
			return nil, deps.Errors.StoreUnavailable
		}
		result.SessionToken = token
	}

	deps.MetricInc(deps.Metrics.ValidateSuccess)
	deps.EmitAudit(ctx, deps.Events.CredentialValidated, true, caseID, nil, nil)
	return result, nil
}

func normalizeValidateDeps(deps *ValidateDeps) {
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
	if deps.ObserveLatency == nil {
		deps.ObserveLatency = func(int, time.Duration) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
}
