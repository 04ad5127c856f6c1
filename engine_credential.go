package goIntake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goIntake/internal"
	internalflows "github.com/MrEthical07/goIntake/internal/flows"
	"github.com/MrEthical07/goIntake/internal/stores"
	"github.com/MrEthical07/goIntake/password"
)

// IssueCredential mints a case id and passcode. Only the passcode hash is
// stored; the returned passcode cannot be recovered later.
func (e *Engine) IssueCredential(ctx context.Context) (*IssuedCredential, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	res, err := e.flows.Issue(ctx)
	if err != nil {
		return nil, err
	}
	return &IssuedCredential{CaseID: res.CaseID, Passcode: res.Passcode}, nil
}

// ValidateCredential checks caseID and passcode. It returns
// ErrCredentialNotFound, ErrCredentialExpired or ErrCredentialInvalid for the
// three rejection outcomes. The credential is never modified.
//
// Admission is not checked here; callers that face untrusted clients run
// [Engine.Admit] first.
func (e *Engine) ValidateCredential(ctx context.Context, caseID, passcode string) (*ValidationResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	res, err := e.flows.Validate(ctx, caseID, passcode)
	if err != nil {
		return nil, err
	}
	return &ValidationResult{CaseID: res.CaseID, SessionToken: res.SessionToken}, nil
}

// DeactivateCredential retires a credential. Calling it on a used credential
// succeeds without changes; an unknown case id is ErrCredentialNotFound.
func (e *Engine) DeactivateCredential(ctx context.Context, caseID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return e.flows.Deactivate(ctx, caseID)
}

// VerifySessionToken checks that token was issued for caseID and is still
// within its TTL.
func (e *Engine) VerifySessionToken(token, caseID string) error {
	if e == nil || e.sessions == nil {
		return ErrSessionTokenInvalid
	}
	if err := e.sessions.VerifyFor(token, caseID); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionTokenInvalid, err)
	}
	return nil
}

// SessionCaseID returns the case id a valid session token was issued for.
func (e *Engine) SessionCaseID(token string) (string, error) {
	if e == nil || e.sessions == nil {
		return "", ErrSessionTokenInvalid
	}
	claims, err := e.sessions.ParseSession(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSessionTokenInvalid, err)
	}
	return claims.Subject, nil
}

// SessionTokensEnabled reports whether validation hands out session tokens.
func (e *Engine) SessionTokensEnabled() bool {
	return e != nil && e.sessions != nil
}

// Admit records one request for identity in the sliding window and reports
// whether it may proceed. scope labels the audit event on rejection. With
// rate limiting disabled every request is admitted.
func (e *Engine) Admit(ctx context.Context, scope, identity string) RateDecision {
	if e == nil || e.limiter == nil {
		return RateDecision{Allowed: true}
	}

	d := e.limiter.Allow(identity)
	if !d.Allowed {
		e.emitRateLimit(ctx, scope, func() map[string]string {
			return map[string]string{
				"identity":    identity,
				"retry_after": d.RetryAfter.String(),
			}
		})
	}
	return RateDecision{
		Allowed:    d.Allowed,
		Limit:      d.Limit,
		Remaining:  d.Remaining,
		RetryAfter: d.RetryAfter,
	}
}

// TrackedIdentities reports how many identities the sliding window holds.
func (e *Engine) TrackedIdentities() int {
	if e == nil || e.limiter == nil {
		return 0
	}
	return e.limiter.Len()
}

func (e *Engine) issueFlowDeps() internalflows.IssueDeps {
	cfg := e.config
	return internalflows.IssueDeps{
		CaseIDPrefix:    cfg.Credential.CaseIDPrefix,
		PasscodeLength:  cfg.Passcode.Length,
		MaxCaseAttempts: cfg.Credential.MaxCaseAttempts,
		Now:             e.now,
		CheckThrottle:   e.throttle.Check,
		NewCaseID: func(prefix string, now time.Time) (string, error) {
			return internal.NewCaseID(prefix, now, cfg.Credential.SuffixLength)
		},
		NewPasscode:  internal.NewPasscode,
		HashPasscode: e.hasher.Hash,
		CreateCredential: func(ctx context.Context, caseID, passcodeHash string, createdAt time.Time) error {
			return e.credentials.Create(ctx, &stores.CredentialRecord{
				CaseID:       caseID,
				PasscodeHash: passcodeHash,
				Status:       stores.StatusActive,
				CreatedAt:    createdAt,
			})
		},
		IsCollision: func(err error) bool {
			return errors.Is(err, stores.ErrCredentialExists)
		},
		MapStoreError: mapStoreError,
		MetricInc: func(id int) {
			e.metricInc(MetricID(id))
		},
		EmitAudit:     e.emitAudit,
		EmitRateLimit: e.emitRateLimit,
		Metrics: internalflows.IssueMetrics{
			CredentialIssued: int(MetricCredentialIssued),
			IssueFailure:     int(MetricIssueFailure),
			IssueThrottled:   int(MetricIssueThrottled),
		},
		Events: internalflows.IssueEvents{
			CredentialIssued: auditEventCredentialIssued,
			IssueThrottled:   auditEventIssueThrottled,
		},
		Errors: internalflows.IssueErrors{
			EngineNotReady:   ErrEngineNotReady,
			IssueThrottled:   ErrIssueThrottled,
			CaseIDCollision:  ErrCaseIDCollision,
			StoreUnavailable: ErrStoreUnavailable,
		},
	}
}

func (e *Engine) validateFlowDeps() internalflows.ValidateDeps {
	deps := internalflows.ValidateDeps{
		Now:            e.now,
		LoadCredential: e.loadCredentialView,
		IsNotFound: func(err error) bool {
			return errors.Is(err, stores.ErrCredentialNotFound)
		},
		MapStoreError:  mapStoreError,
		VerifyPasscode: e.verifyPasscode,
		MetricInc: func(id int) {
			e.metricInc(MetricID(id))
		},
		ObserveLatency: func(id int, d time.Duration) {
			e.metricObserve(MetricID(id), d)
		},
		EmitAudit: e.emitAudit,
		Metrics: internalflows.ValidateMetrics{
			ValidateSuccess:  int(MetricValidateSuccess),
			ValidateNotFound: int(MetricValidateNotFound),
			ValidateExpired:  int(MetricValidateExpired),
			ValidateMismatch: int(MetricValidateMismatch),
			ValidateLatency:  int(MetricValidateLatency),
		},
		Events: internalflows.ValidateEvents{
			CredentialValidated: auditEventCredentialValidated,
		},
		Errors: internalflows.ValidateErrors{
			EngineNotReady:     ErrEngineNotReady,
			Validation:         ErrValidation,
			CredentialNotFound: ErrCredentialNotFound,
			CredentialExpired:  ErrCredentialExpired,
			CredentialInvalid:  ErrCredentialInvalid,
			StoreUnavailable:   ErrStoreUnavailable,
		},
	}
	if e.sessions != nil {
		deps.IssueSessionToken = e.sessions.CreateSession
	}
	return deps
}

func (e *Engine) deactivateFlowDeps() internalflows.DeactivateDeps {
	return internalflows.DeactivateDeps{
		Now:        e.now,
		Deactivate: e.deactivateCredential,
		IsNotFound: func(err error) bool {
			return errors.Is(err, stores.ErrCredentialNotFound)
		},
		MapStoreError: mapStoreError,
		MetricInc: func(id int) {
			e.metricInc(MetricID(id))
		},
		EmitAudit: e.emitAudit,
		Metrics: internalflows.DeactivateMetrics{
			CredentialDeactivated: int(MetricCredentialDeactivated),
		},
		Events: internalflows.DeactivateEvents{
			CredentialDeactivated: auditEventCredentialDeactivated,
		},
		Errors: internalflows.DeactivateErrors{
			EngineNotReady:     ErrEngineNotReady,
			Validation:         ErrValidation,
			CredentialNotFound: ErrCredentialNotFound,
			StoreUnavailable:   ErrStoreUnavailable,
		},
	}
}

func (e *Engine) loadCredentialView(ctx context.Context, caseID string) (internalflows.CredentialView, error) {
	rec, err := e.credentials.Get(ctx, caseID)
	if err != nil {
		return internalflows.CredentialView{}, err
	}
	return internalflows.CredentialView{
		CaseID:       rec.CaseID,
		PasscodeHash: rec.PasscodeHash,
		Active:       rec.Active(),
	}, nil
}

// deactivateCredential is the compare-and-set transition, or a blind status
// write when conditional deactivation is switched off.
func (e *Engine) deactivateCredential(ctx context.Context, caseID string, now time.Time) (bool, error) {
	if e.config.Security.ConditionalDeactivate {
		return e.credentials.Deactivate(ctx, caseID, now)
	}
	if err := e.credentials.MarkUsed(ctx, caseID, now); err != nil {
		return false, err
	}
	return true, nil
}

func (e *Engine) verifyPasscode(passcode, hash string) (bool, error) {
	ok, err := e.hasher.Verify(passcode, hash)
	if errors.Is(err, password.ErrSecretTooLong) {
		// No issued passcode is that long.
		return false, nil
	}
	return ok, err
}

func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
