package flows

import (
	"context"
	"errors"
	"time"
)

// IssueResult is the one and only place a plaintext passcode leaves the engine.
type IssueResult struct {
	CaseID   string
	Passcode string
}

type IssueMetrics struct {
	CredentialIssued int
	IssueFailure     int
	IssueThrottled   int
}

type IssueEvents struct {
	CredentialIssued string
	IssueThrottled   string
}

type IssueErrors struct {
	EngineNotReady   error
	IssueThrottled   error
	CaseIDCollision  error
	StoreUnavailable error
}

// IssueDeps captures credential issuance dependencies.
type IssueDeps struct {
	CaseIDPrefix    string
	PasscodeLength  int
	MaxCaseAttempts int

	Now           func() time.Time
	CheckThrottle func() error

	NewCaseID        func(prefix string, now time.Time) (string, error)
	NewPasscode      func(n int) (string, error)
	HashPasscode     func(string) (string, error)
	CreateCredential func(ctx context.Context, caseID, passcodeHash string, createdAt time.Time) error
	IsCollision      func(error) bool
	MapStoreError    func(error) error

	MetricInc     func(int)
	EmitAudit     func(context.Context, string, bool, string, error, func() map[string]string)
	EmitRateLimit func(context.Context, string, func() map[string]string)

	Metrics IssueMetrics
	Events  IssueEvents
	Errors  IssueErrors
}

// RunIssue mints one credential: a fresh case id, a random passcode and the
// passcode hash persisted as an active record.
func RunIssue(ctx context.Context, deps IssueDeps) (*IssueResult, error) {
	normalizeIssueDeps(&deps)

	if deps.NewCaseID == nil || deps.NewPasscode == nil || deps.HashPasscode == nil || deps.CreateCredential == nil {
		return nil, deps.Errors.EngineNotReady
	}

	if err := deps.CheckThrottle(); err != nil {
		deps.MetricInc(deps.Metrics.IssueThrottled)
		deps.EmitAudit(ctx, deps.Events.IssueThrottled, false, "", deps.Errors.IssueThrottled, nil)
		deps.EmitRateLimit(ctx, "credential_issue", nil)
		return nil, deps.Errors.IssueThrottled
	}

	passcode, err := deps.NewPasscode(deps.PasscodeLength)
	if err != nil {
		deps.MetricInc(deps.Metrics.IssueFailure)
		return nil, deps.Errors.StoreUnavailable
	}
	hash, err := deps.HashPasscode(passcode)
	if err != nil {
		deps.MetricInc(deps.Metrics.IssueFailure)
		deps.EmitAudit(ctx, deps.Events.CredentialIssued, false, "", err, func() map[string]string {
			return map[string]string{"reason": "hash_failed"}
		})
		return nil, deps.Errors.StoreUnavailable
	}

	for attempt := 1; attempt <= deps.MaxCaseAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		now := deps.Now()
		caseID, err := deps.NewCaseID(deps.CaseIDPrefix, now)
		if err != nil {
			deps.MetricInc(deps.Metrics.IssueFailure)
			return nil, deps.Errors.StoreUnavailable
		}

		err = deps.CreateCredential(ctx, caseID, hash, now)
		if err == nil {
			deps.MetricInc(deps.Metrics.CredentialIssued)
			deps.EmitAudit(ctx, deps.Events.CredentialIssued, true, caseID, nil, nil)
			return &IssueResult{CaseID: caseID, Passcode: passcode}, nil
		}
		if deps.IsCollision(err) {
			continue
		}

		mapped := deps.MapStoreError(err)
		deps.MetricInc(deps.Metrics.IssueFailure)
		deps.EmitAudit(ctx, deps.Events.CredentialIssued, false, caseID, mapped, nil)
		return nil, mapped
	}

	deps.MetricInc(deps.Metrics.IssueFailure)
	deps.EmitAudit(ctx, deps.Events.CredentialIssued, false, "", deps.Errors.CaseIDCollision, nil)
	return nil, deps.Errors.CaseIDCollision
}

func normalizeIssueDeps(deps *IssueDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MaxCaseAttempts <= 0 {
		deps.MaxCaseAttempts = 1
	}
	if deps.CheckThrottle == nil {
		deps.CheckThrottle = func() error { return nil }
	}
	if deps.IsCollision == nil {
		deps.IsCollision = func(error) bool { return false }
	}
	if deps.MapStoreError == nil {
		deps.MapStoreError = func(err error) error {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return deps.Errors.StoreUnavailable
		}
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
	if deps.EmitRateLimit == nil {
		deps.EmitRateLimit = func(context.Context, string, func() map[string]string) {}
	}
}
