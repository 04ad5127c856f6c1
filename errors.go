package goIntake

import "errors"

var (
	// ErrValidation marks missing or malformed input.
	ErrValidation = errors.New("invalid request")
	// ErrCredentialNotFound is returned when no credential exists for a case id.
	ErrCredentialNotFound = errors.New("credential not found")
	// ErrCredentialExpired is returned when the credential has already been used.
	ErrCredentialExpired = errors.New("credential expired")
	// ErrCredentialInvalid is returned when the passcode does not match.
	ErrCredentialInvalid = errors.New("invalid credential")
	// ErrSessionTokenInvalid is returned for a missing, expired or foreign session token.
	ErrSessionTokenInvalid = errors.New("invalid session token")
	// ErrRateLimited is returned when the sliding window rejects a caller.
	ErrRateLimited = errors.New("rate limited")
	// ErrIssueThrottled is returned when the issuance throttle is exhausted.
	ErrIssueThrottled = errors.New("credential issuance throttled")
	// ErrCaseIDCollision is returned when every drawn case id already existed.
	ErrCaseIDCollision = errors.New("case id collision")
	// ErrReportNotFound is returned for an unknown report id.
	ErrReportNotFound = errors.New("report not found")
	// ErrStoreUnavailable wraps persistence failures.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrUpstreamUnavailable wraps text-generation failures.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrEngineNotReady is returned by every method of a zero or closed Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
