package security

import "time"

type HashReport struct {
	Algorithm  string
	BcryptCost int
	Memory     uint32
	Time       uint32
}

// Report summarizes which protections a running configuration has switched on.
type Report struct {
	ProductionMode         bool
	PasscodeLength         int
	PasscodeEntropyBits    float64
	Hash                   HashReport
	RateLimitingActive     bool
	RateLimitWindow        time.Duration
	RateLimitCapacity      int
	IssueThrottleActive    bool
	SessionTokensEnabled   bool
	SessionTokenRequired   bool
	SessionTokenTTL        time.Duration
	SigningAlgorithm       string
	ConditionalDeactivate  bool
	AtomicFinalize         bool
	AuditEnabled           bool
	ReportContentLimitSize int
}

type ReportInput struct {
	ProductionMode        bool
	PasscodeLength        int
	EntropyBits           float64
	Hash                  HashReport
	RateLimitEnabled      bool
	RateLimitWindow       time.Duration
	RateLimitCapacity     int
	IssueRatePerSecond    float64
	SessionTokenEnabled   bool
	RequireForFinalize    bool
	SessionTokenTTL       time.Duration
	SigningAlgorithm      string
	ConditionalDeactivate bool
	AtomicFinalize        bool
	AuditEnabled          bool
	MaxContentBytes       int
}

func BuildReport(input ReportInput) Report {
	rateLimiting := input.RateLimitEnabled &&
		input.RateLimitWindow > 0 &&
		input.RateLimitCapacity > 0

	r := Report{
		ProductionMode:         input.ProductionMode,
		PasscodeLength:         input.PasscodeLength,
		PasscodeEntropyBits:    input.EntropyBits,
		Hash:                   input.Hash,
		RateLimitingActive:     rateLimiting,
		IssueThrottleActive:    input.IssueRatePerSecond > 0,
		SessionTokensEnabled:   input.SessionTokenEnabled,
		SessionTokenRequired:   input.SessionTokenEnabled && input.RequireForFinalize,
		ConditionalDeactivate:  input.ConditionalDeactivate,
		AtomicFinalize:         input.AtomicFinalize,
		AuditEnabled:           input.AuditEnabled,
		ReportContentLimitSize: input.MaxContentBytes,
	}
	if rateLimiting {
		r.RateLimitWindow = input.RateLimitWindow
		r.RateLimitCapacity = input.RateLimitCapacity
	}
	if input.SessionTokenEnabled {
		r.SessionTokenTTL = input.SessionTokenTTL
		r.SigningAlgorithm = input.SigningAlgorithm
	}
	return r
}
