package goIntake

import (
	"github.com/MrEthical07/goIntake/internal"
	"github.com/MrEthical07/goIntake/internal/security"
)

// SecurityReport is a read-only summary of the protections in effect.
type SecurityReport = security.Report

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}
	cfg := e.config

	hash := security.HashReport{Algorithm: cfg.Passcode.Algorithm}
	if cfg.Passcode.Algorithm == PasscodeArgon2id {
		hash.Memory = cfg.Passcode.Argon2.Memory
		hash.Time = cfg.Passcode.Argon2.Time
	} else {
		hash.BcryptCost = cfg.Passcode.BcryptCost
	}

	return security.BuildReport(security.ReportInput{
		ProductionMode:        cfg.Security.ProductionMode,
		PasscodeLength:        cfg.Passcode.Length,
		EntropyBits:           internal.PasscodeEntropyBits(cfg.Passcode.Length),
		Hash:                  hash,
		RateLimitEnabled:      cfg.RateLimit.Enabled,
		RateLimitWindow:       cfg.RateLimit.Window,
		RateLimitCapacity:     cfg.RateLimit.Capacity,
		IssueRatePerSecond:    cfg.IssueThrottle.RatePerSecond,
		SessionTokenEnabled:   cfg.SessionToken.Enabled,
		RequireForFinalize:    cfg.SessionToken.RequireForFinalize,
		SessionTokenTTL:       cfg.SessionToken.TTL,
		SigningAlgorithm:      cfg.SessionToken.SigningMethod,
		ConditionalDeactivate: cfg.Security.ConditionalDeactivate,
		AtomicFinalize:        cfg.Security.AtomicFinalize,
		AuditEnabled:          cfg.Audit.Enabled,
		MaxContentBytes:       cfg.Report.MaxContentBytes,
	})
}
