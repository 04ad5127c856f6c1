package goIntake

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// LintSeverity ranks how risky a valid-but-questionable setting is.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return fmt.Sprintf("LintSeverity(%d)", int(s))
	}
}

// LintWarning is one finding from Config.Lint.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the ordered list of findings.
type LintResult []LintWarning

func (r LintResult) Codes() []string {
	codes := make([]string, 0, len(r))
	for _, w := range r {
		codes = append(codes, w.Code)
	}
	return codes
}

// BySeverity returns findings at or above min.
func (r LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError joins every finding at or above min into one error, or returns nil.
func (r LintResult) AsError(min LintSeverity) error {
	filtered := r.BySeverity(min)
	if len(filtered) == 0 {
		return nil
	}
	parts := make([]string, 0, len(filtered))
	for _, w := range filtered {
		parts = append(parts, fmt.Sprintf("[%s] %s: %s", w.Severity, w.Code, w.Message))
	}
	return errors.New("config lint: " + strings.Join(parts, "; "))
}

// Lint reports settings that pass Validate but weaken the deployment. It never
// mutates c.
func (c *Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, msg string) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: msg})
	}

	if !c.RateLimit.Enabled {
		add("rate_limit_disabled", LintHigh, "credential validation is not rate limited")
	} else if c.RateLimit.Capacity > 60 {
		add("rate_limit_capacity_high", LintWarn, "more than 60 validations per window per client")
	}
	if c.RateLimit.Enabled && c.RateLimit.Window < 10*time.Second {
		add("rate_limit_window_short", LintWarn, "a window under 10s barely slows guessing")
	}

	if c.Passcode.Length < 8 {
		add("passcode_short", LintWarn, "passcodes shorter than 8 symbols carry under 41 bits")
	}
	if c.Passcode.Algorithm == PasscodeBcrypt && c.Passcode.BcryptCost < 10 {
		add("bcrypt_cost_low", LintWarn, "bcrypt cost below 10")
	}

	if !c.Security.ConditionalDeactivate {
		add("conditional_deactivate_disabled", LintWarn, "deactivation overwrites status without checking it")
	}
	if !c.Security.AtomicFinalize {
		add("sequential_finalize", LintWarn, "a report can persist while its credential stays active")
	}

	if c.SessionToken.Enabled && !c.SessionToken.RequireForFinalize {
		add("session_token_not_required", LintInfo, "finalize accepts requests without a session token")
	}
	if c.SessionToken.Enabled && c.SessionToken.TTL > 2*time.Hour {
		add("session_token_ttl_long", LintWarn, "session tokens outlive a typical intake session")
	}

	if c.Security.ProductionMode {
		if c.IssueThrottle.RatePerSecond == 0 {
			add("issue_throttle_disabled", LintWarn, "credential issuance is unbounded")
		}
		if !c.Audit.Enabled {
			add("audit_disabled", LintInfo, "no audit trail for credential transitions")
		}
	}

	return ws
}
