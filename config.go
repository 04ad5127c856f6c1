package goIntake

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds every engine setting. Build a value with DefaultConfig and
// override fields; the engine copies it at Build time.
type Config struct {
	Credential    CredentialConfig
	Passcode      PasscodeConfig
	RateLimit     RateLimitConfig
	IssueThrottle IssueThrottleConfig
	SessionToken  SessionTokenConfig
	Report        ReportConfig
	Store         StoreConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
	Security      SecurityConfig
}

/*
====================================
CREDENTIAL CONFIG
====================================
*/

// CredentialConfig shapes issued case ids.
type CredentialConfig struct {
	CaseIDPrefix    string
	SuffixLength    int
	MaxCaseAttempts int
}

/*
====================================
PASSCODE CONFIG
====================================
*/

// PasscodeConfig controls passcode length and the hash used to store it.
type PasscodeConfig struct {
	Length     int
	Algorithm  string // "bcrypt" (default) or "argon2id"
	BcryptCost int
	Argon2     Argon2Config
}

type Argon2Config struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig configures the in-memory sliding window in front of
// credential validation. Identity is the client IP.
type RateLimitConfig struct {
	Enabled  bool
	Window   time.Duration
	Capacity int
	Shards   int
}

// IssueThrottleConfig is a process-wide token bucket on credential issuance.
// RatePerSecond == 0 disables it.
type IssueThrottleConfig struct {
	RatePerSecond float64
	Burst         int
}

/*
====================================
SESSION TOKEN CONFIG
====================================
*/

// SessionTokenConfig controls the optional signed token returned by a
// successful validation.
type SessionTokenConfig struct {
	Enabled            bool
	RequireForFinalize bool
	TTL                time.Duration
	SigningMethod      string // "hs256" (default) or "ed25519"
	PrivateKey         []byte
	PublicKey          []byte
	Issuer             string
	Audience           string
	Leeway             time.Duration
}

/*
====================================
REPORT / STORE CONFIG
====================================
*/

type ReportConfig struct {
	MaxContentBytes int
	MaxFieldBytes   int
}

type StoreConfig struct {
	Prefix       string
	MaxTxRetries int
}

/*
====================================
AUDIT / METRICS / SECURITY
====================================
*/

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// SecurityConfig groups the switches that trade strictness for compatibility
// with the reference deployment.
type SecurityConfig struct {
	ProductionMode bool

	// ConditionalDeactivate makes deactivation a compare-and-set on
	// status == active. When false the status is overwritten unconditionally.
	ConditionalDeactivate bool

	// AtomicFinalize writes the report and retires the credential in one
	// transaction. When false the report is written first and the credential
	// deactivated afterwards.
	AtomicFinalize bool
}

const (
	PasscodeBcrypt   = "bcrypt"
	PasscodeArgon2id = "argon2id"

	// minPasscodeEntropyBits is the floor a passcode length must reach with a
	// 36-symbol alphabet.
	minPasscodeEntropyBits = 32
)

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		Credential: CredentialConfig{
			CaseIDPrefix:    "CI",
			SuffixLength:    4,
			MaxCaseAttempts: 3,
		},
		Passcode: PasscodeConfig{
			Length:     8,
			Algorithm:  PasscodeBcrypt,
			BcryptCost: 10,
			Argon2: Argon2Config{
				Memory:      64 * 1024,
				Time:        1,
				Parallelism: 2,
				SaltLength:  16,
				KeyLength:   32,
			},
		},
		RateLimit: RateLimitConfig{
			Enabled:  true,
			Window:   60 * time.Second,
			Capacity: 15,
			Shards:   32,
		},
		IssueThrottle: IssueThrottleConfig{
			RatePerSecond: 0,
			Burst:         10,
		},
		SessionToken: SessionTokenConfig{
			Enabled:       false,
			TTL:           30 * time.Minute,
			SigningMethod: "hs256",
			Issuer:        "goIntake",
		},
		Report: ReportConfig{
			MaxContentBytes: 64 * 1024,
			MaxFieldBytes:   256,
		},
		Store: StoreConfig{
			Prefix:       "gi",
			MaxTxRetries: 4,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
		Security: SecurityConfig{
			ProductionMode:        false,
			ConditionalDeactivate: true,
			AtomicFinalize:        true,
		},
	}
}

// HighSecurityConfig tightens DefaultConfig for production: session tokens are
// required to finalize, issuance is throttled, and audit is on.
func HighSecurityConfig() Config {
	cfg := DefaultConfig()
	cfg.Security.ProductionMode = true
	cfg.Passcode.Length = 10
	cfg.Passcode.BcryptCost = 12
	cfg.IssueThrottle.RatePerSecond = 5
	cfg.IssueThrottle.Burst = 20
	cfg.SessionToken.Enabled = true
	cfg.SessionToken.RequireForFinalize = true
	cfg.SessionToken.TTL = 20 * time.Minute
	cfg.Audit.Enabled = true
	return cfg
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.SessionToken.PrivateKey = cloneBytes(cfg.SessionToken.PrivateKey)
	out.SessionToken.PublicKey = cloneBytes(cfg.SessionToken.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	// Credential
	prefix := strings.TrimSpace(c.Credential.CaseIDPrefix)
	if prefix == "" {
		return errors.New("Credential CaseIDPrefix must not be empty")
	}
	if strings.ContainsAny(prefix, ": ") {
		return errors.New("Credential CaseIDPrefix must not contain ':' or spaces")
	}
	if c.Credential.SuffixLength < 4 || c.Credential.SuffixLength > 16 {
		return errors.New("Credential SuffixLength must be between 4 and 16")
	}
	if c.Credential.MaxCaseAttempts < 1 {
		return errors.New("Credential MaxCaseAttempts must be >= 1")
	}

	// Passcode
	if c.Passcode.Length < 7 || c.Passcode.Length > 64 {
		return fmt.Errorf("Passcode Length must be between 7 and 64 (>= %d bits)", minPasscodeEntropyBits)
	}
	switch c.Passcode.Algorithm {
	case PasscodeBcrypt:
		if c.Passcode.BcryptCost < 4 || c.Passcode.BcryptCost > 31 {
			return errors.New("Passcode BcryptCost must be between 4 and 31")
		}
	case PasscodeArgon2id:
		a := c.Passcode.Argon2
		if a.Memory < 8*1024 {
			return errors.New("Passcode Argon2 Memory must be >= 8192 KB")
		}
		if a.Time < 1 || a.Parallelism < 1 {
			return errors.New("Passcode Argon2 Time and Parallelism must be >= 1")
		}
		if a.SaltLength < 16 || a.KeyLength < 16 {
			return errors.New("Passcode Argon2 SaltLength and KeyLength must be >= 16")
		}
	default:
		return errors.New("Passcode Algorithm must be 'bcrypt' or 'argon2id'")
	}

	// Rate limit
	if c.RateLimit.Enabled {
		if c.RateLimit.Window <= 0 {
			return errors.New("RateLimit Window must be > 0")
		}
		if c.RateLimit.Capacity <= 0 {
			return errors.New("RateLimit Capacity must be > 0")
		}
	}
	if c.RateLimit.Shards < 0 {
		return errors.New("RateLimit Shards must be >= 0")
	}
	if c.IssueThrottle.RatePerSecond < 0 {
		return errors.New("IssueThrottle RatePerSecond must be >= 0")
	}
	if c.IssueThrottle.RatePerSecond > 0 && c.IssueThrottle.Burst <= 0 {
		return errors.New("IssueThrottle Burst must be > 0 when throttling is enabled")
	}

	// Session token
	if c.SessionToken.RequireForFinalize && !c.SessionToken.Enabled {
		return errors.New("SessionToken RequireForFinalize requires SessionToken Enabled")
	}
	if c.SessionToken.Enabled {
		if c.SessionToken.TTL <= 0 {
			return errors.New("SessionToken TTL must be > 0")
		}
		if c.SessionToken.Leeway < 0 || c.SessionToken.Leeway > 2*time.Minute {
			return errors.New("SessionToken Leeway must be between 0 and 2m")
		}
		switch c.SessionToken.SigningMethod {
		case "hs256":
			if len(c.SessionToken.PrivateKey) < 32 {
				return errors.New("hs256 requires a PrivateKey of at least 32 bytes")
			}
		case "ed25519":
			if len(c.SessionToken.PrivateKey) == 0 || len(c.SessionToken.PublicKey) == 0 {
				return errors.New("ed25519 requires PrivateKey and PublicKey")
			}
		default:
			return errors.New("unsupported SessionToken signing method")
		}
	}

	// Report
	if c.Report.MaxContentBytes < 0 || c.Report.MaxFieldBytes < 0 {
		return errors.New("Report limits must be >= 0")
	}

	// Store
	if c.Store.Prefix == "" || strings.Contains(c.Store.Prefix, ":") {
		return errors.New("Store Prefix must be non-empty and must not contain ':'")
	}
	if c.Store.MaxTxRetries < 1 {
		return errors.New("Store MaxTxRetries must be >= 1")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	if c.Security.ProductionMode && !c.RateLimit.Enabled {
		return errors.New("ProductionMode requires RateLimit Enabled")
	}

	return nil
}
