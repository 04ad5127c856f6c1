package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	goIntake "github.com/MrEthical07/goIntake"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. GOINTAKE_SERVER_PORT.
const EnvPrefix = "GOINTAKE"

const (
	ChatProviderGemini = "gemini"
	ChatProviderEcho   = "echo"

	MetricsExporterPrometheus = "prometheus"
	MetricsExporterOTel       = "otel"
	MetricsExporterNone       = "none"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Chat    ChatConfig    `mapstructure:"chat"`
	Intake  IntakeConfig  `mapstructure:"intake"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`

	// TrustProxyHeaders takes the client IP from X-Forwarded-For, X-Real-IP
	// or True-Client-IP. Enable it only behind a proxy that overwrites them;
	// otherwise any caller picks its own rate-limit identity.
	TrustProxyHeaders bool `mapstructure:"trust_proxy_headers"`
}

type RedisConfig struct {
	URL      string `mapstructure:"url"`
	Embedded bool   `mapstructure:"embedded"`
}

type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type MetricsConfig struct {
	Exporter string `mapstructure:"exporter"`
}

type ChatConfig struct {
	Provider        string        `mapstructure:"provider"`
	APIKey          string        `mapstructure:"api_key"`
	Model           string        `mapstructure:"model"`
	System          string        `mapstructure:"system"`
	Temperature     float64       `mapstructure:"temperature"`
	MaxOutputTokens int           `mapstructure:"max_output_tokens"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// IntakeConfig is the flat, file-friendly view of goIntake.Config.
type IntakeConfig struct {
	ProductionMode        bool          `mapstructure:"production_mode"`
	CaseIDPrefix          string        `mapstructure:"case_id_prefix"`
	PasscodeLength        int           `mapstructure:"passcode_length"`
	PasscodeAlgorithm     string        `mapstructure:"passcode_algorithm"`
	BcryptCost            int           `mapstructure:"bcrypt_cost"`
	RateLimitEnabled      bool          `mapstructure:"rate_limit_enabled"`
	RateLimitWindow       time.Duration `mapstructure:"rate_limit_window"`
	RateLimitCapacity     int           `mapstructure:"rate_limit_capacity"`
	IssueRatePerSecond    float64       `mapstructure:"issue_rate_per_second"`
	IssueBurst            int           `mapstructure:"issue_burst"`
	SessionTokenEnabled   bool          `mapstructure:"session_token_enabled"`
	SessionTokenRequired  bool          `mapstructure:"session_token_required"`
	SessionTokenTTL       time.Duration `mapstructure:"session_token_ttl"`
	SessionTokenSecret    string        `mapstructure:"session_token_secret"`
	ConditionalDeactivate bool          `mapstructure:"conditional_deactivate"`
	AtomicFinalize        bool          `mapstructure:"atomic_finalize"`
	AuditEnabled          bool          `mapstructure:"audit_enabled"`
	MaxContentBytes       int           `mapstructure:"max_content_bytes"`
	StorePrefix           string        `mapstructure:"store_prefix"`
}

// LoadOptions selects the optional inputs of Load.
type LoadOptions struct {
	// ConfigFile is a YAML file; empty means none.
	ConfigFile string
	// EnvFiles are loaded into the process environment first. Missing files
	// are skipped. Variables already set are not overridden.
	EnvFiles []string
}

// DefaultEnvFiles are the dotenv files Load reads when none are given.
var DefaultEnvFiles = []string{".env.local", ".env"}

// Load resolves configuration from defaults, the optional config file and
// GOINTAKE_* environment variables, in increasing precedence.
func Load(opts LoadOptions) (Config, error) {
	envFiles := opts.EnvFiles
	if envFiles == nil {
		envFiles = DefaultEnvFiles
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// the provider's own variable works too
	_ = v.BindEnv("chat.api_key", EnvPrefix+"_CHAT_API_KEY", "GEMINI_API_KEY")

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", opts.ConfigFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := goIntake.DefaultConfig()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.max_body_bytes", int64(1<<20))
	v.SetDefault("server.trust_proxy_headers", false)

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.embedded", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)

	v.SetDefault("metrics.exporter", MetricsExporterPrometheus)

	v.SetDefault("chat.provider", ChatProviderEcho)
	v.SetDefault("chat.api_key", "")
	v.SetDefault("chat.model", "gemini-2.0-flash")
	v.SetDefault("chat.system", "")
	v.SetDefault("chat.temperature", 0.0)
	v.SetDefault("chat.max_output_tokens", 0)
	v.SetDefault("chat.timeout", 30*time.Second)

	v.SetDefault("intake.production_mode", d.Security.ProductionMode)
	v.SetDefault("intake.case_id_prefix", d.Credential.CaseIDPrefix)
	v.SetDefault("intake.passcode_length", d.Passcode.Length)
	v.SetDefault("intake.passcode_algorithm", d.Passcode.Algorithm)
	v.SetDefault("intake.bcrypt_cost", d.Passcode.BcryptCost)
	v.SetDefault("intake.rate_limit_enabled", d.RateLimit.Enabled)
	v.SetDefault("intake.rate_limit_window", d.RateLimit.Window)
	v.SetDefault("intake.rate_limit_capacity", d.RateLimit.Capacity)
	v.SetDefault("intake.issue_rate_per_second", d.IssueThrottle.RatePerSecond)
	v.SetDefault("intake.issue_burst", d.IssueThrottle.Burst)
	v.SetDefault("intake.session_token_enabled", d.SessionToken.Enabled)
	v.SetDefault("intake.session_token_required", d.SessionToken.RequireForFinalize)
	v.SetDefault("intake.session_token_ttl", d.SessionToken.TTL)
	v.SetDefault("intake.session_token_secret", "")
	v.SetDefault("intake.conditional_deactivate", d.Security.ConditionalDeactivate)
	v.SetDefault("intake.atomic_finalize", d.Security.AtomicFinalize)
	v.SetDefault("intake.audit_enabled", d.Audit.Enabled)
	v.SetDefault("intake.max_content_bytes", d.Report.MaxContentBytes)
	v.SetDefault("intake.store_prefix", d.Store.Prefix)
}

// Validate checks the server-side settings. Engine settings are checked by
// goIntake.Config.Validate through Engine.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return errors.New("server.max_body_bytes must be > 0")
	}
	if !c.Redis.Embedded && c.Redis.URL == "" {
		return errors.New("redis.url is required unless redis.embedded is set")
	}
	switch c.Metrics.Exporter {
	case MetricsExporterPrometheus, MetricsExporterOTel, MetricsExporterNone:
	default:
		return fmt.Errorf("metrics.exporter must be one of prometheus, otel, none: %q", c.Metrics.Exporter)
	}
	switch c.Chat.Provider {
	case ChatProviderEcho:
	case ChatProviderGemini:
		if c.Chat.APIKey == "" {
			return errors.New("chat.api_key is required for the gemini provider")
		}
	default:
		return fmt.Errorf("chat.provider must be gemini or echo: %q", c.Chat.Provider)
	}
	return nil
}

// Engine maps the intake section onto a goIntake.Config and validates it.
func (c Config) Engine() (goIntake.Config, error) {
	in := c.Intake
	out := goIntake.DefaultConfig()

	out.Security.ProductionMode = in.ProductionMode
	out.Security.ConditionalDeactivate = in.ConditionalDeactivate
	out.Security.AtomicFinalize = in.AtomicFinalize
	out.Credential.CaseIDPrefix = in.CaseIDPrefix
	out.Passcode.Length = in.PasscodeLength
	out.Passcode.Algorithm = in.PasscodeAlgorithm
	out.Passcode.BcryptCost = in.BcryptCost
	out.RateLimit.Enabled = in.RateLimitEnabled
	out.RateLimit.Window = in.RateLimitWindow
	out.RateLimit.Capacity = in.RateLimitCapacity
	out.IssueThrottle.RatePerSecond = in.IssueRatePerSecond
	out.IssueThrottle.Burst = in.IssueBurst
	out.SessionToken.Enabled = in.SessionTokenEnabled
	out.SessionToken.RequireForFinalize = in.SessionTokenRequired
	out.SessionToken.TTL = in.SessionTokenTTL
	if in.SessionTokenSecret != "" {
		out.SessionToken.PrivateKey = []byte(in.SessionTokenSecret)
	}
	out.Audit.Enabled = in.AuditEnabled
	out.Report.MaxContentBytes = in.MaxContentBytes
	out.Store.Prefix = in.StorePrefix

	if err := out.Validate(); err != nil {
		return goIntake.Config{}, fmt.Errorf("intake config: %w", err)
	}
	return out, nil
}

// Address is host:port for the listener.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
