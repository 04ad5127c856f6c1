package goIntake

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. A Builder is single-use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	auditSink AuditSink
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing credential and report storage. A
// *redis.Client, *redis.ClusterClient or *redis.Ring all satisfy it.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAuditSink sets the destination of audit events. Events are only
// dispatched when Config.Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithClock replaces time.Now for the limiter, throttle, record and audit
// timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration and returns a ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	engine, err := newEngine(cfg, b.redis, b.auditSink, b.now)
	if err != nil {
		return nil, err
	}

	b.built = true
	return engine, nil
}
