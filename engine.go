package goIntake

import (
	"context"
	"time"

	internalaudit "github.com/MrEthical07/goIntake/internal/audit"
	"github.com/MrEthical07/goIntake/internal/docstore"
	internalflows "github.com/MrEthical07/goIntake/internal/flows"
	"github.com/MrEthical07/goIntake/internal/rate"
	"github.com/MrEthical07/goIntake/internal/stores"
	"github.com/MrEthical07/goIntake/jwt"
	"github.com/MrEthical07/goIntake/password"
	"github.com/redis/go-redis/v9"
)

// Engine runs the credential lifecycle and report persistence. Build one
// with [New] and share it; every method is safe for concurrent use.
type Engine struct {
	config Config
	now    func() time.Time

	docs        *docstore.Store
	credentials *stores.CredentialStore
	reports     *stores.ReportStore

	limiter  *rate.Limiter
	throttle *rate.Throttle
	hasher   password.Hasher
	sessions *jwt.Manager

	audit   *internalaudit.Dispatcher
	metrics *Metrics
	flows   internalflows.Service
}

func newEngine(cfg Config, client redis.UniversalClient, sink AuditSink, now func() time.Time) (*Engine, error) {
	if now == nil {
		now = time.Now
	}

	docs := docstore.New(client, docstore.Options{
		Prefix:        cfg.Store.Prefix,
		OrderedFields: stores.OrderedFields(),
		MaxTxRetries:  cfg.Store.MaxTxRetries,
	})

	engine := &Engine{
		config:      cfg,
		now:         now,
		docs:        docs,
		credentials: stores.NewCredentialStore(docs),
		reports:     stores.NewReportStore(docs),
		metrics:     NewMetrics(cfg.Metrics),
	}

	if cfg.RateLimit.Enabled {
		engine.limiter = rate.New(rate.Config{
			Window:   cfg.RateLimit.Window,
			Capacity: cfg.RateLimit.Capacity,
			Shards:   cfg.RateLimit.Shards,
			Now:      now,
		})
	}
	engine.throttle = rate.NewThrottle(rate.ThrottleConfig{
		RatePerSecond: cfg.IssueThrottle.RatePerSecond,
		Burst:         cfg.IssueThrottle.Burst,
		Now:           now,
	})

	hasher, err := newPasscodeHasher(cfg.Passcode)
	if err != nil {
		return nil, err
	}
	engine.hasher = hasher

	if cfg.SessionToken.Enabled {
		jm, err := jwt.NewManager(jwt.Config{
			TTL:           cfg.SessionToken.TTL,
			SigningMethod: jwt.SigningMethod(cfg.SessionToken.SigningMethod),
			PrivateKey:    cloneBytes(cfg.SessionToken.PrivateKey),
			PublicKey:     cloneBytes(cfg.SessionToken.PublicKey),
			Issuer:        cfg.SessionToken.Issuer,
			Audience:      cfg.SessionToken.Audience,
			Leeway:        cfg.SessionToken.Leeway,
			RequireIAT:    true,
		})
		if err != nil {
			return nil, err
		}
		engine.sessions = jm
	}

	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		Now:        now,
	}, sink)

	engine.flows = internalflows.New(internalflows.Deps{
		Issue:      engine.issueFlowDeps(),
		Validate:   engine.validateFlowDeps(),
		Deactivate: engine.deactivateFlowDeps(),
		Finalize:   engine.finalizeFlowDeps(),
		Reports:    engine.reportsFlowDeps(),
		Health: internalflows.HealthDeps{
			Now:  now,
			Ping: docs.Ping,
		},
	})

	return engine, nil
}

// newPasscodeHasher hashes with the configured algorithm and still verifies
// hashes written by the other one.
func newPasscodeHasher(cfg PasscodeConfig) (password.Hasher, error) {
	bc, bcErr := password.NewBcrypt(password.BcryptConfig{Cost: cfg.BcryptCost})
	a2, a2Err := password.NewArgon2(password.Config{
		Memory:      cfg.Argon2.Memory,
		Time:        cfg.Argon2.Time,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	})

	switch cfg.Algorithm {
	case PasscodeArgon2id:
		if a2Err != nil {
			return nil, a2Err
		}
		m := password.Multi{Primary: a2}
		if bcErr == nil {
			m.Fallback = []password.Hasher{bc}
		}
		return m, nil
	default:
		if bcErr != nil {
			return nil, bcErr
		}
		m := password.Multi{Primary: bc}
		if a2Err == nil {
			m.Fallback = []password.Hasher{a2}
		}
		return m, nil
	}
}

// Close stops the audit dispatcher after draining queued events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were dropped because the
// buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// AuditDroppedByType splits AuditDropped by event type.
func (e *Engine) AuditDroppedByType() map[string]uint64 {
	if e == nil {
		return map[string]uint64{}
	}
	return e.audit.DroppedByType()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the configuration the engine was built with.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return cloneConfig(e.config)
}

// Health pings the store.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	if e == nil || !e.flows.Initialized() {
		return HealthStatus{}
	}

	ok, latency := e.flows.Health(ctx)
	return HealthStatus{
		StoreAvailable: ok,
		StoreLatency:   latency,
	}
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricObserve(id MetricID, d time.Duration) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Observe(id, d)
}

func (e *Engine) ready() bool {
	return e != nil && e.flows.Initialized()
}
