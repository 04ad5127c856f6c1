package cmd

import (
	"context"
	"fmt"
	"time"

	goIntake "github.com/MrEthical07/goIntake"
	"github.com/MrEthical07/goIntake/internal/config"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const pingTimeout = 5 * time.Second

// openRedis connects and pings. The returned close func releases the client
// and, for embedded mode, the in-process server.
func openRedis(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) (redis.UniversalClient, func(), error) {
	var (
		client  *redis.Client
		cleanup func()
	)

	if cfg.Embedded {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start embedded redis: %w", err)
		}
		client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		log.Warn("using embedded redis; data will not survive a restart", zap.String("addr", mr.Addr()))
	} else {
		opts, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse redis url: %w", err)
		}
		client = redis.NewClient(opts)
		cleanup = func() { _ = client.Close() }
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, cleanup, nil
}

// buildEngine validates the intake config, logs lint findings and builds
// the engine.
func buildEngine(cfg config.Config, client redis.UniversalClient, sink goIntake.AuditSink, log *zap.Logger) (*goIntake.Engine, error) {
	ec, err := cfg.Engine()
	if err != nil {
		return nil, err
	}

	for _, w := range ec.Lint() {
		field := []zap.Field{zap.String("code", w.Code), zap.String("severity", w.Severity.String())}
		if w.Severity >= goIntake.LintHigh {
			log.Warn(w.Message, field...)
			continue
		}
		log.Info(w.Message, field...)
	}

	b := goIntake.New().WithConfig(ec).WithRedis(client)
	if sink != nil {
		b = b.WithAuditSink(sink)
	}
	return b.Build()
}
