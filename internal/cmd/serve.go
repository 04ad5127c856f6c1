package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	goIntake "github.com/MrEthical07/goIntake"
	"github.com/MrEthical07/goIntake/internal/config"
	"github.com/MrEthical07/goIntake/internal/observability"
	"github.com/MrEthical07/goIntake/internal/server"
	otelexport "github.com/MrEthical07/goIntake/metrics/export/otel"
	promexport "github.com/MrEthical07/goIntake/metrics/export/prometheus"
	"github.com/MrEthical07/goIntake/textgen"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCommand(flags *rootFlags) *cobra.Command {
	var port int

	c := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the intake HTTP API.

Redis must answer PING before the listener opens. SIGINT or SIGTERM shut the
server down gracefully.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			log, err := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Development)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, log)
		},
	}
	c.Flags().IntVarP(&port, "port", "p", 0, "listen port override")
	return c
}

func serve(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	client, closeRedis, err := openRedis(ctx, cfg.Redis, log)
	if err != nil {
		log.Error("redis unavailable", zap.Error(err))
		return err
	}
	defer closeRedis()

	var sink goIntake.AuditSink
	if cfg.Intake.AuditEnabled {
		sink = observability.NewAuditLogger(log)
	}
	engine, err := buildEngine(cfg, client, sink, log)
	if err != nil {
		return err
	}
	defer engine.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics, err := observability.NewHTTPMetrics(reg)
	if err != nil {
		return err
	}
	closeMetrics, err := registerEngineMetrics(cfg.Metrics.Exporter, reg, engine)
	if err != nil {
		return err
	}
	defer closeMetrics()

	completer, err := newCompleter(ctx, cfg.Chat)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Options{
		Engine:       engine,
		Completer:    completer,
		Logger:       log,
		Gatherer:     reg,
		HTTPMetrics:  httpMetrics,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		ChatTimeout:  cfg.Chat.Timeout,
		ChatSystem:   cfg.Chat.System,

		TrustProxyHeaders: cfg.Server.TrustProxyHeaders,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.Server.Address(), cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// registerEngineMetrics exposes engine counters on reg through the selected
// exporter. Only one exporter is registered since both use the same names.
func registerEngineMetrics(exporter string, reg *prometheus.Registry, engine *goIntake.Engine) (func(), error) {
	switch exporter {
	case config.MetricsExporterPrometheus:
		if err := reg.Register(promexport.NewCollector(engine)); err != nil {
			return nil, err
		}
		return func() {}, nil
	case config.MetricsExporterOTel:
		mp, err := observability.NewMeterProvider(reg)
		if err != nil {
			return nil, err
		}
		exp, err := otelexport.New(mp.Meter("github.com/MrEthical07/goIntake"), engine)
		if err != nil {
			_ = mp.Shutdown(context.Background())
			return nil, err
		}
		return func() {
			_ = exp.Close()
			_ = observability.ShutdownMeterProvider(context.Background(), mp)
		}, nil
	case config.MetricsExporterNone:
		return func() {}, nil
	default:
		return nil, errors.New("unknown metrics exporter " + exporter)
	}
}

func newCompleter(ctx context.Context, cfg config.ChatConfig) (textgen.Completer, error) {
	if cfg.Provider != config.ChatProviderGemini {
		return textgen.Echo{}, nil
	}
	return textgen.NewGemini(ctx, textgen.GeminiConfig{
		APIKey:          cfg.APIKey,
		Model:           cfg.Model,
		Temperature:     cfg.Temperature,
		MaxOutputTokens: cfg.MaxOutputTokens,
	})
}
