package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/bft-labs/sessionguard"
	"github.com/bft-labs/sessionguard/internal/adapters/metrics"
	"github.com/bft-labs/sessionguard/internal/cliconfig"
	"github.com/bft-labs/sessionguard/pkg/log"
	"github.com/bft-labs/sessionguard/pkg/readiness"
	"github.com/bft-labs/sessionguard/pkg/signout"
)

// runtimeEnv is everything a subcommand needs, built from Config.
type runtimeEnv struct {
	zl        zerolog.Logger
	logger    log.Logger
	presenter *signout.Presenter
	collector *metrics.Collector
	server    *http.Server
}

func buildEnv(cfg cliconfig.Config, opts ...signout.Option) (*runtimeEnv, error) {
	zl := cliconfig.Logger(cfg.LogLevel)
	logger := log.NewZerologAdapterWithLogger(zl)

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	opts = append([]signout.Option{
		signout.WithFeatureFlag(cfg.FeatureFlag),
		signout.WithEventHandler(&metricsHandler{collector: collector}),
		signout.WithActionObserver(metrics.ActionObserver[string](collector, signout.ActionName)),
	}, opts...)
	if cfg.ConfirmAlways {
		opts = append(opts, signout.WithConfirmPolicy(signout.ConfirmAlways))
	}

	p, err := sessionguard.New(sessionguard.Config{
		StateDir:   cfg.StateDir,
		FlagsFile:  cfg.FlagsFile,
		HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout},
		Logger:     logger,
	}, opts...)
	if err != nil {
		return nil, err
	}

	env := &runtimeEnv{zl: zl, logger: logger, presenter: p, collector: collector}
	if cfg.MetricsAddr != "" {
		env.server = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := env.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zl.Error().Err(err).Str("addr", cfg.MetricsAddr).Msg("metrics server")
			}
		}()
		zl.Info().Str("addr", cfg.MetricsAddr).Msg("serving metrics")
	}
	return env, nil
}

func (e *runtimeEnv) close(timeout time.Duration) error {
	err := e.presenter.Close(timeout)
	if e.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.server.Shutdown(ctx)
	}
	return err
}

// waitResolved blocks until the readiness checks have answered, ctx ends or
// wait elapses. It returns the last view state seen.
func waitResolved(ctx context.Context, p *signout.Presenter, wait time.Duration) signout.ViewState {
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	for v := range p.Subscribe(ctx) {
		if v.ReadinessResolved && v.Readiness.LastDeviceResolved {
			return v
		}
	}
	return p.State()
}

// metricsHandler feeds readiness changes to the Prometheus collector.
type metricsHandler struct {
	signout.BaseEventHandler
	collector *metrics.Collector
}

func (h *metricsHandler) OnReadinessChange(r readiness.Readiness) {
	h.collector.ObserveReadiness(r)
}
