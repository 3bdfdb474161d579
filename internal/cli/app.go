package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rohmanhakim/linkmeta/internal/config"
	"github.com/rohmanhakim/linkmeta/internal/fetcher"
	"github.com/rohmanhakim/linkmeta/internal/icon"
	"github.com/rohmanhakim/linkmeta/internal/icon/backend"
	"github.com/rohmanhakim/linkmeta/internal/resolver"
	"github.com/rohmanhakim/linkmeta/internal/telemetry"
	"github.com/rohmanhakim/linkmeta/pkg/limiter"
	"github.com/rohmanhakim/linkmeta/pkg/retry"
	"github.com/rohmanhakim/linkmeta/pkg/timeutil"
)

// app is everything a subcommand needs, built from one Config.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	service *resolver.Service
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	logger, err := telemetry.NewLogger(verbose)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	sink := telemetry.NewRecorder(logger)

	backoff := timeutil.NewBackoffParam(cfg.BackoffInitialDuration(), cfg.BackoffMultiplier(), cfg.BackoffMaxDuration())

	pacer := limiter.NewConcurrentHostPacer()
	pacer.SetBaseDelay(cfg.BaseDelay())
	pacer.SetJitter(cfg.Jitter())
	pacer.SetRandomSeed(cfg.RandomSeed())
	pacer.SetBackoffParam(backoff)

	retryParam := retry.NewRetryParam(cfg.Jitter(), cfg.RandomSeed(), cfg.MaxAttempt(), backoff)
	transport := fetcher.NewHttpFetcher(sink, pacer, retryParam, cfg.MaxBodyBytes())

	iconBackend, err := backend.Open(ctx, cfg, sink)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	store, loadErr := icon.NewStore(ctx, iconBackend, cfg.IconExpiry(), sink)
	if loadErr != nil {
		logger.Warn("icon cache could not be loaded, starting empty",
			zap.String("backend", iconBackend.Name()),
			zap.Error(loadErr),
		)
	}

	service, err := resolver.NewService(cfg, transport, store, sink)
	if err != nil {
		_ = store.Close()
		_ = logger.Sync()
		return nil, err
	}

	return &app{cfg: cfg, logger: logger, service: service}, nil
}

func (a *app) Close() error {
	err := a.service.Close()
	// Sync on a console logger fails with EINVAL on some terminals
	_ = a.logger.Sync()
	return err
}

// withApp loads configuration and runs fn against a fresh app.
func withApp(ctx context.Context, fn func(*app) error) error {
	cfg, err := InitConfigWithError()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
