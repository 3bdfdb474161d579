package backend

import (
	"context"

	"github.com/rohmanhakim/linkmeta/internal/config"
	"github.com/rohmanhakim/linkmeta/internal/telemetry"
)

// Open builds the backend named by cfg.IconBackend().
func Open(ctx context.Context, cfg config.Config, sink telemetry.Sink) (Backend, error) {
	switch cfg.IconBackend() {
	case config.IconBackendFile:
		return NewFileBackend(cfg.IconPath(), sink), nil
	case config.IconBackendSQLite:
		b, err := OpenSQLite(cfg.IconPath())
		if err != nil {
			return nil, err
		}
		return b, nil
	case config.IconBackendRedis:
		b, err := OpenRedis(ctx, cfg.RedisAddr())
		if err != nil {
			return nil, err
		}
		return b, nil
	case config.IconBackendPostgres:
		b, err := OpenPostgres(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, err
		}
		return b, nil
	case config.IconBackendMemory:
		return NewMemoryBackend(), nil
	default:
		return nil, &StoreError{
			Message: "no backend named " + cfg.IconBackend(),
			Cause:   ErrCauseUnknownBackend,
			Backend: cfg.IconBackend(),
		}
	}
}
