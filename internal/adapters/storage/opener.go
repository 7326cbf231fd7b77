package storage

import (
	"context"

	"go.trai.ch/relcache/internal/core/domain"
	"go.trai.ch/relcache/internal/core/ports"
	"go.trai.ch/zerr"
)

// Opener implements ports.StoreOpener for the built-in backends.
type Opener struct{}

var _ ports.StoreOpener = Opener{}

// Open connects to the backend named by cfg.
func (Opener) Open(ctx context.Context, cfg domain.StoreConfig) (ports.CacheStore, error) {
	switch cfg.Backend {
	case domain.BackendMemory, "":
		return NewMemoryStore(), nil
	case domain.BackendSQLite:
		path := cfg.Path
		if path == "" {
			path = domain.DefaultDatabasePath()
		}
		return NewSQLiteStore(ctx, path)
	case domain.BackendRedis:
		return NewRedisStore(ctx, cfg.RedisURL, cfg.KeyPrefix)
	default:
		return nil, zerr.With(zerr.Wrap(domain.ErrUnknownBackend, domain.ErrStoreOpenFailed.Error()), "backend", string(cfg.Backend))
	}
}
