package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hfi/wiki-realnames/internal/config"
)

// Backends holds the account and page stores selected by configuration.
// Accounts and Pages may be the same value.
type Backends struct {
	Accounts AccountBackend
	Pages    PageBackend
}

// Open builds the backends described by cfg, applying migrations when asked
func Open(ctx context.Context, cfg config.StorageConfig, logger zerolog.Logger) (*Backends, error) {
	b := &Backends{}

	switch cfg.Driver {
	case "memory":
		mem := NewMemoryStore()
		b.Pages = mem
		b.Accounts = mem
		logger.Warn().Msg("using in-memory storage, all pages render as missing until populated")
	case "sqlite", "postgres":
		store, err := OpenSQLStore(ctx, Dialect(cfg.Driver), cfg.DSN, cfg.ReplicaDSN)
		if err != nil {
			return nil, err
		}
		if cfg.Migrate {
			if err := store.Migrate(ctx); err != nil {
				store.Close()
				return nil, err
			}
			logger.Info().Str("driver", cfg.Driver).Msg("migrations applied")
		}
		b.Pages = store
		b.Accounts = store
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}

	if cfg.Accounts == "redis" {
		redisStore, err := NewRedisAccountStore(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Prefix)
		if err != nil {
			b.Pages.Close()
			return nil, err
		}
		b.Accounts = redisStore
		logger.Info().Str("address", cfg.Redis.Address).Msg("reading accounts from Redis")
	}

	return b, nil
}

// Ping checks every distinct backend
func (b *Backends) Ping(ctx context.Context) error {
	if err := b.Pages.Ping(ctx); err != nil {
		return fmt.Errorf("page store: %w", err)
	}
	if any(b.Accounts) != any(b.Pages) {
		if err := b.Accounts.Ping(ctx); err != nil {
			return fmt.Errorf("account store: %w", err)
		}
	}
	return nil
}

// Close closes every distinct backend
func (b *Backends) Close() error {
	err := b.Pages.Close()
	if any(b.Accounts) != any(b.Pages) {
		err = errors.Join(err, b.Accounts.Close())
	}
	return err
}
