package store

import (
	"context"
	"fmt"

	"github.com/avatarstudio/avatarstudio/internal/cache"
	"github.com/avatarstudio/avatarstudio/internal/config"
	"github.com/avatarstudio/avatarstudio/internal/repository"
)

// Handle is an opened Store together with the connection behind it.
type Handle struct {
	Store
	driver string
	ping   func(ctx context.Context) error
	close  func() error
}

// Driver returns the STORE_DRIVER the handle was opened with.
func (h *Handle) Driver() string {
	return h.driver
}

// Ping checks connectivity of the underlying backend.
func (h *Handle) Ping(ctx context.Context) error {
	return h.ping(ctx)
}

// Close releases the underlying connection.
func (h *Handle) Close() error {
	return h.close()
}

// Open connects the backend selected by cfg. The postgres driver applies
// pending migrations before use.
func Open(ctx context.Context, cfg *config.StoreConfig) (*Handle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Driver {
	case config.StoreMemory:
		m := NewMemory()
		return &Handle{Store: m, driver: cfg.Driver, ping: m.Ping, close: m.Close}, nil

	case config.StoreSQLite:
		s, err := NewSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &Handle{Store: s, driver: cfg.Driver, ping: s.Ping, close: s.Close}, nil

	case config.StoreRedis:
		c, err := cache.New(ctx, cfg.RedisURL, cache.WithKeyPrefix(cfg.RedisKeyPrefix))
		if err != nil {
			return nil, err
		}
		return &Handle{Store: c, driver: cfg.Driver, ping: c.Ping, close: c.Close}, nil

	case config.StorePostgres:
		if err := repository.Migrate(ctx, cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("migrating store database: %w", err)
		}
		repo, err := repository.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return &Handle{
			Store:  repo,
			driver: cfg.Driver,
			ping:   repo.Ping,
			close: func() error {
				repo.Close()
				return nil
			},
		}, nil
	}

	return nil, fmt.Errorf("%w: %q", config.ErrUnknownStoreDriver, cfg.Driver)
}
