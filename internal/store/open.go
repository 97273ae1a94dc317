package store

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/crmimport/internal/config"
	"github.com/JonMunkholm/crmimport/internal/core"
)

// Open returns the store selected by cfg.Driver and a function that releases
// it. For postgres the record tables are created when AutoMigrate is set.
func Open(ctx context.Context, cfg config.DatabaseConfig, schemas []*core.Schema) (core.Store, func(), error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return NewMemory(), func() {}, nil
	case config.DriverPostgres, "":
		pool, err := Connect(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		pg := NewPostgres(pool)
		if cfg.AutoMigrate {
			if err := pg.EnsureSchema(ctx, schemas); err != nil {
				pool.Close()
				return nil, nil, err
			}
		}
		return pg, pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
