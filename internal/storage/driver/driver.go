// Package driver opens the storage backend named by configuration. It sits
// beside the backends rather than in the parent package because the
// backends import the contract package for its sentinel errors.
package driver

import (
	"context"
	"fmt"

	"github.com/earlyshift/earlyshift/internal/config"
	"github.com/earlyshift/earlyshift/internal/storage"
	"github.com/earlyshift/earlyshift/internal/storage/postgres"
	"github.com/earlyshift/earlyshift/internal/storage/sqlite"
)

// Open creates the store selected by cfg.Driver, running migrations. An
// empty driver defaults to SQLite.
func Open(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Driver {
	case "postgres":
		return postgres.New(ctx, cfg.PostgresDSN)
	case "sqlite", "":
		return sqlite.New(ctx, cfg.DBPath)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
