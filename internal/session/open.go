package session

import (
	"context"
	"fmt"
)

// Supported store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Options selects and configures a store backend.
type Options struct {
	Driver      string
	SQLitePath  string
	DatabaseURL string
}

// Open returns the namespaced backend for the configured driver.
func Open(ctx context.Context, opts Options) (NamespacedBackend, error) {
	switch opts.Driver {
	case "", DriverMemory:
		return NewMemoryBackend(), nil
	case DriverSQLite:
		if opts.SQLitePath == "" {
			return nil, fmt.Errorf("session: sqlite driver requires a path")
		}
		return OpenSQLite(ctx, opts.SQLitePath)
	case DriverPostgres:
		if opts.DatabaseURL == "" {
			return nil, fmt.Errorf("session: postgres driver requires DATABASE_URL")
		}
		return ConnectPostgres(ctx, opts.DatabaseURL)
	default:
		return nil, fmt.Errorf("session: unknown store driver %q", opts.Driver)
	}
}
