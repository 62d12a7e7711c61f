package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/call-pipeline/internal/resilience"
	"github.com/sells-group/call-pipeline/internal/store"
)

// initStore opens the configured store, retrying transient connection
// failures.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "call-pipeline.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		poolCfg := &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		}
		return resilience.DoVal(ctx, resilience.ConnectRetryConfig(cfg.Store.ConnectAttempts),
			func(ctx context.Context) (store.Store, error) {
				return store.NewPostgres(ctx, cfg.Store.DatabaseURL, poolCfg)
			})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openMigratedStore opens the store and applies the schema. Callers must
// close the returned store.
func openMigratedStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}
