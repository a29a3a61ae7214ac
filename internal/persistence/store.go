// Package persistence stores item state, archived samples and market
// aggregates. Writes from the trade path go through an Executor so they
// never block the caller.
package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/jamesperreaultdev/Nascraft/internal/economy"
	"github.com/jamesperreaultdev/Nascraft/internal/stats"
)

//go:generate mockgen -source=store.go -destination=mock/store.go -package=mock

// Store is the storage collaborator. An empty marketID addresses the
// legacy single-market items table.
type Store interface {
	LoadItem(ctx context.Context, marketID, identifier string) (economy.ItemState, bool, error)
	SaveItem(ctx context.Context, marketID string, st economy.ItemState) error
	SaveInstants(ctx context.Context, rows []stats.Instant) error
	LoadInstants(ctx context.Context, marketID, identifier string, since time.Time) ([]stats.Instant, error)
	PurgeInstants(ctx context.Context, before time.Time) (int64, error)
	SaveCPI(ctx context.Context, marketID string, at time.Time, value float64) error
	SaveMeta(ctx context.Context, key, value string) error
	GetMeta(ctx context.Context, key string) (string, error)
	Close() error
}

// Open returns the store for driver ("sqlite" or "postgres").
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "postgres", "postgresql", "pg":
		s, err := OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sqlite", "":
		s, err := OpenSQLite(dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
