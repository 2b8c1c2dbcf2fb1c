package store

import (
	"context"
	"fmt"

	"numintel/internal/analysis/models"
	"numintel/internal/platform/config"
	id "numintel/pkg/domain"
)

// Backend is a store together with its lifecycle, as selected by Open.
type Backend interface {
	Save(ctx context.Context, r *models.Record) error
	SaveAll(ctx context.Context, records []*models.Record) error
	FindByID(ctx context.Context, analysisID id.AnalysisID) (*models.Record, error)
	Recent(ctx context.Context, filter models.RecentFilter) ([]*models.Record, error)
	Count(ctx context.Context) (int, error)
	Health(ctx context.Context) error
	Close() error
}

var (
	_ Backend = (*InMemoryStore)(nil)
	_ Backend = (*SQLiteStore)(nil)
	_ Backend = (*PostgresStore)(nil)
)

// Open builds the store named by cfg.Driver and applies its schema.
func Open(ctx context.Context, cfg config.StoreConfig) (Backend, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return NewInMemory(), nil
	case config.DriverSQLite:
		s, err := OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverPostgres:
		s, err := OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
