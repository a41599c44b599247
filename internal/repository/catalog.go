package repository

import (
	"context"
	"fmt"

	"parkfinder/internal/config"
	"parkfinder/internal/model"
)

// CatalogLoader produces the facility catalog once at startup
type CatalogLoader interface {
	LoadFacilities(ctx context.Context) ([]model.Facility, error)
}

// LoadCatalog loads from Postgres when a DSN is configured, otherwise from the catalog file
func LoadCatalog(ctx context.Context, cfg config.CatalogConfig) ([]model.Facility, error) {
	if cfg.DSN != "" {
		repo, err := NewPostgresRepository(cfg.DSN, cfg.Table)
		if err != nil {
			return nil, err
		}
		defer repo.Close()
		return load(ctx, repo)
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("no catalog configured: set CATALOG_PATH or DATABASE_URL")
	}
	return load(ctx, NewFileRepository(cfg.Path))
}

func load(ctx context.Context, loader CatalogLoader) ([]model.Facility, error) {
	facilities, err := loader.LoadFacilities(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateFacilities(facilities); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return facilities, nil
}
