package repository

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"parkfinder/internal/model"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// connect opens and pings the database; the DSN is passed through unchanged
var connect = sqlx.Connect

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// PostgresRepository reads the facility catalog from a PostgreSQL table
// with columns id, address, lat, lng (lat/lng nullable)
type PostgresRepository struct {
	db    *sqlx.DB
	table string
}

// NewPostgresRepository connects to dsn and verifies table is a plain identifier
func NewPostgresRepository(dsn, table string) (*PostgresRepository, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid catalog table name %q", table)
	}

	db, err := connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// The catalog is read once at startup
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Test connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{db: db, table: table}, nil
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// LoadFacilities returns every catalog row in id order
func (r *PostgresRepository) LoadFacilities(ctx context.Context) ([]model.Facility, error) {
	var facilities []model.Facility
	if err := r.db.SelectContext(ctx, &facilities, selectFacilitiesQuery(r.table)); err != nil {
		return nil, fmt.Errorf("failed to load catalog from %s: %w", r.table, err)
	}
	return facilities, nil
}

func selectFacilitiesQuery(table string) string {
	return fmt.Sprintf(`SELECT id, address, lat, lng FROM %s ORDER BY id`, table)
}
