package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkfinder/internal/config"
	"parkfinder/internal/model"
)

func writeCatalog(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCatalog_FileFormats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "JSON list",
			file: "carparks.json",
			content: `[
  {"id": "C1", "address": "123 Main St", "lat": 1.30, "lng": 103.80},
  {"id": "C3", "address": "789 Main Avenue", "lat": null, "lng": null}
]`,
		},
		{
			name: "YAML list",
			file: "carparks.yaml",
			content: `
- id: C1
  address: 123 Main St
  lat: 1.30
  lng: 103.80
- id: C3
  address: 789 Main Avenue
`,
		},
		{
			name: "Wrapped YAML",
			file: "carparks.yml",
			content: `
carparks:
  - {id: C1, address: 123 Main St, lat: 1.30, lng: 103.80}
  - {id: C3, address: 789 Main Avenue}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeCatalog(t, tt.file, tt.content)

			got, err := LoadCatalog(context.Background(), config.CatalogConfig{Path: path})
			require.NoError(t, err)
			require.Len(t, got, 2)

			p, ok := got[0].Point()
			assert.True(t, ok)
			assert.Equal(t, model.Point{Lat: 1.30, Lng: 103.80}, p)
			assert.Equal(t, "123 Main St", got[0].Address)

			_, ok = got[1].Point()
			assert.False(t, ok, "rows without coordinates are kept")
			assert.Equal(t, "C3", got[1].ID)
		})
	}
}

func TestLoadCatalog_EmptyFile(t *testing.T) {
	path := writeCatalog(t, "carparks.json", "")

	got, err := LoadCatalog(context.Background(), config.CatalogConfig{Path: path})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestLoadCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{name: "Missing id", file: "c.json", content: `[{"address": "1 Road"}]`},
		{name: "Duplicate id", file: "c.json", content: `[{"id": "C1", "address": "a"}, {"id": "C1", "address": "b"}]`},
		{name: "Half coordinates", file: "c.json", content: `[{"id": "C1", "address": "a", "lat": 1.3}]`},
		{name: "Out of range", file: "c.json", content: `[{"id": "C1", "address": "a", "lat": 103.8, "lng": 1.3}]`},
		{name: "Scalar document", file: "c.yaml", content: `just text`},
		{name: "Malformed JSON", file: "c.json", content: `[{"id": "C1",`},
		{name: "Unsupported extension", file: "c.csv", content: `id,address`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeCatalog(t, tt.file, tt.content)
			_, err := LoadCatalog(context.Background(), config.CatalogConfig{Path: path})
			assert.Error(t, err)
		})
	}
}

func TestLoadCatalog_MissingFile(t *testing.T) {
	_, err := LoadCatalog(context.Background(), config.CatalogConfig{Path: filepath.Join(t.TempDir(), "none.json")})
	assert.Error(t, err)
}

func TestLoadCatalog_NothingConfigured(t *testing.T) {
	_, err := LoadCatalog(context.Background(), config.CatalogConfig{})
	assert.ErrorContains(t, err, "no catalog configured")
}

func TestNewPostgresRepository_RejectsTableName(t *testing.T) {
	for _, table := range []string{"", "carparks; DROP TABLE x", "1carparks", "a.b.c"} {
		_, err := NewPostgresRepository("postgres://localhost/none", table)
		assert.ErrorContains(t, err, "invalid catalog table name", table)
	}
}

func TestNewPostgresRepository_PassesDSNUnchanged(t *testing.T) {
	var gotDriver, gotDSN string
	orig := connect
	connect = func(driver, dsn string) (*sqlx.DB, error) {
		gotDriver, gotDSN = driver, dsn
		return nil, errors.New("connection refused")
	}
	t.Cleanup(func() { connect = orig })

	tests := []struct {
		name string
		dsn  string
	}{
		{name: "URL", dsn: "postgres://parkfinder@db:5432/transport?sslmode=disable"},
		{name: "Key value", dsn: "host=db dbname=transport user=parkfinder sslmode=disable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPostgresRepository(tt.dsn, "carparks")
			assert.ErrorContains(t, err, "failed to connect to database")
			assert.Equal(t, "postgres", gotDriver)
			assert.Equal(t, tt.dsn, gotDSN)
		})
	}
}

func TestSelectFacilitiesQuery(t *testing.T) {
	assert.Equal(t, "SELECT id, address, lat, lng FROM transport.carparks ORDER BY id",
		selectFacilitiesQuery("transport.carparks"))
}
